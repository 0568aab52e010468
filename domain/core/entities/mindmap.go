// Package entities contains the mindmap aggregate and its nodes.
package entities

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// MindmapNode is a single labelled node in a mindmap tree.
type MindmapNode struct {
	ID        string   `json:"id" dynamodbav:"id"`
	Text      string   `json:"text" dynamodbav:"text"`
	ParentID  *string  `json:"parent_id" dynamodbav:"parent_id"`
	Children  []string `json:"children" dynamodbav:"children"`
	Level     int      `json:"level" dynamodbav:"level"`
	Collapsed bool     `json:"collapsed" dynamodbav:"collapsed"`
}

// NewChildNode creates a node attached below parent. The caller links it into
// the parent's children.
func NewChildNode(id, text string, parent *MindmapNode) *MindmapNode {
	parentID := parent.ID
	return &MindmapNode{
		ID:       id,
		Text:     text,
		ParentID: &parentID,
		Children: []string{},
		Level:    parent.Level + 1,
	}
}

// IsRoot reports whether the node has no parent.
func (n *MindmapNode) IsRoot() bool {
	return n.ParentID == nil
}

// Clone returns a deep copy of the node.
func (n *MindmapNode) Clone() *MindmapNode {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	c.Children = make([]string, len(n.Children))
	copy(c.Children, n.Children)
	return &c
}

// Mindmap is a tree of nodes keyed by id with a distinguished root.
type Mindmap struct {
	ID        string                  `json:"id" dynamodbav:"id"`
	Title     string                  `json:"title" dynamodbav:"title"`
	RootID    string                  `json:"root_id" dynamodbav:"root_id"`
	Nodes     map[string]*MindmapNode `json:"nodes" dynamodbav:"nodes"`
	CreatedAt time.Time               `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time               `json:"updated_at" dynamodbav:"updated_at"`
}

// MindmapSummary is the listing view of a mindmap.
type MindmapSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	NodeCount int       `json:"node_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the listing view of m.
func (m *Mindmap) Summary() MindmapSummary {
	return MindmapSummary{
		ID:        m.ID,
		Title:     m.Title,
		NodeCount: len(m.Nodes),
		UpdatedAt: m.UpdatedAt,
	}
}

// Root returns the root node, or nil if the root id is dangling.
func (m *Mindmap) Root() *MindmapNode {
	return m.Nodes[m.RootID]
}

// Node looks up a node by id.
func (m *Mindmap) Node(id string) (*MindmapNode, bool) {
	n, ok := m.Nodes[id]
	return n, ok
}

// Clone returns a deep copy of the mindmap. Nil children lists come back empty.
func (m *Mindmap) Clone() *Mindmap {
	if m == nil {
		return nil
	}
	c := *m
	c.Nodes = make(map[string]*MindmapNode, len(m.Nodes))
	for id, n := range m.Nodes {
		if n == nil {
			continue
		}
		c.Nodes[id] = n.Clone()
	}
	return &c
}

// Descendants returns nodeID and every node reachable from it through
// children links. Children that no longer exist in the node map are skipped.
func (m *Mindmap) Descendants(nodeID string) map[string]struct{} {
	closure := make(map[string]struct{})
	stack := []string{nodeID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := closure[id]; seen {
			continue
		}
		node, ok := m.Nodes[id]
		if !ok {
			continue
		}
		closure[id] = struct{}{}
		stack = append(stack, node.Children...)
	}
	return closure
}

// walk visits nodes depth-first from the root in children order. Returning
// false from visit prunes the subtree below that node.
func (m *Mindmap) walk(visit func(n *MindmapNode, depth int) bool) {
	type frame struct {
		id    string
		depth int
	}
	root, ok := m.Nodes[m.RootID]
	if !ok {
		return
	}
	seen := make(map[string]bool, len(m.Nodes))
	stack := []frame{{id: root.ID}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, ok := m.Nodes[f.id]
		if !ok || seen[f.id] {
			continue
		}
		seen[f.id] = true
		if !visit(node, f.depth) {
			continue
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: node.Children[i], depth: f.depth + 1})
		}
	}
}

// VisibleNodes returns the nodes not hidden under a collapsed ancestor, in
// display order. A collapsed node itself is visible.
func (m *Mindmap) VisibleNodes() []*MindmapNode {
	visible := make([]*MindmapNode, 0, len(m.Nodes))
	m.walk(func(n *MindmapNode, _ int) bool {
		visible = append(visible, n)
		return !n.Collapsed
	})
	return visible
}

// Outline writes an indented text rendering of the visible tree.
func (m *Mindmap) Outline(w io.Writer) error {
	var err error
	fmt.Fprintf(w, "%s (%s)\n", m.Title, m.ID)
	m.walk(func(n *MindmapNode, depth int) bool {
		if err != nil {
			return false
		}
		marker := "-"
		if n.Collapsed && len(n.Children) > 0 {
			marker = "+"
		}
		_, err = fmt.Fprintf(w, "%s%s %s [%s]\n", strings.Repeat("  ", depth), marker, n.Text, n.ID)
		return !n.Collapsed
	})
	return err
}

// CheckConsistency verifies the tree invariants: the root exists and has no
// parent, every child link is mirrored by the child's parent id, levels grow
// by one per edge and every node is reachable from the root exactly once.
func (m *Mindmap) CheckConsistency() error {
	if m.ID == "" {
		return fmt.Errorf("mindmap id is empty")
	}
	root, ok := m.Nodes[m.RootID]
	if !ok || root == nil {
		return fmt.Errorf("root node %q not found", m.RootID)
	}
	if root.ParentID != nil {
		return fmt.Errorf("root node %q has a parent", m.RootID)
	}
	if root.Level != 0 {
		return fmt.Errorf("root node %q has level %d", m.RootID, root.Level)
	}

	reached := map[string]bool{root.ID: true}
	queue := []*MindmapNode{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, childID := range parent.Children {
			child, ok := m.Nodes[childID]
			if !ok || child == nil {
				return fmt.Errorf("node %q lists missing child %q", parent.ID, childID)
			}
			if reached[childID] {
				return fmt.Errorf("node %q is reachable more than once", childID)
			}
			if child.ParentID == nil || *child.ParentID != parent.ID {
				return fmt.Errorf("node %q does not point back to parent %q", childID, parent.ID)
			}
			if child.Level != parent.Level+1 {
				return fmt.Errorf("node %q has level %d, want %d", childID, child.Level, parent.Level+1)
			}
			reached[childID] = true
			queue = append(queue, child)
		}
	}

	for id, n := range m.Nodes {
		if n == nil || n.ID != id {
			return fmt.Errorf("node key %q does not match node id", id)
		}
		if !reached[id] {
			return fmt.Errorf("node %q is not reachable from the root", id)
		}
	}
	return nil
}
