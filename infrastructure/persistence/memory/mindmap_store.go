package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/utils"
)

const maxIDAttempts = 16

var _ ports.MindmapStore = (*MindmapStore)(nil)

// MindmapStore provides the in-memory implementation of ports.MindmapStore.
// A single RWMutex serializes every mutation; reads hand out clones.
type MindmapStore struct {
	mu        sync.RWMutex
	mindmaps  map[string]*entities.Mindmap
	nodeLimit int
	now       utils.Clock
	newID     entities.IDGenerator
}

// StoreOption configures a MindmapStore
type StoreOption func(*MindmapStore)

// WithClock overrides the time source used for timestamps
func WithClock(clock utils.Clock) StoreOption {
	return func(s *MindmapStore) { s.now = clock }
}

// WithIDGenerator overrides the node id generator
func WithIDGenerator(gen entities.IDGenerator) StoreOption {
	return func(s *MindmapStore) { s.newID = gen }
}

// WithNodeLimit caps the number of nodes per mindmap
func WithNodeLimit(n int) StoreOption {
	return func(s *MindmapStore) { s.nodeLimit = n }
}

// NewMindmapStore creates a store seeded with the sample mindmap
func NewMindmapStore(opts ...StoreOption) *MindmapStore {
	s := &MindmapStore{
		mindmaps: make(map[string]*entities.Mindmap),
		now:      utils.UTCNow,
		newID:    entities.GenerateNodeID,
	}
	for _, opt := range opts {
		opt(s)
	}

	sample := entities.NewSampleMindmap(s.now())
	s.mindmaps[sample.ID] = sample
	return s
}

// Get retrieves a mindmap by id without creating it
func (s *MindmapStore) Get(id string) (*entities.Mindmap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mindmaps[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// GetOrCreate retrieves a mindmap, creating it from the template if absent
func (s *MindmapStore) GetOrCreate(id string) *entities.Mindmap {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(id).Clone()
}

// Save upserts m under its own id. updated_at is set by the store, never
// taken from the caller, and never moves backwards.
func (s *MindmapStore) Save(m *entities.Mindmap) *entities.Mindmap {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := m.Clone()
	stored.UpdatedAt = time.Time{}
	if existing, ok := s.mindmaps[stored.ID]; ok {
		stored.UpdatedAt = existing.UpdatedAt
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = existing.CreatedAt
		}
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.touchLocked(stored)
	s.mindmaps[stored.ID] = stored
	return stored.Clone()
}

// AddNode appends a new child with the given text under parentID
func (s *MindmapStore) AddNode(mindmapID, parentID, text string) (*entities.Mindmap, *entities.MindmapNode, error) {
	m, nodes, err := s.AddBranch(mindmapID, parentID, []string{text})
	if err != nil {
		return nil, nil, err
	}
	return m, nodes[0], nil
}

// AddBranch appends one child per text under parentID, preserving order.
// The mindmap is saved once after all insertions.
func (s *MindmapStore) AddBranch(mindmapID, parentID string, texts []string) (*entities.Mindmap, []*entities.MindmapNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.getOrCreateLocked(mindmapID)
	parent, ok := m.Nodes[parentID]
	if !ok {
		return nil, nil, pkgerrors.NewNotFoundError(fmt.Sprintf("parent node %s", parentID)).
			WithDetails(map[string]interface{}{"mindmap_id": mindmapID, "node_id": parentID})
	}
	if err := s.checkLimitLocked(m, len(texts)); err != nil {
		return nil, nil, err
	}
	ids, err := s.allocateIDsLocked(m, len(texts))
	if err != nil {
		return nil, nil, err
	}

	created := make([]*entities.MindmapNode, 0, len(texts))
	for i, text := range texts {
		node := entities.NewChildNode(ids[i], text, parent)
		parent.Children = append(parent.Children, node.ID)
		m.Nodes[node.ID] = node
		created = append(created, node.Clone())
	}
	s.touchLocked(m)
	return m.Clone(), created, nil
}

// DeleteNode removes nodeID and every descendant
func (s *MindmapStore) DeleteNode(mindmapID, nodeID string) (*entities.Mindmap, error) {
	m, _, err := s.DeleteSubtree(mindmapID, nodeID)
	return m, err
}

// DeleteSubtree removes nodeID and every descendant and reports the removed
// ids in sorted order. The root cannot be deleted.
func (s *MindmapStore) DeleteSubtree(mindmapID, nodeID string) (*entities.Mindmap, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.getOrCreateLocked(mindmapID)
	node, ok := m.Nodes[nodeID]
	if !ok {
		return nil, nil, nodeNotFound(mindmapID, nodeID)
	}
	if node.IsRoot() || nodeID == m.RootID {
		return nil, nil, pkgerrors.NewInvalidOperationError("cannot delete root node").
			WithDetails(map[string]interface{}{"mindmap_id": mindmapID, "node_id": nodeID})
	}

	closure := m.Descendants(nodeID)

	if parent, ok := m.Nodes[*node.ParentID]; ok {
		kept := parent.Children[:0]
		for _, childID := range parent.Children {
			if childID != nodeID {
				kept = append(kept, childID)
			}
		}
		parent.Children = kept
	}

	removed := make([]string, 0, len(closure))
	for id := range closure {
		delete(m.Nodes, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)

	s.touchLocked(m)
	return m.Clone(), removed, nil
}

// UpdateNodeText overwrites the text of nodeID
func (s *MindmapStore) UpdateNodeText(mindmapID, nodeID, text string) (*entities.Mindmap, error) {
	return s.mutateNode(mindmapID, nodeID, func(n *entities.MindmapNode) {
		n.Text = text
	})
}

// ToggleCollapse flips the collapsed flag of nodeID
func (s *MindmapStore) ToggleCollapse(mindmapID, nodeID string) (*entities.Mindmap, error) {
	return s.mutateNode(mindmapID, nodeID, func(n *entities.MindmapNode) {
		n.Collapsed = !n.Collapsed
	})
}

func (s *MindmapStore) mutateNode(mindmapID, nodeID string, fn func(n *entities.MindmapNode)) (*entities.Mindmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.getOrCreateLocked(mindmapID)
	node, ok := m.Nodes[nodeID]
	if !ok {
		return nil, nodeNotFound(mindmapID, nodeID)
	}
	fn(node)
	s.touchLocked(m)
	return m.Clone(), nil
}

// Reset replaces the mindmap with a fresh copy of the template
func (s *MindmapStore) Reset(mindmapID string) *entities.Mindmap {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := entities.NewMindmapFromTemplate(mindmapID, s.now())
	if existing, ok := s.mindmaps[mindmapID]; ok {
		fresh.CreatedAt = existing.CreatedAt
		fresh.UpdatedAt = existing.UpdatedAt
	}
	s.touchLocked(fresh)
	s.mindmaps[mindmapID] = fresh
	return fresh.Clone()
}

// List summarizes all mindmaps ordered by id
func (s *MindmapStore) List() []entities.MindmapSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]entities.MindmapSummary, 0, len(s.mindmaps))
	for _, m := range s.mindmaps {
		summaries = append(summaries, m.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// Restore inserts m as-is unless a mindmap with the same id already exists
func (s *MindmapStore) Restore(m *entities.Mindmap) bool {
	if m == nil || m.ID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mindmaps[m.ID]; exists {
		return false
	}
	s.mindmaps[m.ID] = m.Clone()
	return true
}

// SetNodeLimit changes the per-mindmap node cap; 0 disables it
func (s *MindmapStore) SetNodeLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodeLimit = n
}

// Len returns the number of mindmaps held
func (s *MindmapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.mindmaps)
}

func (s *MindmapStore) getOrCreateLocked(id string) *entities.Mindmap {
	if m, ok := s.mindmaps[id]; ok {
		return m
	}
	m := entities.NewMindmapFromTemplate(id, s.now())
	s.mindmaps[id] = m
	return m
}

// touchLocked refreshes updated_at. Every write moves it strictly forward,
// so snapshots of one mindmap are totally ordered by it.
func (s *MindmapStore) touchLocked(m *entities.Mindmap) {
	m.UpdatedAt = utils.LatestOf(s.now(), m.UpdatedAt.Add(time.Nanosecond))
}

func (s *MindmapStore) checkLimitLocked(m *entities.Mindmap, adding int) error {
	if s.nodeLimit <= 0 || len(m.Nodes)+adding <= s.nodeLimit {
		return nil
	}
	return pkgerrors.NewInvalidOperationError(
		fmt.Sprintf("mindmap %s would exceed %d nodes", m.ID, s.nodeLimit)).
		WithDetails(map[string]interface{}{
			"mindmap_id": m.ID,
			"node_count": len(m.Nodes),
			"adding":     adding,
			"limit":      s.nodeLimit,
		})
}

// allocateIDsLocked generates n ids unused in m and distinct from each other.
func (s *MindmapStore) allocateIDsLocked(m *entities.Mindmap, n int) ([]string, error) {
	ids := make([]string, 0, n)
	taken := make(map[string]bool, n)
	for len(ids) < n {
		id, ok := "", false
		for attempt := 0; attempt < maxIDAttempts; attempt++ {
			id = s.newID()
			if _, exists := m.Nodes[id]; !exists && !taken[id] {
				ok = true
				break
			}
		}
		if !ok {
			return nil, pkgerrors.NewInternalError("could not allocate a unique node id").
				WithDetail("mindmap_id", m.ID)
		}
		taken[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func nodeNotFound(mindmapID, nodeID string) error {
	return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", nodeID)).
		WithDetails(map[string]interface{}{"mindmap_id": mindmapID, "node_id": nodeID})
}
