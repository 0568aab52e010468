package entities

import "time"

const (
	// SampleMindmapID is the id of the mindmap seeded at startup.
	SampleMindmapID = "sample-mindmap"
	// SampleRootID is the root node id of the seed tree.
	SampleRootID = "root"
)

type seedNode struct {
	id       string
	text     string
	children []seedNode
}

var sampleTree = seedNode{
	id:   SampleRootID,
	text: "Project Planning",
	children: []seedNode{
		{id: "goals", text: "Goals", children: []seedNode{
			{id: "goal1", text: "Increase Revenue"},
			{id: "goal2", text: "Improve UX"},
		}},
		{id: "timeline", text: "Timeline", children: []seedNode{
			{id: "phase1", text: "Q1 2025"},
			{id: "phase2", text: "Q2 2025"},
		}},
		{id: "resources", text: "Resources", children: []seedNode{
			{id: "team", text: "Team Members"},
			{id: "budget", text: "Budget Allocation"},
		}},
	},
}

// NewSampleMindmap builds the "Project Planning" demonstration tree. It is
// the starter content for every mindmap created on demand.
func NewSampleMindmap(now time.Time) *Mindmap {
	now = now.UTC()
	m := &Mindmap{
		ID:        SampleMindmapID,
		Title:     sampleTree.text,
		RootID:    sampleTree.id,
		Nodes:     make(map[string]*MindmapNode),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.Nodes[sampleTree.id] = &MindmapNode{ID: sampleTree.id, Text: sampleTree.text, Children: []string{}}
	type pending struct {
		parent *MindmapNode
		seed   seedNode
	}
	queue := make([]pending, 0, len(sampleTree.children))
	for _, c := range sampleTree.children {
		queue = append(queue, pending{parent: m.Nodes[sampleTree.id], seed: c})
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		node := NewChildNode(p.seed.id, p.seed.text, p.parent)
		p.parent.Children = append(p.parent.Children, node.ID)
		m.Nodes[node.ID] = node
		for _, c := range p.seed.children {
			queue = append(queue, pending{parent: node, seed: c})
		}
	}
	return m
}

// NewMindmapFromTemplate returns the seed tree keyed under id.
func NewMindmapFromTemplate(id string, now time.Time) *Mindmap {
	m := NewSampleMindmap(now)
	m.ID = id
	return m
}
