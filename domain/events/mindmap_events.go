package events

import (
	"time"
)

// Event type names published on the event bus.
const (
	TypeMindmapCreated      = "mindmap.created"
	TypeMindmapSaved        = "mindmap.saved"
	TypeMindmapReset        = "mindmap.reset"
	TypeNodesAdded          = "mindmap.nodes_added"
	TypeSubtreeDeleted      = "mindmap.subtree_deleted"
	TypeNodeTextUpdated     = "mindmap.node_text_updated"
	TypeNodeCollapseToggled = "mindmap.node_collapse_toggled"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(mindmapID, eventType string, ts time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: mindmapID,
		EventType:   eventType,
		Timestamp:   ts,
		Version:     1,
	}
}

// MindmapCreated is raised when a mindmap is created on first access
type MindmapCreated struct {
	BaseEvent
	Title string `json:"title"`
}

// NewMindmapCreated creates a MindmapCreated event
func NewMindmapCreated(mindmapID, title string, ts time.Time) MindmapCreated {
	return MindmapCreated{BaseEvent: newBase(mindmapID, TypeMindmapCreated, ts), Title: title}
}

// MindmapSaved is raised when a whole mindmap is replaced by a client
type MindmapSaved struct {
	BaseEvent
	NodeCount int `json:"node_count"`
}

// NewMindmapSaved creates a MindmapSaved event
func NewMindmapSaved(mindmapID string, nodeCount int, ts time.Time) MindmapSaved {
	return MindmapSaved{BaseEvent: newBase(mindmapID, TypeMindmapSaved, ts), NodeCount: nodeCount}
}

// MindmapReset is raised when a mindmap is replaced by the starter template
type MindmapReset struct {
	BaseEvent
}

// NewMindmapReset creates a MindmapReset event
func NewMindmapReset(mindmapID string, ts time.Time) MindmapReset {
	return MindmapReset{BaseEvent: newBase(mindmapID, TypeMindmapReset, ts)}
}

// NodesAdded is raised by add-node and add-branch
type NodesAdded struct {
	BaseEvent
	ParentID string   `json:"parent_id"`
	NodeIDs  []string `json:"node_ids"`
}

// NewNodesAdded creates a NodesAdded event
func NewNodesAdded(mindmapID, parentID string, nodeIDs []string, ts time.Time) NodesAdded {
	return NodesAdded{
		BaseEvent: newBase(mindmapID, TypeNodesAdded, ts),
		ParentID:  parentID,
		NodeIDs:   nodeIDs,
	}
}

// SubtreeDeleted is raised when a node and its descendants are removed
type SubtreeDeleted struct {
	BaseEvent
	NodeID     string   `json:"node_id"`
	RemovedIDs []string `json:"removed_ids"`
}

// NewSubtreeDeleted creates a SubtreeDeleted event
func NewSubtreeDeleted(mindmapID, nodeID string, removed []string, ts time.Time) SubtreeDeleted {
	return SubtreeDeleted{
		BaseEvent:  newBase(mindmapID, TypeSubtreeDeleted, ts),
		NodeID:     nodeID,
		RemovedIDs: removed,
	}
}

// NodeTextUpdated is raised when a node label changes
type NodeTextUpdated struct {
	BaseEvent
	NodeID string `json:"node_id"`
	Text   string `json:"text"`
}

// NewNodeTextUpdated creates a NodeTextUpdated event
func NewNodeTextUpdated(mindmapID, nodeID, text string, ts time.Time) NodeTextUpdated {
	return NodeTextUpdated{
		BaseEvent: newBase(mindmapID, TypeNodeTextUpdated, ts),
		NodeID:    nodeID,
		Text:      text,
	}
}

// NodeCollapseToggled is raised when a node is collapsed or expanded
type NodeCollapseToggled struct {
	BaseEvent
	NodeID    string `json:"node_id"`
	Collapsed bool   `json:"collapsed"`
}

// NewNodeCollapseToggled creates a NodeCollapseToggled event
func NewNodeCollapseToggled(mindmapID, nodeID string, collapsed bool, ts time.Time) NodeCollapseToggled {
	return NodeCollapseToggled{
		BaseEvent: newBase(mindmapID, TypeNodeCollapseToggled, ts),
		NodeID:    nodeID,
		Collapsed: collapsed,
	}
}
