// Package ports declares the interfaces the application layer depends on.
package ports

import (
	"context"
	"errors"

	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/events"
)

// ErrArchiveMiss is returned by MindmapArchive.Load when no snapshot exists.
var ErrArchiveMiss = errors.New("mindmap not archived")

// MindmapStore is the authoritative keyed collection of mindmap trees.
// Every mutation creates the addressed mindmap from the starter template when
// it does not exist yet. Returned mindmaps are snapshots; callers may modify
// them freely.
type MindmapStore interface {
	// Get looks up a mindmap without creating it
	Get(id string) (*entities.Mindmap, bool)

	// GetOrCreate returns the mindmap, creating it from the template if absent
	GetOrCreate(id string) *entities.Mindmap

	// Save refreshes updated_at and upserts m under m.ID (last writer wins)
	Save(m *entities.Mindmap) *entities.Mindmap

	// AddNode appends one child under parentID
	AddNode(mindmapID, parentID, text string) (*entities.Mindmap, *entities.MindmapNode, error)

	// AddBranch appends one child per text under parentID, in order, with a single save
	AddBranch(mindmapID, parentID string, texts []string) (*entities.Mindmap, []*entities.MindmapNode, error)

	// DeleteNode removes nodeID and all its descendants; the root cannot be deleted
	DeleteNode(mindmapID, nodeID string) (*entities.Mindmap, error)

	// DeleteSubtree is DeleteNode that also reports the removed ids
	DeleteSubtree(mindmapID, nodeID string) (*entities.Mindmap, []string, error)

	// UpdateNodeText overwrites a node label
	UpdateNodeText(mindmapID, nodeID, text string) (*entities.Mindmap, error)

	// ToggleCollapse flips the collapsed flag of a node
	ToggleCollapse(mindmapID, nodeID string) (*entities.Mindmap, error)

	// Reset replaces the mindmap with a fresh copy of the template
	Reset(mindmapID string) *entities.Mindmap

	// List summarizes all mindmaps ordered by id
	List() []entities.MindmapSummary

	// Restore inserts m unchanged unless its id is already present
	Restore(m *entities.Mindmap) bool

	// SetNodeLimit caps the nodes per mindmap; 0 disables the cap
	SetNodeLimit(n int)
}

// MindmapArchive keeps durable snapshots of mindmaps.
type MindmapArchive interface {
	Load(ctx context.Context, id string) (*entities.Mindmap, error)
	Store(ctx context.Context, m *entities.Mindmap) error
	Close() error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
