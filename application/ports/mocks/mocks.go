// Package mocks provides testify mocks of the application ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/events"
)

// MockMindmapArchive is a mock implementation of ports.MindmapArchive
type MockMindmapArchive struct {
	mock.Mock
}

func (m *MockMindmapArchive) Load(ctx context.Context, id string) (*entities.Mindmap, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Mindmap), args.Error(1)
}

func (m *MockMindmapArchive) Store(ctx context.Context, mm *entities.Mindmap) error {
	args := m.Called(ctx, mm)
	return args.Error(0)
}

func (m *MockMindmapArchive) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// PublishedTypes returns the event types passed to Publish, in call order
func (m *MockEventPublisher) PublishedTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		if e, ok := call.Arguments.Get(1).(events.DomainEvent); ok {
			types = append(types, e.GetEventType())
		}
	}
	return types
}
