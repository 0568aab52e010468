package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/events"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"
	"mindmap-backend/pkg/utils"
)

const tracerName = "mindmap-backend/application/services"

// MindmapService is the application entry point for mindmap operations.
// It validates commands, delegates tree edits to the store and fans results
// out to the archive and the event publisher. The store stays authoritative:
// archive and publish failures are logged and never returned.
type MindmapService struct {
	store     ports.MindmapStore
	archive   ports.MindmapArchive
	publisher ports.EventPublisher
	metrics   *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
	now       utils.Clock

	limitsMu sync.RWMutex
	limits   commands.Limits

	loads singleflight.Group
}

// ServiceOption configures a MindmapService
type ServiceOption func(*MindmapService)

// WithArchive enables write-through snapshots and rehydration
func WithArchive(a ports.MindmapArchive) ServiceOption {
	return func(s *MindmapService) { s.archive = a }
}

// WithPublisher sets the domain event publisher
func WithPublisher(p ports.EventPublisher) ServiceOption {
	return func(s *MindmapService) { s.publisher = p }
}

// WithMetrics sets the Prometheus collector
func WithMetrics(c *observability.Collector) ServiceOption {
	return func(s *MindmapService) { s.metrics = c }
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *MindmapService) { s.tracer = t }
}

// WithServiceClock overrides the event timestamp source
func WithServiceClock(c utils.Clock) ServiceOption {
	return func(s *MindmapService) { s.now = c }
}

// NewMindmapService creates a new mindmap service
func NewMindmapService(
	store ports.MindmapStore,
	limits commands.Limits,
	logger *zap.Logger,
	opts ...ServiceOption,
) *MindmapService {
	s := &MindmapService{
		store:  store,
		limits: limits,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    utils.UTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	store.SetNodeLimit(limits.MaxNodesPerMindmap)
	return s
}

// Limits returns the limits currently enforced
func (s *MindmapService) Limits() commands.Limits {
	s.limitsMu.RLock()
	defer s.limitsMu.RUnlock()
	return s.limits
}

// UpdateLimits swaps the enforced limits, including the store node cap
func (s *MindmapService) UpdateLimits(l commands.Limits) {
	s.limitsMu.Lock()
	s.limits = l
	s.limitsMu.Unlock()

	s.store.SetNodeLimit(l.MaxNodesPerMindmap)
	s.logger.Info("Mindmap limits updated",
		zap.Int("max_text_length", l.MaxTextLength),
		zap.Int("max_branch_size", l.MaxBranchSize),
		zap.Int("max_nodes_per_mindmap", l.MaxNodesPerMindmap),
	)
}

// GetMindmap returns the mindmap, creating it from the template on first access
func (s *MindmapService) GetMindmap(ctx context.Context, mindmapID string) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "get", mindmapID)
	defer func() { done(err) }()

	if mindmapID == "" {
		return nil, pkgerrors.NewValidationError("mindmap_id is required")
	}
	existed := s.ensureLoaded(ctx, mindmapID)
	m = s.store.GetOrCreate(mindmapID)
	if !existed {
		s.afterMutation(ctx, m, events.NewMindmapCreated(m.ID, m.Title, s.now()))
	}
	return m, nil
}

// ListMindmaps summarizes the mindmaps held in memory
func (s *MindmapService) ListMindmaps(ctx context.Context) []entities.MindmapSummary {
	_, done := s.observe(ctx, "list", "")
	defer done(nil)

	list := s.store.List()
	s.metrics.SetMindmaps(len(list))
	return list
}

// SaveMindmap replaces a whole mindmap after checking its consistency
func (s *MindmapService) SaveMindmap(ctx context.Context, cmd commands.SaveMindmapCommand) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "save", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(s.Limits()); err != nil {
		return nil, err
	}
	m = s.store.Save(cmd.Mindmap)
	s.afterMutation(ctx, m, events.NewMindmapSaved(m.ID, len(m.Nodes), s.now()))
	return m, nil
}

// AddNode appends a child node under the given parent
func (s *MindmapService) AddNode(ctx context.Context, cmd commands.AddNodeCommand) (m *entities.Mindmap, node *entities.MindmapNode, err error) {
	ctx, done := s.observe(ctx, "add_node", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(s.Limits()); err != nil {
		return nil, nil, err
	}
	existed := s.ensureLoaded(ctx, cmd.MindmapID)
	m, node, err = s.store.AddNode(cmd.MindmapID, cmd.ParentID, *cmd.Text)
	s.announceCreated(ctx, cmd.MindmapID, existed)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordNodes(1, 0)
	s.afterMutation(ctx, m, events.NewNodesAdded(m.ID, cmd.ParentID, []string{node.ID}, s.now()))
	return m, node, nil
}

// AddBranch appends several children under the given parent, in order
func (s *MindmapService) AddBranch(ctx context.Context, cmd commands.AddBranchCommand) (m *entities.Mindmap, nodes []*entities.MindmapNode, err error) {
	ctx, done := s.observe(ctx, "add_branch", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(s.Limits()); err != nil {
		return nil, nil, err
	}
	existed := s.ensureLoaded(ctx, cmd.MindmapID)
	m, nodes, err = s.store.AddBranch(cmd.MindmapID, cmd.ParentID, cmd.Texts)
	s.announceCreated(ctx, cmd.MindmapID, existed)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	s.metrics.RecordNodes(len(nodes), 0)
	s.afterMutation(ctx, m, events.NewNodesAdded(m.ID, cmd.ParentID, ids, s.now()))
	return m, nodes, nil
}

// DeleteNode removes a node and its whole subtree
func (s *MindmapService) DeleteNode(ctx context.Context, cmd commands.DeleteNodeCommand) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "delete_node", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	existed := s.ensureLoaded(ctx, cmd.MindmapID)
	m, removed, err := s.store.DeleteSubtree(cmd.MindmapID, cmd.NodeID)
	s.announceCreated(ctx, cmd.MindmapID, existed)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordNodes(0, len(removed))
	s.afterMutation(ctx, m, events.NewSubtreeDeleted(m.ID, cmd.NodeID, removed, s.now()))
	return m, nil
}

// UpdateNodeText overwrites a node label
func (s *MindmapService) UpdateNodeText(ctx context.Context, cmd commands.UpdateNodeTextCommand) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "update_node", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(s.Limits()); err != nil {
		return nil, err
	}
	existed := s.ensureLoaded(ctx, cmd.MindmapID)
	m, err = s.store.UpdateNodeText(cmd.MindmapID, cmd.NodeID, *cmd.Text)
	s.announceCreated(ctx, cmd.MindmapID, existed)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, m, events.NewNodeTextUpdated(m.ID, cmd.NodeID, *cmd.Text, s.now()))
	return m, nil
}

// ToggleCollapse collapses or expands a node
func (s *MindmapService) ToggleCollapse(ctx context.Context, cmd commands.ToggleCollapseCommand) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "toggle_collapse", cmd.MindmapID)
	defer func() { done(err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	existed := s.ensureLoaded(ctx, cmd.MindmapID)
	m, err = s.store.ToggleCollapse(cmd.MindmapID, cmd.NodeID)
	s.announceCreated(ctx, cmd.MindmapID, existed)
	if err != nil {
		return nil, err
	}

	collapsed := m.Nodes[cmd.NodeID].Collapsed
	s.afterMutation(ctx, m, events.NewNodeCollapseToggled(m.ID, cmd.NodeID, collapsed, s.now()))
	return m, nil
}

// ResetMindmap replaces the mindmap with the starter template
func (s *MindmapService) ResetMindmap(ctx context.Context, mindmapID string) (m *entities.Mindmap, err error) {
	ctx, done := s.observe(ctx, "reset", mindmapID)
	defer func() { done(err) }()

	if mindmapID == "" {
		return nil, pkgerrors.NewValidationError("mindmap_id is required")
	}
	m = s.store.Reset(mindmapID)
	s.afterMutation(ctx, m, events.NewMindmapReset(m.ID, s.now()))
	return m, nil
}

// ensureLoaded rehydrates mindmapID from the archive when the store does not
// hold it. It reports whether the mindmap existed afterwards.
func (s *MindmapService) ensureLoaded(ctx context.Context, mindmapID string) bool {
	if _, ok := s.store.Get(mindmapID); ok {
		return true
	}
	if s.archive == nil {
		return false
	}

	v, _, _ := s.loads.Do(mindmapID, func() (interface{}, error) {
		if _, ok := s.store.Get(mindmapID); ok {
			return true, nil
		}
		m, err := s.archive.Load(ctx, mindmapID)
		switch {
		case errors.Is(err, ports.ErrArchiveMiss):
			s.metrics.RecordArchive("load", "miss")
			return false, nil
		case err != nil:
			s.metrics.RecordArchive("load", "error")
			s.logger.Warn("Failed to load mindmap from archive",
				zap.String("mindmap_id", mindmapID),
				zap.Error(err),
			)
			return false, nil
		}
		s.metrics.RecordArchive("load", "hit")
		if s.store.Restore(m) {
			s.logger.Debug("Mindmap restored from archive", zap.String("mindmap_id", mindmapID))
		}
		return true, nil
	})
	return v.(bool)
}

// announceCreated publishes mindmap.created when an operation implicitly
// created the mindmap, even if the operation itself then failed.
func (s *MindmapService) announceCreated(ctx context.Context, mindmapID string, existed bool) {
	if existed {
		return
	}
	m, ok := s.store.Get(mindmapID)
	if !ok {
		return
	}
	s.afterMutation(ctx, m, events.NewMindmapCreated(m.ID, m.Title, s.now()))
}

func (s *MindmapService) afterMutation(ctx context.Context, m *entities.Mindmap, event events.DomainEvent) {
	// Side effects must outlive a cancelled request.
	ctx = context.WithoutCancel(ctx)

	if s.archive != nil {
		if err := s.archive.Store(ctx, m); err != nil {
			s.metrics.RecordArchive("store", "error")
			s.logger.Error("Failed to archive mindmap",
				zap.String("mindmap_id", m.ID),
				zap.Error(err),
			)
		} else {
			s.metrics.RecordArchive("store", "success")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event",
				zap.String("event_type", event.GetEventType()),
				zap.String("mindmap_id", m.ID),
				zap.Error(err),
			)
		}
	}
}

// observe starts a span for op and returns the function that ends it and
// records the outcome.
func (s *MindmapService) observe(ctx context.Context, op, mindmapID string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "MindmapService."+op,
		trace.WithAttributes(attribute.String("mindmap.id", mindmapID)),
	)
	start := time.Now()

	return ctx, func(err error) {
		outcome := outcomeOf(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			fields := []zap.Field{
				zap.String("operation", op),
				zap.String("mindmap_id", mindmapID),
				zap.String("outcome", outcome),
				zap.Error(err),
			}
			if outcome == "internal" {
				s.logger.Error("Mindmap operation failed", fields...)
			} else {
				s.logger.Debug("Mindmap operation rejected", fields...)
			}
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		s.metrics.RecordOperation(op, outcome, time.Since(start))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case pkgerrors.IsNotFound(err):
		return "not_found"
	case pkgerrors.IsInvalidOperation(err):
		return "invalid_operation"
	case pkgerrors.IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}
