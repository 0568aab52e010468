package di

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"mindmap-backend/application/ports"
	"mindmap-backend/application/services"
	"mindmap-backend/infrastructure/chatkit"
	"mindmap-backend/infrastructure/config"
	"mindmap-backend/infrastructure/persistence/memory"
	"mindmap-backend/interfaces/http/rest"
	"mindmap-backend/pkg/auth"
	"mindmap-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     *memory.MindmapStore
	Archive   ports.MindmapArchive
	Publisher ports.EventPublisher
	Service   *services.MindmapService
	Issuer    *auth.SessionIssuer
	Sessions  *chatkit.Client
	Router    *rest.Router
	// Watcher is nil unless CONFIG_FILE is set
	Watcher *config.ConfigWatcher
}

// Close releases the archive and flushes traces and logs
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Archive != nil {
		if err := c.Archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Sync fails on stderr for some platforms; it is not worth reporting.
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
