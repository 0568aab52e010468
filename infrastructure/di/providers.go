package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/ports"
	"mindmap-backend/application/services"
	"mindmap-backend/infrastructure/chatkit"
	"mindmap-backend/infrastructure/config"
	"mindmap-backend/infrastructure/messaging"
	"mindmap-backend/infrastructure/messaging/eventbridge"
	"mindmap-backend/infrastructure/persistence/dynamodb"
	"mindmap-backend/infrastructure/persistence/memory"
	"mindmap-backend/infrastructure/persistence/sqlite"
	"mindmap-backend/interfaces/http/rest"
	"mindmap-backend/pkg/auth"
	"mindmap-backend/pkg/observability"
)

const serviceName = "mindmap-backend"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		File:        cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("mindmap")
}

// ProvideTracing installs the OTLP tracer when ENABLE_TRACING is set
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	tp, err := observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	return tp, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideStore creates the in-memory mindmap store
func ProvideStore(cfg *config.Config) *memory.MindmapStore {
	return memory.NewMindmapStore(memory.WithNodeLimit(cfg.Limits.MaxNodesPerMindmap))
}

// ProvideArchive opens the archive selected by ARCHIVE_DRIVER. It returns
// nil for the "none" driver.
func ProvideArchive(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (ports.MindmapArchive, error) {
	switch cfg.ArchiveDriver {
	case config.ArchiveSQLite:
		archive, err := sqlite.NewMindmapArchive(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return archive, nil
	case config.ArchiveDynamoDB:
		logger.Info("DynamoDB archive enabled", zap.String("table", cfg.DynamoDBTable))
		return dynamodb.NewMindmapArchive(client, cfg.DynamoDBTable, logger), nil
	default:
		return nil, nil
	}
}

// ProvideEventPublisher publishes to EventBridge when EVENT_BUS_NAME is set
// and to the log otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideMindmapService creates the application service
func ProvideMindmapService(
	cfg *config.Config,
	store *memory.MindmapStore,
	archive ports.MindmapArchive,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.MindmapService {
	return services.NewMindmapService(store, limitsFrom(cfg.Limits), logger,
		services.WithArchive(archive),
		services.WithPublisher(publisher),
		services.WithMetrics(metrics),
	)
}

// ProvideSessionIssuer creates the cookie issuer
func ProvideSessionIssuer(cfg *config.Config, logger *zap.Logger) (*auth.SessionIssuer, error) {
	return auth.NewSessionIssuer(cfg.SessionSecret, cfg.IsProduction(), logger)
}

// ProvideChatkitClient creates the upstream session client
func ProvideChatkitClient(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *chatkit.Client {
	if cfg.XpertAPIKey == "" {
		logger.Warn("XPERTAI_API_KEY not set, session creation will fail")
	}
	return chatkit.NewClient(chatkit.DefaultConfig(cfg.XpertAPIKey, cfg.XpertAPIURL), metrics, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	service *services.MindmapService,
	sessions *chatkit.Client,
	issuer *auth.SessionIssuer,
	metrics *observability.Collector,
	archive ports.MindmapArchive,
	logger *zap.Logger,
) *rest.Router {
	var checks []rest.ReadinessCheck
	if pinger, ok := archive.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, pinger.Ping)
	}
	return rest.NewRouter(rest.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		DefaultXpertID: cfg.XpertID,
		Debug:          cfg.IsDevelopment(),
	}, service, sessions, issuer, metrics, logger, checks...)
}

// ProvideConfigWatcher watches CONFIG_FILE and pushes new limits into the
// service. It returns nil when no file is configured.
func ProvideConfigWatcher(cfg *config.Config, service *services.MindmapService, logger *zap.Logger) (*config.ConfigWatcher, error) {
	if cfg.ConfigFile == "" {
		return nil, nil
	}
	watcher, err := config.NewConfigWatcher(cfg.ConfigFile, cfg.Limits, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(l config.Limits) {
		service.UpdateLimits(limitsFrom(l))
	})
	return watcher, nil
}

func limitsFrom(l config.Limits) commands.Limits {
	return commands.Limits{
		MaxTextLength:      l.MaxTextLength,
		MaxBranchSize:      l.MaxBranchSize,
		MaxNodesPerMindmap: l.MaxNodesPerMindmap,
	}
}
