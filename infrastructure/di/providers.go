package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ontograph/application/ports"
	"ontograph/application/services"
	"ontograph/infrastructure/config"
	"ontograph/infrastructure/messaging/eventbridge"
	"ontograph/infrastructure/observability"
	"ontograph/infrastructure/persistence/dynamodb"
	"ontograph/infrastructure/persistence/httpstore"
	"ontograph/infrastructure/persistence/memory"
	"ontograph/infrastructure/persistence/resilient"
	"ontograph/infrastructure/persistence/sqlite"
	"ontograph/interfaces/http/rest"
	"ontograph/interfaces/http/rest/middleware"
	"ontograph/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BackendStore is the undecorated store selected by config.Store
type BackendStore interface {
	ports.SnapshotStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ProvideLogLevel parses cfg.LogLevel into a level the config watcher can
// adjust at runtime
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	if cfg.LogLevel == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
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

// ProvideCollector creates the Prometheus collector shared by the API and stores
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("ontograph")
}

// ProvideBackendStore opens the store named by cfg.Store. The cleanup closes
// whatever the backend opened.
func ProvideBackendStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (BackendStore, func(), error) {
	switch cfg.Store {
	case config.StoreDynamoDB:
		return dynamodb.NewSnapshotStore(client, cfg.DynamoDBTable, logger), func() {}, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db, logger), closeDB(db, logger), nil
	case config.StoreHTTP:
		return httpstore.NewClient(cfg.BackendURL, logger, httpstore.WithToken(cfg.BackendToken)), func() {}, nil
	case config.StoreMemory:
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func closeDB(db *sql.DB, logger *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close snapshot database", zap.Error(err))
		}
	}
}

// ProvideResilientStore wraps the backend with retries and a breaker
func ProvideResilientStore(backend BackendStore, cfg *config.Config, logger *zap.Logger) *resilient.Store {
	retry := resilient.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	retry.InitialDelay = cfg.RetryBaseDelay

	breaker := resilient.DefaultBreakerConfig("snapshot-store-" + string(cfg.Store))
	breaker.ConsecutiveFailures = cfg.BreakerMaxFailures
	breaker.OpenTimeout = cfg.BreakerOpenTimeout

	return resilient.NewStore(backend, retry, breaker, logger)
}

// ProvideEventPublisher returns the EventBridge publisher, or nil when the
// deployment does not announce writes
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.Store != config.StoreDynamoDB || cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideSnapshotService creates the application service behind the API
func ProvideSnapshotService(
	store ports.SnapshotStore,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SnapshotService {
	return services.NewSnapshotService(store, publisher, nil, collector, logger)
}

// ProvideRateLimiter picks a per-user limiter. Lambda instances share
// counters through DynamoDB; a single server counts in memory.
func ProvideRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if cfg.IsLambda && cfg.Store == config.StoreDynamoDB {
		return auth.NewDistributedRateLimiter(client, cfg.DynamoDBTable, cfg.RateLimitPerMinute, time.Minute)
	}
	return auth.NewSlidingWindowLimiter(cfg.RateLimitPerMinute, time.Minute)
}

// ProvideAuthOptions configures caller identity for the API
func ProvideAuthOptions(cfg *config.Config, limiter auth.RateLimiter) (middleware.AuthOptions, error) {
	opts := middleware.AuthOptions{TrustGateway: cfg.IsLambda, Limiter: limiter}
	if cfg.JWTSecret == "" {
		return opts, nil
	}
	validator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return middleware.AuthOptions{}, err
	}
	opts.Validator = validator
	return opts, nil
}

// ProvideReadinessCheck fails while the breaker is open or the backend
// cannot be pinged
func ProvideReadinessCheck(store *resilient.Store, backend BackendStore) rest.ReadinessCheck {
	return func(ctx context.Context) error {
		if store.State() == gobreaker.StateOpen {
			return fmt.Errorf("snapshot store circuit breaker is open")
		}
		if p, ok := backend.(pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	service *services.SnapshotService,
	authOpts middleware.AuthOptions,
	ready rest.ReadinessCheck,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	opts := rest.Options{
		Auth:     authOpts,
		Recorder: collector,
		Ready:    ready,
		Debug:    cfg.IsDevelopment(),
	}
	if cfg.EnableCORS {
		opts.CORSOrigins = cfg.CORSOrigins
	}
	if cfg.EnableMetrics {
		opts.Metrics = collector.Handler()
	}
	return rest.NewRouter(service, opts, logger)
}

// OpenStore builds the resilient store without the rest of the container,
// for tools that need storage but not the API. AWS is only configured for
// the dynamodb backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*resilient.Store, func(), error) {
	var client *awsdynamodb.Client
	if cfg.Store == config.StoreDynamoDB {
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		client = ProvideDynamoDBClient(awsCfg)
	}
	backend, cleanup, err := ProvideBackendStore(cfg, client, logger)
	if err != nil {
		return nil, nil, err
	}
	return ProvideResilientStore(backend, cfg, logger), cleanup, nil
}
