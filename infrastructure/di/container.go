package di

import (
	"ontograph/application/services"
	"ontograph/infrastructure/config"
	"ontograph/infrastructure/observability"
	"ontograph/infrastructure/persistence/resilient"
	"ontograph/interfaces/http/rest"
	"ontograph/pkg/auth"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogLevel  zap.AtomicLevel
	Collector *observability.Collector
	Store     *resilient.Store
	Service   *services.SnapshotService
	Limiter   auth.RateLimiter
	Router    *rest.Router
}
