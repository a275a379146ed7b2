//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"ontograph/application/ports"
	"ontograph/infrastructure/config"
	"ontograph/infrastructure/persistence/resilient"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCollector,
	ProvideBackendStore,
	ProvideResilientStore,
	wire.Bind(new(ports.SnapshotStore), new(*resilient.Store)),
	ProvideEventPublisher,
	ProvideSnapshotService,
	ProvideRateLimiter,
	ProvideAuthOptions,
	ProvideReadinessCheck,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}

