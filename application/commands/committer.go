package commands

import (
	"context"
	"errors"

	"ontograph/application/commands/bus"
	"ontograph/domain/core/aggregates"

	"go.uber.org/zap"
)

// BusCommitter sends completed connections through the command bus
type BusCommitter struct {
	bus    *bus.CommandBus
	logger *zap.Logger
}

// NewBusCommitter creates a committer for the connection drivers
func NewBusCommitter(b *bus.CommandBus, logger *zap.Logger) *BusCommitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusCommitter{bus: b, logger: logger}
}

// CommitEdge reports whether the edge was created
func (c *BusCommitter) CommitEdge(spec aggregates.EdgeSpec) bool {
	err := c.bus.Send(context.Background(), CreateEdgeCommand{Spec: spec})
	if err != nil && !errors.Is(err, bus.ErrRejected) {
		c.logger.Warn("Edge creation failed", zap.Error(err))
	}
	return err == nil
}
