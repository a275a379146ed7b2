// Package resilient decorates a snapshot store with retries and a circuit
// breaker so a struggling backend fails fast instead of piling up writes.
package resilient

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryConfig configures backoff between attempts
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultRetryConfig returns three attempts starting at 100ms
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		JitterFactor: 0.1,
	}
}

// BreakerConfig configures the circuit breaker
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open
	HalfOpenRequests uint32
}

// DefaultBreakerConfig trips after five consecutive failures
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Store wraps another SnapshotStore. Loads and saves are retried; every
// attempt runs through the breaker.
type Store struct {
	inner   ports.SnapshotStore
	breaker *gobreaker.CircuitBreaker
	retry   RetryConfig
	logger  *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore decorates inner
func NewStore(inner ports.SnapshotStore, retry RetryConfig, breaker BreakerConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	s := &Store{
		inner:  inner,
		retry:  retry,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepCtx,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breaker.Name,
		MaxRequests: breaker.HalfOpenRequests,
		Timeout:     breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breaker.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Snapshot store circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// a rejected request says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsRetryable(err)
		},
	})
	return s
}

// State returns the breaker state, for health reporting
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Store) Save(ctx context.Context, snapshot aggregates.Snapshot) (ports.SaveResult, error) {
	var result ports.SaveResult
	err := s.withRetry(ctx, "save", func(ctx context.Context) error {
		r, err := s.inner.Save(ctx, snapshot)
		if err == nil {
			result = r
		}
		return err
	})
	return result, err
}

func (s *Store) Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	var snapshot aggregates.Snapshot
	err := s.withRetry(ctx, "load", func(ctx context.Context) error {
		loaded, err := s.inner.Load(ctx, iri)
		if err == nil {
			snapshot = loaded
		}
		return err
	})
	return snapshot, err
}

func (s *Store) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error {
	return s.withRetry(ctx, "rename", func(ctx context.Context) error {
		return s.inner.Rename(ctx, iri, label)
	})
}

func (s *Store) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	return s.withRetry(ctx, "delete", func(ctx context.Context) error {
		return s.inner.Delete(ctx, iri)
	})
}

func (s *Store) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return pkgerrors.NewUnavailableError("snapshot store").WithCause(err)
		}
		if !pkgerrors.IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == s.retry.MaxAttempts {
			break
		}

		delay := s.backoff(attempt)
		s.logger.Debug("Retrying snapshot store call",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return pkgerrors.NewTimeoutError(op).WithCause(err)
		}
	}
	return lastErr
}

func (s *Store) backoff(attempt int) time.Duration {
	d := float64(s.retry.InitialDelay) * math.Pow(2, float64(attempt-1))
	if max := float64(s.retry.MaxDelay); max > 0 && d > max {
		d = max
	}
	if s.retry.JitterFactor > 0 {
		s.randMu.Lock()
		jitter := (s.rand.Float64()*2 - 1) * s.retry.JitterFactor * d
		s.randMu.Unlock()
		d += jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
