package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/metrics"
)

// ErrStoreUnavailable is returned while the circuit breaker is open.
var ErrStoreUnavailable = errors.New("record store unavailable")

// BreakerConfig represents circuit breaker configuration
type BreakerConfig struct {
	MaxFailures      uint32
	Timeout          time.Duration
	HalfOpenRequests uint32
	Interval         time.Duration
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 1,
		Interval:         time.Minute,
	}
}

// ResilientStore wraps a Store with the circuit breaker pattern. Lookup misses
// and duplicate ids are answers, not failures, and never trip the breaker.
type ResilientStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

var _ Store = (*ResilientStore)(nil)

// NewResilientStore wraps inner in a circuit breaker.
func NewResilientStore(inner Store, cfg BreakerConfig, logger *logrus.Logger, m *metrics.Metrics) *ResilientStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	settings := gobreaker.Settings{
		Name:        "record-store",
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, domain.ErrDuplicateRecord) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Record store circuit breaker changed state")
		},
	}

	return &ResilientStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: m,
	}
}

// State reports the breaker state ("closed", "half-open", "open").
func (r *ResilientStore) State() string {
	return r.breaker.State().String()
}

func (r *ResilientStore) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.breaker.Execute(fn)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.metrics.StoreError(operation)
		return nil, fmt.Errorf("%s: %w", operation, ErrStoreUnavailable)
	}
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrDuplicateRecord) {
		r.metrics.StoreError(operation)
	}
	return nil, err
}

// Save appends a record through the breaker.
func (r *ResilientStore) Save(ctx context.Context, rec *domain.CalculationRecord) error {
	_, err := r.execute("save", func() (interface{}, error) {
		return nil, r.inner.Save(ctx, rec)
	})
	return err
}

// Get retrieves a record through the breaker.
func (r *ResilientStore) Get(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	result, err := r.execute("get", func() (interface{}, error) {
		return r.inner.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.CalculationRecord), nil
}

// List returns matching records through the breaker.
func (r *ResilientStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.CalculationRecord, error) {
	result, err := r.execute("list", func() (interface{}, error) {
		return r.inner.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.CalculationRecord), nil
}

// Count returns the number of matching records through the breaker.
func (r *ResilientStore) Count(ctx context.Context, filter domain.HistoryFilter) (int, error) {
	result, err := r.execute("count", func() (interface{}, error) {
		return r.inner.Count(ctx, filter)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// ExportJSON exports through the breaker.
func (r *ResilientStore) ExportJSON(ctx context.Context, writer io.Writer, filter domain.HistoryFilter) error {
	_, err := r.execute("export", func() (interface{}, error) {
		return nil, r.inner.ExportJSON(ctx, writer, filter)
	})
	return err
}

// Ping bypasses the breaker so health checks observe the real backend.
func (r *ResilientStore) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

// Close closes the wrapped store.
func (r *ResilientStore) Close() error {
	return r.inner.Close()
}
