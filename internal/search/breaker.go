package search

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "menueditor-backend/pkg/errors"
)

// BreakerConfig holds configuration for the content index circuit breaker.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureRatio trips the breaker once at least MinRequests were seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns a default configuration for the breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// BreakerIndex guards a ContentIndex with a circuit breaker so an unavailable
// index fails fast instead of stalling every picker request.
type BreakerIndex struct {
	inner ContentIndex
	cb    *gobreaker.CircuitBreaker
	name  string
}

// NewBreakerIndex wraps inner.
func NewBreakerIndex(inner ContentIndex, config BreakerConfig, logger *zap.Logger) *BreakerIndex {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not an index failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerIndex{inner: inner, cb: cb, name: config.Name}
}

// SearchContent implements ContentIndex.
func (b *BreakerIndex) SearchContent(ctx context.Context, query string) ([]Record, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.SearchContent(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewUnavailableError(b.name).WithCause(err)
		}
		return nil, err
	}
	records, _ := out.([]Record)
	return records, nil
}

// State reports the breaker state.
func (b *BreakerIndex) State() gobreaker.State {
	return b.cb.State()
}
