// Package circuitbreaker guards calls to external APIs with sony/gobreaker.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	// IsSuccessful lets callers keep client-side errors from tripping the breaker.
	IsSuccessful  func(err error) bool
	OnStateChange func(name string, from, to gobreaker.State)
	Logger        *zap.Logger
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: cfg.IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Execute runs fn unless the breaker is open. A cancelled context is
// reported without counting against the upstream.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (b *CircuitBreaker) Name() string {
	return b.cb.Name()
}

func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// IsOpen reports whether err was produced by the breaker rejecting a call.
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}
