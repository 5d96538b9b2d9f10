package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

// GuardConfig tunes the circuit breaker in front of an adapter.
type GuardConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultGuardConfig trips after five consecutive failures and tries again
// after thirty seconds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Guard fails fast with sentinel.ErrUnavailable while the durable store is
// down instead of letting every finalize wait on a dead connection.
// Conflicts are answers from a healthy store and never trip it.
type Guard struct {
	next    Adapter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	onState func(name string, open bool)
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger logs breaker state transitions.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithStateListener is called on every breaker transition.
func WithStateListener(fn func(name string, open bool)) GuardOption {
	return func(g *Guard) {
		g.onState = fn
	}
}

// NewGuard wraps next with a circuit breaker named name.
func NewGuard(name string, next Adapter, cfg GuardConfig, opts ...GuardOption) *Guard {
	g := &Guard{next: next}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg = DefaultGuardConfig()
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, sentinel.ErrConflict) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("persistence circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
			if g.onState != nil {
				g.onState(name, to == gobreaker.StateOpen)
			}
		},
	})
	return g
}

// State reports the breaker state as a string (closed, half-open, open).
func (g *Guard) State() string {
	return g.breaker.State().String()
}

func (g *Guard) Load(ctx context.Context) (*Snapshot, error) {
	res, err := g.execute(func() (any, error) { return g.next.Load(ctx) })
	if err != nil {
		return nil, err
	}
	return res.(*Snapshot), nil
}

func (g *Guard) Get(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	res, err := g.execute(func() (any, error) { return g.next.Get(ctx, ids) })
	if err != nil {
		return nil, err
	}
	regs, _ := res.([]models.Registration)
	return regs, nil
}

func (g *Guard) Append(ctx context.Context, regs []models.Registration) error {
	_, err := g.execute(func() (any, error) { return nil, g.next.Append(ctx, regs) })
	return err
}

func (g *Guard) Commit(ctx context.Context, regs []models.Registration) error {
	_, err := g.execute(func() (any, error) { return nil, g.next.Commit(ctx, regs) })
	return err
}

func (g *Guard) Close() error {
	return g.next.Close()
}

func (g *Guard) execute(fn func() (any, error)) (any, error) {
	res, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return res, err
}
