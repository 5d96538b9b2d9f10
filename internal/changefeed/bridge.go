package changefeed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
)

// Refresher re-reads registrations committed elsewhere.
type Refresher interface {
	Refresh(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error)
}

// SignalRecorder counts signals received from other instances.
type SignalRecorder interface {
	IncRemoteSignal(kind string)
}

const (
	defaultApplyRetries = 3
	defaultApplyBackoff = 100 * time.Millisecond
)

// Bridge connects the local hub to other instances. Events this instance
// originates (commits and registration feeds) go out through the notifier;
// signals from other instances refresh the store and are re-published
// locally as remote events.
//
// A signal that cannot be applied after the retries falls back to a full
// reload. When that fails too the bridge stays stale until the next
// reconcile tick succeeds.
type Bridge struct {
	hub      *Hub
	notifier Notifier
	store    Refresher
	tariffs  *tariff.Resolver
	origin   string
	logger   *slog.Logger
	recorder SignalRecorder

	retries        int
	backoff        time.Duration
	reconcileEvery time.Duration
	stale          atomic.Bool
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithSignalRecorder counts applied remote signals.
func WithSignalRecorder(r SignalRecorder) BridgeOption {
	return func(b *Bridge) {
		b.recorder = r
	}
}

// WithRetry sets how many times a failed refresh is retried and the first
// delay, doubled after each attempt.
func WithRetry(attempts int, backoff time.Duration) BridgeOption {
	return func(b *Bridge) {
		if attempts >= 0 {
			b.retries = attempts
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

// WithReconcileInterval runs a full refresh every d, catching up on signals
// the notifier never delivered. Zero disables it.
func WithReconcileInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.reconcileEvery = d
	}
}

// NewBridge builds a bridge for the instance named origin.
func NewBridge(hub *Hub, notifier Notifier, store Refresher, tariffs *tariff.Resolver, origin string, logger *slog.Logger, opts ...BridgeOption) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		hub:      hub,
		notifier: notifier,
		store:    store,
		tariffs:  tariffs,
		origin:   origin,
		logger:   logger,
		retries:  defaultApplyRetries,
		backoff:  defaultApplyBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run forwards and applies signals until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	handle := b.hub.Subscribe(func(ev models.ChangeEvent) {
		b.forward(ctx, ev)
	})
	defer b.hub.Unsubscribe(handle)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if b.reconcileEvery > 0 {
		go b.reconcile(ctx)
	}

	b.logger.InfoContext(ctx, "change bridge started", "origin", b.origin)
	return b.notifier.Listen(ctx, func(sig Signal) {
		b.apply(ctx, sig)
	})
}

// Stale reports whether local state may lag durable state.
func (b *Bridge) Stale() bool {
	return b.stale.Load()
}

func (b *Bridge) forward(ctx context.Context, ev models.ChangeEvent) {
	if ev.Remote || ev.Origin != b.origin {
		return
	}
	if err := b.notifier.Notify(ctx, SignalFor(ev)); err != nil {
		b.logger.WarnContext(ctx, "failed to notify other instances",
			"batch_id", ev.BatchID,
			"error", err,
		)
	}
}

func (b *Bridge) apply(ctx context.Context, sig Signal) {
	if sig.Origin == b.origin {
		return
	}
	if b.recorder != nil {
		b.recorder.IncRemoteSignal(string(sig.Kind))
	}

	ids := sig.IDs
	if sig.Kind == models.EventReload {
		ids = nil
	}
	transitioned, err := b.refresh(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.ErrorContext(ctx, "failed to apply remote change, reloading",
			"origin", sig.Origin,
			"batch_id", sig.BatchID,
			"error", err,
		)
		b.resync(ctx)
		return
	}

	if sig.Kind == models.EventReload {
		b.hub.Publish(models.ChangeEvent{Kind: models.EventReload, Origin: sig.Origin, Remote: true})
		return
	}
	if len(transitioned) == 0 {
		return
	}
	newly := make([]models.RegistrationID, 0, len(transitioned))
	for _, reg := range transitioned {
		newly = append(newly, reg.ID)
	}
	b.hub.Publish(models.ChangeEvent{
		Kind:    models.EventFinalized,
		IDs:     newly,
		Status:  models.StatusFinalized,
		BatchID: sig.BatchID,
		Delta: models.Delta{
			Count:  len(transitioned),
			Amount: b.tariffs.Sum(transitioned),
		},
		Origin: sig.Origin,
		Remote: true,
	})
}

// refresh retries store refreshes with exponential backoff.
func (b *Bridge) refresh(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	delay := b.backoff
	for attempt := 0; ; attempt++ {
		transitioned, err := b.store.Refresh(ctx, ids)
		if err == nil || attempt >= b.retries {
			return transitioned, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// resync reloads everything and tells local subscribers to recompute.
func (b *Bridge) resync(ctx context.Context) {
	if _, err := b.refresh(ctx, nil); err != nil {
		b.stale.Store(true)
		if ctx.Err() == nil {
			b.logger.ErrorContext(ctx, "full reload failed, local state is stale until the next reconcile",
				"error", err,
			)
		}
		return
	}
	b.stale.Store(false)
	b.hub.Publish(models.ChangeEvent{Kind: models.EventReload, Origin: b.origin, Remote: true})
}

func (b *Bridge) reconcile(ctx context.Context) {
	ticker := time.NewTicker(b.reconcileEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		transitioned, err := b.store.Refresh(ctx, nil)
		if err != nil {
			b.stale.Store(true)
			if ctx.Err() == nil {
				b.logger.WarnContext(ctx, "reconcile failed", "error", err)
			}
			continue
		}
		if len(transitioned) > 0 || b.stale.Swap(false) {
			b.logger.InfoContext(ctx, "reconcile caught up with other instances",
				"finalized", len(transitioned),
			)
			b.hub.Publish(models.ChangeEvent{Kind: models.EventReload, Origin: b.origin, Remote: true})
		}
	}
}
