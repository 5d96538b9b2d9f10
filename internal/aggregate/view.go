package aggregate

import (
	"log/slog"
	"sync"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/changefeed"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
)

// SnapshotSource provides a consistent cut of the registration store.
type SnapshotSource interface {
	Snapshot() models.Snapshot
}

// GaugeSink mirrors the latest summary into metrics.
type GaugeSink interface {
	ObserveSummary(pendingCount, finalizedCount, exemptCount int, pendingAmount, finalizedAmount, recoveryRate float64)
}

// View keeps the latest Summary current by recomputing on every change
// event. It never holds state the store does not.
type View struct {
	mu        sync.RWMutex
	computeMu sync.Mutex
	summary   Summary
	source    SnapshotSource
	tariffs   *tariff.Resolver
	sink      GaugeSink
	logger    *slog.Logger
	onUpdate  func(Summary, models.ChangeEvent)

	hub    *changefeed.Hub
	handle changefeed.Handle
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithGauges mirrors each recompute into sink.
func WithGauges(sink GaugeSink) ViewOption {
	return func(v *View) {
		v.sink = sink
	}
}

// WithViewLogger sets the structured logger.
func WithViewLogger(logger *slog.Logger) ViewOption {
	return func(v *View) {
		v.logger = logger
	}
}

// WithUpdateListener is called after each event-driven recompute.
func WithUpdateListener(fn func(Summary, models.ChangeEvent)) ViewOption {
	return func(v *View) {
		v.onUpdate = fn
	}
}

// NewView computes an initial summary from source.
func NewView(source SnapshotSource, tariffs *tariff.Resolver, opts ...ViewOption) *View {
	v := &View{source: source, tariffs: tariffs}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.Recompute()
	return v
}

// Attach subscribes the view to hub. A view is attached to at most one hub.
func (v *View) Attach(hub *changefeed.Hub) {
	v.Detach()
	v.hub = hub
	v.handle = hub.Subscribe(v.onEvent)
}

func (v *View) onEvent(ev models.ChangeEvent) {
	sum := v.Recompute()
	v.logger.Debug("aggregates recomputed",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"pending", sum.Pending.Count,
		"finalized", sum.Finalized.Count,
	)
	if v.onUpdate != nil {
		v.onUpdate(sum, ev)
	}
}

// Detach stops listening for changes.
func (v *View) Detach() {
	if v.hub == nil {
		return
	}
	v.hub.Unsubscribe(v.handle)
	v.hub = nil
}

// Recompute rebuilds the summary from a fresh snapshot and returns it.
func (v *View) Recompute() Summary {
	v.computeMu.Lock()
	defer v.computeMu.Unlock()

	sum := Compute(v.source.Snapshot(), v.tariffs)

	v.mu.Lock()
	v.summary = sum
	v.mu.Unlock()

	if v.sink != nil {
		pending, _ := sum.Pending.Amount.Float64()
		finalized, _ := sum.Finalized.Amount.Float64()
		rate, _ := sum.RecoveryRate.Float64()
		v.sink.ObserveSummary(sum.Pending.Count, sum.Finalized.Count, sum.Exempt, pending, finalized, rate)
	}
	return sum
}

// Summary returns the latest computed summary.
func (v *View) Summary() Summary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.summary
}
