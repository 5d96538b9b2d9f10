package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// Signal is the cross-instance message: which registrations another engine
// instance committed. Receivers re-read those ids from persistence rather
// than trusting the payload.
type Signal struct {
	ID      string                  `json:"id"`
	Origin  string                  `json:"origin"`
	Kind    models.EventKind        `json:"kind"`
	IDs     []models.RegistrationID `json:"ids,omitempty"`
	BatchID string                  `json:"batch_id,omitempty"`
	At      time.Time               `json:"at"`
}

// Notifier carries signals between engine instances.
type Notifier interface {
	Notify(ctx context.Context, sig Signal) error
	// Listen blocks, calling fn for every received signal, until ctx is done
	// or the notifier is closed.
	Listen(ctx context.Context, fn func(Signal)) error
	Close() error
}

// SignalFor converts a locally published event.
func SignalFor(ev models.ChangeEvent) Signal {
	return Signal{
		ID:      ev.ID,
		Origin:  ev.Origin,
		Kind:    ev.Kind,
		IDs:     ev.IDs,
		BatchID: ev.BatchID,
		At:      ev.At,
	}
}

func encodeSignal(sig Signal) ([]byte, error) {
	b, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("encode signal: %w", err)
	}
	return b, nil
}

func decodeSignal(raw []byte) (Signal, error) {
	var sig Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	return sig, nil
}
