package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind distinguishes incremental change events from full reload signals.
type EventKind string

const (
	// EventFinalized carries the ids that moved from pending to finalized.
	EventFinalized EventKind = "finalized"
	// EventReload tells subscribers to re-read everything.
	EventReload EventKind = "reload"
)

// Delta is how much moved from the pending bucket to the finalized bucket.
type Delta struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// ChangeEvent announces that the registration store changed.
type ChangeEvent struct {
	ID      string           `json:"id"`
	Kind    EventKind        `json:"kind"`
	IDs     []RegistrationID `json:"ids,omitempty"`
	Status  Status           `json:"status,omitempty"`
	BatchID string           `json:"batch_id,omitempty"`
	Delta   Delta            `json:"delta"`
	// Origin is the engine instance that produced the change.
	Origin string    `json:"origin"`
	Remote bool      `json:"remote,omitempty"`
	At     time.Time `json:"at"`
}
