package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers money movements that must be traceable
	// for financial reconciliation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventPaymentFinalized AuditEvent = "payment_finalized"
	EventSettledImported  AuditEvent = "settled_payments_imported"
	EventFinalizeRejected AuditEvent = "finalize_rejected"
	EventRegistrationsFed AuditEvent = "registrations_registered"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPaymentFinalized: CategoryCompliance,
	EventSettledImported:  CategoryCompliance,
	EventFinalizeRejected: CategoryOperations,
	EventRegistrationsFed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the batch id for payment events.
	Subject string
	// ActorID is the operator who performed the action.
	ActorID         string
	RequestID       string
	PaymentMode     string
	Channel         string
	Amount          string
	RegistrationIDs []string
	Reason          string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actorID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
