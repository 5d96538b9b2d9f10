package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	txcontext "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/tx"
)

// Store implements audit.Store on the payment_audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `category, action, subject, actor_id, request_id, payment_mode, channel, amount, registration_ids, reason, occurred_at`

// Append writes an audit event. When ctx carries a transaction the event is
// written inside it.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	query := `
		INSERT INTO payment_audit_events (id, ` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Action,
		event.Subject,
		event.ActorID,
		event.RequestID,
		event.PaymentMode,
		event.Channel,
		event.Amount,
		pq.Array(event.RegistrationIDs),
		event.Reason,
		event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, actorID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM payment_audit_events
		WHERE actor_id = $1
		ORDER BY occurred_at
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by actor: %w", err)
	}
	return scanEvents(rows)
}

// ListRecent returns the most recent limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT `+selectColumns+`
			FROM payment_audit_events
			ORDER BY occurred_at DESC
			LIMIT $1
		) recent
		ORDER BY occurred_at
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	defer rows.Close()
	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			ids      pq.StringArray
		)
		if err := rows.Scan(&category, &e.Action, &e.Subject, &e.ActorID, &e.RequestID,
			&e.PaymentMode, &e.Channel, &e.Amount, &ids, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.RegistrationIDs = []string(ids)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
