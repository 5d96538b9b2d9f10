package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/tx"
)

const registrationColumns = `id, category, group_id, status, payment_mode, settlement_channel, finalized_at, finalized_by, batch_id`

// sqlAdapter is the shared implementation behind the Postgres and SQLite
// adapters. Both drivers accept $N placeholders; only the multi-id lookup
// differs between them.
type sqlAdapter struct {
	db       *sql.DB
	selectIn func(ids []models.RegistrationID) (string, []any)
}

func (a *sqlAdapter) Load(ctx context.Context) (*Snapshot, error) {
	// The finalized set is read first: commits write the record and the set
	// entry together, so every id listed here already has its finalized record.
	finalized, err := a.finalizedIDs(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	regs, err := scanRegistrations(rows)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Registrations: regs, Finalized: finalized}, nil
}

func (a *sqlAdapter) finalizedIDs(ctx context.Context) ([]models.RegistrationID, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id FROM finalized_registrations`)
	if err != nil {
		return nil, fmt.Errorf("load finalized set: %w", err)
	}
	defer rows.Close()
	var finalized []models.RegistrationID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan finalized id: %w", err)
		}
		finalized = append(finalized, models.RegistrationID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finalized set: %w", err)
	}
	return finalized, nil
}

func (a *sqlAdapter) Get(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args := a.selectIn(ids)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get registrations: %w", err)
	}
	return scanRegistrations(rows)
}

func (a *sqlAdapter) Append(ctx context.Context, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	return tx.Run(ctx, a.db, func(ctx context.Context) error {
		exec := tx.ExecutorFor(ctx, a.db)
		for _, reg := range regs {
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO registrations (id, category, group_id, status)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING
			`, string(reg.ID), string(reg.Category), reg.GroupID, string(reg.Status)); err != nil {
				return fmt.Errorf("append registration %s: %w", reg.ID, err)
			}
		}
		return nil
	})
}

func (a *sqlAdapter) Commit(ctx context.Context, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	return tx.Run(ctx, a.db, func(ctx context.Context) error {
		exec := tx.ExecutorFor(ctx, a.db)
		var conflicts []models.RegistrationID
		for _, reg := range regs {
			if err := upsertFinalized(ctx, exec, reg); err != nil {
				return err
			}
			res, err := exec.ExecContext(ctx, `
				INSERT INTO finalized_registrations (id, batch_id, finalized_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO NOTHING
			`, string(reg.ID), reg.BatchID, finalizedAt(reg))
			if err != nil {
				return fmt.Errorf("mark finalized %s: %w", reg.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("mark finalized %s: %w", reg.ID, err)
			}
			if n == 0 {
				conflicts = append(conflicts, reg.ID)
			}
		}
		if len(conflicts) > 0 {
			return &ConflictError{IDs: conflicts}
		}
		return nil
	})
}

func (a *sqlAdapter) Close() error {
	return a.db.Close()
}

func upsertFinalized(ctx context.Context, exec tx.Executor, reg models.Registration) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO registrations (id, category, group_id, status, payment_mode, settlement_channel, finalized_at, finalized_by, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			payment_mode = excluded.payment_mode,
			settlement_channel = excluded.settlement_channel,
			finalized_at = excluded.finalized_at,
			finalized_by = excluded.finalized_by,
			batch_id = excluded.batch_id
	`,
		string(reg.ID),
		string(reg.Category),
		reg.GroupID,
		string(reg.Status),
		string(reg.PaymentMode),
		string(reg.SettlementChannel),
		finalizedAt(reg),
		reg.FinalizedBy,
		reg.BatchID,
	)
	if err != nil {
		return fmt.Errorf("write registration %s: %w", reg.ID, err)
	}
	return nil
}

func finalizedAt(reg models.Registration) sql.NullTime {
	if reg.FinalizedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: reg.FinalizedAt.UTC(), Valid: true}
}

func scanRegistrations(rows *sql.Rows) ([]models.Registration, error) {
	defer rows.Close()
	var out []models.Registration
	for rows.Next() {
		var (
			id, category, groupID, status, mode, channel, by, batch string
			at                                                      sql.NullTime
		)
		if err := rows.Scan(&id, &category, &groupID, &status, &mode, &channel, &at, &by, &batch); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg := models.Registration{
			ID:                models.RegistrationID(id),
			Category:          models.Category(category),
			GroupID:           groupID,
			Status:            models.Status(status),
			PaymentMode:       models.PaymentMode(mode),
			SettlementChannel: models.SettlementChannel(channel),
			FinalizedBy:       by,
			BatchID:           batch,
		}
		if at.Valid {
			t := at.Time.UTC()
			reg.FinalizedAt = &t
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}
