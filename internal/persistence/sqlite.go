package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

//go:embed migrations/sqlite/schema.sql
var sqliteSchema string

// SQLiteAdapter persists registrations in a single SQLite file, for
// single-node deployments and local runs.
type SQLiteAdapter struct {
	sqlAdapter
}

// NewSQLite applies the schema to db and returns the adapter.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLiteAdapter, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteAdapter{sqlAdapter{
		db: db,
		selectIn: func(ids []models.RegistrationID) (string, []any) {
			placeholders := make([]string, len(ids))
			args := make([]any, len(ids))
			for i, id := range ids {
				placeholders[i] = fmt.Sprintf("$%d", i+1)
				args[i] = string(id)
			}
			return `SELECT ` + registrationColumns + ` FROM registrations WHERE id IN (` +
				strings.Join(placeholders, ", ") + `) ORDER BY seq`, args
		},
	}}, nil
}
