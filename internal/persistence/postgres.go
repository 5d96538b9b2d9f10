package persistence

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresAdapter persists registrations in PostgreSQL. The finalized set is
// the finalized_registrations table, whose primary key makes Commit
// conditional across engine instances.
type PostgresAdapter struct {
	sqlAdapter
}

// NewPostgres wraps an open database handle. Call MigratePostgres first.
func NewPostgres(db *sql.DB) *PostgresAdapter {
	return &PostgresAdapter{sqlAdapter{
		db: db,
		selectIn: func(ids []models.RegistrationID) (string, []any) {
			return `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ANY($1) ORDER BY seq`,
				[]any{pq.Array(idStrings(ids))}
		},
	}}
}

// MigratePostgres applies the embedded schema migrations.
func MigratePostgres(db *sql.DB) error {
	source, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
