// Package persistence holds the durable side of the registration store: the
// registration records and, stored independently, the set of finalized ids.
//
// Every adapter's Commit is conditional. It succeeds only when none of the
// ids is already in the durable finalized set, which is what keeps two engine
// instances from recording the same payment twice.
package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

// Adapter durably stores registrations and the finalized-id set.
type Adapter interface {
	// Load returns every registration and the finalized-id set.
	Load(ctx context.Context) (*Snapshot, error)
	// Get returns the registrations found among ids; missing ids are skipped.
	Get(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error)
	// Append inserts pending registrations; ids already stored are ignored.
	Append(ctx context.Context, regs []models.Registration) error
	// Commit writes finalized registrations and adds their ids to the
	// finalized set atomically. If any id is already finalized nothing is
	// written and a *ConflictError is returned.
	Commit(ctx context.Context, regs []models.Registration) error
	Close() error
}

// Snapshot is the full durable state.
type Snapshot struct {
	Registrations []models.Registration
	Finalized     []models.RegistrationID
}

// ConflictError reports ids another writer committed first.
type ConflictError struct {
	IDs []models.RegistrationID
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, string(id))
	}
	return fmt.Sprintf("registrations already finalized: %s", strings.Join(ids, ", "))
}

// Is lets errors.Is(err, sentinel.ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == sentinel.ErrConflict
}

func idStrings(ids []models.RegistrationID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func regIDs(regs []models.Registration) []models.RegistrationID {
	ids := make([]models.RegistrationID, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ID)
	}
	return ids
}
