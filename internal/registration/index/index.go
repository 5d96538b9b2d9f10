// Package index holds the set of registration ids known to be finalized. The
// finalization service consults it before committing so a retried or
// duplicated request never records the same registration twice.
package index

import (
	"slices"
	"sync"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// Index is a concurrency-safe set of finalized registration ids.
type Index struct {
	mu  sync.RWMutex
	ids map[models.RegistrationID]struct{}
}

// New builds an index seeded with ids.
func New(ids ...models.RegistrationID) *Index {
	idx := &Index{ids: make(map[models.RegistrationID]struct{}, len(ids))}
	for _, id := range ids {
		idx.ids[id] = struct{}{}
	}
	return idx
}

// Contains reports whether id is already finalized.
func (i *Index) Contains(id models.RegistrationID) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.ids[id]
	return ok
}

// Partition splits ids into those already marked and those not, preserving
// input order. Both halves are computed under one read lock.
func (i *Index) Partition(ids []models.RegistrationID) (marked, unmarked []models.RegistrationID) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, id := range ids {
		if _, ok := i.ids[id]; ok {
			marked = append(marked, id)
		} else {
			unmarked = append(unmarked, id)
		}
	}
	return marked, unmarked
}

// MarkAll adds ids and returns the ones that were not present before. Marking
// an id twice is not an error.
func (i *Index) MarkAll(ids []models.RegistrationID) []models.RegistrationID {
	i.mu.Lock()
	defer i.mu.Unlock()
	var newlyMarked []models.RegistrationID
	for _, id := range ids {
		if _, ok := i.ids[id]; ok {
			continue
		}
		i.ids[id] = struct{}{}
		newlyMarked = append(newlyMarked, id)
	}
	return newlyMarked
}

// Reset replaces the whole set, used when state is reloaded from persistence.
func (i *Index) Reset(ids []models.RegistrationID) {
	next := make(map[models.RegistrationID]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = next
}

// Len returns the number of finalized ids.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// IDs returns the finalized ids in sorted order.
func (i *Index) IDs() []models.RegistrationID {
	i.mu.RLock()
	ids := make([]models.RegistrationID, 0, len(i.ids))
	for id := range i.ids {
		ids = append(ids, id)
	}
	i.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
