package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

// Memory is an in-process adapter. Several stores may share one Memory to
// stand in for engine instances sharing a database.
type Memory struct {
	mu        sync.RWMutex
	records   map[models.RegistrationID]models.Registration
	order     []models.RegistrationID
	finalized map[models.RegistrationID]struct{}
	writeErr  error
}

// NewMemory builds an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		records:   make(map[models.RegistrationID]models.Registration),
		finalized: make(map[models.RegistrationID]struct{}),
	}
}

// FailWrites makes every subsequent Append/Commit fail with err wrapped in
// sentinel.ErrUnavailable. Pass nil to recover.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *Memory) Load(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &Snapshot{
		Registrations: make([]models.Registration, 0, len(m.order)),
		Finalized:     make([]models.RegistrationID, 0, len(m.finalized)),
	}
	for _, id := range m.order {
		snap.Registrations = append(snap.Registrations, m.records[id])
		if _, ok := m.finalized[id]; ok {
			snap.Finalized = append(snap.Finalized, id)
		}
	}
	return snap, nil
}

func (m *Memory) Get(_ context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Registration, 0, len(ids))
	for _, id := range ids {
		if reg, ok := m.records[id]; ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (m *Memory) Append(_ context.Context, regs []models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, m.writeErr)
	}
	for _, reg := range regs {
		if _, ok := m.records[reg.ID]; ok {
			continue
		}
		m.records[reg.ID] = reg
		m.order = append(m.order, reg.ID)
	}
	return nil
}

func (m *Memory) Commit(_ context.Context, regs []models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, m.writeErr)
	}

	var conflicts []models.RegistrationID
	for _, reg := range regs {
		if _, ok := m.finalized[reg.ID]; ok {
			conflicts = append(conflicts, reg.ID)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{IDs: conflicts}
	}

	for _, reg := range regs {
		if _, ok := m.records[reg.ID]; !ok {
			m.order = append(m.order, reg.ID)
		}
		m.records[reg.ID] = reg
		m.finalized[reg.ID] = struct{}{}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
