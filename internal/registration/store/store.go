// Package store is the authoritative in-process registration store. Reads are
// served from memory; every mutation goes to the persistence adapter first and
// is only made visible to readers once it is durable.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/index"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
)

// Store holds registrations and writes finalized ids through to the index.
//
// mu guards the maps read by listings and is held only for the in-memory
// swap. writeMu serializes mutators so the durable write and the swap happen
// in the same order for every writer.
type Store struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	records map[models.RegistrationID]models.Registration
	order   []models.RegistrationID

	adapter persistence.Adapter
	index   *index.Index
	tariffs *tariff.Resolver
	logger  *slog.Logger
	batchID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBatchIDs overrides batch id generation.
func WithBatchIDs(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.batchID = fn
		}
	}
}

// New builds an empty store. Call Load to hydrate it from the adapter.
func New(adapter persistence.Adapter, idx *index.Index, tariffs *tariff.Resolver, opts ...Option) *Store {
	s := &Store{
		records: make(map[models.RegistrationID]models.Registration),
		adapter: adapter,
		index:   idx,
		tariffs: tariffs,
		batchID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Index exposes the finalized-set index the store writes through to.
func (s *Store) Index() *index.Index {
	return s.index
}

// Tariffs exposes the resolver used to price batches.
func (s *Store) Tariffs() *tariff.Resolver {
	return s.tariffs
}

// Load replaces the in-memory state with the adapter's content and rebuilds
// the finalized-set index from it.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.adapter.Load(ctx)
	if err != nil {
		return fmt.Errorf("load registrations: %w", err)
	}

	records := make(map[models.RegistrationID]models.Registration, len(snap.Registrations))
	order := make([]models.RegistrationID, 0, len(snap.Registrations))
	var finalized []models.RegistrationID
	for _, reg := range snap.Registrations {
		if _, dup := records[reg.ID]; dup {
			continue
		}
		if !s.valid(ctx, reg) {
			continue
		}
		records[reg.ID] = reg
		order = append(order, reg.ID)
		if reg.IsFinalized() {
			finalized = append(finalized, reg.ID)
		}
	}
	// An id in the durable set without its finalized record could never be
	// committed again: every attempt would conflict.
	var orphans []models.RegistrationID
	for _, id := range snap.Finalized {
		if reg, ok := records[id]; !ok || !reg.IsFinalized() {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		return fmt.Errorf("load registrations: finalized set lists %v without a finalized record", orphans)
	}

	s.mu.Lock()
	s.records = records
	s.order = order
	s.index.Reset(finalized)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "registration store loaded",
		"registrations", len(order),
		"finalized", len(finalized),
	)
	return nil
}

// Register appends pending registrations from the registration source.
// Ids already known are skipped. Returns the number of new registrations.
func (s *Store) Register(ctx context.Context, regs []models.Registration) (int, error) {
	for _, reg := range regs {
		if err := reg.Validate(); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeValidation, "invalid registration")
		}
		if reg.Status != models.StatusPending {
			return 0, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("registration %s: new registrations must be pending", reg.ID))
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fresh := make([]models.Registration, 0, len(regs))
	seen := make(map[models.RegistrationID]struct{}, len(regs))
	s.mu.RLock()
	for _, reg := range regs {
		if _, ok := s.records[reg.ID]; ok {
			continue
		}
		if _, ok := seen[reg.ID]; ok {
			continue
		}
		seen[reg.ID] = struct{}{}
		fresh = append(fresh, reg)
	}
	s.mu.RUnlock()

	if len(fresh) == 0 {
		return 0, nil
	}
	if err := s.adapter.Append(ctx, fresh); err != nil {
		return 0, fmt.Errorf("append registrations: %w", err)
	}

	s.mu.Lock()
	for _, reg := range fresh {
		s.records[reg.ID] = reg
		s.order = append(s.order, reg.ID)
	}
	s.mu.Unlock()
	return len(fresh), nil
}

// ApplyFinalization is the only mutator of payment state. The whole batch is
// rejected with a *models.InvalidBatchError if any id is unknown, exempt or
// already finalized. Otherwise the finalized records are committed durably
// first, then swapped in and written through to the index together.
func (s *Store) ApplyFinalization(
	ctx context.Context,
	ids []models.RegistrationID,
	mode models.PaymentMode,
	operator string,
	at time.Time,
) (*models.FinalizedBatch, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no registrations to finalize")
	}
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown payment mode %q", mode))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batchID := s.batchID()
	staged, rejections := s.stage(ids, mode, operator, batchID, at)
	if len(rejections) > 0 {
		return nil, &models.InvalidBatchError{Rejections: rejections}
	}

	if err := s.adapter.Commit(ctx, staged); err != nil {
		return nil, fmt.Errorf("commit batch %s: %w", batchID, err)
	}

	committed := make([]models.RegistrationID, 0, len(staged))
	s.mu.Lock()
	for _, reg := range staged {
		s.records[reg.ID] = reg
		committed = append(committed, reg.ID)
	}
	s.index.MarkAll(committed)
	s.mu.Unlock()

	return &models.FinalizedBatch{
		BatchID:           batchID,
		IDs:               committed,
		Amount:            s.tariffs.Sum(staged),
		PaymentMode:       mode,
		SettlementChannel: models.ChannelFor(mode),
		Operator:          operator,
		FinalizedAt:       at,
	}, nil
}

func (s *Store) stage(
	ids []models.RegistrationID,
	mode models.PaymentMode,
	operator, batchID string,
	at time.Time,
) ([]models.Registration, []models.Rejection) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rejections []models.Rejection
	staged := make([]models.Registration, 0, len(ids))
	seen := make(map[models.RegistrationID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		reg, ok := s.records[id]
		switch {
		case !ok:
			rejections = append(rejections, models.Rejection{ID: id, Reason: models.RejectUnknown})
		case reg.Category.IsExempt():
			rejections = append(rejections, models.Rejection{ID: id, Reason: models.RejectExempt})
		case reg.IsFinalized() || s.index.Contains(id):
			rejections = append(rejections, models.Rejection{ID: id, Reason: models.RejectAlreadyFinalized})
		default:
			staged = append(staged, reg.Finalize(mode, operator, batchID, at))
		}
	}
	return staged, rejections
}

// Refresh pulls ids from the adapter and applies what other instances
// committed. Only pending -> finalized transitions and unseen registrations
// are applied. An empty ids refreshes everything. Returns the registrations
// that became finalized locally.
func (s *Store) Refresh(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var fetched []models.Registration
	if len(ids) == 0 {
		snap, err := s.adapter.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh registrations: %w", err)
		}
		fetched = snap.Registrations
	} else {
		regs, err := s.adapter.Get(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("refresh registrations: %w", err)
		}
		fetched = regs
	}

	var transitioned []models.Registration
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range fetched {
		if !s.valid(ctx, reg) {
			continue
		}
		local, known := s.records[reg.ID]
		switch {
		case !known:
			s.records[reg.ID] = reg
			s.order = append(s.order, reg.ID)
			if reg.IsFinalized() {
				transitioned = append(transitioned, reg)
			}
		case !local.IsFinalized() && reg.IsFinalized():
			s.records[reg.ID] = reg
			transitioned = append(transitioned, reg)
		}
	}
	newly := make([]models.RegistrationID, 0, len(transitioned))
	for _, reg := range transitioned {
		newly = append(newly, reg.ID)
	}
	s.index.MarkAll(newly)
	return transitioned, nil
}

// valid reports whether a persisted record can be served.
func (s *Store) valid(ctx context.Context, reg models.Registration) bool {
	if err := reg.Validate(); err != nil {
		s.logger.WarnContext(ctx, "skipping invalid persisted registration",
			"registration_id", reg.ID,
			"error", err,
		)
		return false
	}
	return true
}

// Get returns the registration with id.
func (s *Store) Get(id models.RegistrationID) (models.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.records[id]
	return reg, ok
}

// ListPending returns payable registrations awaiting payment. Exempt
// registrations never appear here.
func (s *Store) ListPending(filter models.Filter) []models.Registration {
	return s.list(func(r models.Registration) bool {
		return r.IsPending() && filter.Matches(r)
	})
}

// ListFinalized returns committed registrations.
func (s *Store) ListFinalized(filter models.Filter) []models.Registration {
	return s.list(func(r models.Registration) bool {
		return r.IsFinalized() && filter.Matches(r)
	})
}

// ListExempt returns registrations exonerated from payment.
func (s *Store) ListExempt() []models.Registration {
	return s.list(func(r models.Registration) bool {
		return r.Category.IsExempt()
	})
}

// GroupMembers returns every registration of groupID in intake order.
func (s *Store) GroupMembers(groupID string) []models.Registration {
	if groupID == "" {
		return nil
	}
	return s.list(func(r models.Registration) bool {
		return r.GroupID == groupID
	})
}

// GroupIDs returns the distinct non-empty group ids in intake order.
func (s *Store) GroupIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.order {
		g := s.records[id].GroupID
		if g != "" && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}

// Snapshot returns a consistent pending/finalized/exempt cut taken under one
// read lock.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snap models.Snapshot
	for _, id := range s.order {
		reg := s.records[id]
		switch {
		case reg.Category.IsExempt():
			snap.Exempt = append(snap.Exempt, reg)
		case reg.IsFinalized():
			snap.Finalized = append(snap.Finalized, reg)
		default:
			snap.Pending = append(snap.Pending, reg)
		}
	}
	return snap
}

// Len returns the number of known registrations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) list(keep func(models.Registration) bool) []models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Registration, 0)
	for _, id := range s.order {
		if reg := s.records[id]; keep(reg) {
			out = append(out, reg)
		}
	}
	return out
}
