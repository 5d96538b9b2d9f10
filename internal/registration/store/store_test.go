package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/index"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	ctx     context.Context
	adapter *persistence.Memory
	store   *Store
	at      time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.adapter = persistence.NewMemory()
	s.store = s.newStore()
	s.at = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

	_, err := s.store.Register(s.ctx, []models.Registration{
		mustPending("A", models.CategoryMember, ""),
		mustPending("B", models.CategoryNonMember, ""),
		mustPending("C", models.CategoryVIP, ""),
		mustPending("D", models.CategoryMember, "G1"),
		mustPending("E", models.CategoryNonMember, "G1"),
		mustPending("F", models.CategorySpeaker, "G1"),
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) newStore() *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s.adapter, index.New(), tariff.Default(), WithLogger(logger))
}

func mustPending(id models.RegistrationID, category models.Category, group string) models.Registration {
	reg, err := models.NewPending(id, category, group)
	if err != nil {
		panic(err)
	}
	return reg
}

func (s *StoreSuite) TestRegister() {
	s.Run("skips known ids", func() {
		n, err := s.store.Register(s.ctx, []models.Registration{
			mustPending("A", models.CategoryVIP, ""),
			mustPending("G", models.CategoryMember, ""),
			mustPending("G", models.CategoryMember, ""),
		})
		s.Require().NoError(err)
		s.Equal(1, n)
		reg, ok := s.store.Get("A")
		s.Require().True(ok)
		s.Equal(models.CategoryMember, reg.Category)
	})

	s.Run("rejects records that are not pending", func() {
		reg := mustPending("H", models.CategoryMember, "").Finalize(models.PaymentModeCash, "op", "b", s.at)
		_, err := s.store.Register(s.ctx, []models.Registration{reg})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, ok := s.store.Get("H")
		s.False(ok)
	})

	s.Run("surfaces adapter failures", func() {
		s.adapter.FailWrites(errors.New("down"))
		defer s.adapter.FailWrites(nil)
		_, err := s.store.Register(s.ctx, []models.Registration{mustPending("I", models.CategoryMember, "")})
		s.Require().ErrorIs(err, sentinel.ErrUnavailable)
		_, ok := s.store.Get("I")
		s.False(ok)
	})
}

func (s *StoreSuite) TestListingsExcludeExempt() {
	pending := s.store.ListPending(models.Filter{})
	s.Equal([]models.RegistrationID{"A", "B", "D", "E"}, ids(pending))
	s.Equal([]models.RegistrationID{"C", "F"}, ids(s.store.ListExempt()))
	s.Empty(s.store.ListFinalized(models.Filter{}))

	s.Equal([]models.RegistrationID{"D", "E"}, ids(s.store.ListPending(models.Filter{GroupID: "G1"})))
	s.Equal([]models.RegistrationID{"A", "D"}, ids(s.store.ListPending(models.Filter{Category: models.CategoryMember})))
}

func (s *StoreSuite) TestApplyFinalization() {
	batch, err := s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"A", "B"}, models.PaymentModeCash, "op-1", s.at)
	s.Require().NoError(err)

	s.Equal([]models.RegistrationID{"A", "B"}, batch.IDs)
	s.True(decimal.NewFromInt(750000).Equal(batch.Amount))
	s.Equal(models.ChannelExternal, batch.SettlementChannel)
	s.NotEmpty(batch.BatchID)

	for _, id := range batch.IDs {
		reg, ok := s.store.Get(id)
		s.Require().True(ok)
		s.Equal(models.StatusFinalized, reg.Status)
		s.Equal("op-1", reg.FinalizedBy)
		s.Equal(batch.BatchID, reg.BatchID)
		s.NoError(reg.Validate())
		s.True(s.store.Index().Contains(id))
	}

	snap, err := s.adapter.Load(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]models.RegistrationID{"A", "B"}, snap.Finalized)
}

func (s *StoreSuite) TestApplyFinalizationRejectsWholeBatch() {
	_, err := s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"A"}, models.PaymentModeCash, "op", s.at)
	s.Require().NoError(err)

	_, err = s.store.ApplyFinalization(s.ctx,
		[]models.RegistrationID{"B", "A", "C", "ZZ"}, models.PaymentModeCard, "op", s.at)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidBatch))

	var invalid *models.InvalidBatchError
	s.Require().ErrorAs(err, &invalid)
	s.Equal([]models.Rejection{
		{ID: "A", Reason: models.RejectAlreadyFinalized},
		{ID: "C", Reason: models.RejectExempt},
		{ID: "ZZ", Reason: models.RejectUnknown},
	}, invalid.Rejections)

	reg, _ := s.store.Get("B")
	s.Equal(models.StatusPending, reg.Status)
	s.False(s.store.Index().Contains("B"))
}

func (s *StoreSuite) TestApplyFinalizationValidatesInput() {
	_, err := s.store.ApplyFinalization(s.ctx, nil, models.PaymentModeCash, "op", s.at)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"A"}, "barter", "op", s.at)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *StoreSuite) TestAdapterFailureLeavesStateUntouched() {
	s.adapter.FailWrites(errors.New("connection reset"))
	_, err := s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"A"}, models.PaymentModeWave, "op", s.at)
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)

	reg, _ := s.store.Get("A")
	s.Equal(models.StatusPending, reg.Status)
	s.Zero(s.store.Index().Len())
}

func (s *StoreSuite) TestConflictThenRefresh() {
	other := s.newStore()
	s.Require().NoError(other.Load(s.ctx))

	_, err := other.ApplyFinalization(s.ctx, []models.RegistrationID{"D", "E"}, models.PaymentModeWave, "op-2", s.at)
	s.Require().NoError(err)

	_, err = s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"A", "D"}, models.PaymentModeCash, "op-1", s.at)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	reg, _ := s.store.Get("A")
	s.Equal(models.StatusPending, reg.Status)

	transitioned, err := s.store.Refresh(s.ctx, []models.RegistrationID{"A", "D"})
	s.Require().NoError(err)
	s.Equal([]models.RegistrationID{"D"}, ids(transitioned))
	s.True(s.store.Index().Contains("D"))
	s.False(s.store.Index().Contains("A"))

	// A second refresh has nothing left to apply.
	transitioned, err = s.store.Refresh(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal([]models.RegistrationID{"E"}, ids(transitioned))
	transitioned, err = s.store.Refresh(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(transitioned)
}

func (s *StoreSuite) TestLoadRebuildsIndex() {
	_, err := s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"B"}, models.PaymentModeCheque, "op", s.at)
	s.Require().NoError(err)

	fresh := s.newStore()
	s.Require().NoError(fresh.Load(s.ctx))
	s.Equal(6, fresh.Len())
	s.Equal([]models.RegistrationID{"B"}, fresh.Index().IDs())
	reg, ok := fresh.Get("B")
	s.Require().True(ok)
	s.Equal(models.ChannelExternal, reg.SettlementChannel)
}

func (s *StoreSuite) TestSnapshotAndGroups() {
	_, err := s.store.ApplyFinalization(s.ctx, []models.RegistrationID{"D"}, models.PaymentModeCard, "op", s.at)
	s.Require().NoError(err)

	snap := s.store.Snapshot()
	s.Equal([]models.RegistrationID{"A", "B", "E"}, ids(snap.Pending))
	s.Equal([]models.RegistrationID{"D"}, ids(snap.Finalized))
	s.Equal([]models.RegistrationID{"C", "F"}, ids(snap.Exempt))

	s.Equal([]string{"G1"}, s.store.GroupIDs())
	s.Equal([]models.RegistrationID{"D", "E", "F"}, ids(s.store.GroupMembers("G1")))
	s.Nil(s.store.GroupMembers(""))
}

func ids(regs []models.Registration) []models.RegistrationID {
	out := make([]models.RegistrationID, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.ID)
	}
	return out
}

// snapshotAdapter serves a fixed durable state, as another writer or a
// damaged backup could leave it.
type snapshotAdapter struct {
	persistence.Adapter
	snap *persistence.Snapshot
}

func (a snapshotAdapter) Load(context.Context) (*persistence.Snapshot, error) {
	return a.snap, nil
}

func (a snapshotAdapter) Get(_ context.Context, ids []models.RegistrationID) ([]models.Registration, error) {
	var out []models.Registration
	for _, reg := range a.snap.Registrations {
		if slices.Contains(ids, reg.ID) {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (s *StoreSuite) storeOver(snap *persistence.Snapshot) *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(snapshotAdapter{snap: snap}, index.New(), tariff.Default(), WithLogger(logger))
}

func (s *StoreSuite) TestLoadSkipsInvalidRecords() {
	at := s.at
	st := s.storeOver(&persistence.Snapshot{
		Registrations: []models.Registration{
			mustPending("A", models.CategoryMember, ""),
			{ID: "X", Category: "sponsor", Status: models.StatusPending},
			{ID: "Y", Category: models.CategoryMember, Status: models.StatusFinalized, FinalizedAt: &at},
			mustPending("B", models.CategoryNonMember, ""),
		},
	})
	s.Require().NoError(st.Load(s.ctx))

	s.Equal(2, st.Len())
	_, ok := st.Get("X")
	s.False(ok)
	s.Equal([]models.RegistrationID{"A", "B"}, ids(st.ListPending(models.Filter{})))
	s.NotPanics(func() { st.Snapshot() })
}

func (s *StoreSuite) TestRefreshSkipsInvalidRecords() {
	snap := &persistence.Snapshot{
		Registrations: []models.Registration{mustPending("A", models.CategoryMember, "")},
	}
	st := s.storeOver(snap)
	s.Require().NoError(st.Load(s.ctx))

	snap.Registrations = append(snap.Registrations,
		models.Registration{ID: "X", Category: "sponsor", Status: models.StatusFinalized},
	)
	transitioned, err := st.Refresh(s.ctx, []models.RegistrationID{"X"})
	s.Require().NoError(err)
	s.Empty(transitioned)
	s.False(st.Index().Contains("X"))

	transitioned, err = st.Refresh(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(transitioned)
	s.Equal(1, st.Len())
}

func (s *StoreSuite) TestLoadRejectsFinalizedSetWithoutRecord() {
	st := s.storeOver(&persistence.Snapshot{
		Registrations: []models.Registration{
			mustPending("A", models.CategoryMember, ""),
			mustPending("B", models.CategoryMember, ""),
		},
		Finalized: []models.RegistrationID{"A", "Z"},
	})
	err := st.Load(s.ctx)
	s.Require().Error(err)
	s.ErrorContains(err, "[A Z]")
	s.Zero(st.Len())
}
