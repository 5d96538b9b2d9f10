package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

// AdapterSuite exercises the behaviour every Adapter must share. Backend
// suites embed it and set newAdapter.
type AdapterSuite struct {
	suite.Suite
	newAdapter func() Adapter
	adapter    Adapter
	ctx        context.Context
}

func (s *AdapterSuite) SetupTest() {
	s.ctx = context.Background()
	s.adapter = s.newAdapter()
}

func (s *AdapterSuite) TearDownTest() {
	s.Require().NoError(s.adapter.Close())
}

var commitTime = time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

func finalizedCopy(reg models.Registration, batch string) models.Registration {
	return reg.Finalize(models.PaymentModeCash, "op-1", batch, commitTime)
}

func (s *AdapterSuite) seed() []models.Registration {
	regs := []models.Registration{
		pending("REG-1", models.CategoryMember, ""),
		pending("REG-2", models.CategoryNonMember, "G-1"),
		pending("REG-3", models.CategoryVIP, "G-1"),
	}
	s.Require().NoError(s.adapter.Append(s.ctx, regs))
	return regs
}

func (s *AdapterSuite) TestAppendAndLoad() {
	s.seed()

	snap, err := s.adapter.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.RegistrationID{"REG-1", "REG-2", "REG-3"}, registrationIDs(snap.Registrations))
	s.Empty(snap.Finalized)

	byID := make(map[models.RegistrationID]models.Registration)
	for _, r := range snap.Registrations {
		byID[r.ID] = r
	}
	s.Equal(models.CategoryNonMember, byID["REG-2"].Category)
	s.Equal("G-1", byID["REG-2"].GroupID)
	s.Equal(models.StatusPending, byID["REG-2"].Status)
}

func (s *AdapterSuite) TestLoadKeepsIntakeOrder() {
	var want []models.RegistrationID
	for i := range 12 {
		reg := pending(models.RegistrationID(fmt.Sprintf("REG-%02d", i)), models.CategoryMember, "")
		s.Require().NoError(s.adapter.Append(s.ctx, []models.Registration{reg}))
		want = append(want, reg.ID)
	}
	// A known id does not move.
	s.Require().NoError(s.adapter.Append(s.ctx, []models.Registration{
		pending("REG-03", models.CategoryMember, ""),
	}))
	s.Require().NoError(s.adapter.Commit(s.ctx, []models.Registration{
		finalizedCopy(pending("REG-05", models.CategoryMember, ""), "B-1"),
	}))

	snap, err := s.adapter.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(want, registrationIDs(snap.Registrations))
}

func registrationIDs(regs []models.Registration) []models.RegistrationID {
	out := make([]models.RegistrationID, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.ID)
	}
	return out
}

func (s *AdapterSuite) TestAppendIgnoresKnownIDs() {
	s.seed()
	s.Require().NoError(s.adapter.Append(s.ctx, []models.Registration{
		pending("REG-1", models.CategoryVIP, "other"),
	}))

	regs, err := s.adapter.Get(s.ctx, []models.RegistrationID{"REG-1"})
	s.Require().NoError(err)
	s.Require().Len(regs, 1)
	s.Equal(models.CategoryMember, regs[0].Category)
}

func (s *AdapterSuite) TestCommitMarksFinalized() {
	regs := s.seed()
	s.Require().NoError(s.adapter.Commit(s.ctx, []models.Registration{
		finalizedCopy(regs[0], "B-1"),
		finalizedCopy(regs[1], "B-1"),
	}))

	snap, err := s.adapter.Load(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]models.RegistrationID{"REG-1", "REG-2"}, snap.Finalized)

	got, err := s.adapter.Get(s.ctx, []models.RegistrationID{"REG-1"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.StatusFinalized, got[0].Status)
	s.Equal(models.PaymentModeCash, got[0].PaymentMode)
	s.Equal(models.ChannelExternal, got[0].SettlementChannel)
	s.Equal("op-1", got[0].FinalizedBy)
	s.Equal("B-1", got[0].BatchID)
	s.Require().NotNil(got[0].FinalizedAt)
	s.True(commitTime.Equal(*got[0].FinalizedAt))
}

func (s *AdapterSuite) TestCommitConflictWritesNothing() {
	regs := s.seed()
	s.Require().NoError(s.adapter.Commit(s.ctx, []models.Registration{finalizedCopy(regs[0], "B-1")}))

	err := s.adapter.Commit(s.ctx, []models.Registration{
		finalizedCopy(regs[0], "B-2"),
		finalizedCopy(regs[1], "B-2"),
	})
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrConflict))

	var conflict *ConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal([]models.RegistrationID{"REG-1"}, conflict.IDs)

	snap, err := s.adapter.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.RegistrationID{"REG-1"}, snap.Finalized)

	got, err := s.adapter.Get(s.ctx, []models.RegistrationID{"REG-1", "REG-2"})
	s.Require().NoError(err)
	for _, r := range got {
		if r.ID == "REG-1" {
			s.Equal("B-1", r.BatchID)
		} else {
			s.Equal(models.StatusPending, r.Status)
		}
	}
}

func (s *AdapterSuite) TestGetSkipsUnknownIDs() {
	s.seed()
	got, err := s.adapter.Get(s.ctx, []models.RegistrationID{"REG-3", "NOPE"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.RegistrationID("REG-3"), got[0].ID)
}

func (s *AdapterSuite) TestEmptyBatchesAreNoOps() {
	s.NoError(s.adapter.Append(s.ctx, nil))
	s.NoError(s.adapter.Commit(s.ctx, nil))
	got, err := s.adapter.Get(s.ctx, nil)
	s.NoError(err)
	s.Empty(got)
}

func pending(id models.RegistrationID, category models.Category, group string) models.Registration {
	return models.Registration{ID: id, Category: category, GroupID: group, Status: models.StatusPending}
}
