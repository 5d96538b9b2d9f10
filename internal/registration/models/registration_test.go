package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
)

func TestCategoryExemption(t *testing.T) {
	assert.False(t, CategoryMember.IsExempt())
	assert.False(t, CategoryNonMember.IsExempt())
	assert.True(t, CategoryVIP.IsExempt())
	assert.True(t, CategorySpeaker.IsExempt())
	assert.True(t, CategoryReferent.IsExempt())
}

func TestFinalizeLeavesReceiverUntouched(t *testing.T) {
	reg, err := NewPending("REG-1", CategoryMember, "")
	require.NoError(t, err)

	at := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	done := reg.Finalize(PaymentModeCard, "awa", "batch-1", at)

	assert.Equal(t, StatusPending, reg.Status)
	assert.Nil(t, reg.FinalizedAt)

	assert.Equal(t, StatusFinalized, done.Status)
	assert.Equal(t, ChannelGateway, done.SettlementChannel)
	assert.Equal(t, "awa", done.FinalizedBy)
	assert.Equal(t, "batch-1", done.BatchID)
	require.NotNil(t, done.FinalizedAt)
	assert.Equal(t, at, *done.FinalizedAt)
	require.NoError(t, done.Validate())
}

func TestValidate(t *testing.T) {
	at := time.Now()

	t.Run("pending with payment fields is rejected", func(t *testing.T) {
		reg := Registration{ID: "REG-1", Category: CategoryMember, Status: StatusPending, PaymentMode: PaymentModeCash}
		require.Error(t, reg.Validate())
	})

	t.Run("finalized exempt is rejected", func(t *testing.T) {
		reg := Registration{ID: "REG-2", Category: CategoryVIP, Status: StatusPending}
		require.Error(t, reg.Finalize(PaymentModeCash, "op", "b", at).Validate())
	})

	t.Run("mismatched channel is rejected", func(t *testing.T) {
		reg := Registration{ID: "REG-3", Category: CategoryMember, Status: StatusPending}.
			Finalize(PaymentModeCash, "op", "b", at)
		reg.SettlementChannel = ChannelGateway
		require.Error(t, reg.Validate())
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		_, err := NewPending("REG-4", "student", "")
		require.Error(t, err)
	})
}

func TestFilterMatches(t *testing.T) {
	reg := Registration{ID: "REG-1", Category: CategoryNonMember, GroupID: "G1"}.
		Finalize(PaymentModeWave, "moussa", "b", time.Now())

	assert.True(t, Filter{}.Matches(reg))
	assert.True(t, Filter{Category: CategoryNonMember, GroupID: "G1"}.Matches(reg))
	assert.True(t, Filter{SettlementChannel: ChannelGateway, FinalizedBy: "moussa"}.Matches(reg))
	assert.False(t, Filter{PaymentMode: PaymentModeCash}.Matches(reg))
	assert.False(t, Filter{GroupID: "G2"}.Matches(reg))
}

func TestInvalidBatchErrorCarriesCode(t *testing.T) {
	err := &InvalidBatchError{Rejections: []Rejection{
		{ID: "REG-1", Reason: RejectUnknown},
		{ID: "REG-9", Reason: RejectExempt},
	}}
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidBatch))
	assert.Equal(t, []RegistrationID{"REG-1", "REG-9"}, err.RejectedIDs())
	assert.Contains(t, err.Error(), "REG-9 (exempt)")
}
