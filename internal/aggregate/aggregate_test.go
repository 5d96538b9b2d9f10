package aggregate

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
)

var at = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

func pending(id models.RegistrationID, c models.Category) models.Registration {
	return models.Registration{ID: id, Category: c, Status: models.StatusPending}
}

func paid(id models.RegistrationID, c models.Category, mode models.PaymentMode) models.Registration {
	return pending(id, c).Finalize(mode, "op", "batch", at)
}

func fixture() models.Snapshot {
	return models.Snapshot{
		Pending: []models.Registration{
			pending("A", models.CategoryMember),
			pending("B", models.CategoryNonMember),
		},
		Finalized: []models.Registration{
			paid("D", models.CategoryMember, models.PaymentModeCash),
			paid("E", models.CategoryNonMember, models.PaymentModeWave),
			paid("F", models.CategoryNonMember, models.PaymentModeCard),
		},
		Exempt: []models.Registration{
			pending("C", models.CategoryVIP),
			pending("G", models.CategorySpeaker),
		},
	}
}

func amount(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestCompute(t *testing.T) {
	sum := Compute(fixture(), tariff.Default())

	assert.Equal(t, 2, sum.Pending.Count)
	assert.True(t, amount(750000).Equal(sum.Pending.Amount))
	assert.Equal(t, 3, sum.Finalized.Count)
	assert.True(t, amount(1150000).Equal(sum.Finalized.Amount))
	assert.Equal(t, 2, sum.Exempt)
	assert.Equal(t, "0.6053", sum.RecoveryRate.String())

	nonMember := sum.ByCategory[models.CategoryNonMember]
	assert.Equal(t, 1, nonMember.Pending.Count)
	assert.Equal(t, 2, nonMember.Finalized.Count)
	assert.True(t, amount(800000).Equal(nonMember.Finalized.Amount))
	assert.Equal(t, 1, sum.ByCategory[models.CategoryVIP].Exempt)

	assert.Equal(t, 1, sum.ByPaymentMode[models.PaymentModeWave].Count)
	assert.Zero(t, sum.ByPaymentMode[models.PaymentModeCheque].Count)
	assert.True(t, amount(350000).Equal(sum.ByChannel[models.ChannelExternal].Amount))
	assert.True(t, amount(800000).Equal(sum.ByChannel[models.ChannelGateway].Amount))
}

func TestComputeChannelAndModeTotalsMatchFinalized(t *testing.T) {
	sum := Compute(fixture(), tariff.Default())

	byMode := decimal.Zero
	for _, b := range sum.ByPaymentMode {
		byMode = byMode.Add(b.Amount)
	}
	byChannel := decimal.Zero
	for _, b := range sum.ByChannel {
		byChannel = byChannel.Add(b.Amount)
	}
	assert.True(t, sum.Finalized.Amount.Equal(byMode))
	assert.True(t, sum.Finalized.Amount.Equal(byChannel))
}

func TestRecoveryRate(t *testing.T) {
	tests := []struct {
		name      string
		finalized int64
		pending   int64
		want      string
	}{
		{name: "nothing owed", finalized: 0, pending: 0, want: "0"},
		{name: "nothing collected", finalized: 0, pending: 400000, want: "0"},
		{name: "fully collected", finalized: 750000, pending: 0, want: "1"},
		{name: "rounded to four places", finalized: 350000, pending: 400000, want: "0.4667"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecoveryRate(amount(tt.finalized), amount(tt.pending)).String())
		})
	}
}

func TestComputeEmptySnapshot(t *testing.T) {
	sum := Compute(models.Snapshot{}, tariff.Default())
	assert.Zero(t, sum.Total().Count)
	assert.True(t, sum.RecoveryRate.IsZero())
	assert.Len(t, sum.ByCategory, len(models.Categories))
	assert.Len(t, sum.ByPaymentMode, len(models.PaymentModes))
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Compute(fixture(), tariff.Default())))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", buf.Bytes())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRenderTextReportsWriteErrors(t *testing.T) {
	err := RenderText(failingWriter{}, Compute(fixture(), tariff.Default()))
	assert.EqualError(t, err, "closed pipe")
}
