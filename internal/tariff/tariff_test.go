package tariff

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

func TestResolve(t *testing.T) {
	r := Default()

	assert.True(t, decimal.NewFromInt(350000).Equal(r.Resolve(models.CategoryMember)))
	assert.True(t, decimal.NewFromInt(400000).Equal(r.Resolve(models.CategoryNonMember)))
	for _, c := range []models.Category{models.CategoryVIP, models.CategorySpeaker, models.CategoryReferent} {
		assert.True(t, r.Resolve(c).IsZero(), "exempt category %s must resolve to zero", c)
	}
}

func TestResolveUnknownCategoryPanics(t *testing.T) {
	assert.Panics(t, func() { Default().Resolve("student") })
}

func TestNewRejectsNegativeAmounts(t *testing.T) {
	_, err := New(Schedule{Member: decimal.NewFromInt(-1), NonMember: decimal.Zero})
	require.Error(t, err)
}

func TestSum(t *testing.T) {
	r, err := New(Schedule{Member: decimal.NewFromInt(100), NonMember: decimal.NewFromInt(250)})
	require.NoError(t, err)

	total := r.Sum([]models.Registration{
		{Category: models.CategoryMember},
		{Category: models.CategoryNonMember},
		{Category: models.CategorySpeaker},
	})
	assert.True(t, decimal.NewFromInt(350).Equal(total))
}
