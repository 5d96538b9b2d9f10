package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
)

func TestMemoryAdapter(t *testing.T) {
	suite.Run(t, &AdapterSuite{newAdapter: func() Adapter { return NewMemory() }})
}

func TestMemoryFailWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailWrites(errors.New("disk full"))

	err := m.Append(ctx, []models.Registration{pending("REG-1", models.CategoryMember, "")})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	m.FailWrites(nil)
	require.NoError(t, m.Append(ctx, []models.Registration{pending("REG-1", models.CategoryMember, "")}))

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Registrations, 1)
}
