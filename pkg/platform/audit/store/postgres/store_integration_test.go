//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	audit "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	auditpg "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit/store/postgres"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/testutil/containers"
)

func TestStoreAppendAndList(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, persistence.MigratePostgres(pg.DB))

	ctx := context.Background()
	store := auditpg.New(pg.DB)
	base := time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

	for i, op := range []string{"op-1", "op-2", "op-1"} {
		require.NoError(t, store.Append(ctx, audit.Event{
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			Action:          string(audit.EventPaymentFinalized),
			Subject:         "batch",
			ActorID:         op,
			PaymentMode:     "wave",
			Channel:         "gateway",
			Amount:          "400000",
			RegistrationIDs: []string{"REG-1", "REG-2"},
		}))
	}

	byActor, err := store.ListByActor(ctx, "op-1")
	require.NoError(t, err)
	require.Len(t, byActor, 2)
	assert.Equal(t, audit.CategoryCompliance, byActor[0].Category)
	assert.Equal(t, []string{"REG-1", "REG-2"}, byActor[0].RegistrationIDs)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "op-2", recent[0].ActorID)
	assert.True(t, base.Add(2*time.Minute).Equal(recent[1].Timestamp))
}
