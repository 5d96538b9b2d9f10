package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

func TestRedisAdapter(t *testing.T) {
	mr := miniredis.RunT(t)
	suite.Run(t, &AdapterSuite{newAdapter: func() Adapter {
		mr.FlushAll()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedis(client)
	}})
}

func TestRedisAdapterKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	a := NewRedis(client, WithKeyPrefix("conf2026:"))
	reg := pending("REG-1", models.CategoryMember, "")
	require.NoError(t, a.Append(ctx, []models.Registration{reg}))
	require.NoError(t, a.Commit(ctx, []models.Registration{finalizedCopy(reg, "B-1")}))

	assert.True(t, mr.Exists("conf2026:registrations"))
	assert.True(t, mr.Exists("conf2026:intake"))
	ok, err := mr.SIsMember("conf2026:finalized", "REG-1")
	require.NoError(t, err)
	assert.True(t, ok)

	other := NewRedis(client)
	snap, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Registrations)
}
