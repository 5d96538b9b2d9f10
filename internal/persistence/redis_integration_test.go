//go:build integration

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/testutil/containers"
)

func TestRedisAdapterAgainstServer(t *testing.T) {
	rc := containers.NewRedisContainer(t)

	suite.Run(t, &AdapterSuite{newAdapter: func() Adapter {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client, WithKeyPrefix("it:"))
	}})
}
