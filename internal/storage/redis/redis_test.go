//go:build integration

package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xenking/lester-loyalty/internal/storage"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKV(t *testing.T) {
	client := newTestClient(t)
	kv := NewKV(client, "ledger:")
	ctx := context.Background()

	require.NoError(t, kv.Ping(ctx))

	_, err := kv.Get(ctx, storage.KeyLevels)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Put(ctx,
		storage.Entry{Key: storage.KeyLevels, Value: []byte(`[{"name":"Nuevo","minPoints":0}]`)},
		storage.Entry{Key: storage.KeyConfig, Value: []byte(`{"pointRatio":"50"}`)},
	))

	got, err := kv.Get(ctx, storage.KeyConfig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pointRatio":"50"}`, string(got))

	// Keys are namespaced.
	n, err := client.Exists(ctx, "ledger:levels").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestKV_Store(t *testing.T) {
	s := storage.NewStore(NewKV(newTestClient(t), "test:"))
	ctx := context.Background()

	require.NoError(t, s.EnsureDefaults(ctx))
	cfg, err := s.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", cfg.PointRatio.String())
}
