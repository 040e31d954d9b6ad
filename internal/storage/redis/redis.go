// Package redis stores the ledger collections as Redis string keys.
package redis

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/lester-loyalty/internal/storage"
)

var _ storage.KV = (*KV)(nil)

// KV implements storage.KV with one Redis key per collection.
type KV struct {
	client goredis.UniversalClient
	prefix string
}

// NewKV returns a KV that namespaces every key with prefix.
func NewKV(client goredis.UniversalClient, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := k.client.Get(ctx, k.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("reading collection %q: %w", key, err)
	}
	return v, nil
}

// Put writes all entries in a MULTI/EXEC transaction.
func (k *KV) Put(ctx context.Context, entries ...storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := k.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, e := range entries {
			p.Set(ctx, k.prefix+e.Key, e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing collections: %w", err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}
