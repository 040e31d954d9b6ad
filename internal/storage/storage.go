// Package storage persists the ledger collections as JSON documents in a
// key-value backend.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Collection keys.
const (
	KeyAgents    = "agents"
	KeyCustomers = "customers"
	KeyLevels    = "levels"
	KeyRewards   = "rewards"
	KeyOrders    = "orders"
	KeyConfig    = "config"
)

// Keys lists every collection key in a stable order.
func Keys() []string {
	return []string{KeyAgents, KeyCustomers, KeyLevels, KeyRewards, KeyOrders, KeyConfig}
}

// Entry is a single key and its encoded value.
type Entry struct {
	Key   string
	Value []byte
}

// KV is a durable string-keyed store of opaque values.
type KV interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes all entries atomically: either every entry is stored or none.
	Put(ctx context.Context, entries ...Entry) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
