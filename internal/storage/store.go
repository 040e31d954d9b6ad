package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
	"github.com/xenking/lester-loyalty/internal/domain/reward"
)

var (
	_ ledger.Repository = (*Store)(nil)
	_ agent.Repository  = (*Store)(nil)
	_ reward.Repository = (*Store)(nil)
)

// Store implements the domain repositories on top of a KV backend. Each
// collection is one JSON document.
type Store struct {
	kv KV
}

// NewStore returns a Store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// KV returns the underlying backend.
func (s *Store) KV() KV { return s.kv }

// load decodes key into dst. It reports false when the key is absent.
func (s *Store) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func encode(key string, v any) (Entry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding %s: %w", key, err)
	}
	return Entry{Key: key, Value: raw}, nil
}

func (s *Store) save(ctx context.Context, values map[string]any) error {
	entries := make([]Entry, 0, len(values))
	for _, key := range Keys() {
		v, ok := values[key]
		if !ok {
			continue
		}
		e, err := encode(key, v)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := s.kv.Put(ctx, entries...); err != nil {
		return fmt.Errorf("writing collections: %w", err)
	}
	return nil
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Store) Customers(ctx context.Context) ([]ledger.Customer, error) {
	var out []ledger.Customer
	if _, err := s.load(ctx, KeyCustomers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveCustomers(ctx context.Context, customers []ledger.Customer) error {
	return s.save(ctx, map[string]any{KeyCustomers: nonNil(customers)})
}

func (s *Store) Orders(ctx context.Context) ([]ledger.Order, error) {
	var out []ledger.Order
	if _, err := s.load(ctx, KeyOrders, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveOrders(ctx context.Context, orders []ledger.Order) error {
	return s.save(ctx, map[string]any{KeyOrders: nonNil(orders)})
}

// Levels returns the stored thresholds, or the built-in set when none have
// been saved.
func (s *Store) Levels(ctx context.Context) ([]ledger.Threshold, error) {
	var out []ledger.Threshold
	found, err := s.load(ctx, KeyLevels, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return ledger.DefaultThresholds(), nil
	}
	return out, nil
}

func (s *Store) SaveLevels(ctx context.Context, levels []ledger.Threshold) error {
	return s.save(ctx, map[string]any{KeyLevels: nonNil(levels)})
}

// Config returns the stored conversion config, or the default ratio when
// none has been saved.
func (s *Store) Config(ctx context.Context) (ledger.Config, error) {
	var out ledger.Config
	found, err := s.load(ctx, KeyConfig, &out)
	if err != nil {
		return ledger.Config{}, err
	}
	if !found {
		return ledger.DefaultConfig(), nil
	}
	return out, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg ledger.Config) error {
	return s.save(ctx, map[string]any{KeyConfig: cfg})
}

func (s *Store) SaveApproval(ctx context.Context, orders []ledger.Order, customers []ledger.Customer) error {
	return s.save(ctx, map[string]any{
		KeyOrders:    nonNil(orders),
		KeyCustomers: nonNil(customers),
	})
}

func (s *Store) SaveSettings(ctx context.Context, levels []ledger.Threshold, cfg ledger.Config) error {
	return s.save(ctx, map[string]any{
		KeyLevels: nonNil(levels),
		KeyConfig: cfg,
	})
}

func (s *Store) Agents(ctx context.Context) ([]agent.Agent, error) {
	var out []agent.Agent
	if _, err := s.load(ctx, KeyAgents, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveAgents(ctx context.Context, agents []agent.Agent) error {
	return s.save(ctx, map[string]any{KeyAgents: nonNil(agents)})
}

func (s *Store) Rewards(ctx context.Context) ([]reward.Reward, error) {
	var out []reward.Reward
	if _, err := s.load(ctx, KeyRewards, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveRewards(ctx context.Context, rewards []reward.Reward) error {
	return s.save(ctx, map[string]any{KeyRewards: nonNil(rewards)})
}

// EnsureDefaults writes the built-in levels and config for any of the two
// that are still absent.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	values := make(map[string]any, 2)
	var levels []ledger.Threshold
	found, err := s.load(ctx, KeyLevels, &levels)
	if err != nil {
		return err
	}
	if !found {
		values[KeyLevels] = ledger.DefaultThresholds()
	}
	var cfg ledger.Config
	found, err = s.load(ctx, KeyConfig, &cfg)
	if err != nil {
		return err
	}
	if !found {
		values[KeyConfig] = ledger.DefaultConfig()
	}
	if len(values) == 0 {
		return nil
	}
	return s.save(ctx, values)
}
