package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// Snapshot is a point-in-time copy of every stored collection, keyed by
// collection name. Absent collections are omitted.
type Snapshot map[string]json.RawMessage

// Export reads all collections concurrently.
func Export(ctx context.Context, kv KV) (Snapshot, error) {
	var (
		mu   sync.Mutex
		snap = make(Snapshot, len(Keys()))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range Keys() {
		g.Go(func() error {
			raw, err := kv.Get(gctx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", key, err)
			}
			mu.Lock()
			snap[key] = raw
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Import writes every collection in snap in a single atomic put. Unknown keys
// are rejected, and levels and config must pass the same checks as a
// settings update.
func Import(ctx context.Context, kv KV, snap Snapshot) error {
	known := make(map[string]struct{}, len(Keys()))
	for _, k := range Keys() {
		known[k] = struct{}{}
	}

	entries := make([]Entry, 0, len(snap))
	for _, key := range Keys() {
		raw, ok := snap[key]
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			return errors.Errorf("collection %s is not valid JSON", key)
		}
		if err := validateSettings(key, raw); err != nil {
			return errors.Wrapf(err, "collection %s", key)
		}
		entries = append(entries, Entry{Key: key, Value: raw})
	}
	for key := range snap {
		if _, ok := known[key]; !ok {
			return errors.Errorf("unknown collection %q", key)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return kv.Put(ctx, entries...)
}

func validateSettings(key string, raw json.RawMessage) error {
	switch key {
	case KeyLevels:
		var levels []ledger.Threshold
		if err := json.Unmarshal(raw, &levels); err != nil {
			return errors.Wrap(err, "decode levels")
		}
		return ledger.ValidateThresholds(levels)
	case KeyConfig:
		var cfg ledger.Config
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return errors.Wrap(err, "decode config")
		}
		return cfg.Validate()
	}
	return nil
}

// WriteArchive writes snap to w as gzip-compressed JSON.
func WriteArchive(w io.Writer, snap Snapshot) error {
	zw := pgzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}
	return nil
}

// ReadArchive reads a snapshot written by WriteArchive.
func ReadArchive(r io.Reader) (Snapshot, error) {
	zr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip reader")
	}
	defer func() { _ = zr.Close() }()

	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return snap, nil
}
