// Command ledger-admin runs maintenance tasks against the configured store:
// tier recalculation, snapshots, restores, seeding and admin key hashing.
//
// Storage settings come from the same LEDGER_ environment and config files
// as ledger-api.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	appkg "github.com/xenking/lester-loyalty/internal/app"
	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/auth"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
	"github.com/xenking/lester-loyalty/internal/domain/reward"
	"github.com/xenking/lester-loyalty/internal/storage"
)

const usage = `usage: ledger-admin <command> [flags]

commands:
  recalculate             re-derive every customer's tier from the stored thresholds
  snapshot -out FILE      write all collections to a gzip archive
  restore -in FILE        replace collections with the contents of an archive
  seed [-agents FILE] [-rewards FILE]
                          write default settings and load agents and rewards
  hash-key -key K [-pepper P]
                          print the admin key hash for LEDGER_AUTH_ADMIN_KEY_HASH`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "recalculate":
		err = withStore(ctx, func(kv storage.KV) error { return recalculate(ctx, kv) })
	case "snapshot":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "ledger-snapshot.json.gz", "archive path")
		_ = fs.Parse(args)
		err = withStore(ctx, func(kv storage.KV) error { return snapshot(ctx, kv, *out) })
	case "restore":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		in := fs.String("in", "", "archive path")
		_ = fs.Parse(args)
		if *in == "" {
			slog.Error("archive path is required: set -in")
			os.Exit(2)
		}
		err = withStore(ctx, func(kv storage.KV) error { return restore(ctx, kv, *in) })
	case "seed":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		agentsFile := fs.String("agents", "", "JSON file with agents to create")
		rewardsFile := fs.String("rewards", "", "JSON file with rewards to create")
		_ = fs.Parse(args)
		err = withStore(ctx, func(kv storage.KV) error { return seed(ctx, kv, *agentsFile, *rewardsFile) })
	case "hash-key":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		key := fs.String("key", "", "admin access key")
		pepper := fs.String("pepper", "", "HMAC pepper (or LEDGER_AUTH_PEPPER env)")
		_ = fs.Parse(args)
		err = hashKey(*key, *pepper)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", slog.String("command", cmd), slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("command completed successfully", slog.String("command", cmd))
}

func withStore(ctx context.Context, fn func(kv storage.KV) error) error {
	cfg, err := appkg.LoadEnvConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == appkg.DriverMemory {
		slog.Warn("memory storage selected, changes will not outlive this process")
	}

	slog.Info("opening storage", slog.String("driver", cfg.Storage.Driver))
	kv, closeStorage, err := appkg.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer closeStorage()

	return fn(kv)
}

func recalculate(ctx context.Context, kv storage.KV) error {
	customers, err := ledger.NewService(storage.NewStore(kv)).Recalculate(ctx)
	if err != nil {
		return errors.Wrap(err, "recalculate")
	}

	counts := make(map[string]int)
	for _, c := range customers {
		counts[c.Level]++
	}
	for level, n := range counts {
		slog.Info("customers per level", slog.String("level", level), slog.Int("count", n))
	}
	slog.Info("recalculated customers", slog.Int("count", len(customers)))
	return nil
}

func snapshot(ctx context.Context, kv storage.KV, path string) (err error) {
	snap, err := storage.Export(ctx, kv)
	if err != nil {
		return errors.Wrap(err, "export collections")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create archive")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close archive")
		}
	}()

	if err := storage.WriteArchive(f, snap); err != nil {
		return err
	}
	slog.Info("wrote snapshot", slog.String("path", path), slog.Int("collections", len(snap)))
	return nil
}

func restore(ctx context.Context, kv storage.KV, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer func() { _ = f.Close() }()

	snap, err := storage.ReadArchive(f)
	if err != nil {
		return err
	}
	if err := storage.Import(ctx, kv, snap); err != nil {
		return errors.Wrap(err, "import collections")
	}
	slog.Info("restored snapshot", slog.String("path", path), slog.Int("collections", len(snap)))
	return nil
}

type agentJSON struct {
	AgentNumber string `json:"agentNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type rewardJSON struct {
	PointsRequired int64  `json:"pointsRequired"`
	Description    string `json:"description"`
	IsActive       bool   `json:"isActive"`
}

func seed(ctx context.Context, kv storage.KV, agentsFile, rewardsFile string) error {
	store := storage.NewStore(kv)

	slog.Info("writing default levels and config")
	if err := store.EnsureDefaults(ctx); err != nil {
		return errors.Wrap(err, "write defaults")
	}

	if agentsFile != "" {
		if err := seedAgents(ctx, agent.NewService(store), agentsFile); err != nil {
			return errors.Wrap(err, "seed agents")
		}
	}
	if rewardsFile != "" {
		if err := seedRewards(ctx, reward.NewService(store), rewardsFile); err != nil {
			return errors.Wrap(err, "seed rewards")
		}
	}
	return nil
}

func readJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var v []T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return v, nil
}

// seedAgents creates the agents from path, skipping agent numbers that are
// already registered.
func seedAgents(ctx context.Context, svc *agent.Service, path string) error {
	agents, err := readJSON[agentJSON](path)
	if err != nil {
		return err
	}
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		known[a.AgentNumber] = struct{}{}
	}

	slog.Info("creating agents", slog.Int("count", len(agents)))
	for _, a := range agents {
		if _, ok := known[a.AgentNumber]; ok {
			slog.Info("agent already exists", slog.String("number", a.AgentNumber))
			continue
		}
		created, err := svc.Create(ctx, agent.Input{
			AgentNumber: a.AgentNumber,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
		})
		if err != nil {
			return errors.Wrapf(err, "create agent %s", a.AgentNumber)
		}
		known[created.AgentNumber] = struct{}{}
		slog.Info("created agent", slog.String("id", created.ID), slog.String("number", created.AgentNumber))
	}
	return nil
}

// seedRewards creates the rewards from path, skipping descriptions that are
// already in the catalog.
func seedRewards(ctx context.Context, svc *reward.Service, path string) error {
	rewards, err := readJSON[rewardJSON](path)
	if err != nil {
		return err
	}
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		known[r.Description] = struct{}{}
	}

	slog.Info("creating rewards", slog.Int("count", len(rewards)))
	for _, r := range rewards {
		if _, ok := known[r.Description]; ok {
			continue
		}
		created, err := svc.Create(ctx, reward.Input{
			PointsRequired: r.PointsRequired,
			Description:    r.Description,
			IsActive:       r.IsActive,
		})
		if err != nil {
			return errors.Wrapf(err, "create reward %q", r.Description)
		}
		known[created.Description] = struct{}{}
		slog.Info("created reward", slog.String("id", created.ID), slog.Int64("points", created.PointsRequired))
	}
	return nil
}

func hashKey(key, pepper string) error {
	if key == "" {
		return errors.New("key is required: set -key")
	}
	if pepper == "" {
		pepper = os.Getenv("LEDGER_AUTH_PEPPER")
	}
	if pepper == "" {
		slog.Warn("hashing without a pepper")
	}
	fmt.Println(auth.HashKey([]byte(pepper), key))
	return nil
}
