package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tripledger/internal/audit"
	"tripledger/internal/config"
	"tripledger/internal/integrity"
	"tripledger/internal/ledger"
	"tripledger/internal/logger"
	"tripledger/internal/report"
	"tripledger/internal/store"
	"tripledger/internal/store/memory"
	"tripledger/internal/store/mongostore"
	"tripledger/pkg/models"
)

// app is the wired set of services shared by every command.
type app struct {
	cfg       *config.Config
	store     store.Store
	audit     audit.Recorder
	ledger    *ledger.Service
	lifecycle *ledger.Lifecycle
	integrity *integrity.Manager
	reports   *report.Builder

	closers []func(context.Context) error
}

// newApp loads the configuration and opens the store and audit backends.
func newApp(ctx context.Context) (*app, error) {
	const op = "newApp"

	log := logger.WithComponent("app")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &app{cfg: cfg}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		a.store = memory.New()
	default:
		s, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	}

	if cfg.RedisAddr != "" {
		client, err := audit.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("%s: connect to redis: %w", op, err)
		}
		a.audit = audit.NewRedisRecorder(client, cfg.AuditHistoryLimit)
		a.closers = append(a.closers, closeRedis(client))
	} else {
		log.Info().Msg("REDIS_ADDR not set, audit history kept in process memory")
		a.audit = audit.NewMemory(cfg.AuditHistoryLimit)
	}

	a.ledger = ledger.NewService(a.store, a.store)
	a.lifecycle = ledger.NewLifecycle(a.store, ledger.NewMirror(a.store))
	a.integrity = integrity.NewManager(a.store, a.audit)
	a.reports = report.NewBuilder(a.store, a.store)

	return a, nil
}

func closeRedis(c *redis.Client) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}

// Close releases the backends in reverse order of opening.
func (a *app) Close(ctx context.Context) {
	log := logger.WithComponent("app")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to close backend")
		}
	}
}

// operator is the identity CLI commands act as.
func (a *app) operator() models.Caller {
	return models.Caller{ID: a.cfg.OperatorID, Role: models.RoleAdmin}
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

// printResult writes v as indented JSON when --json is set, otherwise calls human.
func printResult(cmd *cobra.Command, v any, human func()) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		human()
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
