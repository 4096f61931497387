// Command seed loads providers and appointment slots from a JSON file into
// Postgres. Existing providers are updated; existing slots are left alone.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/patient-intake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/seed"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	path := seedPath(os.Args[1:], cfg)
	if path == "" {
		logger.Error("seed file required: pass a path or set SEED_FILE")
		os.Exit(1)
	}
	data, err := seed.LoadFile(path)
	if err != nil {
		logger.Error("failed to load seed file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()

	counts, err := apply(ctx, db.NewTxManager(pool), pool, data)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete",
		"path", path,
		"providers_upserted", counts.Providers,
		"slots_inserted", counts.Slots,
		"slots_in_file", len(data.Slots),
	)
}

func seedPath(args []string, cfg *appconfig.Config) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return strings.TrimSpace(cfg.SeedFile)
}

// apply writes the seed data in one transaction.
func apply(ctx context.Context, tx db.TxRunner, q db.Querier, data *seed.Data) (seed.Counts, error) {
	var counts seed.Counts
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		counts, err = data.ApplyPostgres(ctx, db.QuerierFromCtx(ctx, q))
		return err
	})
	if err != nil {
		return seed.Counts{}, fmt.Errorf("seed: %w", err)
	}
	return counts, nil
}
