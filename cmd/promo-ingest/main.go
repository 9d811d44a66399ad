// Command promo-ingest bulk-creates promotions from gzipped CSV files.
//
// Each file starts with a header row naming its columns. code,
// discount_type and discount_value are required; max_discount, max_uses,
// per_user_limit, valid_from, valid_to, branch_id, status and description are
// optional. A code that appears more than once across all files is treated
// as a conflict and none of its rows are created.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
	"github.com/xenking/foodhub-promotions/internal/storage/postgres"
)

func main() {
	var (
		pattern     string
		databaseURL string
		opts        options
	)

	flag.StringVar(&pattern, "files", "data/promotions*.csv.gz", "glob of gzipped CSV files to ingest")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.expectedCodes, "expected-codes", 1_000_000, "expected number of codes per file, sizes the bloom filters")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent promotion inserts")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate files and report duplicates without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !opts.dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, pattern, databaseURL, opts); err != nil {
		slog.Error("promotion ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promotion ingest completed successfully")
}

func run(ctx context.Context, pattern, databaseURL string, opts options) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "expand file pattern")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}
	slog.Info("ingesting files", slog.Any("files", files))

	var svc creator = dryRun{}
	if !opts.dryRun {
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		promos, err := promotion.NewService(
			postgres.NewPromotionRepository(pool),
			postgres.NewOrderRepository(pool),
			promotion.Options{},
		)
		if err != nil {
			return errors.Wrap(err, "create promotion service")
		}
		svc = promos
	}

	st, err := ingest(ctx, svc, files, opts)
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int64("created", st.created.Load()),
		slog.Int64("existing", st.existing.Load()),
		slog.Int64("duplicate_rows", st.duplicate.Load()),
		slog.Int64("invalid_rows", st.invalid.Load()),
	)
	return nil
}

// dryRun validates requests without storing them.
type dryRun struct{}

func (dryRun) CreatePromotion(_ context.Context, req promotion.CreateRequest) (*promotion.Promotion, error) {
	return &promotion.Promotion{Code: promotion.NormalizeCode(req.Code)}, nil
}
