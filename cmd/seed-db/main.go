package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/internal/domain/menu"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
	"github.com/xenking/foodhub-promotions/internal/storage/postgres"
)

type menuItemJSON struct {
	ID        string          `json:"id"`
	BranchID  string          `json:"branchId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available *bool           `json:"available"`
}

func main() {
	var (
		databaseURL  string
		menuFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or FOODHUB_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FOODHUB_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("FOODHUB_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or FOODHUB_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FOODHUB_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, postgres.NewMenuRepository(pool), menuFile); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	promos, err := promotion.NewService(
		postgres.NewPromotionRepository(pool),
		postgres.NewOrderRepository(pool),
		promotion.Options{},
	)
	if err != nil {
		return errors.Wrap(err, "create promotion service")
	}
	if err := seedPromotions(ctx, promos); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedMenu(ctx context.Context, repo *postgres.MenuRepository, menuFile string) error {
	slog.Info("reading menu file", slog.String("path", menuFile))

	data, err := os.ReadFile(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var items []menuItemJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting menu items", slog.Int("count", len(items)))

	for _, it := range items {
		available := it.Available == nil || *it.Available
		if err := repo.Upsert(ctx, menu.Item{
			ID:        it.ID,
			BranchID:  it.BranchID,
			Name:      it.Name,
			Category:  it.Category,
			Price:     it.Price,
			Available: available,
		}); err != nil {
			return err
		}

		slog.Info("upserted menu item", slog.String("id", it.ID), slog.String("name", it.Name))
	}

	return nil
}

// seedPromotions creates the sample promotions, leaving existing codes
// untouched so usage counts survive a re-seed.
func seedPromotions(ctx context.Context, svc *promotion.Service) error {
	slog.Info("seeding sample promotions")

	promos := []promotion.CreateRequest{
		{
			Code:          "SUMMER10",
			Description:   "10% off, up to $50",
			DiscountType:  promotion.DiscountPercent,
			DiscountValue: decimal.NewFromInt(10),
			MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
		},
		{
			Code:          "FLAT20",
			Description:   "$20 off any order",
			DiscountType:  promotion.DiscountFixed,
			DiscountValue: decimal.NewFromInt(20),
			MaxUses:       500,
		},
		{
			Code:          "WELCOME5",
			Description:   "$5 off your first order",
			DiscountType:  promotion.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5),
			PerUserLimit:  1,
		},
		{
			Code:          "CBDLUNCH",
			Description:   "15% off at Sydney CBD",
			DiscountType:  promotion.DiscountPercent,
			DiscountValue: decimal.NewFromInt(15),
			BranchID:      "sydney-cbd",
		},
	}

	for _, req := range promos {
		p, err := svc.CreatePromotion(ctx, req)
		switch {
		case errors.Is(err, promotion.ErrAlreadyExists):
			slog.Info("promotion exists", slog.String("code", req.Code))
			continue
		case err != nil:
			return errors.Wrapf(err, "create promotion %s", req.Code)
		}

		slog.Info("created promotion", slog.String("code", p.Code), slog.String("description", p.Description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Promotions admin",
		Scopes:  []string{auth.ScopePromotionsWrite},
	}); err != nil {
		return err
	}

	slog.Info("upserted API key", slog.String("id", "admin"))

	return nil
}
