//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/foodhub-promotions/internal/domain/auth"
	"github.com/xenking/foodhub-promotions/internal/domain/menu"
	"github.com/xenking/foodhub-promotions/internal/domain/order"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "foodhub",
				"POSTGRES_PASSWORD": "foodhub",
				"POSTGRES_DB":       "foodhub",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := c.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := c.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://foodhub:foodhub@%s:%s/foodhub?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Migrations are idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	return m.Run()
}

func newPromotion(code string) *promotion.Promotion {
	return &promotion.Promotion{
		Code:          code,
		Description:   "test",
		DiscountType:  promotion.DiscountPercent,
		DiscountValue: decimal.RequireFromString("12.5"),
		Status:        promotion.StatusActive,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPromotionRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewPromotionRepository(testPool)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newPromotion("PG-CREATE")
	p.MaxDiscount = decimal.NewNullDecimal(decimal.NewFromInt(50))
	p.MaxUses = 10
	p.PerUserLimit = 2
	p.ValidFrom = &from
	p.BranchID = "downtown"
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByCode(ctx, "PG-CREATE")
	require.NoError(t, err)
	assert.Equal(t, promotion.DiscountPercent, got.DiscountType)
	assert.True(t, p.DiscountValue.Equal(got.DiscountValue))
	require.True(t, got.MaxDiscount.Valid)
	assert.True(t, decimal.NewFromInt(50).Equal(got.MaxDiscount.Decimal))
	assert.Equal(t, 10, got.MaxUses)
	assert.Equal(t, 2, got.PerUserLimit)
	require.NotNil(t, got.ValidFrom)
	assert.True(t, from.Equal(*got.ValidFrom))
	assert.Nil(t, got.ValidTo)
	assert.Equal(t, "downtown", got.BranchID)

	require.ErrorIs(t, repo.Create(ctx, newPromotion("PG-CREATE")), promotion.ErrAlreadyExists)

	_, err = repo.FindByCode(ctx, "PG-MISSING")
	require.ErrorIs(t, err, promotion.ErrNotFound)
}

func TestPromotionRepository_IncrementUsage(t *testing.T) {
	ctx := context.Background()
	repo := NewPromotionRepository(testPool)
	p := newPromotion("PG-INC")
	p.MaxUses = 2
	require.NoError(t, repo.Create(ctx, p))

	for want := 1; want <= 2; want++ {
		got, err := repo.IncrementUsage(ctx, "PG-INC")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := repo.IncrementUsage(ctx, "PG-INC")
	require.ErrorIs(t, err, promotion.ErrExhausted)
	_, err = repo.IncrementUsage(ctx, "PG-NONE")
	require.ErrorIs(t, err, promotion.ErrNotFound)

	got, err := repo.FindByCode(ctx, "PG-INC")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
}

func TestPromotionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewPromotionRepository(testPool)
	require.NoError(t, repo.Create(ctx, newPromotion("PG-STATUS")))

	require.NoError(t, repo.UpdateStatus(ctx, "PG-STATUS", promotion.StatusInactive))
	got, err := repo.FindByCode(ctx, "PG-STATUS")
	require.NoError(t, err)
	assert.Equal(t, promotion.StatusInactive, got.Status)

	require.ErrorIs(t, repo.UpdateStatus(ctx, "PG-NONE", promotion.StatusActive), promotion.ErrNotFound)
}

func TestService_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	repo := NewPromotionRepository(testPool)

	const workers = 64
	p := newPromotion("PG-RACE")
	p.MaxUses = 50
	require.NoError(t, repo.Create(ctx, p))

	svc, err := promotion.NewService(repo, NewOrderRepository(testPool), promotion.Options{})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		okN  int
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Consume(ctx, "pg-race")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okN++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, okN)
	assert.Len(t, errs, workers-50)
	for _, err := range errs {
		require.ErrorIs(t, err, promotion.ErrInvalidState)
	}
	got, err := repo.FindByCode(ctx, "PG-RACE")
	require.NoError(t, err)
	assert.Equal(t, 50, got.UsageCount)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	newOrder := func(id, user, code string) *order.Order {
		return &order.Order{
			ID:        id,
			UserID:    user,
			BranchID:  "downtown",
			Items:     []order.Item{{MenuItemID: "burger", Quantity: 2, UnitPrice: decimal.RequireFromString("9.50")}},
			Subtotal:  decimal.RequireFromString("19.00"),
			Discount:  decimal.RequireFromString("1.90"),
			Total:     decimal.RequireFromString("17.10"),
			PromoCode: code,
			Status:    order.StatusPlaced,
			CreatedAt: time.Now().UTC(),
		}
	}

	require.NoError(t, repo.Create(ctx, newOrder("pg-o1", "pg-user", "PG-LIMIT")))
	require.NoError(t, repo.Create(ctx, newOrder("pg-o2", "pg-user", "PG-LIMIT")))
	require.NoError(t, repo.Create(ctx, newOrder("pg-o3", "pg-user", "")))
	require.NoError(t, repo.Create(ctx, newOrder("pg-o4", "pg-other", "PG-LIMIT")))

	got, err := repo.Get(ctx, "pg-o1")
	require.NoError(t, err)
	assert.Equal(t, "pg-user", got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("17.10").Equal(got.Total))

	n, err := repo.CountUserOrders(ctx, "pg-user", "PG-LIMIT")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.UpdateStatus(ctx, "pg-o1", order.StatusPlaced, order.StatusCancelled))
	require.ErrorIs(t, repo.UpdateStatus(ctx, "pg-o1", order.StatusPlaced, order.StatusCancelled), order.ErrStatusChanged)
	require.ErrorIs(t, repo.UpdateStatus(ctx, "pg-none", order.StatusPlaced, order.StatusCancelled), order.ErrNotFound)

	n, err = repo.CountUserOrders(ctx, "pg-user", "PG-LIMIT")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Get(ctx, "pg-none")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestMenuRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMenuRepository(testPool)

	items := []menu.Item{
		{ID: "pg-burger", Name: "Burger", Category: "mains", Price: decimal.RequireFromString("9.50"), Available: true},
		{ID: "pg-latte", BranchID: "pg-downtown", Name: "Latte", Category: "drinks", Price: decimal.RequireFromString("3.20"), Available: true},
		{ID: "pg-pie", BranchID: "pg-airport", Name: "Pie", Category: "desserts", Price: decimal.RequireFromString("4.00")},
	}
	for _, it := range items {
		require.NoError(t, repo.Upsert(ctx, it))
	}

	got, err := repo.GetByIDs(ctx, []string{"pg-burger", "pg-pie", "pg-none"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	downtown, err := repo.List(ctx, "pg-downtown")
	require.NoError(t, err)
	ids := make([]string, 0, len(downtown))
	for _, it := range downtown {
		ids = append(ids, it.ID)
	}
	assert.Contains(t, ids, "pg-burger")
	assert.Contains(t, ids, "pg-latte")
	assert.NotContains(t, ids, "pg-pie")
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)

	require.NoError(t, repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "pg-key",
		KeyHash: "abc123",
		Name:    "test",
		Scopes:  []string{auth.ScopePromotionsWrite},
	}))

	info, err := repo.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, info.HasScope(auth.ScopePromotionsWrite))

	_, err = repo.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrNotFound)
}
