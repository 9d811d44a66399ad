package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/foodhub-promotions/internal/domain/menu"
)

const (
	menuColumns = `id, branch_id, name, category, price, available`

	listMenuSQL = `SELECT ` + menuColumns + ` FROM menu_items
		WHERE $1 = '' OR branch_id = '' OR branch_id = $1 ORDER BY id`

	getMenuItemsByIDsSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = ANY($1)`

	upsertMenuItemSQL = `INSERT INTO menu_items (` + menuColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			branch_id = EXCLUDED.branch_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			available = EXCLUDED.available`
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// List returns menu items ordered by ID.
func (r *MenuRepository) List(ctx context.Context, branchID string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listMenuSQL, branchID)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// GetByIDs returns the items matching any of the given IDs.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items by ids")
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// Upsert inserts or replaces a menu item.
func (r *MenuRepository) Upsert(ctx context.Context, it menu.Item) error {
	if _, err := r.pool.Exec(ctx, upsertMenuItemSQL,
		it.ID, it.BranchID, it.Name, it.Category, it.Price, it.Available,
	); err != nil {
		return errors.Wrapf(err, "upsert menu item %q", it.ID)
	}
	return nil
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var it menu.Item
	err := row.Scan(&it.ID, &it.BranchID, &it.Name, &it.Category, &it.Price, &it.Available)
	return it, err
}
