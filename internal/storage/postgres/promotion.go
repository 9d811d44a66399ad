package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

const (
	promotionColumns = `code, description, discount_type, discount_value, max_discount,
		max_uses, usage_count, per_user_limit, valid_from, valid_to, branch_id, status, created_at`

	getPromotionSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`

	createPromotionSQL = `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	// incrementUsageSQL is the Consumed transition as one statement: the row
	// lock serializes concurrent increments and the cap is checked against
	// the locked row.
	incrementUsageSQL = `UPDATE promotions SET usage_count = usage_count + 1
		WHERE code = $1 AND (max_uses = 0 OR usage_count < max_uses)
		RETURNING usage_count`

	updatePromotionStatusSQL = `UPDATE promotions SET status = $2 WHERE code = $1`

	promotionExistsSQL = `SELECT EXISTS (SELECT 1 FROM promotions WHERE code = $1)`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindByCode returns the promotion with the given normalized code regardless
// of its status. Status checks belong to the evaluator.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find promotion %q", code)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find promotion %q", code)
	}
	return &p, nil
}

// Create inserts a new promotion. The primary key on code turns a duplicate
// into promotion.ErrAlreadyExists.
func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	_, err := r.pool.Exec(ctx, createPromotionSQL,
		p.Code, p.Description, string(p.DiscountType), p.DiscountValue, p.MaxDiscount,
		p.MaxUses, p.UsageCount, p.PerUserLimit, p.ValidFrom, p.ValidTo, p.BranchID,
		string(p.Status), p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return promotion.ErrAlreadyExists
		}
		return errors.Wrapf(err, "create promotion %q", p.Code)
	}
	return nil
}

// IncrementUsage adds one use unless the promotion is exhausted. When no row
// is updated the code is checked to tell an unknown code from a full one.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, code string) (int, error) {
	var usage int
	err := r.pool.QueryRow(ctx, incrementUsageSQL, code).Scan(&usage)
	if err == nil {
		return usage, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(err, "increment usage for promotion %q", code)
	}

	exists, err := r.exists(ctx, code)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, promotion.ErrNotFound
	}
	return 0, promotion.ErrExhausted
}

// UpdateStatus sets the status of the promotion.
func (r *PromotionRepository) UpdateStatus(ctx context.Context, code string, status promotion.Status) error {
	tag, err := r.pool.Exec(ctx, updatePromotionStatusSQL, code, string(status))
	if err != nil {
		return errors.Wrapf(err, "update status for promotion %q", code)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

func (r *PromotionRepository) exists(ctx context.Context, code string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, promotionExistsSQL, code).Scan(&ok); err != nil {
		return false, errors.Wrapf(err, "check promotion %q", code)
	}
	return ok, nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p            promotion.Promotion
		discountType string
		status       string
	)
	err := row.Scan(
		&p.Code, &p.Description, &discountType, &p.DiscountValue, &p.MaxDiscount,
		&p.MaxUses, &p.UsageCount, &p.PerUserLimit, &p.ValidFrom, &p.ValidTo, &p.BranchID,
		&status, &p.CreatedAt,
	)
	p.DiscountType = promotion.DiscountType(discountType)
	p.Status = promotion.Status(status)
	return p, err
}
