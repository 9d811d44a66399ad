package promotion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input rejected at the boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Item is an order line carried with the evaluation context. The current
// rules only use the subtotal; items are kept for per-item rules.
type Item struct {
	ID        string
	Quantity  int
	UnitPrice decimal.Decimal
}

// EvaluationContext is the validated input of Preview and ApplyAndConsume.
// Construct it with NewEvaluationContext.
type EvaluationContext struct {
	Code     string
	Subtotal decimal.Decimal
	Items    []Item
	UserID   string
	BranchID string
}

// NewEvaluationContext validates the raw order context and normalizes the
// code. Empty userID or branchID mean "absent".
func NewEvaluationContext(code string, subtotal decimal.Decimal, items []Item, userID, branchID string) (EvaluationContext, error) {
	code = NormalizeCode(code)
	if code == "" {
		return EvaluationContext{}, invalidField("code", "must not be empty")
	}
	if subtotal.IsNegative() {
		return EvaluationContext{}, invalidField("subtotal", "must not be negative")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return EvaluationContext{}, invalidField("items", fmt.Sprintf("quantity must be greater than 0 for item %s", it.ID))
		}
		if it.UnitPrice.IsNegative() {
			return EvaluationContext{}, invalidField("items", fmt.Sprintf("price must not be negative for item %s", it.ID))
		}
	}
	return EvaluationContext{
		Code:     code,
		Subtotal: subtotal,
		Items:    items,
		UserID:   userID,
		BranchID: branchID,
	}, nil
}

// CreateRequest describes a promotion to create. Zero values of MaxUses,
// PerUserLimit and Status select the defaults.
type CreateRequest struct {
	Code          string
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	MaxUses       int
	PerUserLimit  int
	ValidFrom     *time.Time
	ValidTo       *time.Time
	BranchID      string
	Status        Status
}

var hundred = decimal.NewFromInt(100)

// validate checks the request and returns the promotion it describes with
// creation-time defaults applied.
func (r CreateRequest) validate() (Promotion, error) {
	code := NormalizeCode(r.Code)
	if code == "" {
		return Promotion{}, invalidField("code", "must not be empty")
	}
	if !r.DiscountType.Valid() {
		return Promotion{}, invalidField("discountType", fmt.Sprintf("unsupported discount type %q", r.DiscountType))
	}
	if !r.DiscountValue.IsPositive() {
		return Promotion{}, invalidField("discountValue", "must be greater than 0")
	}
	if r.DiscountType == DiscountPercent && r.DiscountValue.GreaterThan(hundred) {
		return Promotion{}, invalidField("discountValue", "percentage must not exceed 100")
	}
	if r.MaxDiscount.Valid && r.MaxDiscount.Decimal.IsNegative() {
		return Promotion{}, invalidField("maxDiscount", "must not be negative")
	}
	if r.MaxDiscount.Valid && !r.MaxDiscount.Decimal.Equal(r.MaxDiscount.Decimal.Truncate(2)) {
		return Promotion{}, invalidField("maxDiscount", "must not have more than 2 decimal places")
	}
	if r.MaxUses < 0 {
		return Promotion{}, invalidField("maxUses", "must not be negative")
	}
	if r.PerUserLimit < 0 {
		return Promotion{}, invalidField("perUserLimit", "must not be negative")
	}
	if r.ValidFrom != nil && r.ValidTo != nil && r.ValidTo.Before(*r.ValidFrom) {
		return Promotion{}, invalidField("validTo", "must not be before validFrom")
	}

	status := r.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return Promotion{}, invalidField("status", fmt.Sprintf("unsupported status %q", r.Status))
	}

	return Promotion{
		Code:          code,
		Description:   r.Description,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MaxDiscount:   r.MaxDiscount,
		MaxUses:       r.MaxUses,
		PerUserLimit:  r.PerUserLimit,
		ValidFrom:     r.ValidFrom,
		ValidTo:       r.ValidTo,
		BranchID:      r.BranchID,
		Status:        status,
	}, nil
}
