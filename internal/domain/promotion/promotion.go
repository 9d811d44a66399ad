// Package promotion implements promotion eligibility checks, discount
// arithmetic and usage consumption.
package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercent takes a percentage of the order subtotal.
	DiscountPercent DiscountType = "PERCENT"
	// DiscountFixed takes a fixed currency amount off the order subtotal.
	DiscountFixed DiscountType = "FIXED"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercent || t == DiscountFixed
}

// Status is the administrative state of a promotion.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

var (
	// ErrNotFound is returned when no promotion matches the normalized code.
	ErrNotFound = errors.New("promotion not found")
	// ErrAlreadyExists is returned when creating a promotion whose normalized
	// code is already taken, regardless of the existing promotion's status.
	ErrAlreadyExists = errors.New("promotion code already exists")
	// ErrInvalidState matches every *InvalidStateError.
	ErrInvalidState = errors.New("promotion is not usable")
	// ErrExhausted is returned by Repository.IncrementUsage when a capped
	// promotion has no uses left. The service reports it as an
	// InvalidStateError with ReasonMaxUsesReached.
	ErrExhausted = errors.New("promotion has no uses left")
)

// Reason describes why an existing promotion cannot be used. Reasons are safe
// to show to end users.
type Reason string

const (
	ReasonInactive        Reason = "inactive"
	ReasonNotYetValid     Reason = "not yet valid"
	ReasonExpired         Reason = "expired"
	ReasonWrongBranch     Reason = "wrong branch"
	ReasonMaxUsesReached  Reason = "max uses reached"
	ReasonPerUserLimitHit Reason = "per-user limit reached"
)

// InvalidStateError indicates the promotion exists but is not currently
// usable. Its message is the reason verbatim.
type InvalidStateError struct {
	Reason Reason
}

func (e *InvalidStateError) Error() string {
	return string(e.Reason)
}

// Is makes errors.Is(err, ErrInvalidState) match any reason.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidState(r Reason) error {
	return &InvalidStateError{Reason: r}
}

// NormalizeCode is the single normalization applied to promotion codes at
// every entry point: surrounding whitespace is trimmed and letters are
// upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Promotion is a persisted discount rule identified by a unique code.
type Promotion struct {
	Code          string
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	MaxUses       int
	UsageCount    int
	PerUserLimit  int
	ValidFrom     *time.Time
	ValidTo       *time.Time
	BranchID      string
	Status        Status
	CreatedAt     time.Time
}

// Exhausted reports whether a capped promotion has no uses left.
func (p Promotion) Exhausted() bool {
	return p.MaxUses > 0 && p.UsageCount >= p.MaxUses
}

// Consumed returns the state of p after one more confirmed use. It refuses to
// go past MaxUses, so a committed usage count never exceeds the cap.
func (p Promotion) Consumed() (Promotion, error) {
	if p.Exhausted() {
		return p, invalidState(ReasonMaxUsesReached)
	}
	p.UsageCount++
	return p, nil
}

// Repository persists promotions. Codes passed in are already normalized.
type Repository interface {
	// FindByCode returns ErrNotFound when no promotion has the code.
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	// Create inserts p and returns ErrAlreadyExists on a code collision.
	Create(ctx context.Context, p *Promotion) error
	// IncrementUsage atomically applies Consumed to the stored promotion and
	// returns the new usage count. Concurrent calls never lose an update and
	// never push the count past MaxUses. It returns ErrExhausted when no uses
	// are left and ErrNotFound for unknown codes.
	IncrementUsage(ctx context.Context, code string) (int, error)
	// UpdateStatus changes the status, returning ErrNotFound for unknown codes.
	UpdateStatus(ctx context.Context, code string, status Status) error
}

// OrderHistory answers per-user usage questions from placed orders.
type OrderHistory interface {
	// CountUserOrders returns the number of non-cancelled orders the user
	// placed with the given normalized promotion code.
	CountUserOrders(ctx context.Context, userID, code string) (int, error)
}
