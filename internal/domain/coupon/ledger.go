package coupon

import (
	"context"
	"errors"
	"fmt"
)

// ErrLimitExhausted is returned by the Ledger when a hold cannot be placed
// because a concurrent transaction already reserved the last usage slot.
// It is distinguishable from system failures, which surface as any other
// error.
var ErrLimitExhausted = errors.New("coupon usage limit exhausted")

// Ledger reserves and confirms coupon usage slots. Implementations must be
// atomic at the storage layer: two concurrent holds against a coupon with
// one remaining slot must never both succeed.
type Ledger interface {
	// CheckAndHold reserves one global usage slot and returns its hold
	// key. Returns ErrLimitExhausted when the limit is already used up.
	CheckAndHold(ctx context.Context, c *Coupon) (string, error)

	// CheckAndHoldForUser reserves one usage slot against the given user
	// aliases (user id first, then billing email, lowercased). The hold is
	// recorded under primaryAlias.
	CheckAndHoldForUser(ctx context.Context, c *Coupon, aliases []string, primaryAlias string) (string, error)

	// UsageByEmail returns the user's historical redemption count for the
	// coupon, matched by billing email.
	UsageByEmail(ctx context.Context, c *Coupon, email string) (int, error)

	// IncreaseUsage confirms one redemption keyed by the user alias.
	IncreaseUsage(ctx context.Context, c *Coupon, usedBy string) error

	// DecreaseUsage releases one confirmed redemption keyed by the user
	// alias.
	DecreaseUsage(ctx context.Context, c *Coupon, usedBy string) error
}

// Resolver looks up coupons by their normalized code.
type Resolver interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

// Error is a user-facing coupon operation failure. It always carries the
// coupon code.
type Error struct {
	CouponCode string
	Code       string
	Message    string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("coupon %q: %s", e.CouponCode, e.Message)
}

// NewError creates a coupon operation error
func NewError(couponCode, code, message string) *Error {
	return &Error{CouponCode: couponCode, Code: code, Message: message}
}

// Well-known coupon error codes.
const (
	ErrCodeNotFound       = "COUPON_NOT_FOUND"
	ErrCodeAlreadyApplied = "COUPON_ALREADY_APPLIED"
	ErrCodeUsageLimit     = "COUPON_USAGE_LIMIT_REACHED"
	ErrCodeHoldFailed     = "COUPON_HOLD_FAILED"
	ErrCodeRejected       = "COUPON_REJECTED"
)
