package coupon

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/shared"
)

// EntityKind is the adapter/cache namespace for coupons.
const EntityKind = "coupon"

// DiscountType determines how a coupon's amount is applied.
type DiscountType string

const (
	DiscountFixedCart DiscountType = "fixed_cart"
	DiscountPercent   DiscountType = "percent"
)

// IsValid reports whether the discount type is recognized.
func (t DiscountType) IsValid() bool {
	return t == DiscountFixedCart || t == DiscountPercent
}

// NormalizeCode applies the platform coupon-code formatting rule: codes are
// compared case-insensitively with surrounding whitespace ignored.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

type couponData struct {
	Code              string
	Amount            decimal.Decimal
	DiscountType      DiscountType
	Description       string
	UsageLimit        int
	UsageLimitPerUser int
	UsageCount        int
}

// Coupon is a persistent discount code with usage limits. Global and
// per-user limits are enforced at checkout through the Ledger, not in
// memory.
type Coupon struct {
	shared.Record
	data couponData
}

// New creates an unsaved coupon bound to the given adapter. The adapter and
// cache may be nil for in-memory use.
func New(adapter shared.Adapter, cache shared.MetaCache) *Coupon {
	c := &Coupon{
		Record: shared.NewRecord(EntityKind, adapter, cache),
		data: couponData{
			Amount:       decimal.Zero,
			DiscountType: DiscountFixedCart,
		},
	}
	c.Bind(c)
	return c
}

// Code returns the normalized coupon code.
func (c *Coupon) Code() string {
	return c.data.Code
}

// SetCode stores the code after normalization.
func (c *Coupon) SetCode(code string) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return shared.NewDomainError("INVALID_COUPON_CODE", "Coupon code cannot be empty")
	}
	shared.Assign(c.Changeset(), "code", &c.data.Code, normalized)
	return nil
}

// Amount returns the discount amount (a currency value for fixed_cart, a
// percentage for percent).
func (c *Coupon) Amount() decimal.Decimal {
	return c.data.Amount
}

// SetAmount sets the discount amount.
func (c *Coupon) SetAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_COUPON_AMOUNT", "Coupon amount cannot be negative")
	}
	if c.data.DiscountType == DiscountPercent && amount.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_COUPON_AMOUNT", "Percentage discount cannot exceed 100")
	}
	shared.AssignDecimal(c.Changeset(), "amount", &c.data.Amount, amount)
	return nil
}

// DiscountType returns how the amount is applied.
func (c *Coupon) DiscountType() DiscountType {
	return c.data.DiscountType
}

// SetDiscountType sets how the amount is applied.
func (c *Coupon) SetDiscountType(t DiscountType) error {
	if !t.IsValid() {
		return shared.NewDomainError("INVALID_DISCOUNT_TYPE", "Unknown discount type").WithData("discount_type", string(t))
	}
	shared.Assign(c.Changeset(), "discount_type", &c.data.DiscountType, t)
	return nil
}

// Description returns the free-text description.
func (c *Coupon) Description() string {
	return c.data.Description
}

// SetDescription sets the free-text description.
func (c *Coupon) SetDescription(description string) {
	shared.Assign(c.Changeset(), "description", &c.data.Description, description)
}

// UsageLimit returns the global usage limit, 0 meaning unlimited.
func (c *Coupon) UsageLimit() int {
	return c.data.UsageLimit
}

// SetUsageLimit sets the global usage limit.
func (c *Coupon) SetUsageLimit(limit int) error {
	if limit < 0 {
		return shared.NewDomainError("INVALID_USAGE_LIMIT", "Usage limit cannot be negative")
	}
	shared.Assign(c.Changeset(), "usage_limit", &c.data.UsageLimit, limit)
	return nil
}

// UsageLimitPerUser returns the per-user usage limit, 0 meaning unlimited.
func (c *Coupon) UsageLimitPerUser() int {
	return c.data.UsageLimitPerUser
}

// SetUsageLimitPerUser sets the per-user usage limit.
func (c *Coupon) SetUsageLimitPerUser(limit int) error {
	if limit < 0 {
		return shared.NewDomainError("INVALID_USAGE_LIMIT", "Per-user usage limit cannot be negative")
	}
	shared.Assign(c.Changeset(), "usage_limit_per_user", &c.data.UsageLimitPerUser, limit)
	return nil
}

// UsageCount returns the confirmed redemption count.
func (c *Coupon) UsageCount() int {
	return c.data.UsageCount
}

// SetUsageCount sets the confirmed redemption count. Adapters use it while
// hydrating; callers should go through the Ledger.
func (c *Coupon) SetUsageCount(count int) {
	shared.Assign(c.Changeset(), "usage_count", &c.data.UsageCount, count)
}

// PropSetters returns the batch-setter table for SetProps.
func (c *Coupon) propSetters() map[string]shared.PropSetter {
	return map[string]shared.PropSetter{
		"code": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return c.SetCode(s)
		},
		"amount": func(v any) error {
			d, err := shared.ToDecimal(v)
			if err != nil {
				return err
			}
			return c.SetAmount(d)
		},
		"discount_type": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return c.SetDiscountType(DiscountType(s))
		},
		"description": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			c.SetDescription(s)
			return nil
		},
		"usage_limit": func(v any) error {
			n, err := shared.ToInt(v)
			if err != nil {
				return err
			}
			return c.SetUsageLimit(n)
		},
		"usage_limit_per_user": func(v any) error {
			n, err := shared.ToInt(v)
			if err != nil {
				return err
			}
			return c.SetUsageLimitPerUser(n)
		},
	}
}

// SetProps applies a batch of property values, collecting per-property
// validation failures into one aggregate error.
func (c *Coupon) SetProps(props map[string]any) error {
	return shared.ApplyProps(c.propSetters(), props)
}

// Delete removes the coupon through the adapter and resets its id.
func (c *Coupon) Delete(ctx context.Context, force bool) (bool, error) {
	return c.DeleteEntity(ctx, force)
}
