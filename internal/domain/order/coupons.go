package order

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
)

// DiscountEngine computes the discount a coupon produces for an order.
// A returned error rejects the coupon.
type DiscountEngine interface {
	ApplyCoupon(ctx context.Context, o *Order, c *coupon.Coupon) (decimal.Decimal, error)
}

// Cart is the active checkout cart; HoldAppliedCoupons reserves usage slots
// for every coupon code it reports.
type Cart interface {
	AppliedCoupons() []string
}

// CouponCodes returns the codes of the coupons applied to this order.
func (o *Order) CouponCodes(ctx context.Context) ([]string, error) {
	items, err := o.Items(ctx, KindCouponLine)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(items))
	for _, item := range items {
		if line, ok := item.(*CouponLine); ok {
			codes = append(codes, line.Code())
		}
	}
	return codes, nil
}

func (o *Order) hasCoupon(ctx context.Context, code string) (bool, error) {
	codes, err := o.CouponCodes(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// couponUserAlias is the identity a redemption is recorded under: the user
// id when the order has one, else the lowercased billing email.
func (o *Order) couponUserAlias() string {
	if o.data.CustomerID != 0 {
		return strconv.FormatUint(o.data.CustomerID, 10)
	}
	return strings.ToLower(o.data.BillingEmail)
}

// ApplyCouponCode resolves a raw code and applies the coupon.
func (o *Order) ApplyCouponCode(ctx context.Context, rawCode string) error {
	code := coupon.NormalizeCode(rawCode)
	if o.resolver == nil {
		return coupon.NewError(code, coupon.ErrCodeNotFound, "No coupon resolver configured")
	}
	c, err := o.resolver.FindByCode(ctx, code)
	if err != nil || c == nil {
		return coupon.NewError(code, coupon.ErrCodeNotFound, "Coupon does not exist")
	}
	return o.ApplyCoupon(ctx, c)
}

// ApplyCoupon applies an already-resolved coupon to the order: rejects
// duplicates and exhausted per-user limits, delegates the discount
// computation to the discount engine, records the discount as a coupon
// line, recalculates coupon-driven totals and persists the order. When
// usage tracking is enabled the coupon's usage counter is incremented for
// the order's user alias.
func (o *Order) ApplyCoupon(ctx context.Context, c *coupon.Coupon) error {
	code := c.Code()

	applied, err := o.hasCoupon(ctx, code)
	if err != nil {
		return err
	}
	if applied {
		return coupon.NewError(code, coupon.ErrCodeAlreadyApplied, "Coupon has already been applied to this order")
	}

	if c.UsageLimitPerUser() > 0 && o.ledger != nil && o.data.BillingEmail != "" {
		used, err := o.ledger.UsageByEmail(ctx, c, strings.ToLower(o.data.BillingEmail))
		if err != nil {
			return err
		}
		if used >= c.UsageLimitPerUser() {
			return coupon.NewError(code, coupon.ErrCodeUsageLimit, "Coupon usage limit has been reached for this user")
		}
	}

	if o.engine == nil {
		return coupon.NewError(code, coupon.ErrCodeRejected, "No discount engine configured")
	}
	discount, err := o.engine.ApplyCoupon(ctx, o, c)
	if err != nil {
		var cerr *coupon.Error
		if errors.As(err, &cerr) {
			return cerr
		}
		return coupon.NewError(code, coupon.ErrCodeRejected, err.Error())
	}

	line := NewCouponLine(o.itemAdapter(), nil)
	line.SetName(code)
	line.SetCode(code)
	line.SetDiscount(discount)
	if err := o.AddItem(line); err != nil {
		return err
	}

	if err := o.CalculateTotals(ctx); err != nil {
		return err
	}
	if _, err := o.Save(ctx); err != nil {
		return err
	}

	if o.data.RecordUsage && o.ledger != nil {
		if err := o.ledger.IncreaseUsage(ctx, c, o.couponUserAlias()); err != nil {
			return err
		}
	}

	event := shared.NewBaseDomainEvent(EventCouponApplied, EntityKind, o.GetID())
	o.AddEvent(&event)
	return nil
}

// itemAdapter returns the adapter new items are bound to. The order adapter
// doubles as the item adapter; a nil order adapter keeps items in memory.
func (o *Order) itemAdapter() shared.Adapter {
	if o.store == nil {
		return nil
	}
	return o.store
}

// HoldAppliedCoupons reserves usage slots for every coupon applied in the
// active cart. A hold that reports ErrLimitExhausted means a concurrent
// transaction took the last slot; any other failure is a system error. Both
// abort the whole operation, but every hold key obtained before the failure
// is still recorded against the order so it can be released later - the
// recording runs regardless of success or failure, and the captured error
// is returned only after the holds are recorded.
func (o *Order) HoldAppliedCoupons(ctx context.Context, billingEmail string) (err error) {
	if o.cart == nil || o.ledger == nil || o.resolver == nil {
		return nil
	}

	heldGlobal := make(map[string]string)
	heldUser := make(map[string]string)
	defer func() {
		if len(heldGlobal) == 0 && len(heldUser) == 0 {
			return
		}
		if o.store == nil {
			return
		}
		if recErr := o.store.SetCouponHeldKeys(ctx, o, heldGlobal, heldUser); recErr != nil && err == nil {
			err = recErr
		}
	}()

	email := strings.ToLower(billingEmail)
	for _, rawCode := range o.cart.AppliedCoupons() {
		code := coupon.NormalizeCode(rawCode)
		c, resolveErr := o.resolver.FindByCode(ctx, code)
		if resolveErr != nil || c == nil {
			return coupon.NewError(code, coupon.ErrCodeNotFound, "Coupon does not exist")
		}

		if c.UsageLimit() > 0 {
			key, holdErr := o.ledger.CheckAndHold(ctx, c)
			if holdErr != nil {
				if errors.Is(holdErr, coupon.ErrLimitExhausted) {
					return coupon.NewError(code, coupon.ErrCodeUsageLimit, "Coupon usage limit has been reached")
				}
				return coupon.NewError(code, coupon.ErrCodeHoldFailed, holdErr.Error())
			}
			heldGlobal[code] = key
		}

		if c.UsageLimitPerUser() > 0 {
			var aliases []string
			primary := email
			if o.data.CustomerID != 0 {
				primary = strconv.FormatUint(o.data.CustomerID, 10)
				aliases = append(aliases, primary)
			}
			if email != "" {
				aliases = append(aliases, email)
			}
			key, holdErr := o.ledger.CheckAndHoldForUser(ctx, c, aliases, primary)
			if holdErr != nil {
				if errors.Is(holdErr, coupon.ErrLimitExhausted) {
					return coupon.NewError(code, coupon.ErrCodeUsageLimit, "Coupon usage limit has been reached for this user")
				}
				return coupon.NewError(code, coupon.ErrCodeHoldFailed, holdErr.Error())
			}
			heldUser[code] = key
		}
	}
	return nil
}
