package commerce

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
)

var oneHundred = decimal.NewFromInt(100)

// StandardDiscountEngine computes discounts from the coupon's own type and
// amount: fixed_cart takes the amount off the cart, percent takes that
// share of the order subtotal. The discount is capped at the subtotal so a
// coupon can never push an order negative on its own.
type StandardDiscountEngine struct{}

// NewStandardDiscountEngine creates the default discount engine.
func NewStandardDiscountEngine() *StandardDiscountEngine {
	return &StandardDiscountEngine{}
}

// ApplyCoupon implements order.DiscountEngine.
func (e *StandardDiscountEngine) ApplyCoupon(ctx context.Context, o *order.Order, c *coupon.Coupon) (decimal.Decimal, error) {
	subtotal, err := o.Subtotal(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var discount decimal.Decimal
	switch c.DiscountType() {
	case coupon.DiscountPercent:
		discount = subtotal.Mul(c.Amount()).Div(oneHundred)
	default:
		discount = c.Amount()
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
