package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/shared"
)

// TaxTotal is one row of the grouped tax summary: the accumulated amount
// for a rate code plus the last-seen label, rate id and compound flag.
type TaxTotal struct {
	Label    string
	RateID   uint64
	Compound bool
	Amount   decimal.Decimal
}

// CartTax returns the tax charged on cart items.
func (o *Order) CartTax() decimal.Decimal {
	return o.data.CartTax
}

// SetCartTax stores the cart tax and recomputes the derived total tax.
func (o *Order) SetCartTax(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "cart_tax", &o.data.CartTax, d)
	o.recalcTotalTax()
}

// ShippingTax returns the tax charged on shipping.
func (o *Order) ShippingTax() decimal.Decimal {
	return o.data.ShippingTax
}

// SetShippingTax stores the shipping tax and recomputes the derived total
// tax.
func (o *Order) SetShippingTax(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "shipping_tax", &o.data.ShippingTax, d)
	o.recalcTotalTax()
}

// TotalTax returns the derived total tax. It is never set directly; the
// cart and shipping tax setters maintain it.
func (o *Order) TotalTax() decimal.Decimal {
	return o.data.TotalTax
}

// total_tax = round(cart_tax + shipping_tax) at the configured precision.
func (o *Order) recalcTotalTax() {
	total := o.data.CartTax.Add(o.data.ShippingTax).Round(o.priceDecimals)
	shared.AssignDecimal(o.Changeset(), "total_tax", &o.data.TotalTax, total)
}

// ShippingTotal returns the shipping charge total.
func (o *Order) ShippingTotal() decimal.Decimal {
	return o.data.ShippingTotal
}

// SetShippingTotal sets the shipping charge total.
func (o *Order) SetShippingTotal(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "shipping_total", &o.data.ShippingTotal, d)
}

// DiscountTotal returns the accumulated coupon discount.
func (o *Order) DiscountTotal() decimal.Decimal {
	return o.data.DiscountTotal
}

// SetDiscountTotal sets the accumulated coupon discount.
func (o *Order) SetDiscountTotal(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "discount_total", &o.data.DiscountTotal, d)
}

// DiscountTax returns the tax portion of the discount.
func (o *Order) DiscountTax() decimal.Decimal {
	return o.data.DiscountTax
}

// SetDiscountTax sets the tax portion of the discount.
func (o *Order) SetDiscountTax(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "discount_tax", &o.data.DiscountTax, d)
}

// Total returns the grand total.
func (o *Order) Total() decimal.Decimal {
	return o.data.Total
}

// SetTotal sets the grand total.
func (o *Order) SetTotal(d decimal.Decimal) {
	shared.AssignDecimal(o.Changeset(), "total", &o.data.Total, d)
}

// Subtotal returns the sum of the product lines' pre-discount amounts,
// rounded to the configured price precision.
func (o *Order) Subtotal(ctx context.Context) (decimal.Decimal, error) {
	items, err := o.Items(ctx, KindLineItem)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, item := range items {
		line, ok := item.(*ProductLine)
		if !ok {
			continue
		}
		sum = sum.Add(line.Subtotal())
	}
	return sum.Round(o.priceDecimals), nil
}

// TaxTotals groups the tax lines by rate code. Amounts accumulate
// tax_total + shipping_tax_total per code; label, rate id and compound flag
// are the last seen for the code, folding over items in their stored order.
// Zero-amount rows are dropped when the order is configured to hide them.
func (o *Order) TaxTotals(ctx context.Context) (map[string]TaxTotal, error) {
	items, err := o.Items(ctx, KindTaxLine)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]TaxTotal)
	for _, item := range items {
		line, ok := item.(*TaxLine)
		if !ok {
			continue
		}
		code := line.RateCode()
		row := totals[code]
		row.Amount = row.Amount.Add(line.TaxTotal()).Add(line.ShippingTaxTotal())
		row.Label = line.Name()
		row.RateID = line.RateID()
		row.Compound = line.Compound()
		totals[code] = row
	}

	if o.hideZeroTaxRows {
		for code, row := range totals {
			if row.Amount.IsZero() {
				delete(totals, code)
			}
		}
	}
	if o.taxFilter != nil {
		totals = o.taxFilter(totals)
	}
	return totals, nil
}

// CalculateTotals recomputes the order-level totals from the item buckets:
// discount from coupon lines, cart tax from product and fee lines, shipping
// total and tax from shipping lines, and the grand total
// subtotal - discount + shipping + fees + tax, floored at zero.
func (o *Order) CalculateTotals(ctx context.Context) error {
	if err := o.recalcCouponTotals(ctx); err != nil {
		return err
	}

	subtotal := decimal.Zero
	cartTax := decimal.Zero
	feesTotal := decimal.Zero

	lineItems, err := o.Items(ctx, KindLineItem)
	if err != nil {
		return err
	}
	for _, item := range lineItems {
		if line, ok := item.(*ProductLine); ok {
			subtotal = subtotal.Add(line.Total())
			cartTax = cartTax.Add(line.TotalTax())
		}
	}

	feeItems, err := o.Items(ctx, KindFeeLine)
	if err != nil {
		return err
	}
	for _, item := range feeItems {
		if fee, ok := item.(*FeeLine); ok {
			feesTotal = feesTotal.Add(fee.Total())
			cartTax = cartTax.Add(fee.TotalTax())
		}
	}

	shippingTotal := decimal.Zero
	shippingTax := decimal.Zero
	shippingItems, err := o.Items(ctx, KindShippingLine)
	if err != nil {
		return err
	}
	for _, item := range shippingItems {
		if line, ok := item.(*ShippingLine); ok {
			shippingTotal = shippingTotal.Add(line.Total())
			shippingTax = shippingTax.Add(line.TotalTax())
		}
	}

	o.SetShippingTotal(shippingTotal.Round(o.priceDecimals))
	o.SetCartTax(cartTax.Round(o.priceDecimals))
	o.SetShippingTax(shippingTax.Round(o.priceDecimals))

	total := subtotal.
		Sub(o.data.DiscountTotal).
		Add(feesTotal).
		Add(shippingTotal).
		Add(o.data.TotalTax).
		Round(o.priceDecimals)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.SetTotal(total)
	return nil
}

// recalcCouponTotals rebuilds the discount totals from the coupon lines.
func (o *Order) recalcCouponTotals(ctx context.Context) error {
	items, err := o.Items(ctx, KindCouponLine)
	if err != nil {
		return err
	}
	discount := decimal.Zero
	discountTax := decimal.Zero
	for _, item := range items {
		if line, ok := item.(*CouponLine); ok {
			discount = discount.Add(line.Discount())
			discountTax = discountTax.Add(line.DiscountTax())
		}
	}
	o.SetDiscountTotal(discount.Round(o.priceDecimals))
	o.SetDiscountTax(discountTax.Round(o.priceDecimals))
	return nil
}
