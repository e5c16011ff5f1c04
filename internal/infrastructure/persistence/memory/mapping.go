package memory

import (
	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/catalog"
	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared/valueobject"
)

// Rows keep decimals as strings so stored state cannot alias the live
// entity's values.

func productToRow(p *catalog.Product) *productRow {
	return &productRow{
		sku:          p.SKU(),
		name:         p.Name(),
		description:  p.Description(),
		regularPrice: p.RegularPrice().String(),
		salePrice:    p.SalePrice().String(),
		status:       string(p.Status()),
		visibility:   string(p.CatalogVisibility()),
		parentID:     p.ParentID(),
	}
}

func rowToProduct(row *productRow, p *catalog.Product) error {
	if err := p.SetSKU(row.sku); err != nil {
		return err
	}
	if err := p.SetName(row.name); err != nil {
		return err
	}
	p.SetDescription(row.description)
	regular, err := decimal.NewFromString(row.regularPrice)
	if err != nil {
		return err
	}
	if err := p.SetRegularPrice(regular); err != nil {
		return err
	}
	sale, err := decimal.NewFromString(row.salePrice)
	if err != nil {
		return err
	}
	if err := p.SetSalePrice(sale); err != nil {
		return err
	}
	if err := p.SetStatus(catalog.ProductStatus(row.status)); err != nil {
		return err
	}
	if err := p.SetCatalogVisibility(catalog.CatalogVisibility(row.visibility)); err != nil {
		return err
	}
	return p.SetParentID(row.parentID)
}

func orderToRow(o *order.Order) *orderRow {
	return &orderRow{
		status:        string(o.Status()),
		currency:      string(o.Currency()),
		billingEmail:  o.BillingEmail(),
		customerID:    o.CustomerID(),
		cartTax:       o.CartTax().String(),
		shippingTax:   o.ShippingTax().String(),
		shippingTotal: o.ShippingTotal().String(),
		discountTotal: o.DiscountTotal().String(),
		discountTax:   o.DiscountTax().String(),
		total:         o.Total().String(),
		recordUsage:   o.RecordUsage(),
	}
}

func rowToOrder(row *orderRow, o *order.Order) error {
	o.SetStatus(row.status)
	if err := o.SetCurrency(valueobject.Currency(row.currency)); err != nil {
		return err
	}
	o.SetCustomerID(row.customerID)
	o.SetBillingEmail(row.billingEmail)

	cartTax, err := decimal.NewFromString(row.cartTax)
	if err != nil {
		return err
	}
	o.SetCartTax(cartTax)
	shippingTax, err := decimal.NewFromString(row.shippingTax)
	if err != nil {
		return err
	}
	o.SetShippingTax(shippingTax)
	shippingTotal, err := decimal.NewFromString(row.shippingTotal)
	if err != nil {
		return err
	}
	o.SetShippingTotal(shippingTotal)
	discountTotal, err := decimal.NewFromString(row.discountTotal)
	if err != nil {
		return err
	}
	o.SetDiscountTotal(discountTotal)
	discountTax, err := decimal.NewFromString(row.discountTax)
	if err != nil {
		return err
	}
	o.SetDiscountTax(discountTax)
	total, err := decimal.NewFromString(row.total)
	if err != nil {
		return err
	}
	o.SetTotal(total)
	o.SetRecordUsage(row.recordUsage)
	return nil
}

func couponToRow(c *coupon.Coupon) *couponRow {
	return &couponRow{
		code:              c.Code(),
		discountType:      string(c.DiscountType()),
		description:       c.Description(),
		amount:            c.Amount().String(),
		usageLimit:        c.UsageLimit(),
		usageLimitPerUser: c.UsageLimitPerUser(),
		usageCount:        c.UsageCount(),
	}
}

func rowToCoupon(row *couponRow, c *coupon.Coupon) error {
	if err := c.SetCode(row.code); err != nil {
		return err
	}
	if err := c.SetDiscountType(coupon.DiscountType(row.discountType)); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(row.amount)
	if err != nil {
		return err
	}
	if err := c.SetAmount(amount); err != nil {
		return err
	}
	c.SetDescription(row.description)
	if err := c.SetUsageLimit(row.usageLimit); err != nil {
		return err
	}
	if err := c.SetUsageLimitPerUser(row.usageLimitPerUser); err != nil {
		return err
	}
	c.SetUsageCount(row.usageCount)
	return nil
}
