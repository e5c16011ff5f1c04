package commerce

import (
	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/catalog"
	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
)

// CreateProductRequest carries the fields for a new catalog product.
type CreateProductRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Status       string          `json:"status" validate:"omitempty,oneof=draft published private"`
	Visibility   string          `json:"catalog_visibility" validate:"omitempty,oneof=visible catalog search hidden"`
	ParentID     uint64          `json:"parent_id"`
}

// UpdateProductRequest carries a partial product update. Nil fields are
// left untouched.
type UpdateProductRequest struct {
	SKU          *string          `json:"sku"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	RegularPrice *decimal.Decimal `json:"regular_price"`
	SalePrice    *decimal.Decimal `json:"sale_price"`
	Status       *string          `json:"status" validate:"omitempty,oneof=draft published private"`
	Visibility   *string          `json:"catalog_visibility" validate:"omitempty,oneof=visible catalog search hidden"`
}

// ProductResponse is the outward shape of a product.
type ProductResponse struct {
	ID           uint64          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Price        decimal.Decimal `json:"price"`
	OnSale       bool            `json:"on_sale"`
	Status       string          `json:"status"`
	Visibility   string          `json:"catalog_visibility"`
	ParentID     uint64          `json:"parent_id"`
}

// ToProductResponse maps a product to its response shape.
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:           p.GetID(),
		SKU:          p.SKU(),
		Name:         p.Name(),
		Description:  p.Description(),
		RegularPrice: p.RegularPrice(),
		SalePrice:    p.SalePrice(),
		Price:        p.Price(),
		OnSale:       p.OnSale(),
		Status:       string(p.Status()),
		Visibility:   string(p.CatalogVisibility()),
		ParentID:     p.ParentID(),
	}
}

// CreateCouponRequest carries the fields for a new coupon.
type CreateCouponRequest struct {
	Code              string          `json:"code" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	DiscountType      string          `json:"discount_type" validate:"omitempty,oneof=fixed_cart percent"`
	Description       string          `json:"description"`
	UsageLimit        int             `json:"usage_limit" validate:"gte=0"`
	UsageLimitPerUser int             `json:"usage_limit_per_user" validate:"gte=0"`
}

// CouponResponse is the outward shape of a coupon.
type CouponResponse struct {
	ID                uint64          `json:"id"`
	Code              string          `json:"code"`
	Amount            decimal.Decimal `json:"amount"`
	DiscountType      string          `json:"discount_type"`
	Description       string          `json:"description"`
	UsageLimit        int             `json:"usage_limit"`
	UsageLimitPerUser int             `json:"usage_limit_per_user"`
	UsageCount        int             `json:"usage_count"`
}

// ToCouponResponse maps a coupon to its response shape.
func ToCouponResponse(c *coupon.Coupon) CouponResponse {
	return CouponResponse{
		ID:                c.GetID(),
		Code:              c.Code(),
		Amount:            c.Amount(),
		DiscountType:      string(c.DiscountType()),
		Description:       c.Description(),
		UsageLimit:        c.UsageLimit(),
		UsageLimitPerUser: c.UsageLimitPerUser(),
		UsageCount:        c.UsageCount(),
	}
}

// OrderLineRequest is one product row of a new order.
type OrderLineRequest struct {
	ProductID uint64          `json:"product_id" validate:"required"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
	TotalTax  decimal.Decimal `json:"total_tax"`
}

// ShippingLineRequest is one shipping row of a new order.
type ShippingLineRequest struct {
	MethodID string          `json:"method_id" validate:"required"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// FeeLineRequest is one fee row of a new order.
type FeeLineRequest struct {
	Name     string          `json:"name" validate:"required"`
	Total    decimal.Decimal `json:"total"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// CreateOrderRequest carries the fields for a new order.
type CreateOrderRequest struct {
	Currency     string                `json:"currency" validate:"omitempty,len=3"`
	CustomerID   uint64                `json:"customer_id"`
	BillingEmail string                `json:"billing_email" validate:"omitempty,email"`
	RecordUsage  bool                  `json:"record_usage"`
	Lines        []OrderLineRequest    `json:"lines" validate:"required,min=1,dive"`
	Shipping     []ShippingLineRequest `json:"shipping" validate:"dive"`
	Fees         []FeeLineRequest      `json:"fees" validate:"dive"`
}

// TaxTotalResponse is one row of the grouped tax summary.
type TaxTotalResponse struct {
	RateCode string          `json:"rate_code"`
	Label    string          `json:"label"`
	RateID   uint64          `json:"rate_id"`
	Compound bool            `json:"compound"`
	Amount   decimal.Decimal `json:"amount"`
}

// OrderResponse is the outward shape of an order.
type OrderResponse struct {
	ID            uint64             `json:"id"`
	Status        string             `json:"status"`
	Currency      string             `json:"currency"`
	CustomerID    uint64             `json:"customer_id"`
	BillingEmail  string             `json:"billing_email"`
	CartTax       decimal.Decimal    `json:"cart_tax"`
	ShippingTax   decimal.Decimal    `json:"shipping_tax"`
	TotalTax      decimal.Decimal    `json:"total_tax"`
	ShippingTotal decimal.Decimal    `json:"shipping_total"`
	DiscountTotal decimal.Decimal    `json:"discount_total"`
	DiscountTax   decimal.Decimal    `json:"discount_tax"`
	Total         decimal.Decimal    `json:"total"`
	CouponCodes   []string           `json:"coupon_codes"`
	TaxTotals     []TaxTotalResponse `json:"tax_totals"`
}

func toOrderResponse(o *order.Order, codes []string, taxTotals map[string]order.TaxTotal) OrderResponse {
	taxes := make([]TaxTotalResponse, 0, len(taxTotals))
	for code, row := range taxTotals {
		taxes = append(taxes, TaxTotalResponse{
			RateCode: code,
			Label:    row.Label,
			RateID:   row.RateID,
			Compound: row.Compound,
			Amount:   row.Amount,
		})
	}
	return OrderResponse{
		ID:            o.GetID(),
		Status:        string(o.Status()),
		Currency:      string(o.Currency()),
		CustomerID:    o.CustomerID(),
		BillingEmail:  o.BillingEmail(),
		CartTax:       o.CartTax(),
		ShippingTax:   o.ShippingTax(),
		TotalTax:      o.TotalTax(),
		ShippingTotal: o.ShippingTotal(),
		DiscountTotal: o.DiscountTotal(),
		DiscountTax:   o.DiscountTax(),
		Total:         o.Total(),
		CouponCodes:   codes,
		TaxTotals:     taxes,
	}
}
