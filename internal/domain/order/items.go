package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/shared"
)

// ItemEntityKind is the adapter/cache namespace for order items of every
// kind.
const ItemEntityKind = "order_item"

// ItemKind classifies a line item into one of the five order buckets.
type ItemKind string

const (
	KindLineItem     ItemKind = "line_items"
	KindTaxLine      ItemKind = "tax_lines"
	KindShippingLine ItemKind = "shipping_lines"
	KindFeeLine      ItemKind = "fee_lines"
	KindCouponLine   ItemKind = "coupon_lines"
)

// IsValid reports whether the kind is one of the five item buckets.
func (k ItemKind) IsValid() bool {
	switch k {
	case KindLineItem, KindTaxLine, KindShippingLine, KindFeeLine, KindCouponLine:
		return true
	}
	return false
}

// ItemKinds lists every bucket, in the order totals are reported.
func ItemKinds() []ItemKind {
	return []ItemKind{KindLineItem, KindTaxLine, KindShippingLine, KindFeeLine, KindCouponLine}
}

// LineItem is one component of an order's total. An item belongs to exactly
// one order while unsaved and is re-bound to the order's id on save.
type LineItem interface {
	shared.Entity
	ItemKind() ItemKind
	OrderID() uint64
	SetOrderID(id uint64)
	SaveItem(ctx context.Context) (uint64, error)
	DeleteItem(ctx context.Context, force bool) (bool, error)
	Name() string
}

type baseItem struct {
	shared.Record
	orderID uint64
	name    string
}

func newBaseItem(adapter shared.Adapter, cache shared.MetaCache) baseItem {
	b := baseItem{Record: shared.NewRecord(ItemEntityKind, adapter, cache)}
	return b
}

// OrderID returns the owning order's id; a back-reference, not ownership.
func (b *baseItem) OrderID() uint64 {
	return b.orderID
}

// SetOrderID re-binds the item to an order.
func (b *baseItem) SetOrderID(id uint64) {
	shared.Assign(b.Changeset(), "order_id", &b.orderID, id)
}

// Name returns the item's display name.
func (b *baseItem) Name() string {
	return b.name
}

// SetName sets the item's display name.
func (b *baseItem) SetName(name string) {
	shared.Assign(b.Changeset(), "name", &b.name, name)
}

// SaveItem persists the item through its adapter, creating or updating.
func (b *baseItem) SaveItem(ctx context.Context) (uint64, error) {
	return b.Save(ctx)
}

// DeleteItem removes the item through its adapter.
func (b *baseItem) DeleteItem(ctx context.Context, force bool) (bool, error) {
	return b.DeleteEntity(ctx, force)
}

// ProductLine is a purchased product row.
type ProductLine struct {
	baseItem
	productID   uint64
	quantity    decimal.Decimal
	subtotal    decimal.Decimal
	subtotalTax decimal.Decimal
	total       decimal.Decimal
	totalTax    decimal.Decimal
}

// NewProductLine creates an unsaved product line bound to the item adapter.
func NewProductLine(adapter shared.Adapter, cache shared.MetaCache) *ProductLine {
	item := &ProductLine{baseItem: newBaseItem(adapter, cache)}
	item.Bind(item)
	return item
}

// ItemKind returns KindLineItem.
func (i *ProductLine) ItemKind() ItemKind { return KindLineItem }

// ProductID returns the purchased product's id.
func (i *ProductLine) ProductID() uint64 { return i.productID }

// SetProductID sets the purchased product's id.
func (i *ProductLine) SetProductID(id uint64) {
	shared.Assign(i.Changeset(), "product_id", &i.productID, id)
}

// Quantity returns the purchased quantity.
func (i *ProductLine) Quantity() decimal.Decimal { return i.quantity }

// SetQuantity sets the purchased quantity.
func (i *ProductLine) SetQuantity(q decimal.Decimal) error {
	if q.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	shared.AssignDecimal(i.Changeset(), "quantity", &i.quantity, q)
	return nil
}

// Subtotal returns the pre-discount line amount.
func (i *ProductLine) Subtotal() decimal.Decimal { return i.subtotal }

// SetSubtotal sets the pre-discount line amount.
func (i *ProductLine) SetSubtotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "subtotal", &i.subtotal, d)
}

// SubtotalTax returns the tax on the pre-discount amount.
func (i *ProductLine) SubtotalTax() decimal.Decimal { return i.subtotalTax }

// SetSubtotalTax sets the tax on the pre-discount amount.
func (i *ProductLine) SetSubtotalTax(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "subtotal_tax", &i.subtotalTax, d)
}

// Total returns the post-discount line amount.
func (i *ProductLine) Total() decimal.Decimal { return i.total }

// SetTotal sets the post-discount line amount.
func (i *ProductLine) SetTotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total", &i.total, d)
}

// TotalTax returns the tax on the post-discount amount.
func (i *ProductLine) TotalTax() decimal.Decimal { return i.totalTax }

// SetTotalTax sets the tax on the post-discount amount.
func (i *ProductLine) SetTotalTax(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total_tax", &i.totalTax, d)
}

// TaxLine is one tax rate applied to the order.
type TaxLine struct {
	baseItem
	rateCode         string
	rateID           uint64
	compound         bool
	taxTotal         decimal.Decimal
	shippingTaxTotal decimal.Decimal
}

// NewTaxLine creates an unsaved tax line bound to the item adapter.
func NewTaxLine(adapter shared.Adapter, cache shared.MetaCache) *TaxLine {
	item := &TaxLine{baseItem: newBaseItem(adapter, cache)}
	item.Bind(item)
	return item
}

// ItemKind returns KindTaxLine.
func (i *TaxLine) ItemKind() ItemKind { return KindTaxLine }

// RateCode returns the tax rate code used to group totals.
func (i *TaxLine) RateCode() string { return i.rateCode }

// SetRateCode sets the tax rate code.
func (i *TaxLine) SetRateCode(code string) {
	shared.Assign(i.Changeset(), "rate_code", &i.rateCode, code)
}

// RateID returns the tax rate's id.
func (i *TaxLine) RateID() uint64 { return i.rateID }

// SetRateID sets the tax rate's id.
func (i *TaxLine) SetRateID(id uint64) {
	shared.Assign(i.Changeset(), "rate_id", &i.rateID, id)
}

// Compound reports whether the rate is compound.
func (i *TaxLine) Compound() bool { return i.compound }

// SetCompound sets the compound flag.
func (i *TaxLine) SetCompound(compound bool) {
	shared.Assign(i.Changeset(), "compound", &i.compound, compound)
}

// TaxTotal returns the tax charged on cart items for this rate.
func (i *TaxLine) TaxTotal() decimal.Decimal { return i.taxTotal }

// SetTaxTotal sets the tax charged on cart items for this rate.
func (i *TaxLine) SetTaxTotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "tax_total", &i.taxTotal, d)
}

// ShippingTaxTotal returns the tax charged on shipping for this rate.
func (i *TaxLine) ShippingTaxTotal() decimal.Decimal { return i.shippingTaxTotal }

// SetShippingTaxTotal sets the tax charged on shipping for this rate.
func (i *TaxLine) SetShippingTaxTotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "shipping_tax_total", &i.shippingTaxTotal, d)
}

// ShippingLine is a shipping charge on the order.
type ShippingLine struct {
	baseItem
	methodID string
	total    decimal.Decimal
	totalTax decimal.Decimal
}

// NewShippingLine creates an unsaved shipping line bound to the item
// adapter.
func NewShippingLine(adapter shared.Adapter, cache shared.MetaCache) *ShippingLine {
	item := &ShippingLine{baseItem: newBaseItem(adapter, cache)}
	item.Bind(item)
	return item
}

// ItemKind returns KindShippingLine.
func (i *ShippingLine) ItemKind() ItemKind { return KindShippingLine }

// MethodID returns the shipping method identifier.
func (i *ShippingLine) MethodID() string { return i.methodID }

// SetMethodID sets the shipping method identifier.
func (i *ShippingLine) SetMethodID(id string) {
	shared.Assign(i.Changeset(), "method_id", &i.methodID, id)
}

// Total returns the shipping charge.
func (i *ShippingLine) Total() decimal.Decimal { return i.total }

// SetTotal sets the shipping charge.
func (i *ShippingLine) SetTotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total", &i.total, d)
}

// TotalTax returns the tax on the shipping charge.
func (i *ShippingLine) TotalTax() decimal.Decimal { return i.totalTax }

// SetTotalTax sets the tax on the shipping charge.
func (i *ShippingLine) SetTotalTax(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total_tax", &i.totalTax, d)
}

// FeeLine is an arbitrary extra charge on the order.
type FeeLine struct {
	baseItem
	total    decimal.Decimal
	totalTax decimal.Decimal
}

// NewFeeLine creates an unsaved fee line bound to the item adapter.
func NewFeeLine(adapter shared.Adapter, cache shared.MetaCache) *FeeLine {
	item := &FeeLine{baseItem: newBaseItem(adapter, cache)}
	item.Bind(item)
	return item
}

// ItemKind returns KindFeeLine.
func (i *FeeLine) ItemKind() ItemKind { return KindFeeLine }

// Total returns the fee amount.
func (i *FeeLine) Total() decimal.Decimal { return i.total }

// SetTotal sets the fee amount.
func (i *FeeLine) SetTotal(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total", &i.total, d)
}

// TotalTax returns the tax on the fee.
func (i *FeeLine) TotalTax() decimal.Decimal { return i.totalTax }

// SetTotalTax sets the tax on the fee.
func (i *FeeLine) SetTotalTax(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "total_tax", &i.totalTax, d)
}

// CouponLine records a coupon applied to the order and the discount it
// produced.
type CouponLine struct {
	baseItem
	code        string
	discount    decimal.Decimal
	discountTax decimal.Decimal
}

// NewCouponLine creates an unsaved coupon line bound to the item adapter.
func NewCouponLine(adapter shared.Adapter, cache shared.MetaCache) *CouponLine {
	item := &CouponLine{baseItem: newBaseItem(adapter, cache)}
	item.Bind(item)
	return item
}

// ItemKind returns KindCouponLine.
func (i *CouponLine) ItemKind() ItemKind { return KindCouponLine }

// Code returns the normalized coupon code.
func (i *CouponLine) Code() string { return i.code }

// SetCode sets the normalized coupon code.
func (i *CouponLine) SetCode(code string) {
	shared.Assign(i.Changeset(), "code", &i.code, code)
}

// Discount returns the discount this coupon produced.
func (i *CouponLine) Discount() decimal.Decimal { return i.discount }

// SetDiscount sets the discount this coupon produced.
func (i *CouponLine) SetDiscount(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "discount", &i.discount, d)
}

// DiscountTax returns the tax portion of the discount.
func (i *CouponLine) DiscountTax() decimal.Decimal { return i.discountTax }

// SetDiscountTax sets the tax portion of the discount.
func (i *CouponLine) SetDiscountTax(d decimal.Decimal) {
	shared.AssignDecimal(i.Changeset(), "discount_tax", &i.discountTax, d)
}
