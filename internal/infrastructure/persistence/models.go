package persistence

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel is the database row for catalog products.
type ProductModel struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	SKU          string          `gorm:"size:64;index"`
	Name         string          `gorm:"size:255;not null"`
	Description  string          `gorm:"type:text"`
	RegularPrice decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	SalePrice    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	Status       string          `gorm:"size:32;not null;default:'draft'"`
	Visibility   string          `gorm:"size:32;not null;default:'visible'"`
	ParentID     uint64          `gorm:"index;not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for ProductModel
func (ProductModel) TableName() string { return "products" }

// OrderModel is the database row for orders.
type OrderModel struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	Status        string          `gorm:"size:32;not null;index"`
	Currency      string          `gorm:"size:3;not null"`
	CustomerID    uint64          `gorm:"index;not null;default:0"`
	BillingEmail  string          `gorm:"size:255;index"`
	CartTax       decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	ShippingTax   decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	TotalTax      decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	ShippingTotal decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	DiscountTotal decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	DiscountTax   decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	RecordUsage   bool            `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for OrderModel
func (OrderModel) TableName() string { return "orders" }

// OrderItemModel is the database row for order items of every kind. The
// kind column selects which of the per-kind columns are meaningful.
type OrderItemModel struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID uint64 `gorm:"index:idx_order_items_order_kind;not null"`
	Kind    string `gorm:"size:32;index:idx_order_items_order_kind;not null"`
	Name    string `gorm:"size:255"`

	// line_items
	ProductID   uint64          `gorm:"not null;default:0"`
	Quantity    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	SubtotalTax decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`

	// line_items, shipping_lines, fee_lines
	Total    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	TotalTax decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`

	// tax_lines
	RateCode         string          `gorm:"size:64"`
	RateID           uint64          `gorm:"not null;default:0"`
	Compound         bool            `gorm:"not null;default:false"`
	TaxTotal         decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	ShippingTaxTotal decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`

	// shipping_lines
	MethodID string `gorm:"size:128"`

	// coupon_lines
	Code        string          `gorm:"size:128"`
	Discount    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	DiscountTax decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for OrderItemModel
func (OrderItemModel) TableName() string { return "order_items" }

// CouponModel is the database row for coupons.
type CouponModel struct {
	ID                uint64          `gorm:"primaryKey;autoIncrement"`
	Code              string          `gorm:"size:128;uniqueIndex;not null"`
	Amount            decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	DiscountType      string          `gorm:"size:32;not null;default:'fixed_cart'"`
	Description       string          `gorm:"type:text"`
	UsageLimit        int             `gorm:"not null;default:0"`
	UsageLimitPerUser int             `gorm:"not null;default:0"`
	UsageCount        int             `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for CouponModel
func (CouponModel) TableName() string { return "coupons" }

// CouponHoldModel is one reserved usage slot taken during checkout. A row
// with an empty alias holds against the global limit; a non-empty alias
// holds against that user's limit.
type CouponHoldModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CouponID  uint64 `gorm:"index:idx_coupon_holds_coupon_alias;not null"`
	HoldKey   string `gorm:"size:64;uniqueIndex;not null"`
	Alias     string `gorm:"size:255;index:idx_coupon_holds_coupon_alias;not null;default:''"`
	CreatedAt time.Time
}

// TableName returns the table name for CouponHoldModel
func (CouponHoldModel) TableName() string { return "coupon_holds" }

// CouponUsageModel is one confirmed redemption, keyed by the user alias it
// was recorded under.
type CouponUsageModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CouponID  uint64 `gorm:"index:idx_coupon_usages_coupon_alias;not null"`
	UsedBy    string `gorm:"size:255;index:idx_coupon_usages_coupon_alias;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for CouponUsageModel
func (CouponUsageModel) TableName() string { return "coupon_usages" }

// MetaRowModel is one meta record. All entity kinds share the table; the
// owner kind and id scope each row to its entity.
type MetaRowModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	OwnerKind string `gorm:"size:32;index:idx_meta_rows_owner;not null"`
	OwnerID   uint64 `gorm:"index:idx_meta_rows_owner;not null"`
	MetaKey   string `gorm:"size:255;not null"`
	MetaValue string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for MetaRowModel
func (MetaRowModel) TableName() string { return "meta_rows" }
