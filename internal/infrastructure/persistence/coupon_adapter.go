package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
)

// CouponAdapter persists coupons and resolves them by code.
type CouponAdapter struct {
	db    *gorm.DB
	meta  metaStore
	cache shared.MetaCache
}

// NewCouponAdapter creates a coupon adapter on the given database. The
// cache is handed to coupons resolved by code; it may be nil.
func NewCouponAdapter(db *Database, cache shared.MetaCache) *CouponAdapter {
	return &CouponAdapter{db: db.DB(), meta: metaStore{db: db.DB()}, cache: cache}
}

func asCoupon(e shared.Entity) (*coupon.Coupon, error) {
	c, ok := e.(*coupon.Coupon)
	if !ok {
		return nil, fmt.Errorf("coupon adapter received %T", e)
	}
	return c, nil
}

func (a *CouponAdapter) toModel(c *coupon.Coupon) CouponModel {
	return CouponModel{
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

func (a *CouponAdapter) hydrate(c *coupon.Coupon, model *CouponModel) error {
	if err := c.SetCode(model.Code); err != nil {
		return err
	}
	// Discount type before amount: percent amounts validate against it.
	if err := c.SetDiscountType(coupon.DiscountType(model.DiscountType)); err != nil {
		return err
	}
	if err := c.SetAmount(model.Amount); err != nil {
		return err
	}
	c.SetDescription(model.Description)
	if err := c.SetUsageLimit(model.UsageLimit); err != nil {
		return err
	}
	if err := c.SetUsageLimitPerUser(model.UsageLimitPerUser); err != nil {
		return err
	}
	c.SetUsageCount(model.UsageCount)
	c.SetID(model.ID)
	return nil
}

// Create inserts the coupon and writes the generated id back.
func (a *CouponAdapter) Create(ctx context.Context, e shared.Entity) error {
	c, err := asCoupon(e)
	if err != nil {
		return err
	}
	model := a.toModel(c)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	c.SetID(model.ID)
	return nil
}

// Read hydrates the coupon identified by its current id.
func (a *CouponAdapter) Read(ctx context.Context, e shared.Entity) error {
	c, err := asCoupon(e)
	if err != nil {
		return err
	}
	var model CouponModel
	if err := a.db.WithContext(ctx).First(&model, c.GetID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("failed to read coupon %d: %w", c.GetID(), err)
	}
	return a.hydrate(c, &model)
}

// couponColumns maps changeset field names to database columns.
var couponColumns = map[string]string{
	"code":                 "code",
	"amount":               "amount",
	"discount_type":        "discount_type",
	"description":          "description",
	"usage_limit":          "usage_limit",
	"usage_limit_per_user": "usage_limit_per_user",
	"usage_count":          "usage_count",
}

// Update writes only the changed fields.
func (a *CouponAdapter) Update(ctx context.Context, e shared.Entity) error {
	c, err := asCoupon(e)
	if err != nil {
		return err
	}
	updates := changedColumns(c.Changes(), couponColumns)
	if len(updates) == 0 {
		return nil
	}
	result := a.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("id = ?", c.GetID()).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update coupon %d: %w", c.GetID(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete soft-deletes the coupon, or hard-deletes it together with its
// holds, usages and meta rows when force is set.
func (a *CouponAdapter) Delete(ctx context.Context, e shared.Entity, force bool) error {
	c, err := asCoupon(e)
	if err != nil {
		return err
	}
	tx := a.db.WithContext(ctx)
	if !force {
		if err := tx.Delete(&CouponModel{}, c.GetID()).Error; err != nil {
			return fmt.Errorf("failed to trash coupon %d: %w", c.GetID(), err)
		}
		return nil
	}
	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&CouponModel{}, c.GetID()).Error; err != nil {
			return fmt.Errorf("failed to delete coupon %d: %w", c.GetID(), err)
		}
		if err := tx.Where("coupon_id = ?", c.GetID()).Delete(&CouponHoldModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("coupon_id = ?", c.GetID()).Delete(&CouponUsageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_kind = ? AND owner_id = ?", coupon.EntityKind, c.GetID()).
			Delete(&MetaRowModel{}).Error
	})
}

// ReadMeta returns the coupon's meta rows.
func (a *CouponAdapter) ReadMeta(ctx context.Context, e shared.Entity) ([]shared.MetaRow, error) {
	return a.meta.readMeta(ctx, coupon.EntityKind, e.GetID())
}

// AddMeta inserts one meta row and returns its id.
func (a *CouponAdapter) AddMeta(ctx context.Context, e shared.Entity, key string, value any) (uint64, error) {
	return a.meta.addMeta(ctx, coupon.EntityKind, e.GetID(), key, value)
}

// UpdateMeta rewrites one meta row by id.
func (a *CouponAdapter) UpdateMeta(ctx context.Context, e shared.Entity, row shared.MetaRow) error {
	return a.meta.updateMeta(ctx, coupon.EntityKind, e.GetID(), row)
}

// DeleteMeta removes one meta row by id.
func (a *CouponAdapter) DeleteMeta(ctx context.Context, e shared.Entity, metaID uint64) error {
	return a.meta.deleteMeta(ctx, coupon.EntityKind, e.GetID(), metaID)
}

// FindByCode resolves a coupon by its normalized code, implementing
// coupon.Resolver. Returns ErrNotFound for unknown codes.
func (a *CouponAdapter) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var model CouponModel
	err := a.db.WithContext(ctx).
		Where("code = ?", coupon.NormalizeCode(code)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find coupon by code: %w", err)
	}

	c := coupon.New(a, a.cache)
	if err := a.hydrate(c, &model); err != nil {
		return nil, err
	}
	c.MarkHydrated()
	return c, nil
}
