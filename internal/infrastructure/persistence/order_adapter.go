package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared"
)

// Meta keys the checkout flow stores hold keys under.
const (
	metaKeyHeldCoupons        = "_coupon_held_keys"
	metaKeyHeldCouponsPerUser = "_coupon_held_keys_for_users"
)

// OrderAdapter persists orders, their line items of every kind and the
// meta rows of both. It serves as the adapter for the order entity and for
// the items bound to it.
type OrderAdapter struct {
	db    *gorm.DB
	meta  metaStore
	cache shared.MetaCache
}

// NewOrderAdapter creates an order adapter on the given database. The
// cache is invalidated when system meta keys are rewritten; it may be nil.
func NewOrderAdapter(db *Database, cache shared.MetaCache) *OrderAdapter {
	return &OrderAdapter{db: db.DB(), meta: metaStore{db: db.DB()}, cache: cache}
}

// Create inserts an order or an order item and writes the generated id
// back.
func (a *OrderAdapter) Create(ctx context.Context, e shared.Entity) error {
	switch entity := e.(type) {
	case *order.Order:
		model := a.orderToModel(entity)
		if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		entity.SetID(model.ID)
		return nil
	case order.LineItem:
		model, err := itemToModel(entity)
		if err != nil {
			return err
		}
		if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		entity.SetID(model.ID)
		return nil
	default:
		return fmt.Errorf("order adapter received %T", e)
	}
}

// Read hydrates an order or an order item by its current id.
func (a *OrderAdapter) Read(ctx context.Context, e shared.Entity) error {
	switch entity := e.(type) {
	case *order.Order:
		var model OrderModel
		if err := a.db.WithContext(ctx).First(&model, entity.GetID()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("failed to read order %d: %w", entity.GetID(), err)
		}
		return hydrateOrder(entity, &model)
	case order.LineItem:
		var model OrderItemModel
		if err := a.db.WithContext(ctx).First(&model, entity.GetID()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("failed to read order item %d: %w", entity.GetID(), err)
		}
		return hydrateItemInto(entity, &model)
	default:
		return fmt.Errorf("order adapter received %T", e)
	}
}

// orderColumns maps changeset field names to database columns.
var orderColumns = map[string]string{
	"status":         "status",
	"currency":       "currency",
	"customer_id":    "customer_id",
	"billing_email":  "billing_email",
	"cart_tax":       "cart_tax",
	"shipping_tax":   "shipping_tax",
	"total_tax":      "total_tax",
	"shipping_total": "shipping_total",
	"discount_total": "discount_total",
	"discount_tax":   "discount_tax",
	"total":          "total",
	"record_usage":   "record_usage",
}

// Update writes the changed fields of an order, or the full row of an
// order item.
func (a *OrderAdapter) Update(ctx context.Context, e shared.Entity) error {
	switch entity := e.(type) {
	case *order.Order:
		updates := changedColumns(entity.Changes(), orderColumns)
		if len(updates) == 0 {
			return nil
		}
		result := a.db.WithContext(ctx).
			Model(&OrderModel{}).
			Where("id = ?", entity.GetID()).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update order %d: %w", entity.GetID(), result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	case order.LineItem:
		model, err := itemToModel(entity)
		if err != nil {
			return err
		}
		result := a.db.WithContext(ctx).
			Model(&OrderItemModel{}).
			Where("id = ?", entity.GetID()).
			Updates(itemColumns(&model))
		if result.Error != nil {
			return fmt.Errorf("failed to update order item %d: %w", entity.GetID(), result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	default:
		return fmt.Errorf("order adapter received %T", e)
	}
}

// Delete removes an order or an order item. Orders are soft-deleted unless
// force is set, in which case the order, its items and all related meta
// rows go with it. Items are always hard-deleted.
func (a *OrderAdapter) Delete(ctx context.Context, e shared.Entity, force bool) error {
	switch entity := e.(type) {
	case *order.Order:
		tx := a.db.WithContext(ctx)
		if !force {
			if err := tx.Delete(&OrderModel{}, entity.GetID()).Error; err != nil {
				return fmt.Errorf("failed to trash order %d: %w", entity.GetID(), err)
			}
			return nil
		}
		return tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Delete(&OrderModel{}, entity.GetID()).Error; err != nil {
				return fmt.Errorf("failed to delete order %d: %w", entity.GetID(), err)
			}
			if err := deleteItemsOf(tx, entity.GetID(), ""); err != nil {
				return err
			}
			return tx.Where("owner_kind = ? AND owner_id = ?", order.EntityKind, entity.GetID()).
				Delete(&MetaRowModel{}).Error
		})
	case order.LineItem:
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&OrderItemModel{}, entity.GetID()).Error; err != nil {
				return fmt.Errorf("failed to delete order item %d: %w", entity.GetID(), err)
			}
			return tx.Where("owner_kind = ? AND owner_id = ?", order.ItemEntityKind, entity.GetID()).
				Delete(&MetaRowModel{}).Error
		})
	default:
		return fmt.Errorf("order adapter received %T", e)
	}
}

// ReadItems returns the persisted items of one kind, bound to this adapter.
func (a *OrderAdapter) ReadItems(ctx context.Context, o *order.Order, kind order.ItemKind) ([]order.LineItem, error) {
	var models []OrderItemModel
	err := a.db.WithContext(ctx).
		Where("order_id = ? AND kind = ?", o.GetID(), string(kind)).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of order %d: %w", kind, o.GetID(), err)
	}

	items := make([]order.LineItem, 0, len(models))
	for i := range models {
		item, err := a.newItem(order.ItemKind(models[i].Kind))
		if err != nil {
			return nil, err
		}
		if err := hydrateItemInto(item, &models[i]); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// DeleteItems removes the persisted items of one kind; the empty kind
// removes all items.
func (a *OrderAdapter) DeleteItems(ctx context.Context, o *order.Order, kind order.ItemKind) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteItemsOf(tx, o.GetID(), kind)
	})
}

// ItemType returns the kind of a persisted item belonging to the order.
func (a *OrderAdapter) ItemType(ctx context.Context, o *order.Order, itemID uint64) (order.ItemKind, error) {
	var model OrderItemModel
	err := a.db.WithContext(ctx).
		Select("kind").
		Where("id = ? AND order_id = ?", itemID, o.GetID()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve type of order item %d: %w", itemID, err)
	}
	return order.ItemKind(model.Kind), nil
}

// SetCouponHeldKeys records the hold keys obtained during checkout as
// system meta on the order, replacing any previous recording.
func (a *OrderAdapter) SetCouponHeldKeys(ctx context.Context, o *order.Order, global, perUser map[string]string) error {
	if len(global) > 0 {
		if err := a.meta.upsertMeta(ctx, order.EntityKind, o.GetID(), metaKeyHeldCoupons, global); err != nil {
			return err
		}
	}
	if len(perUser) > 0 {
		if err := a.meta.upsertMeta(ctx, order.EntityKind, o.GetID(), metaKeyHeldCouponsPerUser, perUser); err != nil {
			return err
		}
	}
	if a.cache != nil {
		_ = a.cache.Invalidate(ctx, order.EntityKind, o.GetID())
	}
	return nil
}

// ReadMeta returns the meta rows of an order or an order item.
func (a *OrderAdapter) ReadMeta(ctx context.Context, e shared.Entity) ([]shared.MetaRow, error) {
	return a.meta.readMeta(ctx, e.Kind(), e.GetID())
}

// AddMeta inserts one meta row and returns its id.
func (a *OrderAdapter) AddMeta(ctx context.Context, e shared.Entity, key string, value any) (uint64, error) {
	return a.meta.addMeta(ctx, e.Kind(), e.GetID(), key, value)
}

// UpdateMeta rewrites one meta row by id.
func (a *OrderAdapter) UpdateMeta(ctx context.Context, e shared.Entity, row shared.MetaRow) error {
	return a.meta.updateMeta(ctx, e.Kind(), e.GetID(), row)
}

// DeleteMeta removes one meta row by id.
func (a *OrderAdapter) DeleteMeta(ctx context.Context, e shared.Entity, metaID uint64) error {
	return a.meta.deleteMeta(ctx, e.Kind(), e.GetID(), metaID)
}

func (a *OrderAdapter) newItem(kind order.ItemKind) (order.LineItem, error) {
	switch kind {
	case order.KindLineItem:
		return order.NewProductLine(a, nil), nil
	case order.KindTaxLine:
		return order.NewTaxLine(a, nil), nil
	case order.KindShippingLine:
		return order.NewShippingLine(a, nil), nil
	case order.KindFeeLine:
		return order.NewFeeLine(a, nil), nil
	case order.KindCouponLine:
		return order.NewCouponLine(a, nil), nil
	default:
		return nil, fmt.Errorf("unknown order item kind %q", kind)
	}
}

func (a *OrderAdapter) orderToModel(o *order.Order) OrderModel {
	return OrderModel{
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
		RecordUsage:   o.RecordUsage(),
	}
}

func hydrateOrder(o *order.Order, model *OrderModel) error {
	o.SetStatus(model.Status)
	if err := o.SetCurrency(valueCurrency(model.Currency)); err != nil {
		return err
	}
	o.SetCustomerID(model.CustomerID)
	o.SetBillingEmail(model.BillingEmail)
	o.SetCartTax(model.CartTax)
	o.SetShippingTax(model.ShippingTax)
	o.SetShippingTotal(model.ShippingTotal)
	o.SetDiscountTotal(model.DiscountTotal)
	o.SetDiscountTax(model.DiscountTax)
	o.SetTotal(model.Total)
	o.SetRecordUsage(model.RecordUsage)
	o.SetID(model.ID)
	return nil
}

func deleteItemsOf(tx *gorm.DB, orderID uint64, kind order.ItemKind) error {
	scope := tx.Where("order_id = ?", orderID)
	if kind != "" {
		scope = scope.Where("kind = ?", string(kind))
	}

	var ids []uint64
	if err := scope.Model(&OrderItemModel{}).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list items of order %d: %w", orderID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Delete(&OrderItemModel{}, ids).Error; err != nil {
		return fmt.Errorf("failed to delete items of order %d: %w", orderID, err)
	}
	return tx.Where("owner_kind = ? AND owner_id IN ?", order.ItemEntityKind, ids).
		Delete(&MetaRowModel{}).Error
}
