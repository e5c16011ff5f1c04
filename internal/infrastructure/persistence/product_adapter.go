package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkit/backend/internal/domain/catalog"
	"github.com/shopkit/backend/internal/domain/shared"
)

// ProductAdapter persists catalog products and their meta rows.
type ProductAdapter struct {
	db   *gorm.DB
	meta metaStore
}

// NewProductAdapter creates a product adapter on the given database.
func NewProductAdapter(db *Database) *ProductAdapter {
	return &ProductAdapter{db: db.DB(), meta: metaStore{db: db.DB()}}
}

func asProduct(e shared.Entity) (*catalog.Product, error) {
	p, ok := e.(*catalog.Product)
	if !ok {
		return nil, fmt.Errorf("product adapter received %T", e)
	}
	return p, nil
}

func (a *ProductAdapter) toModel(p *catalog.Product) ProductModel {
	return ProductModel{
		ID:           p.GetID(),
		SKU:          p.SKU(),
		Name:         p.Name(),
		Description:  p.Description(),
		RegularPrice: p.RegularPrice(),
		SalePrice:    p.SalePrice(),
		Status:       string(p.Status()),
		Visibility:   string(p.CatalogVisibility()),
		ParentID:     p.ParentID(),
	}
}

// Create inserts the product and writes the generated id back.
func (a *ProductAdapter) Create(ctx context.Context, e shared.Entity) error {
	p, err := asProduct(e)
	if err != nil {
		return err
	}
	model := a.toModel(p)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	p.SetID(model.ID)
	return nil
}

// Read hydrates the product identified by its current id.
func (a *ProductAdapter) Read(ctx context.Context, e shared.Entity) error {
	p, err := asProduct(e)
	if err != nil {
		return err
	}
	var model ProductModel
	if err := a.db.WithContext(ctx).First(&model, p.GetID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("failed to read product %d: %w", p.GetID(), err)
	}

	if err := p.SetSKU(model.SKU); err != nil {
		return err
	}
	if err := p.SetName(model.Name); err != nil {
		return err
	}
	p.SetDescription(model.Description)
	if err := p.SetRegularPrice(model.RegularPrice); err != nil {
		return err
	}
	if err := p.SetSalePrice(model.SalePrice); err != nil {
		return err
	}
	if err := p.SetStatus(catalog.ProductStatus(model.Status)); err != nil {
		return err
	}
	if err := p.SetCatalogVisibility(catalog.CatalogVisibility(model.Visibility)); err != nil {
		return err
	}
	if err := p.SetParentID(model.ParentID); err != nil {
		return err
	}
	p.SetID(model.ID)
	return nil
}

// productColumns maps changeset field names to database columns.
var productColumns = map[string]string{
	"sku":                "sku",
	"name":               "name",
	"description":        "description",
	"regular_price":      "regular_price",
	"sale_price":         "sale_price",
	"status":             "status",
	"catalog_visibility": "visibility",
	"parent_id":          "parent_id",
}

// Update writes only the changed fields. A missing row surfaces as
// ErrNotFound.
func (a *ProductAdapter) Update(ctx context.Context, e shared.Entity) error {
	p, err := asProduct(e)
	if err != nil {
		return err
	}
	updates := changedColumns(p.Changes(), productColumns)
	if len(updates) == 0 {
		return nil
	}
	result := a.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", p.GetID()).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", p.GetID(), result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete soft-deletes the product, or hard-deletes it together with its
// meta rows when force is set.
func (a *ProductAdapter) Delete(ctx context.Context, e shared.Entity, force bool) error {
	p, err := asProduct(e)
	if err != nil {
		return err
	}
	tx := a.db.WithContext(ctx)
	if !force {
		if err := tx.Delete(&ProductModel{}, p.GetID()).Error; err != nil {
			return fmt.Errorf("failed to trash product %d: %w", p.GetID(), err)
		}
		return nil
	}
	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&ProductModel{}, p.GetID()).Error; err != nil {
			return fmt.Errorf("failed to delete product %d: %w", p.GetID(), err)
		}
		return tx.Where("owner_kind = ? AND owner_id = ?", catalog.EntityKind, p.GetID()).
			Delete(&MetaRowModel{}).Error
	})
}

// ReadMeta returns the product's meta rows.
func (a *ProductAdapter) ReadMeta(ctx context.Context, e shared.Entity) ([]shared.MetaRow, error) {
	return a.meta.readMeta(ctx, catalog.EntityKind, e.GetID())
}

// AddMeta inserts one meta row and returns its id.
func (a *ProductAdapter) AddMeta(ctx context.Context, e shared.Entity, key string, value any) (uint64, error) {
	return a.meta.addMeta(ctx, catalog.EntityKind, e.GetID(), key, value)
}

// UpdateMeta rewrites one meta row by id.
func (a *ProductAdapter) UpdateMeta(ctx context.Context, e shared.Entity, row shared.MetaRow) error {
	return a.meta.updateMeta(ctx, catalog.EntityKind, e.GetID(), row)
}

// DeleteMeta removes one meta row by id.
func (a *ProductAdapter) DeleteMeta(ctx context.Context, e shared.Entity, metaID uint64) error {
	return a.meta.deleteMeta(ctx, catalog.EntityKind, e.GetID(), metaID)
}

// changedColumns translates a changeset into a column update map, dropping
// fields without a mapped column.
func changedColumns(changes map[string]any, columns map[string]string) map[string]any {
	updates := make(map[string]any, len(changes))
	for field, value := range changes {
		column, ok := columns[field]
		if !ok {
			continue
		}
		updates[column] = value
	}
	return updates
}
