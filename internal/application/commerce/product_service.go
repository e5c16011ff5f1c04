package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shopkit/backend/internal/domain/catalog"
	"github.com/shopkit/backend/internal/domain/shared"
)

// ProductService handles catalog product operations.
type ProductService struct {
	adapter  shared.Adapter
	cache    shared.MetaCache
	validate *validator.Validate
}

// NewProductService creates a new ProductService.
func NewProductService(adapter shared.Adapter, cache shared.MetaCache) *ProductService {
	return &ProductService{
		adapter:  adapter,
		cache:    cache,
		validate: validator.New(),
	}
}

// Create creates a new product.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}

	p := catalog.NewProduct(s.adapter, s.cache)
	props := map[string]any{
		"sku":           req.SKU,
		"name":          req.Name,
		"description":   req.Description,
		"regular_price": req.RegularPrice,
		"sale_price":    req.SalePrice,
		"parent_id":     req.ParentID,
	}
	if req.Status != "" {
		props["status"] = req.Status
	}
	if req.Visibility != "" {
		props["catalog_visibility"] = req.Visibility
	}
	if err := p.SetProps(props); err != nil {
		return nil, err
	}

	if _, err := p.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	response := ToProductResponse(p)
	return &response, nil
}

// GetByID loads a product by id.
func (s *ProductService) GetByID(ctx context.Context, id uint64) (*ProductResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(p)
	return &response, nil
}

// Update applies a partial update to a product.
func (s *ProductService) Update(ctx context.Context, id uint64, req UpdateProductRequest) (*ProductResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	props := map[string]any{}
	if req.SKU != nil {
		props["sku"] = *req.SKU
	}
	if req.Name != nil {
		props["name"] = *req.Name
	}
	if req.Description != nil {
		props["description"] = *req.Description
	}
	if req.RegularPrice != nil {
		props["regular_price"] = *req.RegularPrice
	}
	if req.SalePrice != nil {
		props["sale_price"] = *req.SalePrice
	}
	if req.Status != nil {
		props["status"] = *req.Status
	}
	if req.Visibility != nil {
		props["catalog_visibility"] = *req.Visibility
	}
	if err := p.SetProps(props); err != nil {
		return nil, err
	}

	if _, err := p.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	response := ToProductResponse(p)
	return &response, nil
}

// SetMeta writes one free-form meta value on a product. A nil value
// removes the key.
func (s *ProductService) SetMeta(ctx context.Context, id uint64, key string, value any) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := p.UpdateMetaData(ctx, 0, key, value); err != nil {
		return err
	}
	if _, err := p.Save(ctx); err != nil {
		return fmt.Errorf("failed to save product meta: %w", err)
	}
	return nil
}

// Delete removes a product. Without force the product is trashed and can
// be restored at the storage layer.
func (s *ProductService) Delete(ctx context.Context, id uint64, force bool) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if _, err := p.Delete(ctx, force); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *ProductService) load(ctx context.Context, id uint64) (*catalog.Product, error) {
	p := catalog.NewProduct(s.adapter, s.cache)
	p.SetID(id)
	if err := p.Read(ctx); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found").WithStatus(404)
		}
		return nil, err
	}
	return p, nil
}
