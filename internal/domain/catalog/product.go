package catalog

import (
	"context"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/shopkit/backend/internal/domain/shared"
)

// EntityKind is the adapter/cache namespace for products.
const EntityKind = "product"

// ProductStatus represents the publication status of a product
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
	ProductStatusPrivate   ProductStatus = "private"
)

// IsValid checks if the status is a valid ProductStatus
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusPublished, ProductStatusPrivate:
		return true
	}
	return false
}

// CatalogVisibility controls where a product appears in the storefront.
type CatalogVisibility string

const (
	VisibilityVisible CatalogVisibility = "visible"
	VisibilityCatalog CatalogVisibility = "catalog"
	VisibilitySearch  CatalogVisibility = "search"
	VisibilityHidden  CatalogVisibility = "hidden"
)

// IsValid checks if the visibility is a recognized value
func (v CatalogVisibility) IsValid() bool {
	switch v {
	case VisibilityVisible, VisibilityCatalog, VisibilitySearch, VisibilityHidden:
		return true
	}
	return false
}

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,49}$`)

type productData struct {
	SKU          string
	Name         string
	Description  string
	RegularPrice decimal.Decimal
	SalePrice    decimal.Decimal
	Status       ProductStatus
	Visibility   CatalogVisibility
	ParentID     uint64
}

// Product is a catalog product built on the generic entity base: typed
// setters route through the changeset, and the reserved meta keys for its
// structured fields redirect to those setters so the meta bag cannot
// diverge from the schema.
type Product struct {
	shared.Record
	data productData
}

// NewProduct creates an unsaved product bound to the given adapter. The
// adapter and cache may be nil for in-memory use.
func NewProduct(adapter shared.Adapter, cache shared.MetaCache) *Product {
	p := &Product{
		Record: shared.NewRecord(EntityKind, adapter, cache),
		data: productData{
			RegularPrice: decimal.Zero,
			SalePrice:    decimal.Zero,
			Status:       ProductStatusDraft,
			Visibility:   VisibilityVisible,
		},
	}
	p.Bind(p)
	p.registerReserved()
	return p
}

// The structured fields also addressable as meta keys. Writes through the
// meta API for these keys go to the typed setters instead.
func (p *Product) registerReserved() {
	for key, setter := range p.propSetters() {
		p.RegisterReservedMeta(key, setter)
	}
}

// SKU returns the stock-keeping unit.
func (p *Product) SKU() string {
	return p.data.SKU
}

// SetSKU validates and stores the stock-keeping unit.
func (p *Product) SetSKU(sku string) error {
	if sku != "" && !skuPattern.MatchString(sku) {
		return shared.NewDomainError("INVALID_SKU", "SKU may only contain letters, digits, dots, underscores and dashes").
			WithData("sku", sku)
	}
	shared.Assign(p.Changeset(), "sku", &p.data.SKU, sku)
	return nil
}

// Name returns the product name.
func (p *Product) Name() string {
	return p.data.Name
}

// SetName stores the product name.
func (p *Product) SetName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	shared.Assign(p.Changeset(), "name", &p.data.Name, name)
	return nil
}

// Description returns the long description.
func (p *Product) Description() string {
	return p.data.Description
}

// SetDescription stores the long description.
func (p *Product) SetDescription(description string) {
	shared.Assign(p.Changeset(), "description", &p.data.Description, description)
}

// RegularPrice returns the undiscounted price.
func (p *Product) RegularPrice() decimal.Decimal {
	return p.data.RegularPrice
}

// SetRegularPrice validates and stores the undiscounted price.
func (p *Product) SetRegularPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Regular price cannot be negative")
	}
	shared.AssignDecimal(p.Changeset(), "regular_price", &p.data.RegularPrice, price)
	return nil
}

// SalePrice returns the discounted price, zero when not on sale.
func (p *Product) SalePrice() decimal.Decimal {
	return p.data.SalePrice
}

// SetSalePrice validates and stores the discounted price.
func (p *Product) SetSalePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}
	shared.AssignDecimal(p.Changeset(), "sale_price", &p.data.SalePrice, price)
	return nil
}

// Status returns the publication status.
func (p *Product) Status() ProductStatus {
	return p.data.Status
}

// SetStatus validates and stores the publication status.
func (p *Product) SetStatus(status ProductStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown product status").WithData("status", string(status))
	}
	shared.Assign(p.Changeset(), "status", &p.data.Status, status)
	return nil
}

// CatalogVisibility returns where the product appears in the storefront.
func (p *Product) CatalogVisibility() CatalogVisibility {
	return p.data.Visibility
}

// SetCatalogVisibility validates and stores the catalog visibility.
func (p *Product) SetCatalogVisibility(v CatalogVisibility) error {
	if !v.IsValid() {
		return shared.NewDomainError("INVALID_CATALOG_VISIBILITY", "Unknown catalog visibility").WithData("visibility", string(v))
	}
	shared.Assign(p.Changeset(), "catalog_visibility", &p.data.Visibility, v)
	return nil
}

// ParentID returns the parent product id, 0 for top-level products.
func (p *Product) ParentID() uint64 {
	return p.data.ParentID
}

// SetParentID validates and stores the parent product id.
func (p *Product) SetParentID(id uint64) error {
	if id != 0 && id == p.GetID() {
		return shared.NewDomainError("INVALID_PARENT", "Product cannot be its own parent").WithData("parent_id", id)
	}
	shared.Assign(p.Changeset(), "parent_id", &p.data.ParentID, id)
	return nil
}

// Price returns the effective selling price: the sale price when set,
// otherwise the regular price.
func (p *Product) Price() decimal.Decimal {
	if !p.data.SalePrice.IsZero() {
		return p.data.SalePrice
	}
	return p.data.RegularPrice
}

// OnSale reports whether a sale price is set below the regular price.
func (p *Product) OnSale() bool {
	return !p.data.SalePrice.IsZero() && p.data.SalePrice.LessThan(p.data.RegularPrice)
}

func (p *Product) propSetters() map[string]shared.PropSetter {
	return map[string]shared.PropSetter{
		"sku": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return p.SetSKU(s)
		},
		"name": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return p.SetName(s)
		},
		"description": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			p.SetDescription(s)
			return nil
		},
		"regular_price": func(v any) error {
			d, err := shared.ToDecimal(v)
			if err != nil {
				return err
			}
			return p.SetRegularPrice(d)
		},
		"sale_price": func(v any) error {
			d, err := shared.ToDecimal(v)
			if err != nil {
				return err
			}
			return p.SetSalePrice(d)
		},
		"status": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return p.SetStatus(ProductStatus(s))
		},
		"catalog_visibility": func(v any) error {
			s, err := shared.ToString(v)
			if err != nil {
				return err
			}
			return p.SetCatalogVisibility(CatalogVisibility(s))
		},
		"parent_id": func(v any) error {
			n, err := shared.ToUint64(v)
			if err != nil {
				return err
			}
			return p.SetParentID(n)
		},
	}
}

// SetProps applies a batch of property values, collecting per-property
// validation failures into one aggregate error while the remaining
// properties still apply.
func (p *Product) SetProps(props map[string]any) error {
	return shared.ApplyProps(p.propSetters(), props)
}

// Delete removes the product through the adapter and resets its id.
func (p *Product) Delete(ctx context.Context, force bool) (bool, error) {
	return p.DeleteEntity(ctx, force)
}

// Data returns a snapshot of the product's id, structured fields and
// visible meta.
func (p *Product) Data(ctx context.Context) (map[string]any, error) {
	meta, err := p.GetMetaData(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":                 p.GetID(),
		"sku":                p.data.SKU,
		"name":               p.data.Name,
		"description":        p.data.Description,
		"regular_price":      p.data.RegularPrice,
		"sale_price":         p.data.SalePrice,
		"status":             p.data.Status,
		"catalog_visibility": p.data.Visibility,
		"parent_id":          p.data.ParentID,
		"meta_data":          meta,
	}, nil
}
