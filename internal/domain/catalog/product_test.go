package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/backend/internal/domain/shared"
)

func TestSetSKU(t *testing.T) {
	p := NewProduct(nil, nil)

	require.NoError(t, p.SetSKU("WID-001.a_b"))
	assert.Equal(t, "WID-001.a_b", p.SKU())

	require.NoError(t, p.SetSKU(""), "an empty SKU is allowed")

	for _, bad := range []string{"-leading-dash", "has space", "emoji🙂"} {
		assert.Error(t, p.SetSKU(bad), "sku %q", bad)
	}
}

func TestSetName(t *testing.T) {
	p := NewProduct(nil, nil)

	assert.Error(t, p.SetName(""))
	require.NoError(t, p.SetName("Sprocket"))
	assert.Equal(t, "Sprocket", p.Name())
}

func TestPrices(t *testing.T) {
	p := NewProduct(nil, nil)

	assert.Error(t, p.SetRegularPrice(decimal.NewFromInt(-1)))
	assert.Error(t, p.SetSalePrice(decimal.NewFromInt(-1)))

	require.NoError(t, p.SetRegularPrice(decimal.RequireFromString("20.00")))
	assert.True(t, p.Price().Equal(decimal.RequireFromString("20.00")))
	assert.False(t, p.OnSale())

	require.NoError(t, p.SetSalePrice(decimal.RequireFromString("15.00")))
	assert.True(t, p.Price().Equal(decimal.RequireFromString("15.00")), "the sale price wins while set")
	assert.True(t, p.OnSale())

	require.NoError(t, p.SetSalePrice(decimal.RequireFromString("25.00")))
	assert.False(t, p.OnSale(), "a sale price above the regular price is not a sale")
}

func TestSetStatusAndVisibility(t *testing.T) {
	p := NewProduct(nil, nil)
	assert.Equal(t, ProductStatusDraft, p.Status())
	assert.Equal(t, VisibilityVisible, p.CatalogVisibility())

	assert.Error(t, p.SetStatus("archived"))
	require.NoError(t, p.SetStatus(ProductStatusPublished))

	assert.Error(t, p.SetCatalogVisibility("storefront"))
	require.NoError(t, p.SetCatalogVisibility(VisibilityHidden))
}

func TestSetParentID(t *testing.T) {
	p := NewProduct(nil, nil)
	p.SetID(7)

	assert.Error(t, p.SetParentID(7), "a product cannot parent itself")
	require.NoError(t, p.SetParentID(3))
	assert.Equal(t, uint64(3), p.ParentID())
}

func TestSetProps_CollectsFailures(t *testing.T) {
	p := NewProduct(nil, nil)

	err := p.SetProps(map[string]any{
		"name":          "Sprocket",
		"regular_price": "-5",
		"bogus":         1,
	})

	require.Error(t, err)
	var verrs *shared.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Errors, 2)
	assert.Equal(t, "Sprocket", p.Name(), "valid properties still apply")
}

func TestReservedMetaRedirectsToSetters(t *testing.T) {
	p := NewProduct(nil, nil)
	ctx := context.Background()

	require.NoError(t, p.AddMetaData(ctx, "name", "Sprocket"))
	require.NoError(t, p.AddMetaData(ctx, "color", "red"))

	assert.Equal(t, "Sprocket", p.Name())

	entries, err := p.GetMetaData(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "structured fields never land in the meta bag")
	assert.Equal(t, "color", entries[0].Key)
}
