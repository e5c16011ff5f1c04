package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/backend/internal/domain/shared"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "summer10", NormalizeCode("  SUMMER10  "))
	assert.Equal(t, "summer10", NormalizeCode("summer10"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestSetCode(t *testing.T) {
	c := New(nil, nil)

	require.NoError(t, c.SetCode(" SAVE-20 "))
	assert.Equal(t, "save-20", c.Code())

	assert.Error(t, c.SetCode("   "))
}

func TestSetAmount(t *testing.T) {
	c := New(nil, nil)

	assert.Error(t, c.SetAmount(decimal.NewFromInt(-1)))

	require.NoError(t, c.SetDiscountType(DiscountPercent))
	assert.Error(t, c.SetAmount(decimal.NewFromInt(101)), "percent discounts cap at 100")
	require.NoError(t, c.SetAmount(decimal.NewFromInt(100)))

	require.NoError(t, c.SetDiscountType(DiscountFixedCart))
	require.NoError(t, c.SetAmount(decimal.NewFromInt(101)), "fixed amounts have no cap")
}

func TestSetDiscountType(t *testing.T) {
	c := New(nil, nil)

	assert.Error(t, c.SetDiscountType("buy_one_get_one"))
	require.NoError(t, c.SetDiscountType(DiscountPercent))
	assert.Equal(t, DiscountPercent, c.DiscountType())
}

func TestSetUsageLimits(t *testing.T) {
	c := New(nil, nil)

	assert.Error(t, c.SetUsageLimit(-1))
	assert.Error(t, c.SetUsageLimitPerUser(-1))
	require.NoError(t, c.SetUsageLimit(0), "zero means unlimited")
	require.NoError(t, c.SetUsageLimit(5))
	assert.Equal(t, 5, c.UsageLimit())
}

func TestSetProps(t *testing.T) {
	c := New(nil, nil)

	err := c.SetProps(map[string]any{
		"code":          " BUNDLE ",
		"discount_type": "percent",
		"amount":        "15",
		"usage_limit":   3,
	})

	require.NoError(t, err)
	assert.Equal(t, "bundle", c.Code())
	assert.Equal(t, DiscountPercent, c.DiscountType())
	assert.True(t, c.Amount().Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 3, c.UsageLimit())
}

func TestSetProps_CollectsFailures(t *testing.T) {
	c := New(nil, nil)

	err := c.SetProps(map[string]any{
		"code":        "ok",
		"amount":      "-5",
		"usage_limit": -1,
	})

	require.Error(t, err)
	var verrs *shared.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Errors, 2)
	assert.Equal(t, "ok", c.Code(), "valid properties still apply")
}
