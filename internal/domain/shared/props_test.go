package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProps_AppliesAllAndCollectsFailures(t *testing.T) {
	var name string
	var price decimal.Decimal
	setters := map[string]PropSetter{
		"name": func(v any) error {
			s, err := ToString(v)
			if err != nil {
				return err
			}
			name = s
			return nil
		},
		"price": func(v any) error {
			d, err := ToDecimal(v)
			if err != nil {
				return err
			}
			if d.IsNegative() {
				return NewDomainError("INVALID_PRICE", "price cannot be negative")
			}
			price = d
			return nil
		},
	}

	err := ApplyProps(setters, map[string]any{
		"name":    "sprocket",
		"price":   "-5",
		"unknown": "x",
	})

	require.Error(t, err)
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs.Errors, 2)

	codes := map[string]bool{}
	for _, e := range verrs.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes["INVALID_PRICE"])
	assert.True(t, codes["UNKNOWN_PROPERTY"])

	// The valid property still applied despite the failures.
	assert.Equal(t, "sprocket", name)
	assert.True(t, price.IsZero())
}

func TestApplyProps_SkipsNilAndSystemKeys(t *testing.T) {
	called := false
	setters := map[string]PropSetter{
		"name": func(v any) error {
			called = true
			return nil
		},
	}

	err := ApplyProps(setters, map[string]any{
		"name":      nil,
		"id":        uint64(99),
		"meta_data": []MetaRow{},
	})

	require.NoError(t, err)
	assert.False(t, called)
}

func TestCoercions(t *testing.T) {
	t.Run("ToDecimal", func(t *testing.T) {
		d, err := ToDecimal("12.50")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.RequireFromString("12.5")))

		_, err = ToDecimal("not-a-number")
		assert.Error(t, err)

		d, err = ToDecimal(3)
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.NewFromInt(3)))
	})

	t.Run("ToUint64", func(t *testing.T) {
		n, err := ToUint64(7)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), n)

		_, err = ToUint64(-1)
		assert.Error(t, err)

		_, err = ToUint64(1.5)
		assert.Error(t, err)
	})

	t.Run("ToBool", func(t *testing.T) {
		b, err := ToBool("true")
		require.NoError(t, err)
		assert.True(t, b)

		_, err = ToBool("maybe")
		assert.Error(t, err)
	})

	t.Run("ToInt", func(t *testing.T) {
		n, err := ToInt(float64(4))
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		_, err = ToInt(4.2)
		assert.Error(t, err)
	})
}
