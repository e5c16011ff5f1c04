package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_IsValid(t *testing.T) {
	assert.True(t, USD.IsValid())
	assert.False(t, Currency("XXX").IsValid())
	assert.False(t, Currency("").IsValid())
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyUSD(decimal.RequireFromString("10.00"))
	b := NewMoneyUSD(decimal.RequireFromString("2.50"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.RequireFromString("12.50")))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.RequireFromString("7.50")))

	doubled := a.Multiply(decimal.NewFromInt(2))
	assert.True(t, doubled.Amount().Equal(decimal.RequireFromString("20.00")))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	usd := NewMoneyUSD(decimal.NewFromInt(10))
	eur, err := NewMoney(decimal.NewFromInt(10), EUR)
	require.NoError(t, err)

	_, err = usd.Add(eur)
	assert.Error(t, err)
}

func TestMoney_Round(t *testing.T) {
	m := NewMoneyUSD(decimal.RequireFromString("3.14159"))
	assert.Equal(t, "3.14", m.Round(DefaultPriceDecimals).Amount().StringFixed(2))
}

func TestNewMoney_InvalidCurrency(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(1), Currency("BOGUS"))
	assert.Error(t, err)
}
