package shared

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// PropSetter applies one loosely-typed value to a typed entity field,
// returning a validation error when the value is rejected.
type PropSetter func(value any) error

// ApplyProps applies a batch of property values through the entity's setter
// table. Nil values and the id/meta_data keys are skipped. A failing setter
// does not abort the batch; every failure is collected with the property
// name attached and returned as one aggregate error.
func ApplyProps(setters map[string]PropSetter, props map[string]any) error {
	var verrs ValidationErrors
	for name, value := range props {
		if value == nil || name == "id" || name == "meta_data" {
			continue
		}
		setter, ok := setters[name]
		if !ok {
			verrs.Add(name, NewDomainError("UNKNOWN_PROPERTY", fmt.Sprintf("Unknown property %q", name)))
			continue
		}
		if err := setter(value); err != nil {
			verrs.Add(name, err)
		}
	}
	return verrs.ErrOrNil()
}

// ToString coerces a property value to string.
func ToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", NewDomainError("INVALID_VALUE", fmt.Sprintf("expected string, got %T", v))
	}
}

// ToDecimal coerces a property value to decimal.Decimal. Accepts decimals,
// numeric strings and Go numeric types.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero, NewDomainError("INVALID_VALUE", fmt.Sprintf("invalid decimal %q", x))
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.NewFromUint64(x), nil
	default:
		return decimal.Zero, NewDomainError("INVALID_VALUE", fmt.Sprintf("expected decimal, got %T", v))
	}
}

// ToUint64 coerces a property value to uint64.
func ToUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case int:
		if x < 0 {
			return 0, NewDomainError("INVALID_VALUE", "expected non-negative integer")
		}
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, NewDomainError("INVALID_VALUE", "expected non-negative integer")
		}
		return uint64(x), nil
	case float64:
		if x < 0 || x != float64(uint64(x)) {
			return 0, NewDomainError("INVALID_VALUE", "expected non-negative integer")
		}
		return uint64(x), nil
	case string:
		n, err := strconv.ParseUint(x, 10, 64)
		if err != nil {
			return 0, NewDomainError("INVALID_VALUE", fmt.Sprintf("invalid integer %q", x))
		}
		return n, nil
	default:
		return 0, NewDomainError("INVALID_VALUE", fmt.Sprintf("expected integer, got %T", v))
	}
}

// ToBool coerces a property value to bool.
func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, NewDomainError("INVALID_VALUE", fmt.Sprintf("invalid boolean %q", x))
		}
		return b, nil
	default:
		return false, NewDomainError("INVALID_VALUE", fmt.Sprintf("expected boolean, got %T", v))
	}
}

// ToInt coerces a property value to int.
func ToInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, NewDomainError("INVALID_VALUE", "expected integer")
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, NewDomainError("INVALID_VALUE", fmt.Sprintf("invalid integer %q", x))
		}
		return n, nil
	default:
		return 0, NewDomainError("INVALID_VALUE", fmt.Sprintf("expected integer, got %T", v))
	}
}
