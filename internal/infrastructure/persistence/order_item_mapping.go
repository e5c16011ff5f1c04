package persistence

import (
	"fmt"

	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared/valueobject"
)

func valueCurrency(code string) valueobject.Currency {
	return valueobject.Currency(code)
}

// itemToModel flattens a line item of any kind into the shared item row.
func itemToModel(item order.LineItem) (OrderItemModel, error) {
	model := OrderItemModel{
		ID:      item.GetID(),
		OrderID: item.OrderID(),
		Kind:    string(item.ItemKind()),
		Name:    item.Name(),
	}

	switch line := item.(type) {
	case *order.ProductLine:
		model.ProductID = line.ProductID()
		model.Quantity = line.Quantity()
		model.Subtotal = line.Subtotal()
		model.SubtotalTax = line.SubtotalTax()
		model.Total = line.Total()
		model.TotalTax = line.TotalTax()
	case *order.TaxLine:
		model.RateCode = line.RateCode()
		model.RateID = line.RateID()
		model.Compound = line.Compound()
		model.TaxTotal = line.TaxTotal()
		model.ShippingTaxTotal = line.ShippingTaxTotal()
	case *order.ShippingLine:
		model.MethodID = line.MethodID()
		model.Total = line.Total()
		model.TotalTax = line.TotalTax()
	case *order.FeeLine:
		model.Total = line.Total()
		model.TotalTax = line.TotalTax()
	case *order.CouponLine:
		model.Code = line.Code()
		model.Discount = line.Discount()
		model.DiscountTax = line.DiscountTax()
	default:
		return model, fmt.Errorf("unknown order item type %T", item)
	}
	return model, nil
}

// hydrateItemInto fills a line item from its row. The item must already be
// of the row's kind.
func hydrateItemInto(item order.LineItem, model *OrderItemModel) error {
	if string(item.ItemKind()) != model.Kind {
		return fmt.Errorf("order item %d is a %s, not a %s", model.ID, model.Kind, item.ItemKind())
	}
	item.SetOrderID(model.OrderID)

	switch line := item.(type) {
	case *order.ProductLine:
		line.SetName(model.Name)
		line.SetProductID(model.ProductID)
		if !model.Quantity.IsZero() {
			if err := line.SetQuantity(model.Quantity); err != nil {
				return err
			}
		}
		line.SetSubtotal(model.Subtotal)
		line.SetSubtotalTax(model.SubtotalTax)
		line.SetTotal(model.Total)
		line.SetTotalTax(model.TotalTax)
	case *order.TaxLine:
		line.SetName(model.Name)
		line.SetRateCode(model.RateCode)
		line.SetRateID(model.RateID)
		line.SetCompound(model.Compound)
		line.SetTaxTotal(model.TaxTotal)
		line.SetShippingTaxTotal(model.ShippingTaxTotal)
	case *order.ShippingLine:
		line.SetName(model.Name)
		line.SetMethodID(model.MethodID)
		line.SetTotal(model.Total)
		line.SetTotalTax(model.TotalTax)
	case *order.FeeLine:
		line.SetName(model.Name)
		line.SetTotal(model.Total)
		line.SetTotalTax(model.TotalTax)
	case *order.CouponLine:
		line.SetName(model.Name)
		line.SetCode(model.Code)
		line.SetDiscount(model.Discount)
		line.SetDiscountTax(model.DiscountTax)
	default:
		return fmt.Errorf("unknown order item type %T", item)
	}

	item.SetID(model.ID)
	if h, ok := item.(interface{ MarkHydrated() }); ok {
		h.MarkHydrated()
	}
	return nil
}

// itemColumns builds the full-row update map for an item. The kind never
// changes after creation and created_at is preserved.
func itemColumns(model *OrderItemModel) map[string]any {
	return map[string]any{
		"order_id":           model.OrderID,
		"name":               model.Name,
		"product_id":         model.ProductID,
		"quantity":           model.Quantity,
		"subtotal":           model.Subtotal,
		"subtotal_tax":       model.SubtotalTax,
		"total":              model.Total,
		"total_tax":          model.TotalTax,
		"rate_code":          model.RateCode,
		"rate_id":            model.RateID,
		"compound":           model.Compound,
		"tax_total":          model.TaxTotal,
		"shipping_tax_total": model.ShippingTaxTotal,
		"method_id":          model.MethodID,
		"code":               model.Code,
		"discount":           model.Discount,
		"discount_tax":       model.DiscountTax,
	}
}
