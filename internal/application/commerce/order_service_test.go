package commerce

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared"
	"github.com/shopkit/backend/internal/infrastructure/persistence/memory"
)

func newOrderService() (*OrderService, *memory.Adapter, *memory.Ledger) {
	store := memory.NewAdapter()
	ledger := memory.NewLedger()
	svc := NewOrderService(OrderServiceConfig{
		Store:    store,
		Ledger:   ledger,
		Resolver: store,
	})
	return svc, store, ledger
}

func testOrderRequest() CreateOrderRequest {
	return CreateOrderRequest{
		BillingEmail: "shopper@example.com",
		Lines: []OrderLineRequest{{
			ProductID: 1,
			Name:      "Widget",
			Quantity:  decimal.NewFromInt(2),
			Subtotal:  decimal.RequireFromString("20.00"),
			Total:     decimal.RequireFromString("20.00"),
			TotalTax:  decimal.RequireFromString("2.00"),
		}},
		Shipping: []ShippingLineRequest{{
			MethodID: "flat_rate",
			Name:     "Flat rate",
			Total:    decimal.RequireFromString("5.00"),
		}},
	}
}

func seedCoupon(t *testing.T, store *memory.Adapter, code string, amount int64, opts func(c *coupon.Coupon)) {
	t.Helper()
	c := coupon.New(store, nil)
	require.NoError(t, c.SetCode(code))
	require.NoError(t, c.SetAmount(decimal.NewFromInt(amount)))
	if opts != nil {
		opts(c)
	}
	_, err := c.Save(context.Background())
	require.NoError(t, err)
}

func TestOrderService_Create(t *testing.T) {
	svc, _, _ := newOrderService()

	resp, err := svc.Create(context.Background(), testOrderRequest())

	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.True(t, resp.CartTax.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, resp.ShippingTotal.Equal(decimal.RequireFromString("5.00")))
	// 20 + 5 shipping + 2 tax
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("27.00")), "got %s", resp.Total)
}

func TestOrderService_CreateValidation(t *testing.T) {
	svc, _, _ := newOrderService()

	_, err := svc.Create(context.Background(), CreateOrderRequest{})

	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "INVALID_INPUT", derr.Code, "an order needs at least one line")
}

func TestOrderService_GetByIDNotFound(t *testing.T) {
	svc, _, _ := newOrderService()

	_, err := svc.GetByID(context.Background(), 999)

	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ORDER_NOT_FOUND", derr.Code)
	assert.Equal(t, 404, derr.Status)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	svc, _, _ := newOrderService()
	ctx := context.Background()
	created, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	resp, err := svc.UpdateStatus(ctx, created.ID, "order-processing")
	require.NoError(t, err)
	assert.Equal(t, "processing", resp.Status)

	// Unknown statuses coerce to pending on a hydrated order.
	resp, err = svc.UpdateStatus(ctx, created.ID, "mystery")
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
}

func TestOrderService_ApplyCoupon(t *testing.T) {
	svc, store, _ := newOrderService()
	ctx := context.Background()
	seedCoupon(t, store, "save10", 10, nil)
	created, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	resp, err := svc.ApplyCoupon(ctx, created.ID, " SAVE10 ")

	require.NoError(t, err)
	assert.Equal(t, []string{"save10"}, resp.CouponCodes)
	assert.True(t, resp.DiscountTotal.Equal(decimal.NewFromInt(10)))
	// 27 from creation minus the 10 discount
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("17.00")), "got %s", resp.Total)

	_, err = svc.ApplyCoupon(ctx, created.ID, "save10")
	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeAlreadyApplied, cerr.Code)
}

func TestOrderService_ApplyCouponNotFound(t *testing.T) {
	svc, _, _ := newOrderService()
	ctx := context.Background()
	created, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, created.ID, "ghost")

	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeNotFound, cerr.Code)
}

func TestOrderService_RemoveItem(t *testing.T) {
	svc, store, _ := newOrderService()
	ctx := context.Background()
	created, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	probe := order.NewOrder(store, nil)
	probe.SetID(created.ID)
	shipping, err := store.ReadItems(ctx, probe, order.KindShippingLine)
	require.NoError(t, err)
	require.Len(t, shipping, 1)

	resp, err := svc.RemoveItem(ctx, created.ID, shipping[0].GetID())

	require.NoError(t, err)
	assert.True(t, resp.ShippingTotal.IsZero())
	// 20 + 2 tax, shipping gone
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("22.00")), "got %s", resp.Total)

	_, err = svc.RemoveItem(ctx, created.ID, 9999)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ORDER_ITEM_NOT_FOUND", derr.Code)
}

func TestOrderService_HoldCoupons(t *testing.T) {
	svc, store, ledger := newOrderService()
	ctx := context.Background()
	seedCoupon(t, store, "lastone", 5, func(c *coupon.Coupon) {
		require.NoError(t, c.SetUsageLimit(1))
	})

	first, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	require.NoError(t, svc.HoldCoupons(ctx, first.ID, []string{"lastone"}))

	err = svc.HoldCoupons(ctx, second.ID, []string{"lastone"})
	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeUsageLimit, cerr.Code, "the first hold took the only slot")

	// The winning order carries its hold key as system meta.
	probe := order.NewOrder(store, nil)
	probe.SetID(first.ID)
	require.NoError(t, probe.Read(ctx))
	value, ok, err := probe.GetMeta(ctx, "_coupon_held_keys")
	require.NoError(t, err)
	require.True(t, ok)
	held, ok := value.(map[string]string)
	require.True(t, ok)
	assert.NotEmpty(t, held["lastone"])

	c, err := store.FindByCode(ctx, "lastone")
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Holds(c.GetID()), "one hold outstanding")
}

func TestOrderService_Delete(t *testing.T) {
	svc, _, _ := newOrderService()
	ctx := context.Background()
	created, err := svc.Create(ctx, testOrderRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, true))

	_, err = svc.GetByID(ctx, created.ID)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ORDER_NOT_FOUND", derr.Code)
}
