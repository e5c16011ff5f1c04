package commerce

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
	"github.com/shopkit/backend/internal/infrastructure/persistence/memory"
)

func newCouponService() (*CouponService, *memory.Adapter, *memory.Ledger) {
	store := memory.NewAdapter()
	ledger := memory.NewLedger()
	return NewCouponService(store, nil, store, ledger), store, ledger
}

func TestCouponService_Create(t *testing.T) {
	svc, _, _ := newCouponService()

	resp, err := svc.Create(context.Background(), CreateCouponRequest{
		Code:         " SUMMER10 ",
		Amount:       decimal.NewFromInt(10),
		DiscountType: "percent",
		UsageLimit:   100,
	})

	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "summer10", resp.Code, "codes are normalized on the way in")
	assert.Equal(t, "percent", resp.DiscountType)
	assert.Equal(t, 100, resp.UsageLimit)
}

func TestCouponService_CreateDuplicateCode(t *testing.T) {
	svc, _, _ := newCouponService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateCouponRequest{Code: "summer10"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateCouponRequest{Code: " SUMMER10 "})

	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "COUPON_CODE_TAKEN", derr.Code)
}

func TestCouponService_GetByCodeNotFound(t *testing.T) {
	svc, _, _ := newCouponService()

	_, err := svc.GetByCode(context.Background(), "ghost")

	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeNotFound, cerr.Code)
}

func TestCouponService_ReleaseUsage(t *testing.T) {
	svc, store, ledger := newCouponService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateCouponRequest{Code: "summer10"})
	require.NoError(t, err)

	c, err := store.FindByCode(ctx, "summer10")
	require.NoError(t, err)
	require.NoError(t, ledger.IncreaseUsage(ctx, c, "42"))
	require.NoError(t, svc.ReleaseUsage(ctx, "summer10", "42"))

	used, err := ledger.UsageByEmail(ctx, c, "42")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestCouponService_Delete(t *testing.T) {
	svc, _, _ := newCouponService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateCouponRequest{Code: "summer10"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "summer10", true))

	_, err = svc.GetByCode(ctx, "summer10")
	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeNotFound, cerr.Code)
}
