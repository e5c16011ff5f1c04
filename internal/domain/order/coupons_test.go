package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
)

type stubResolver struct {
	coupons map[string]*coupon.Coupon
}

func (r *stubResolver) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

type fixedEngine struct {
	discount decimal.Decimal
	err      error
}

func (e *fixedEngine) ApplyCoupon(ctx context.Context, o *Order, c *coupon.Coupon) (decimal.Decimal, error) {
	if e.err != nil {
		return decimal.Zero, e.err
	}
	return e.discount, nil
}

type stubCart []string

func (c stubCart) AppliedCoupons() []string { return c }

// countLedger is a mutex-guarded ledger fake. The whole check-and-hold runs
// under the lock so concurrent callers racing for the last slot resolve to
// exactly one winner.
type countLedger struct {
	mu          sync.Mutex
	nextKey     int
	globalHolds map[*coupon.Coupon]int
	aliasHolds  map[*coupon.Coupon]map[string]int
	usages      map[*coupon.Coupon]map[string]int
	increases   []string
}

func newCountLedger() *countLedger {
	return &countLedger{
		globalHolds: make(map[*coupon.Coupon]int),
		aliasHolds:  make(map[*coupon.Coupon]map[string]int),
		usages:      make(map[*coupon.Coupon]map[string]int),
	}
}

func (l *countLedger) key() string {
	l.nextKey++
	return fmt.Sprintf("hold-%d", l.nextKey)
}

func (l *countLedger) CheckAndHold(ctx context.Context, c *coupon.Coupon) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c.UsageCount()+l.globalHolds[c] >= c.UsageLimit() {
		return "", coupon.ErrLimitExhausted
	}
	l.globalHolds[c]++
	return l.key(), nil
}

func (l *countLedger) CheckAndHoldForUser(ctx context.Context, c *coupon.Coupon, aliases []string, primaryAlias string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	used := 0
	for _, alias := range aliases {
		used += l.usages[c][alias] + l.aliasHolds[c][alias]
	}
	if used >= c.UsageLimitPerUser() {
		return "", coupon.ErrLimitExhausted
	}
	if l.aliasHolds[c] == nil {
		l.aliasHolds[c] = make(map[string]int)
	}
	l.aliasHolds[c][primaryAlias]++
	return l.key(), nil
}

func (l *countLedger) UsageByEmail(ctx context.Context, c *coupon.Coupon, email string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usages[c][email], nil
}

func (l *countLedger) IncreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.usages[c] == nil {
		l.usages[c] = make(map[string]int)
	}
	l.usages[c][usedBy]++
	l.increases = append(l.increases, usedBy)
	return nil
}

func (l *countLedger) DecreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.usages[c][usedBy] > 0 {
		l.usages[c][usedBy]--
	}
	return nil
}

func newTestCoupon(t *testing.T, code string) *coupon.Coupon {
	t.Helper()
	c := coupon.New(nil, nil)
	require.NoError(t, c.SetCode(code))
	require.NoError(t, c.SetAmount(decimal.NewFromInt(5)))
	return c
}

func couponErrCode(t *testing.T, err error) string {
	t.Helper()
	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	return cerr.Code
}

func TestApplyCoupon_AddsLineAndRecalculates(t *testing.T) {
	o := NewOrder(nil, nil, WithDiscountEngine(&fixedEngine{discount: dec("5")}))
	product := NewProductLine(nil, nil)
	product.SetTotal(dec("20"))
	require.NoError(t, o.AddItem(product))
	c := newTestCoupon(t, "save5")

	require.NoError(t, o.ApplyCoupon(context.Background(), c))

	codes, err := o.CouponCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"save5"}, codes)
	assert.True(t, o.DiscountTotal().Equal(dec("5")))
	assert.True(t, o.Total().Equal(dec("15")), "got %s", o.Total())

	var sawApplied bool
	for _, e := range o.Events() {
		if e.EventType() == EventCouponApplied {
			sawApplied = true
		}
	}
	assert.True(t, sawApplied)
}

func TestApplyCoupon_RejectsDuplicate(t *testing.T) {
	o := NewOrder(nil, nil, WithDiscountEngine(&fixedEngine{discount: dec("5")}))
	product := NewProductLine(nil, nil)
	product.SetTotal(dec("20"))
	require.NoError(t, o.AddItem(product))
	c := newTestCoupon(t, "save5")
	require.NoError(t, o.ApplyCoupon(context.Background(), c))
	before := o.Total()

	err := o.ApplyCoupon(context.Background(), c)

	assert.Equal(t, coupon.ErrCodeAlreadyApplied, couponErrCode(t, err))
	assert.True(t, o.Total().Equal(before), "a rejected re-apply leaves the total at %s, got %s", before, o.Total())
}

func TestApplyCoupon_PerUserLimitChecksLowercasedEmail(t *testing.T) {
	ledger := newCountLedger()
	o := NewOrder(nil, nil,
		WithDiscountEngine(&fixedEngine{discount: dec("5")}),
		WithCouponLedger(ledger),
	)
	o.SetBillingEmail("Shopper@Example.com")
	c := newTestCoupon(t, "once")
	require.NoError(t, c.SetUsageLimitPerUser(1))
	ledger.usages[c] = map[string]int{"shopper@example.com": 1}

	err := o.ApplyCoupon(context.Background(), c)

	assert.Equal(t, coupon.ErrCodeUsageLimit, couponErrCode(t, err))
}

func TestApplyCoupon_EngineErrors(t *testing.T) {
	t.Run("generic error becomes rejection", func(t *testing.T) {
		o := NewOrder(nil, nil, WithDiscountEngine(&fixedEngine{err: errors.New("minimum spend not met")}))

		err := o.ApplyCoupon(context.Background(), newTestCoupon(t, "save5"))

		assert.Equal(t, coupon.ErrCodeRejected, couponErrCode(t, err))
	})

	t.Run("coupon error passes through", func(t *testing.T) {
		engineErr := coupon.NewError("save5", coupon.ErrCodeUsageLimit, "limit reached")
		o := NewOrder(nil, nil, WithDiscountEngine(&fixedEngine{err: engineErr}))

		err := o.ApplyCoupon(context.Background(), newTestCoupon(t, "save5"))

		var cerr *coupon.Error
		require.ErrorAs(t, err, &cerr)
		assert.Same(t, engineErr, cerr)
	})
}

func TestApplyCoupon_RecordsUsageUnderUserAlias(t *testing.T) {
	ledger := newCountLedger()
	o := NewOrder(nil, nil,
		WithDiscountEngine(&fixedEngine{discount: dec("5")}),
		WithCouponLedger(ledger),
	)
	o.SetCustomerID(42)
	o.SetBillingEmail("shopper@example.com")
	o.SetRecordUsage(true)

	require.NoError(t, o.ApplyCoupon(context.Background(), newTestCoupon(t, "save5")))

	assert.Equal(t, []string{"42"}, ledger.increases, "the user id outranks the email alias")
}

func TestApplyCouponCode_NotFound(t *testing.T) {
	o := NewOrder(nil, nil,
		WithDiscountEngine(&fixedEngine{discount: dec("5")}),
		WithCouponResolver(&stubResolver{coupons: map[string]*coupon.Coupon{}}),
	)

	err := o.ApplyCouponCode(context.Background(), "  MISSING  ")

	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.ErrCodeNotFound, cerr.Code)
	assert.Equal(t, "missing", cerr.CouponCode, "codes normalize before lookup")
}

func TestHoldAppliedCoupons_RecordsObtainedKeys(t *testing.T) {
	store := newFakeStore()
	ledger := newCountLedger()
	c := newTestCoupon(t, "limited")
	require.NoError(t, c.SetUsageLimit(2))
	require.NoError(t, c.SetUsageLimitPerUser(1))
	o := NewOrder(store, nil,
		WithCouponLedger(ledger),
		WithCouponResolver(&stubResolver{coupons: map[string]*coupon.Coupon{"limited": c}}),
		WithCart(stubCart{"limited"}),
	)
	o.SetCustomerID(9)

	require.NoError(t, o.HoldAppliedCoupons(context.Background(), "Shopper@Example.com"))

	assert.NotEmpty(t, store.heldGlobal["limited"])
	assert.NotEmpty(t, store.heldUser["limited"])
	assert.Equal(t, 1, ledger.aliasHolds[c]["9"], "the per-user hold lands under the user id alias")
}

func TestHoldAppliedCoupons_PartialHoldsStillRecordedOnFailure(t *testing.T) {
	store := newFakeStore()
	ledger := newCountLedger()
	open := newTestCoupon(t, "open")
	require.NoError(t, open.SetUsageLimit(10))
	soldOut := newTestCoupon(t, "soldout")
	require.NoError(t, soldOut.SetUsageLimit(1))
	soldOut.SetUsageCount(1)
	o := NewOrder(store, nil,
		WithCouponLedger(ledger),
		WithCouponResolver(&stubResolver{coupons: map[string]*coupon.Coupon{
			"open":    open,
			"soldout": soldOut,
		}}),
		WithCart(stubCart{"open", "soldout"}),
	)

	err := o.HoldAppliedCoupons(context.Background(), "shopper@example.com")

	assert.Equal(t, coupon.ErrCodeUsageLimit, couponErrCode(t, err))
	assert.NotEmpty(t, store.heldGlobal["open"], "holds obtained before the failure are recorded")
	_, ok := store.heldGlobal["soldout"]
	assert.False(t, ok)
}

func TestHoldAppliedCoupons_LastSlotHasOneWinner(t *testing.T) {
	ledger := newCountLedger()
	c := newTestCoupon(t, "lastone")
	require.NoError(t, c.SetUsageLimit(1))
	resolver := &stubResolver{coupons: map[string]*coupon.Coupon{"lastone": c}}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := NewOrder(newFakeStore(), nil,
				WithCouponLedger(ledger),
				WithCouponResolver(resolver),
				WithCart(stubCart{"lastone"}),
			)
			errs <- o.HoldAppliedCoupons(context.Background(), "shopper@example.com")
		}()
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1, "exactly one contender wins the last slot")
	assert.Equal(t, coupon.ErrCodeUsageLimit, couponErrCode(t, failures[0]))
}
