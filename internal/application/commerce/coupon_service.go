package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
)

// CouponService handles coupon administration. Usage accounting goes
// through the ledger so limits stay concurrency-safe.
type CouponService struct {
	adapter  shared.Adapter
	cache    shared.MetaCache
	resolver coupon.Resolver
	ledger   coupon.Ledger
	validate *validator.Validate
}

// NewCouponService creates a new CouponService.
func NewCouponService(adapter shared.Adapter, cache shared.MetaCache, resolver coupon.Resolver, ledger coupon.Ledger) *CouponService {
	return &CouponService{
		adapter:  adapter,
		cache:    cache,
		resolver: resolver,
		ledger:   ledger,
		validate: validator.New(),
	}
}

// Create creates a new coupon.
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}

	if _, err := s.resolver.FindByCode(ctx, req.Code); err == nil {
		return nil, shared.NewDomainError("COUPON_CODE_TAKEN", "A coupon with this code already exists").
			WithData("code", coupon.NormalizeCode(req.Code))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c := coupon.New(s.adapter, s.cache)
	props := map[string]any{
		"code":                 req.Code,
		"amount":               req.Amount,
		"description":          req.Description,
		"usage_limit":          req.UsageLimit,
		"usage_limit_per_user": req.UsageLimitPerUser,
	}
	if req.DiscountType != "" {
		props["discount_type"] = req.DiscountType
	}
	if err := c.SetProps(props); err != nil {
		return nil, err
	}

	if _, err := c.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save coupon: %w", err)
	}
	response := ToCouponResponse(c)
	return &response, nil
}

// GetByCode resolves a coupon by code.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*CouponResponse, error) {
	c, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	response := ToCouponResponse(c)
	return &response, nil
}

// ReleaseUsage gives one redemption back, e.g. after a refund.
func (s *CouponService) ReleaseUsage(ctx context.Context, code, usedBy string) error {
	c, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.ledger.DecreaseUsage(ctx, c, usedBy)
}

// Delete removes a coupon.
func (s *CouponService) Delete(ctx context.Context, code string, force bool) error {
	c, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}
	if _, err := c.Delete(ctx, force); err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return nil
}

func (s *CouponService) findByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, err := s.resolver.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, coupon.NewError(coupon.NormalizeCode(code), coupon.ErrCodeNotFound, "Coupon does not exist")
		}
		return nil, err
	}
	return c, nil
}
