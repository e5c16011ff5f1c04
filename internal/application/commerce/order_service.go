package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared"
	"github.com/shopkit/backend/internal/domain/shared/valueobject"
)

// staticCart adapts a fixed code list to the cart contract used by
// checkout holds.
type staticCart []string

func (c staticCart) AppliedCoupons() []string { return c }

// OrderService handles order operations: creation, item management,
// coupon application and checkout holds.
type OrderService struct {
	store         order.Adapter
	cache         shared.MetaCache
	engine        order.DiscountEngine
	ledger        coupon.Ledger
	resolver      coupon.Resolver
	priceDecimals int32
	hideZeroTaxes bool
	logger        *zap.Logger
	validate      *validator.Validate
}

// OrderServiceConfig carries the collaborators and settings for an
// OrderService.
type OrderServiceConfig struct {
	Store         order.Adapter
	Cache         shared.MetaCache
	Engine        order.DiscountEngine
	Ledger        coupon.Ledger
	Resolver      coupon.Resolver
	PriceDecimals int32
	HideZeroTaxes bool
	Logger        *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	if cfg.Engine == nil {
		cfg.Engine = NewStandardDiscountEngine()
	}
	if cfg.PriceDecimals == 0 {
		cfg.PriceDecimals = valueobject.DefaultPriceDecimals
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &OrderService{
		store:         cfg.Store,
		cache:         cfg.Cache,
		engine:        cfg.Engine,
		ledger:        cfg.Ledger,
		resolver:      cfg.Resolver,
		priceDecimals: cfg.PriceDecimals,
		hideZeroTaxes: cfg.HideZeroTaxes,
		logger:        cfg.Logger.Named("orders"),
		validate:      validator.New(),
	}
}

func (s *OrderService) newOrder(extra ...order.Option) *order.Order {
	opts := []order.Option{
		order.WithPriceDecimals(s.priceDecimals),
		order.WithDiscountEngine(s.engine),
		order.WithCouponLedger(s.ledger),
		order.WithCouponResolver(s.resolver),
		order.WithLogger(s.logger),
	}
	if s.hideZeroTaxes {
		opts = append(opts, order.WithHideZeroTaxRows())
	}
	opts = append(opts, extra...)
	return order.NewOrder(s.store, s.cache, opts...)
}

// Create creates a new pending order with its lines and computed totals.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}

	o := s.newOrder()
	if req.Currency != "" {
		if err := o.SetCurrency(valueobject.Currency(req.Currency)); err != nil {
			return nil, err
		}
	}
	o.SetCustomerID(req.CustomerID)
	o.SetBillingEmail(req.BillingEmail)
	o.SetRecordUsage(req.RecordUsage)

	for _, line := range req.Lines {
		item := order.NewProductLine(s.store, nil)
		item.SetName(line.Name)
		item.SetProductID(line.ProductID)
		if err := item.SetQuantity(line.Quantity); err != nil {
			return nil, err
		}
		item.SetSubtotal(line.Subtotal)
		item.SetTotal(line.Total)
		item.SetTotalTax(line.TotalTax)
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}
	for _, line := range req.Shipping {
		item := order.NewShippingLine(s.store, nil)
		item.SetName(line.Name)
		item.SetMethodID(line.MethodID)
		item.SetTotal(line.Total)
		item.SetTotalTax(line.TotalTax)
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}
	for _, line := range req.Fees {
		item := order.NewFeeLine(s.store, nil)
		item.SetName(line.Name)
		item.SetTotal(line.Total)
		item.SetTotalTax(line.TotalTax)
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}

	if err := o.CalculateTotals(ctx); err != nil {
		return nil, err
	}
	if _, err := o.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	return s.respond(ctx, o)
}

// GetByID loads an order by id.
func (s *OrderService) GetByID(ctx context.Context, id uint64) (*OrderResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, o)
}

// UpdateStatus transitions an order to a new status and persists it.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, status string) (*OrderResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	transition := o.SetStatus(status)
	if _, err := o.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	s.logger.Info("order status updated",
		zap.Uint64("order_id", o.GetID()),
		zap.String("from", string(transition.From)),
		zap.String("to", string(transition.To)),
	)
	return s.respond(ctx, o)
}

// ApplyCoupon applies a coupon code to an order.
func (s *OrderService) ApplyCoupon(ctx context.Context, id uint64, code string) (*OrderResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.ApplyCouponCode(ctx, code); err != nil {
		return nil, err
	}
	return s.respond(ctx, o)
}

// RemoveItem removes one item from an order and recomputes its totals.
func (s *OrderService) RemoveItem(ctx context.Context, id, itemID uint64) (*OrderResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Load every bucket so the item is resolvable wherever it lives.
	if _, err := o.Items(ctx); err != nil {
		return nil, err
	}
	if !o.RemoveItem(itemID) {
		return nil, shared.NewDomainError("ORDER_ITEM_NOT_FOUND", "Order item not found").WithStatus(404)
	}
	if err := o.CalculateTotals(ctx); err != nil {
		return nil, err
	}
	if _, err := o.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	return s.respond(ctx, o)
}

// HoldCoupons reserves usage slots for every coupon in the cart before
// payment. The obtained hold keys are recorded on the order even when a
// later coupon fails, so abandoned checkouts can be cleaned up.
func (s *OrderService) HoldCoupons(ctx context.Context, id uint64, cartCodes []string) error {
	o, err := s.loadWith(ctx, id, order.WithCart(staticCart(cartCodes)))
	if err != nil {
		return err
	}
	return o.HoldAppliedCoupons(ctx, o.BillingEmail())
}

// Delete removes an order. Without force the order is trashed.
func (s *OrderService) Delete(ctx context.Context, id uint64, force bool) error {
	o, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if _, err := o.Delete(ctx, force); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *OrderService) load(ctx context.Context, id uint64) (*order.Order, error) {
	return s.loadWith(ctx, id)
}

func (s *OrderService) loadWith(ctx context.Context, id uint64, extra ...order.Option) (*order.Order, error) {
	o := s.newOrder(extra...)
	o.SetID(id)
	if err := o.Read(ctx); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found").WithStatus(404)
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderService) respond(ctx context.Context, o *order.Order) (*OrderResponse, error) {
	codes, err := o.CouponCodes(ctx)
	if err != nil {
		return nil, err
	}
	taxTotals, err := o.TaxTotals(ctx)
	if err != nil {
		return nil, err
	}
	response := toOrderResponse(o, codes, taxTotals)
	return &response, nil
}
