package order

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/shared"
	"github.com/shopkit/backend/internal/domain/shared/valueobject"
)

// EntityKind is the adapter/cache namespace for orders.
const EntityKind = "order"

// Event types emitted by order operations.
const (
	EventStatusChanged = "order.status_changed"
	EventItemsChanged  = "order.items_changed"
	EventCouponApplied = "order.coupon_applied"
)

// Adapter extends the generic persistence contract with order item and
// coupon hold operations.
type Adapter interface {
	shared.Adapter

	// ReadItems returns the persisted items of one kind, bound to their
	// item adapter.
	ReadItems(ctx context.Context, o *Order, kind ItemKind) ([]LineItem, error)

	// DeleteItems removes the persisted items of one kind; the empty kind
	// removes all items.
	DeleteItems(ctx context.Context, o *Order, kind ItemKind) error

	// ItemType returns the kind of a persisted item.
	ItemType(ctx context.Context, o *Order, itemID uint64) (ItemKind, error)

	// SetCouponHeldKeys records hold keys obtained during checkout so they
	// can be released or confirmed later.
	SetCouponHeldKeys(ctx context.Context, o *Order, global, perUser map[string]string) error
}

// ItemsFilter post-processes the items returned by Items. Hosts supply one
// to hide or transform items.
type ItemsFilter func(items []LineItem, kinds []ItemKind) []LineItem

// TaxTotalsFilter post-processes the grouped tax totals.
type TaxTotalsFilter func(totals map[string]TaxTotal) map[string]TaxTotal

type orderData struct {
	Status        Status
	Currency      valueobject.Currency
	CustomerID    uint64
	BillingEmail  string
	CartTax       decimal.Decimal
	ShippingTax   decimal.Decimal
	TotalTax      decimal.Decimal
	ShippingTotal decimal.Decimal
	DiscountTotal decimal.Decimal
	DiscountTax   decimal.Decimal
	Total         decimal.Decimal
	RecordUsage   bool
}

// bucket keeps one kind's items keyed by persisted id or a synthetic
// placeholder, preserving insertion order for deterministic folds. seq
// only ever grows so placeholder keys are never reissued after a removal.
type bucket struct {
	byKey map[string]LineItem
	keys  []string
	seq   int
}

func newItemBucket() *bucket {
	return &bucket{byKey: make(map[string]LineItem)}
}

func (b *bucket) add(key string, item LineItem) {
	if _, exists := b.byKey[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.byKey[key] = item
}

func (b *bucket) remove(key string) {
	if _, exists := b.byKey[key]; !exists {
		return
	}
	delete(b.byKey, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

func (b *bucket) rekey(oldKey, newKey string) {
	item, exists := b.byKey[oldKey]
	if !exists {
		return
	}
	delete(b.byKey, oldKey)
	b.byKey[newKey] = item
	for i, k := range b.keys {
		if k == oldKey {
			b.keys[i] = newKey
			break
		}
	}
}

func (b *bucket) ordered() []LineItem {
	out := make([]LineItem, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.byKey[k])
	}
	return out
}

// Order is the order aggregate: status, monetary totals and the five item
// buckets. It is not safe for concurrent use; load a fresh instance per
// logical operation.
type Order struct {
	shared.Record
	data orderData

	items         map[ItemKind]*bucket
	itemsToDelete []LineItem

	store         Adapter
	statuses      *StatusRegistry
	priceDecimals int32

	engine   DiscountEngine
	ledger   coupon.Ledger
	resolver coupon.Resolver
	cart     Cart
	log      *zap.Logger

	itemsFilter     ItemsFilter
	taxFilter       TaxTotalsFilter
	hideZeroTaxRows bool
}

// Option configures an Order at construction.
type Option func(*Order)

// WithStatusRegistry replaces the default status registry.
func WithStatusRegistry(r *StatusRegistry) Option {
	return func(o *Order) { o.statuses = r }
}

// WithPriceDecimals sets the rounding precision for monetary totals.
func WithPriceDecimals(decimals int32) Option {
	return func(o *Order) { o.priceDecimals = decimals }
}

// WithDiscountEngine injects the discount computation collaborator.
func WithDiscountEngine(e DiscountEngine) Option {
	return func(o *Order) { o.engine = e }
}

// WithCouponLedger injects the coupon usage ledger.
func WithCouponLedger(l coupon.Ledger) Option {
	return func(o *Order) { o.ledger = l }
}

// WithCouponResolver injects the coupon-by-code resolver.
func WithCouponResolver(r coupon.Resolver) Option {
	return func(o *Order) { o.resolver = r }
}

// WithCart injects the active cart collaborator used by HoldAppliedCoupons.
func WithCart(c Cart) Option {
	return func(o *Order) { o.cart = c }
}

// WithLogger injects the logger used to attach order context to
// persistence failures.
func WithLogger(log *zap.Logger) Option {
	return func(o *Order) { o.log = log }
}

// WithItemsFilter installs the items post-processing step.
func WithItemsFilter(f ItemsFilter) Option {
	return func(o *Order) { o.itemsFilter = f }
}

// WithTaxTotalsFilter installs the tax totals post-processing step.
func WithTaxTotalsFilter(f TaxTotalsFilter) Option {
	return func(o *Order) { o.taxFilter = f }
}

// WithHideZeroTaxRows drops zero-amount rows from TaxTotals.
func WithHideZeroTaxRows() Option {
	return func(o *Order) { o.hideZeroTaxRows = true }
}

// NewOrder creates an unsaved order bound to the given adapter. The adapter
// and cache may be nil for in-memory use.
func NewOrder(store Adapter, cache shared.MetaCache, opts ...Option) *Order {
	o := &Order{
		Record: shared.NewRecord(EntityKind, store, cache),
		data: orderData{
			Status:        StatusPending,
			Currency:      valueobject.DefaultCurrency,
			CartTax:       decimal.Zero,
			ShippingTax:   decimal.Zero,
			TotalTax:      decimal.Zero,
			ShippingTotal: decimal.Zero,
			DiscountTotal: decimal.Zero,
			DiscountTax:   decimal.Zero,
			Total:         decimal.Zero,
		},
		items:         make(map[ItemKind]*bucket),
		store:         store,
		statuses:      NewStatusRegistry(),
		priceDecimals: valueobject.DefaultPriceDecimals,
	}
	o.Bind(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current order status.
func (o *Order) Status() Status {
	return o.data.Status
}

// SetStatus normalizes and stores a new status, coercing unrecognized
// values to pending once the order has been hydrated. The returned
// transition lets callers fire transition-specific side effects.
func (o *Order) SetStatus(raw string) StatusTransition {
	newStatus := o.statuses.Normalize(raw)
	oldStatus := o.data.Status

	if o.Hydrated() {
		if !o.statuses.IsRegistered(newStatus) && !o.statuses.IsException(newStatus) {
			newStatus = StatusPending
		}
		if oldStatus == StatusAutoDraft || (!o.statuses.IsRegistered(oldStatus) && !o.statuses.IsException(oldStatus)) {
			oldStatus = StatusPending
		}
	}

	shared.Assign(o.Changeset(), "status", &o.data.Status, newStatus)

	transition := StatusTransition{From: oldStatus, To: newStatus}
	if transition.From != transition.To {
		event := shared.NewBaseDomainEvent(EventStatusChanged, EntityKind, o.GetID())
		o.AddEvent(&event)
	}
	return transition
}

// Currency returns the order currency.
func (o *Order) Currency() valueobject.Currency {
	return o.data.Currency
}

// SetCurrency validates and stores the order currency.
func (o *Order) SetCurrency(c valueobject.Currency) error {
	if !c.IsValid() {
		return shared.NewDomainError("INVALID_CURRENCY", "Invalid currency code").WithData("currency", string(c))
	}
	shared.Assign(o.Changeset(), "currency", &o.data.Currency, c)
	return nil
}

// CustomerID returns the purchasing customer's id, 0 for guests.
func (o *Order) CustomerID() uint64 {
	return o.data.CustomerID
}

// SetCustomerID sets the purchasing customer's id.
func (o *Order) SetCustomerID(id uint64) {
	shared.Assign(o.Changeset(), "customer_id", &o.data.CustomerID, id)
}

// BillingEmail returns the billing email.
func (o *Order) BillingEmail() string {
	return o.data.BillingEmail
}

// SetBillingEmail sets the billing email.
func (o *Order) SetBillingEmail(email string) {
	shared.Assign(o.Changeset(), "billing_email", &o.data.BillingEmail, email)
}

// RecordUsage reports whether coupon usage tracking is enabled for this
// order.
func (o *Order) RecordUsage() bool {
	return o.data.RecordUsage
}

// SetRecordUsage toggles coupon usage tracking for this order.
func (o *Order) SetRecordUsage(enabled bool) {
	shared.Assign(o.Changeset(), "record_usage", &o.data.RecordUsage, enabled)
}

func itemKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func (o *Order) syntheticKey(kind ItemKind, b *bucket) string {
	for {
		b.seq++
		key := fmt.Sprintf("new:%s%d", kind, b.seq)
		if _, exists := b.byKey[key]; !exists {
			return key
		}
	}
}

func (o *Order) loadBucket(ctx context.Context, kind ItemKind) (*bucket, error) {
	if b, ok := o.items[kind]; ok {
		return b, nil
	}
	b := newItemBucket()
	if o.store != nil && o.GetID() != 0 {
		loaded, err := o.store.ReadItems(ctx, o, kind)
		if err != nil {
			return nil, err
		}
		for _, item := range loaded {
			if item == nil {
				continue
			}
			b.add(itemKey(item.GetID()), item)
		}
	}
	o.items[kind] = b
	return b, nil
}

// Items returns the union of the requested kinds, loading each kind from
// the adapter on first access. With no kinds given, all five are returned.
func (o *Order) Items(ctx context.Context, kinds ...ItemKind) ([]LineItem, error) {
	if len(kinds) == 0 {
		kinds = ItemKinds()
	}
	var out []LineItem
	for _, kind := range kinds {
		if !kind.IsValid() {
			continue
		}
		b, err := o.loadBucket(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, b.ordered()...)
	}
	if o.itemsFilter != nil {
		out = o.itemsFilter(out, kinds)
	}
	return out, nil
}

// AddItem classifies the item into its kind bucket. Persisted items are
// keyed by id; unsaved ones get a synthetic placeholder key so multiple
// unsaved items of the same kind don't collide before save.
func (o *Order) AddItem(item LineItem) error {
	kind := item.ItemKind()
	if !kind.IsValid() {
		return shared.NewDomainError("INVALID_ITEM_TYPE", "Unknown order item type").WithData("type", string(kind))
	}
	b, ok := o.items[kind]
	if !ok {
		b = newItemBucket()
		o.items[kind] = b
	}
	key := o.syntheticKey(kind, b)
	if item.GetID() != 0 {
		key = itemKey(item.GetID())
	}
	b.add(key, item)
	return nil
}

// RemoveItem queues the item for deletion and removes it from its bucket.
// Only the in-memory view is consulted; returns false when the item is not
// resolvable.
func (o *Order) RemoveItem(itemID uint64) bool {
	key := itemKey(itemID)
	for _, b := range o.items {
		if item, ok := b.byKey[key]; ok {
			o.itemsToDelete = append(o.itemsToDelete, item)
			b.remove(key)
			return true
		}
	}
	return false
}

// GetItem returns the in-memory item with the given persisted id.
func (o *Order) GetItem(itemID uint64) (LineItem, bool) {
	key := itemKey(itemID)
	for _, b := range o.items {
		if item, ok := b.byKey[key]; ok {
			return item, true
		}
	}
	return nil, false
}

// PendingDeletion returns the items queued for deletion on the next
// SaveItems.
func (o *Order) PendingDeletion() []LineItem {
	out := make([]LineItem, len(o.itemsToDelete))
	copy(out, o.itemsToDelete)
	return out
}

// SaveItems flushes the item buckets: queued deletions are hard-deleted
// first, then every remaining item is re-bound to this order and saved.
// Items that gained an id are re-keyed from their synthetic placeholder to
// the persisted id.
func (o *Order) SaveItems(ctx context.Context) error {
	changed := false

	for _, item := range o.itemsToDelete {
		if item.GetID() != 0 {
			if _, err := item.DeleteItem(ctx, true); err != nil {
				return o.wrapSaveErr(err)
			}
			changed = true
		}
	}
	o.itemsToDelete = nil

	for _, b := range o.items {
		for _, key := range append([]string(nil), b.keys...) {
			item := b.byKey[key]
			item.SetOrderID(o.GetID())
			id, err := item.SaveItem(ctx)
			if err != nil {
				return o.wrapSaveErr(err)
			}
			if newKey := itemKey(id); newKey != key {
				b.rekey(key, newKey)
				changed = true
			}
		}
	}

	if changed {
		event := shared.NewBaseDomainEvent(EventItemsChanged, EntityKind, o.GetID())
		o.AddEvent(&event)
	}
	return nil
}

// Save persists the order and its items. Persistence failures are logged
// with the order id attached, then propagated.
func (o *Order) Save(ctx context.Context) (uint64, error) {
	id, err := o.Record.Save(ctx)
	if err != nil {
		return id, o.wrapSaveErr(err)
	}
	if err := o.SaveItems(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// Delete removes the order through the adapter and resets its id.
func (o *Order) Delete(ctx context.Context, force bool) (bool, error) {
	return o.DeleteEntity(ctx, force)
}

func (o *Order) wrapSaveErr(err error) error {
	if o.log != nil {
		o.log.Error("order save failed",
			zap.Uint64("order_id", o.GetID()),
			zap.Error(err),
		)
	}
	return fmt.Errorf("order %d: %w", o.GetID(), err)
}

// Data returns a snapshot of the order's id, structured fields and visible
// meta.
func (o *Order) Data(ctx context.Context) (map[string]any, error) {
	meta, err := o.GetMetaData(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":             o.GetID(),
		"status":         o.data.Status,
		"currency":       o.data.Currency,
		"customer_id":    o.data.CustomerID,
		"billing_email":  o.data.BillingEmail,
		"cart_tax":       o.data.CartTax,
		"shipping_tax":   o.data.ShippingTax,
		"total_tax":      o.data.TotalTax,
		"shipping_total": o.data.ShippingTotal,
		"discount_total": o.data.DiscountTotal,
		"discount_tax":   o.data.DiscountTax,
		"total":          o.data.Total,
		"meta_data":      meta,
	}, nil
}
