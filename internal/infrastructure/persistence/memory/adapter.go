package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopkit/backend/internal/domain/catalog"
	"github.com/shopkit/backend/internal/domain/coupon"
	"github.com/shopkit/backend/internal/domain/order"
	"github.com/shopkit/backend/internal/domain/shared"
)

// Meta keys the checkout flow stores hold keys under.
const (
	metaKeyHeldCoupons        = "_coupon_held_keys"
	metaKeyHeldCouponsPerUser = "_coupon_held_keys_for_users"
)

type productRow struct {
	sku, name, description string
	regularPrice, salePrice string
	status, visibility      string
	parentID                uint64
}

type orderRow struct {
	status, currency, billingEmail string
	customerID                     uint64
	cartTax, shippingTax           string
	shippingTotal                  string
	discountTotal, discountTax     string
	total                          string
	recordUsage                    bool
}

type itemRow struct {
	orderID uint64
	kind    order.ItemKind
	// The stored item keeps its own state; the row only carries what the
	// adapter needs for queries.
	item order.LineItem
}

type couponRow struct {
	code, discountType, description string
	amount                          string
	usageLimit, usageLimitPerUser   int
	usageCount                      int
}

type metaRow struct {
	id    uint64
	key   string
	value any
}

// Adapter is an in-memory implementation of the persistence contract for
// every entity kind, used by tests and throwaway environments. Deletes are
// always hard regardless of the force flag.
type Adapter struct {
	mu     sync.Mutex
	nextID uint64

	products map[uint64]*productRow
	orders   map[uint64]*orderRow
	items    map[uint64]*itemRow
	coupons  map[uint64]*couponRow
	meta     map[string]map[uint64][]*metaRow
}

// NewAdapter creates an empty in-memory adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		products: make(map[uint64]*productRow),
		orders:   make(map[uint64]*orderRow),
		items:    make(map[uint64]*itemRow),
		coupons:  make(map[uint64]*couponRow),
		meta:     make(map[string]map[uint64][]*metaRow),
	}
}

func (a *Adapter) allocID() uint64 {
	a.nextID++
	return a.nextID
}

// Create stores the entity and assigns it a fresh id.
func (a *Adapter) Create(ctx context.Context, e shared.Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.allocID()
	switch entity := e.(type) {
	case *catalog.Product:
		a.products[id] = productToRow(entity)
	case *order.Order:
		a.orders[id] = orderToRow(entity)
	case *coupon.Coupon:
		a.coupons[id] = couponToRow(entity)
	case order.LineItem:
		a.items[id] = &itemRow{orderID: entity.OrderID(), kind: entity.ItemKind(), item: entity}
	default:
		return fmt.Errorf("memory adapter received %T", e)
	}
	e.SetID(id)
	return nil
}

// Read hydrates the entity from its stored row.
func (a *Adapter) Read(ctx context.Context, e shared.Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch entity := e.(type) {
	case *catalog.Product:
		row, ok := a.products[entity.GetID()]
		if !ok {
			return shared.ErrNotFound
		}
		return rowToProduct(row, entity)
	case *order.Order:
		row, ok := a.orders[entity.GetID()]
		if !ok {
			return shared.ErrNotFound
		}
		return rowToOrder(row, entity)
	case *coupon.Coupon:
		row, ok := a.coupons[entity.GetID()]
		if !ok {
			return shared.ErrNotFound
		}
		return rowToCoupon(row, entity)
	case order.LineItem:
		if _, ok := a.items[entity.GetID()]; !ok {
			return shared.ErrNotFound
		}
		// The stored item is live; nothing to copy back.
		return nil
	default:
		return fmt.Errorf("memory adapter received %T", e)
	}
}

// Update overwrites the stored row from the entity's current state.
func (a *Adapter) Update(ctx context.Context, e shared.Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch entity := e.(type) {
	case *catalog.Product:
		if _, ok := a.products[entity.GetID()]; !ok {
			return shared.ErrNotFound
		}
		a.products[entity.GetID()] = productToRow(entity)
	case *order.Order:
		if _, ok := a.orders[entity.GetID()]; !ok {
			return shared.ErrNotFound
		}
		a.orders[entity.GetID()] = orderToRow(entity)
	case *coupon.Coupon:
		if _, ok := a.coupons[entity.GetID()]; !ok {
			return shared.ErrNotFound
		}
		a.coupons[entity.GetID()] = couponToRow(entity)
	case order.LineItem:
		row, ok := a.items[entity.GetID()]
		if !ok {
			return shared.ErrNotFound
		}
		row.orderID = entity.OrderID()
		row.item = entity
	default:
		return fmt.Errorf("memory adapter received %T", e)
	}
	return nil
}

// Delete removes the entity and its meta. Orders lose their items too.
func (a *Adapter) Delete(ctx context.Context, e shared.Entity, force bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch entity := e.(type) {
	case *catalog.Product:
		delete(a.products, entity.GetID())
	case *order.Order:
		delete(a.orders, entity.GetID())
		for id, row := range a.items {
			if row.orderID == entity.GetID() {
				delete(a.items, id)
				a.dropMeta(order.ItemEntityKind, id)
			}
		}
	case *coupon.Coupon:
		delete(a.coupons, entity.GetID())
	case order.LineItem:
		delete(a.items, entity.GetID())
	default:
		return fmt.Errorf("memory adapter received %T", e)
	}
	a.dropMeta(e.Kind(), e.GetID())
	return nil
}

// ReadItems returns the stored items of one kind in insertion order.
func (a *Adapter) ReadItems(ctx context.Context, o *order.Order, kind order.ItemKind) ([]order.LineItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ids []uint64
	for id, row := range a.items {
		if row.orderID == o.GetID() && row.kind == kind {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)

	items := make([]order.LineItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, a.items[id].item)
	}
	return items, nil
}

// DeleteItems removes the stored items of one kind; the empty kind removes
// all items.
func (a *Adapter) DeleteItems(ctx context.Context, o *order.Order, kind order.ItemKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, row := range a.items {
		if row.orderID != o.GetID() {
			continue
		}
		if kind != "" && row.kind != kind {
			continue
		}
		delete(a.items, id)
		a.dropMeta(order.ItemEntityKind, id)
	}
	return nil
}

// ItemType returns the kind of a stored item belonging to the order.
func (a *Adapter) ItemType(ctx context.Context, o *order.Order, itemID uint64) (order.ItemKind, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.items[itemID]
	if !ok || row.orderID != o.GetID() {
		return "", shared.ErrNotFound
	}
	return row.kind, nil
}

// SetCouponHeldKeys records the hold keys obtained during checkout as
// system meta on the order.
func (a *Adapter) SetCouponHeldKeys(ctx context.Context, o *order.Order, global, perUser map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(global) > 0 {
		a.upsertMetaLocked(order.EntityKind, o.GetID(), metaKeyHeldCoupons, global)
	}
	if len(perUser) > 0 {
		a.upsertMetaLocked(order.EntityKind, o.GetID(), metaKeyHeldCouponsPerUser, perUser)
	}
	return nil
}

// FindByCode resolves a coupon by its normalized code, implementing
// coupon.Resolver.
func (a *Adapter) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	normalized := coupon.NormalizeCode(code)
	for id, row := range a.coupons {
		if row.code != normalized {
			continue
		}
		c := coupon.New(a, nil)
		c.SetID(id)
		if err := rowToCoupon(row, c); err != nil {
			return nil, err
		}
		c.MarkHydrated()
		return c, nil
	}
	return nil, shared.ErrNotFound
}

// ReadMeta returns copies of the entity's meta rows.
func (a *Adapter) ReadMeta(ctx context.Context, e shared.Entity) ([]shared.MetaRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored := a.metaOf(e.Kind())[e.GetID()]
	rows := make([]shared.MetaRow, 0, len(stored))
	for _, m := range stored {
		rows = append(rows, shared.MetaRow{ID: m.id, Key: m.key, Value: m.value})
	}
	return rows, nil
}

// AddMeta inserts one meta row and returns its id.
func (a *Adapter) AddMeta(ctx context.Context, e shared.Entity, key string, value any) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.allocID()
	bucket := a.metaOf(e.Kind())
	bucket[e.GetID()] = append(bucket[e.GetID()], &metaRow{id: id, key: key, value: value})
	return id, nil
}

// UpdateMeta rewrites one meta row by id.
func (a *Adapter) UpdateMeta(ctx context.Context, e shared.Entity, row shared.MetaRow) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, m := range a.metaOf(e.Kind())[e.GetID()] {
		if m.id == row.ID {
			m.key = row.Key
			m.value = row.Value
			return nil
		}
	}
	return shared.ErrNotFound
}

// DeleteMeta removes one meta row by id.
func (a *Adapter) DeleteMeta(ctx context.Context, e shared.Entity, metaID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket := a.metaOf(e.Kind())
	rows := bucket[e.GetID()]
	for i, m := range rows {
		if m.id == metaID {
			bucket[e.GetID()] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (a *Adapter) metaOf(kind string) map[uint64][]*metaRow {
	bucket, ok := a.meta[kind]
	if !ok {
		bucket = make(map[uint64][]*metaRow)
		a.meta[kind] = bucket
	}
	return bucket
}

func (a *Adapter) dropMeta(kind string, ownerID uint64) {
	if bucket, ok := a.meta[kind]; ok {
		delete(bucket, ownerID)
	}
}

func (a *Adapter) upsertMetaLocked(kind string, ownerID uint64, key string, value any) {
	bucket := a.metaOf(kind)
	for _, m := range bucket[ownerID] {
		if m.key == key {
			m.value = value
			return
		}
	}
	id := a.allocID()
	bucket[ownerID] = append(bucket[ownerID], &metaRow{id: id, key: key, value: value})
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
