package shared

import "context"

// MetaRow is the wire shape of one meta record as exchanged with the
// persistence adapter and the meta cache.
type MetaRow struct {
	ID    uint64 `json:"id"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Entity is the minimal surface an adapter needs from a domain object.
type Entity interface {
	GetID() uint64
	SetID(id uint64)
	Kind() string
}

// Adapter is the persistence contract consumed by entities. One
// implementation exists per entity kind; implementations type-assert the
// Entity argument to their concrete type.
type Adapter interface {
	Create(ctx context.Context, e Entity) error
	Read(ctx context.Context, e Entity) error
	Update(ctx context.Context, e Entity) error
	Delete(ctx context.Context, e Entity, force bool) error

	ReadMeta(ctx context.Context, e Entity) ([]MetaRow, error)
	AddMeta(ctx context.Context, e Entity, key string, value any) (uint64, error)
	UpdateMeta(ctx context.Context, e Entity, row MetaRow) error
	DeleteMeta(ctx context.Context, e Entity, metaID uint64) error
}

// MetaCache is a read-through cache for entity meta rows, keyed by entity
// kind and id. Writers invalidate after a successful meta save; a stale read
// from a concurrent request is tolerated as eventually consistent.
type MetaCache interface {
	Get(ctx context.Context, kind string, id uint64) ([]MetaRow, bool, error)
	Set(ctx context.Context, kind string, id uint64, rows []MetaRow) error
	Invalidate(ctx context.Context, kind string, id uint64) error
}
