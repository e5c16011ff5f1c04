package shared

import (
	"context"
	"fmt"
)

// Event types emitted by the generic entity lifecycle.
const (
	EventEntitySaving  = "entity.saving"
	EventEntityDeleted = "entity.deleted"
)

// MetaFilter post-processes the visible meta entries before they are
// returned to callers. Host applications supply one to hide or transform
// entries.
type MetaFilter func(entries []*MetaEntry) []*MetaEntry

// Record is the base of every persistent domain object. It owns the
// identity, the changeset, the meta overlay and the adapter binding.
// Concrete entities embed it and call Bind with themselves so the base can
// hand the full object to the adapter.
//
// A Record is not safe for concurrent use; load a fresh instance per
// logical operation.
type Record struct {
	id   uint64
	kind string
	self Entity

	cs   Changeset
	meta MetaSet

	adapter  Adapter
	cache    MetaCache
	reserved map[string]PropSetter
	filter   MetaFilter
	events   []DomainEvent
}

// NewRecord creates the base record for an entity of the given kind. The
// adapter and cache may be nil; an adapter-less entity keeps all state in
// memory and Save becomes a no-op.
func NewRecord(kind string, adapter Adapter, cache MetaCache) Record {
	return Record{
		kind:    kind,
		adapter: adapter,
		cache:   cache,
		cs:      NewChangeset(),
	}
}

// Bind attaches the concrete entity to its base record. Constructors must
// call this before any persistence operation.
func (r *Record) Bind(self Entity) {
	r.self = self
}

// GetID returns the persisted id, 0 while unsaved.
func (r *Record) GetID() uint64 {
	return r.id
}

// SetID sets the persisted id.
func (r *Record) SetID(id uint64) {
	r.id = id
}

// Kind returns the entity kind, used for cache namespacing and events.
func (r *Record) Kind() string {
	return r.kind
}

// Changeset exposes the dirty-field tracker for the entity's setters.
func (r *Record) Changeset() *Changeset {
	return &r.cs
}

// Hydrated reports whether the entity was loaded from storage.
func (r *Record) Hydrated() bool {
	return r.cs.Hydrated()
}

// MarkHydrated flags the entity as loaded. Adapters call this after Read.
func (r *Record) MarkHydrated() {
	r.cs.MarkHydrated()
}

// Changes returns the fields modified since hydration or the last save.
func (r *Record) Changes() map[string]any {
	return r.cs.Changes()
}

// ApplyChanges commits the pending changes. Call only after successful
// persistence; the entity fields already hold the new values.
func (r *Record) ApplyChanges() {
	r.cs.Commit()
}

// AddEvent records a domain event for later publication.
func (r *Record) AddEvent(event DomainEvent) {
	r.events = append(r.events, event)
}

// Events returns the pending domain events.
func (r *Record) Events() []DomainEvent {
	return r.events
}

// ClearEvents drops the pending domain events.
func (r *Record) ClearEvents() {
	r.events = nil
}

// Adapter returns the bound persistence adapter, nil when unbound.
func (r *Record) Adapter() Adapter {
	return r.adapter
}

// Read hydrates the entity from storage by its current id. Returns
// ErrNotFound when no matching record of this kind exists.
func (r *Record) Read(ctx context.Context) error {
	if r.adapter == nil {
		return ErrNotFound
	}
	if err := r.adapter.Read(ctx, r.self); err != nil {
		return err
	}
	r.MarkHydrated()
	return nil
}

// Save persists the entity: update when an id is set, create otherwise,
// never both. Without an adapter it returns the current id unchanged. On
// success the meta overlay is flushed and the changeset committed.
func (r *Record) Save(ctx context.Context) (uint64, error) {
	if r.adapter == nil {
		return r.id, nil
	}
	if r.id != 0 {
		r.AddEvent(newSavingEvent(r.kind, r.id))
		if err := r.adapter.Update(ctx, r.self); err != nil {
			return r.id, err
		}
	} else {
		if err := r.adapter.Create(ctx, r.self); err != nil {
			return r.id, err
		}
		// The row now exists, so later setter calls on this instance must
		// be tracked for the column-diffed update path.
		r.MarkHydrated()
	}
	if err := r.SaveMetaData(ctx); err != nil {
		return r.id, err
	}
	r.ApplyChanges()
	return r.id, nil
}

func newSavingEvent(kind string, id uint64) DomainEvent {
	e := NewBaseDomainEvent(EventEntitySaving, kind, id)
	return &e
}

// DeleteEntity deletes the entity through the adapter. On success the id is
// reset to 0 and true is returned; without an adapter it returns false.
func (r *Record) DeleteEntity(ctx context.Context, force bool) (bool, error) {
	if r.adapter == nil {
		return false, nil
	}
	if err := r.adapter.Delete(ctx, r.self, force); err != nil {
		return false, err
	}
	deleted := NewBaseDomainEvent(EventEntityDeleted, r.kind, r.id)
	r.AddEvent(&deleted)
	r.id = 0
	return true, nil
}

// RegisterReservedMeta maps a meta key to the typed setter that owns it.
// AddMetaData and UpdateMetaData redirect writes for that key to the setter
// instead of storing free-form meta, so structured fields and the meta bag
// cannot diverge. Panics on a nil setter or a duplicate key; the table is
// built once in the entity constructor.
func (r *Record) RegisterReservedMeta(key string, set PropSetter) {
	if set == nil {
		panic(fmt.Sprintf("reserved meta key %q registered with nil setter", key))
	}
	if r.reserved == nil {
		r.reserved = make(map[string]PropSetter)
	}
	if _, exists := r.reserved[key]; exists {
		panic(fmt.Sprintf("reserved meta key %q registered twice", key))
	}
	r.reserved[key] = set
}

// SetMetaFilter installs the visible-meta post-processing step.
func (r *Record) SetMetaFilter(filter MetaFilter) {
	r.filter = filter
}

func (r *Record) maybeReadMeta(ctx context.Context) error {
	if r.meta.Loaded() {
		return nil
	}
	return r.ReadMetaData(ctx, false)
}

// ReadMetaData loads the meta overlay. The cache is consulted first unless
// force is set; on a miss the adapter is queried and the result cached.
// Loading happens at most once per in-memory lifetime unless forced.
func (r *Record) ReadMetaData(ctx context.Context, force bool) error {
	if r.adapter == nil || r.id == 0 {
		r.meta.MarkLoaded()
		return nil
	}
	if !force && r.cache != nil {
		rows, ok, err := r.cache.Get(ctx, r.kind, r.id)
		if err == nil && ok {
			r.meta.Hydrate(rows)
			return nil
		}
	}
	rows, err := r.adapter.ReadMeta(ctx, r.self)
	if err != nil {
		return err
	}
	if rows == nil {
		// Adapter had nothing usable; meta stays empty but counts as read.
		r.meta.MarkLoaded()
		return nil
	}
	r.meta.Hydrate(rows)
	if r.cache != nil {
		_ = r.cache.Set(ctx, r.kind, r.id, rows)
	}
	return nil
}

// GetMetaData returns the visible meta entries, loading them on first use.
func (r *Record) GetMetaData(ctx context.Context) ([]*MetaEntry, error) {
	if err := r.maybeReadMeta(ctx); err != nil {
		return nil, err
	}
	entries := r.meta.Visible()
	if r.filter != nil {
		entries = r.filter(entries)
	}
	return entries, nil
}

// GetMeta returns the value of the first entry for key.
func (r *Record) GetMeta(ctx context.Context, key string) (any, bool, error) {
	if err := r.maybeReadMeta(ctx); err != nil {
		return nil, false, err
	}
	entry, ok := r.meta.Get(key)
	if !ok {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// AddMetaData appends a meta entry. A reserved key is redirected to its
// typed setter instead.
func (r *Record) AddMetaData(ctx context.Context, key string, value any) error {
	if set, ok := r.reserved[key]; ok {
		return set(value)
	}
	if err := r.maybeReadMeta(ctx); err != nil {
		return err
	}
	r.meta.Add(key, value)
	return nil
}

// UpdateMetaData updates an entry located by explicit meta id when metaID is
// non-zero, else by first matching key, appending a new entry when none
// matches. A nil value schedules deletion. Reserved keys are redirected to
// their typed setter.
func (r *Record) UpdateMetaData(ctx context.Context, metaID uint64, key string, value any) error {
	if set, ok := r.reserved[key]; ok {
		return set(value)
	}
	if err := r.maybeReadMeta(ctx); err != nil {
		return err
	}
	r.meta.Update(metaID, key, value)
	return nil
}

// DeleteMetaData schedules every entry with the given key for deletion.
func (r *Record) DeleteMetaData(ctx context.Context, key string) error {
	if err := r.maybeReadMeta(ctx); err != nil {
		return err
	}
	r.meta.Delete(key)
	return nil
}

// DeleteMetaDataByID schedules the entry with the given persisted id for
// deletion.
func (r *Record) DeleteMetaDataByID(ctx context.Context, metaID uint64) error {
	if err := r.maybeReadMeta(ctx); err != nil {
		return err
	}
	r.meta.DeleteByID(metaID)
	return nil
}

// SaveMetaData flushes the meta overlay: deletes entries pending deletion,
// inserts entries without an id, updates entries whose own change tracking
// shows a diff, then invalidates the cache entry for this object.
func (r *Record) SaveMetaData(ctx context.Context) error {
	if r.adapter == nil || !r.meta.Loaded() {
		return nil
	}
	entries := make([]*MetaEntry, len(r.meta.All()))
	copy(entries, r.meta.All())
	for _, entry := range entries {
		switch {
		case entry.State() == MetaPendingDelete:
			if entry.ID != 0 {
				if err := r.adapter.DeleteMeta(ctx, r.self, entry.ID); err != nil {
					return err
				}
				r.AddEvent(NewMetaEvent(EventMetaDeleted, r.kind, r.id, entry))
			}
			r.meta.Remove(entry)
		case entry.ID == 0:
			id, err := r.adapter.AddMeta(ctx, r.self, entry.Key, entry.Value)
			if err != nil {
				return err
			}
			entry.ID = id
			entry.CommitChanges()
			r.AddEvent(NewMetaEvent(EventMetaAdded, r.kind, r.id, entry))
		case entry.Dirty():
			row := MetaRow{ID: entry.ID, Key: entry.Key, Value: entry.Value}
			if err := r.adapter.UpdateMeta(ctx, r.self, row); err != nil {
				return err
			}
			entry.CommitChanges()
			r.AddEvent(NewMetaEvent(EventMetaUpdated, r.kind, r.id, entry))
		}
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, r.kind, r.id)
	}
	return nil
}
