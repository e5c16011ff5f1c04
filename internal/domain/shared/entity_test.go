package shared

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	createCalls int
	updateCalls int
	deleteCalls int
	readMeta    []MetaRow
	readMetaErr error

	nextMetaID  uint64
	addedMeta   []MetaRow
	updatedMeta []MetaRow
	deletedMeta []uint64
}

func (f *fakeAdapter) Create(ctx context.Context, e Entity) error {
	f.createCalls++
	e.SetID(101)
	return nil
}

func (f *fakeAdapter) Read(ctx context.Context, e Entity) error { return nil }

func (f *fakeAdapter) Update(ctx context.Context, e Entity) error {
	f.updateCalls++
	return nil
}

func (f *fakeAdapter) Delete(ctx context.Context, e Entity, force bool) error {
	f.deleteCalls++
	return nil
}

func (f *fakeAdapter) ReadMeta(ctx context.Context, e Entity) ([]MetaRow, error) {
	return f.readMeta, f.readMetaErr
}

func (f *fakeAdapter) AddMeta(ctx context.Context, e Entity, key string, value any) (uint64, error) {
	f.nextMetaID++
	f.addedMeta = append(f.addedMeta, MetaRow{ID: f.nextMetaID, Key: key, Value: value})
	return f.nextMetaID, nil
}

func (f *fakeAdapter) UpdateMeta(ctx context.Context, e Entity, row MetaRow) error {
	f.updatedMeta = append(f.updatedMeta, row)
	return nil
}

func (f *fakeAdapter) DeleteMeta(ctx context.Context, e Entity, metaID uint64) error {
	f.deletedMeta = append(f.deletedMeta, metaID)
	return nil
}

type fakeCache struct {
	rows        map[string][]MetaRow
	gets        int
	sets        int
	invalidates int
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: make(map[string][]MetaRow)}
}

func (f *fakeCache) cacheKey(kind string, id uint64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (f *fakeCache) Get(ctx context.Context, kind string, id uint64) ([]MetaRow, bool, error) {
	f.gets++
	rows, ok := f.rows[f.cacheKey(kind, id)]
	return rows, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, kind string, id uint64, rows []MetaRow) error {
	f.sets++
	f.rows[f.cacheKey(kind, id)] = rows
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, kind string, id uint64) error {
	f.invalidates++
	delete(f.rows, f.cacheKey(kind, id))
	return nil
}

type widget struct {
	Record
	name string
}

func newWidget(a Adapter, c MetaCache) *widget {
	w := &widget{Record: NewRecord("widget", a, c)}
	w.Bind(w)
	return w
}

func (w *widget) SetName(name string) {
	Assign(w.Changeset(), "name", &w.name, name)
}

func TestRecord_SaveCreatesOnce(t *testing.T) {
	adapter := &fakeAdapter{}
	w := newWidget(adapter, nil)
	w.SetName("sprocket")

	id, err := w.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, uint64(101), id)
	assert.Equal(t, 1, adapter.createCalls)
	assert.Zero(t, adapter.updateCalls, "a save must run create or update, never both")
	assert.True(t, w.Changeset().Empty(), "changes commit after save")
}

func TestRecord_SaveCreateMarksHydrated(t *testing.T) {
	adapter := &fakeAdapter{}
	w := newWidget(adapter, nil)
	w.SetName("sprocket")

	_, err := w.Save(context.Background())
	require.NoError(t, err)
	require.True(t, w.Hydrated(), "a created record behaves like a loaded one")

	w.SetName("flange")
	assert.Equal(t, map[string]any{"name": "flange"}, w.Changes(), "edits after the creating save are tracked")

	_, err = w.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.updateCalls)
	assert.True(t, w.Changeset().Empty())
}

func TestRecord_SaveUpdatesWhenIDSet(t *testing.T) {
	adapter := &fakeAdapter{}
	w := newWidget(adapter, nil)
	w.SetID(7)
	w.MarkHydrated()
	w.SetName("sprocket")

	_, err := w.Save(context.Background())

	require.NoError(t, err)
	assert.Zero(t, adapter.createCalls)
	assert.Equal(t, 1, adapter.updateCalls)

	var sawSaving bool
	for _, e := range w.Events() {
		if e.EventType() == EventEntitySaving {
			sawSaving = true
		}
	}
	assert.True(t, sawSaving)
}

func TestRecord_SaveWithoutAdapter(t *testing.T) {
	w := newWidget(nil, nil)
	w.SetName("sprocket")

	id, err := w.Save(context.Background())

	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestRecord_DeleteResetsID(t *testing.T) {
	adapter := &fakeAdapter{}
	w := newWidget(adapter, nil)
	w.SetID(7)

	ok, err := w.DeleteEntity(context.Background(), true)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, w.GetID())
	assert.Equal(t, 1, adapter.deleteCalls)
}

func TestRecord_DeleteWithoutAdapter(t *testing.T) {
	w := newWidget(nil, nil)
	w.SetID(7)

	ok, err := w.DeleteEntity(context.Background(), true)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(7), w.GetID())
}

func TestRecord_ReservedMetaRedirects(t *testing.T) {
	w := newWidget(&fakeAdapter{}, nil)
	w.RegisterReservedMeta("name", func(v any) error {
		w.SetName(v.(string))
		return nil
	})

	require.NoError(t, w.AddMetaData(context.Background(), "name", "sprocket"))

	assert.Equal(t, "sprocket", w.name)
	entries, err := w.GetMetaData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "reserved keys never land in the meta bag")
}

func TestRecord_RegisterReservedMetaPanics(t *testing.T) {
	w := newWidget(nil, nil)
	assert.Panics(t, func() { w.RegisterReservedMeta("name", nil) })

	w.RegisterReservedMeta("name", func(any) error { return nil })
	assert.Panics(t, func() { w.RegisterReservedMeta("name", func(any) error { return nil }) })
}

func TestRecord_ReadMetaDataUsesCache(t *testing.T) {
	adapter := &fakeAdapter{readMeta: []MetaRow{{ID: 1, Key: "from", Value: "adapter"}}}
	cache := newFakeCache()
	cache.rows[cache.cacheKey("widget", 7)] = []MetaRow{{ID: 1, Key: "from", Value: "cache"}}

	w := newWidget(adapter, cache)
	w.SetID(7)

	value, ok, err := w.GetMeta(context.Background(), "from")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cache", value)
}

func TestRecord_ReadMetaDataForceBypassesCache(t *testing.T) {
	adapter := &fakeAdapter{readMeta: []MetaRow{{ID: 1, Key: "from", Value: "adapter"}}}
	cache := newFakeCache()
	cache.rows[cache.cacheKey("widget", 7)] = []MetaRow{{ID: 1, Key: "from", Value: "cache"}}

	w := newWidget(adapter, cache)
	w.SetID(7)
	require.NoError(t, w.ReadMetaData(context.Background(), true))

	value, ok, err := w.GetMeta(context.Background(), "from")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "adapter", value)
}

func TestRecord_ReadMetaDataNilRowsCountsAsLoaded(t *testing.T) {
	adapter := &fakeAdapter{readMeta: nil}
	w := newWidget(adapter, nil)
	w.SetID(7)

	entries, err := w.GetMetaData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_SaveMetaDataFlushesOverlay(t *testing.T) {
	adapter := &fakeAdapter{readMeta: []MetaRow{
		{ID: 1, Key: "color", Value: "red"},
		{ID: 2, Key: "size", Value: "large"},
	}}
	cache := newFakeCache()
	w := newWidget(adapter, cache)
	w.SetID(7)
	w.MarkHydrated()
	ctx := context.Background()

	require.NoError(t, w.UpdateMetaData(ctx, 0, "color", "blue")) // update
	require.NoError(t, w.AddMetaData(ctx, "weight", "2kg"))      // insert
	require.NoError(t, w.DeleteMetaData(ctx, "size"))            // tombstone

	_, err := w.Save(ctx)
	require.NoError(t, err)

	require.Len(t, adapter.updatedMeta, 1)
	assert.Equal(t, "blue", adapter.updatedMeta[0].Value)
	require.Len(t, adapter.addedMeta, 1)
	assert.Equal(t, "weight", adapter.addedMeta[0].Key)
	assert.Equal(t, []uint64{2}, adapter.deletedMeta)
	assert.Equal(t, 1, cache.invalidates, "save invalidates rather than rewrites the cache")

	// The tombstoned entry is gone from the in-memory set too.
	_, ok, err := w.GetMeta(ctx, "size")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_SaveMetaDataSkipsCleanEntries(t *testing.T) {
	adapter := &fakeAdapter{readMeta: []MetaRow{{ID: 1, Key: "color", Value: "red"}}}
	w := newWidget(adapter, nil)
	w.SetID(7)
	w.MarkHydrated()
	ctx := context.Background()

	_, err := w.GetMetaData(ctx)
	require.NoError(t, err)
	_, err = w.Save(ctx)
	require.NoError(t, err)

	assert.Empty(t, adapter.updatedMeta)
	assert.Empty(t, adapter.addedMeta)
	assert.Empty(t, adapter.deletedMeta)
}

func TestRecord_MetaFilter(t *testing.T) {
	adapter := &fakeAdapter{readMeta: []MetaRow{
		{ID: 1, Key: "_internal", Value: "hidden"},
		{ID: 2, Key: "color", Value: "red"},
	}}
	w := newWidget(adapter, nil)
	w.SetID(7)
	w.SetMetaFilter(func(entries []*MetaEntry) []*MetaEntry {
		visible := make([]*MetaEntry, 0, len(entries))
		for _, e := range entries {
			if e.Key[0] != '_' {
				visible = append(visible, e)
			}
		}
		return visible
	})

	entries, err := w.GetMetaData(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "color", entries[0].Key)
}
