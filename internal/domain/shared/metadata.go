package shared

import "reflect"

// MetaState is the lifecycle state of a meta entry. An entry scheduled for
// deletion stays in the set until SaveMetaData runs, so the pending delete
// can be replayed against the adapter.
type MetaState int

const (
	// MetaActive marks an entry that is visible and will be persisted.
	MetaActive MetaState = iota
	// MetaPendingDelete marks an entry that is hidden from reads and will
	// be deleted from storage on the next save.
	MetaPendingDelete
)

// MetaEntry is a single key/value extension record attached to an entity.
// It carries its own change tracking: persisted holds the value as of the
// last load or save and decides whether an update needs to be written.
type MetaEntry struct {
	ID    uint64
	Key   string
	Value any

	state     MetaState
	persisted any
}

// State returns the lifecycle state of the entry.
func (m *MetaEntry) State() MetaState {
	return m.state
}

// Dirty reports whether the in-memory value differs from the persisted one.
func (m *MetaEntry) Dirty() bool {
	return !reflect.DeepEqual(m.Value, m.persisted)
}

// CommitChanges records the current value as persisted. Called after the
// adapter accepted the entry.
func (m *MetaEntry) CommitChanges() {
	m.persisted = m.Value
}

func (m *MetaEntry) markDeleted() {
	m.state = MetaPendingDelete
}

// MetaSet is the in-memory collection of meta entries owned by one entity.
// It is populated lazily; Loaded distinguishes "never read" from "read and
// empty". Entries pending deletion are retained internally but filtered out
// of every read path.
type MetaSet struct {
	entries []*MetaEntry
	loaded  bool
}

// Loaded reports whether the set was hydrated from storage.
func (s *MetaSet) Loaded() bool {
	return s.loaded
}

// Reset drops all entries and the loaded flag, forcing the next read to hit
// the adapter again.
func (s *MetaSet) Reset() {
	s.entries = nil
	s.loaded = false
}

// Hydrate replaces the set's contents with rows read from storage and marks
// the set loaded. Each entry starts clean.
func (s *MetaSet) Hydrate(rows []MetaRow) {
	s.entries = make([]*MetaEntry, 0, len(rows))
	for _, row := range rows {
		s.entries = append(s.entries, &MetaEntry{
			ID:        row.ID,
			Key:       row.Key,
			Value:     row.Value,
			persisted: row.Value,
		})
	}
	s.loaded = true
}

// MarkLoaded flags the set as hydrated without adding entries. Used when the
// adapter returned nothing usable.
func (s *MetaSet) MarkLoaded() {
	s.loaded = true
}

// Visible returns the active entries in insertion order.
func (s *MetaSet) Visible() []*MetaEntry {
	out := make([]*MetaEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.state == MetaActive {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry including ones pending deletion. Save paths use
// this; reads should use Visible.
func (s *MetaSet) All() []*MetaEntry {
	return s.entries
}

// Get returns the first active entry for key, by insertion order.
func (s *MetaSet) Get(key string) (*MetaEntry, bool) {
	for _, e := range s.entries {
		if e.state == MetaActive && e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// GetByID returns the active entry with the given persisted meta id.
func (s *MetaSet) GetByID(id uint64) (*MetaEntry, bool) {
	for _, e := range s.entries {
		if e.state == MetaActive && e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Add appends a new entry for key. Duplicate keys are allowed; Get resolves
// ties by lowest insertion index.
func (s *MetaSet) Add(key string, value any) *MetaEntry {
	entry := &MetaEntry{Key: key, Value: value}
	s.entries = append(s.entries, entry)
	return entry
}

// Update locates an entry by explicit meta id when metaID is non-zero, else
// by first matching key, and sets its value. A nil value schedules the entry
// for deletion instead. When no entry matches, a new one is appended (unless
// the value is nil, which is a no-op).
func (s *MetaSet) Update(metaID uint64, key string, value any) *MetaEntry {
	var entry *MetaEntry
	var ok bool
	if metaID != 0 {
		entry, ok = s.GetByID(metaID)
	} else {
		entry, ok = s.Get(key)
	}
	if !ok {
		if value == nil {
			return nil
		}
		return s.Add(key, value)
	}
	if value == nil {
		entry.markDeleted()
		return entry
	}
	entry.Key = key
	entry.Value = value
	return entry
}

// Delete schedules every active entry with the given key for deletion.
// Entries that were never persisted are dropped outright.
func (s *MetaSet) Delete(key string) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.state == MetaActive && e.Key == key {
			if e.ID == 0 {
				continue
			}
			e.markDeleted()
		}
		kept = append(kept, e)
	}
	s.entries = kept
}

// DeleteByID schedules the entry with the given persisted id for deletion.
// Returns false when no active entry matches.
func (s *MetaSet) DeleteByID(id uint64) bool {
	entry, ok := s.GetByID(id)
	if !ok {
		return false
	}
	entry.markDeleted()
	return true
}

// Remove drops the entry from the set entirely. Called after the adapter
// confirmed a delete.
func (s *MetaSet) Remove(entry *MetaEntry) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e != entry {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}
