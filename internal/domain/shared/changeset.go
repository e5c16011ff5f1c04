package shared

import "github.com/shopspring/decimal"

// Changeset tracks which fields of an entity were modified after it was
// hydrated from storage. Writes that happen before hydration (defaults,
// row scanning) go straight to the entity fields without being recorded,
// so the change set only ever reflects genuine edits.
type Changeset struct {
	hydrated bool
	changed  map[string]any
}

// NewChangeset returns an empty, not-yet-hydrated changeset.
func NewChangeset() Changeset {
	return Changeset{changed: make(map[string]any)}
}

// MarkHydrated flags the owning entity as loaded from storage. Subsequent
// assignments through Assign are recorded as changes.
func (c *Changeset) MarkHydrated() {
	c.hydrated = true
}

// Hydrated reports whether the owning entity has been loaded from storage.
func (c *Changeset) Hydrated() bool {
	return c.hydrated
}

// Changed reports whether the given field has a pending change.
func (c *Changeset) Changed(field string) bool {
	_, ok := c.changed[field]
	return ok
}

// Changes returns a copy of the pending field changes.
func (c *Changeset) Changes() map[string]any {
	out := make(map[string]any, len(c.changed))
	for k, v := range c.changed {
		out[k] = v
	}
	return out
}

// Empty reports whether there are no pending changes.
func (c *Changeset) Empty() bool {
	return len(c.changed) == 0
}

// Commit clears the pending changes. Call only after the changes were
// successfully persisted; the entity fields already carry the new values.
func (c *Changeset) Commit() {
	c.changed = make(map[string]any)
}

func (c *Changeset) record(field string, value any) {
	if c.changed == nil {
		c.changed = make(map[string]any)
	}
	c.changed[field] = value
}

// Assign writes value into dst. When the entity is hydrated and the value
// differs from the current one (or the field already has a pending change,
// keeping re-sets idempotent), the field is recorded in the changeset.
func Assign[T comparable](c *Changeset, field string, dst *T, value T) {
	if c.hydrated && (value != *dst || c.Changed(field)) {
		c.record(field, value)
	}
	*dst = value
}

// AssignFunc is Assign for types without a usable == (slices, structs with
// pointers). equal reports whether two values are the same.
func AssignFunc[T any](c *Changeset, field string, dst *T, value T, equal func(a, b T) bool) {
	if c.hydrated && (!equal(value, *dst) || c.Changed(field)) {
		c.record(field, value)
	}
	*dst = value
}

// AssignDecimal is Assign for decimal.Decimal, which must be compared with
// Equal rather than ==.
func AssignDecimal(c *Changeset, field string, dst *decimal.Decimal, value decimal.Decimal) {
	AssignFunc(c, field, dst, value, decimal.Decimal.Equal)
}
