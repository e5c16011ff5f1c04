package order

import "strings"

// Status represents the status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusOnHold     Status = "on-hold"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"

	// Draft and trash pass through status coercion untouched but are not
	// registered statuses.
	StatusAutoDraft Status = "auto-draft"
	StatusTrash     Status = "trash"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// StatusPrefix is the storage-layer prefix stripped from incoming status
// values.
const StatusPrefix = "order-"

// StatusRegistry holds the set of valid order statuses. Hosts can register
// custom statuses; coercion in SetStatus consults this set.
type StatusRegistry struct {
	statuses map[Status]struct{}
	order    []Status
}

// NewStatusRegistry returns a registry seeded with the built-in statuses.
func NewStatusRegistry() *StatusRegistry {
	r := &StatusRegistry{statuses: make(map[Status]struct{})}
	for _, s := range []Status{
		StatusPending, StatusProcessing, StatusOnHold,
		StatusCompleted, StatusCancelled, StatusRefunded, StatusFailed,
	} {
		r.Register(s)
	}
	return r
}

// Register adds a status to the registry.
func (r *StatusRegistry) Register(s Status) {
	if _, ok := r.statuses[s]; ok {
		return
	}
	r.statuses[s] = struct{}{}
	r.order = append(r.order, s)
}

// IsRegistered reports whether the status is a registered order status.
func (r *StatusRegistry) IsRegistered(s Status) bool {
	_, ok := r.statuses[s]
	return ok
}

// IsException reports whether the status bypasses coercion without being a
// registered status.
func (r *StatusRegistry) IsException(s Status) bool {
	return s == StatusAutoDraft || s == StatusTrash
}

// Statuses returns the registered statuses in registration order.
func (r *StatusRegistry) Statuses() []Status {
	out := make([]Status, len(r.order))
	copy(out, r.order)
	return out
}

// Normalize strips the storage prefix from a raw status value.
func (r *StatusRegistry) Normalize(raw string) Status {
	return Status(strings.TrimPrefix(raw, StatusPrefix))
}

// StatusTransition records a status change, enabling callers to fire
// transition-specific side effects.
type StatusTransition struct {
	From Status
	To   Status
}
