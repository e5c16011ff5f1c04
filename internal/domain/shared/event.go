package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uint64
	AggregateKind() string
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uint64    `json:"aggregate_id"`
	AggKind   string    `json:"aggregate_kind"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the id of the entity that produced this event
func (e *BaseDomainEvent) AggregateID() uint64 {
	return e.AggID
}

// AggregateKind returns the kind of the entity that produced this event
func (e *BaseDomainEvent) AggregateKind() string {
	return e.AggKind
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggKind string, aggID uint64) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		AggID:     aggID,
		AggKind:   aggKind,
	}
}

// Meta lifecycle events emitted while saving an entity's meta data.
const (
	EventMetaAdded   = "meta.added"
	EventMetaUpdated = "meta.updated"
	EventMetaDeleted = "meta.deleted"
)

// MetaEvent is emitted when a meta entry is added, updated or deleted
// during SaveMetaData.
type MetaEvent struct {
	BaseDomainEvent
	Key    string `json:"key"`
	MetaID uint64 `json:"meta_id"`
}

// NewMetaEvent creates a meta lifecycle event for the given entry
func NewMetaEvent(eventType, aggKind string, aggID uint64, entry *MetaEntry) *MetaEvent {
	return &MetaEvent{
		BaseDomainEvent: NewBaseDomainEvent(eventType, aggKind, aggID),
		Key:             entry.Key,
		MetaID:          entry.ID,
	}
}
