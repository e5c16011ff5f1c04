package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRegistry_Normalize(t *testing.T) {
	r := NewStatusRegistry()

	assert.Equal(t, StatusPending, r.Normalize("order-pending"))
	assert.Equal(t, StatusPending, r.Normalize("pending"))
	assert.Equal(t, Status("mystery"), r.Normalize("order-mystery"))
}

func TestStatusRegistry_CustomStatus(t *testing.T) {
	r := NewStatusRegistry()
	assert.False(t, r.IsRegistered(Status("backordered")))

	r.Register(Status("backordered"))

	assert.True(t, r.IsRegistered(Status("backordered")))
	assert.Contains(t, r.Statuses(), Status("backordered"))
}

func TestStatusRegistry_Exceptions(t *testing.T) {
	r := NewStatusRegistry()

	assert.True(t, r.IsException(StatusAutoDraft))
	assert.True(t, r.IsException(StatusTrash))
	assert.False(t, r.IsException(StatusPending))
	assert.False(t, r.IsRegistered(StatusAutoDraft))
}

func TestSetStatus_BeforeHydrationKeepsUnknown(t *testing.T) {
	o := NewOrder(nil, nil)

	o.SetStatus("order-mystery")

	assert.Equal(t, Status("mystery"), o.Status(), "hydration trusts stored values")
}

func TestSetStatus_AfterHydrationCoercesUnknown(t *testing.T) {
	o := NewOrder(nil, nil)
	o.MarkHydrated()

	transition := o.SetStatus("mystery")

	assert.Equal(t, StatusPending, o.Status())
	assert.Equal(t, StatusPending, transition.To)
}

func TestSetStatus_ExceptionsBypassCoercion(t *testing.T) {
	o := NewOrder(nil, nil)
	o.MarkHydrated()

	o.SetStatus(string(StatusTrash))
	assert.Equal(t, StatusTrash, o.Status())

	o.SetStatus(string(StatusAutoDraft))
	assert.Equal(t, StatusAutoDraft, o.Status())
}

func TestSetStatus_TransitionFromAutoDraftReportsPending(t *testing.T) {
	o := NewOrder(nil, nil)
	o.SetStatus(string(StatusAutoDraft))
	o.MarkHydrated()

	transition := o.SetStatus(string(StatusProcessing))

	assert.Equal(t, StatusPending, transition.From)
	assert.Equal(t, StatusProcessing, transition.To)
}

func TestSetStatus_EmitsEventOnChange(t *testing.T) {
	o := NewOrder(nil, nil)
	o.MarkHydrated()
	o.ClearEvents()

	o.SetStatus(string(StatusProcessing))

	var saw bool
	for _, e := range o.Events() {
		if e.EventType() == EventStatusChanged {
			saw = true
		}
	}
	assert.True(t, saw)

	o.ClearEvents()
	o.SetStatus(string(StatusProcessing))
	assert.Empty(t, o.Events(), "no event when status does not change")
}
