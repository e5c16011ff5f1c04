package shared

import (
	"fmt"
	"net/http"
	"strings"
)

// DomainError represents a domain-level error with a machine-readable code,
// a human message, an HTTP status hint and optional structured context data.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// WithStatus sets the HTTP status hint and returns the error for chaining
func (e *DomainError) WithStatus(status int) *DomainError {
	e.Status = status
	return e
}

// WithData attaches a context value and returns the error for chaining
func (e *DomainError) WithData(key string, value any) *DomainError {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found").WithStatus(http.StatusNotFound)
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process").WithStatus(http.StatusConflict)
)

// ValidationErrors collects per-property validation failures from a batch
// setter. The batch keeps applying the remaining properties, so the caller
// receives every failure at once instead of only the first.
type ValidationErrors struct {
	Errors []*DomainError
}

// Add records a failure for the given property. Plain errors are wrapped
// into a DomainError so every entry carries the property name.
func (v *ValidationErrors) Add(property string, err error) {
	var de *DomainError
	if d, ok := err.(*DomainError); ok {
		de = &DomainError{Code: d.Code, Message: d.Message, Status: d.Status, Data: d.Data}
	} else {
		de = NewDomainError("INVALID_VALUE", err.Error())
	}
	de = de.WithData("property", property)
	v.Errors = append(v.Errors, de)
}

// Empty reports whether no failures were recorded.
func (v *ValidationErrors) Empty() bool {
	return len(v.Errors) == 0
}

// ErrOrNil returns the aggregate as an error, or nil when empty.
func (v *ValidationErrors) ErrOrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		prop, _ := e.Data["property"].(string)
		msgs[i] = fmt.Sprintf("%s: %s", prop, e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
