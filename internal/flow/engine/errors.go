package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrIncomplete = errors.New("incomplete")
	ErrIntegrity  = errors.New("integrity violation")
)

// ErrFormNotInGraph is matched by the NotFoundError a graph query returns
// for an unknown focal form.
var ErrFormNotInGraph = errors.New("form not found in dependency graph")

const kindGraphForm = "graph form"

// NotFoundError reports an unresolved project, form, template or task id.
type NotFoundError struct {
	Kind    string
	ID      string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		if e.ID != "" {
			return fmt.Sprintf("%s: %s", e.Message, e.ID)
		}
		return e.Message
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || (target == ErrFormNotInGraph && e.Kind == kindGraphForm)
}

// NotFound builds a NotFoundError for the given entity kind and id.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError reports a malformed input, naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IncompleteError lists every instance that failed a completion gate.
// Reasons is keyed by instance id.
type IncompleteError struct {
	InstanceIDs []string
	Reasons     map[string][]string
}

func (e *IncompleteError) Error() string {
	parts := make([]string, 0, len(e.InstanceIDs))
	for _, id := range e.InstanceIDs {
		if rs := e.Reasons[id]; len(rs) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%s)", id, strings.Join(rs, "; ")))
		} else {
			parts = append(parts, id)
		}
	}
	return "incomplete forms: " + strings.Join(parts, ", ")
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }

func (e *IncompleteError) add(id, reason string) {
	if e.Reasons == nil {
		e.Reasons = make(map[string][]string)
	}
	if _, seen := e.Reasons[id]; !seen {
		e.InstanceIDs = append(e.InstanceIDs, id)
	}
	e.Reasons[id] = append(e.Reasons[id], reason)
}

// IntegrityError reports corrupt requirement data: a dependency cycle, or a
// dependency on a template that has no instance in the project when the
// graph is built strictly.
type IntegrityError struct {
	Message string
	FormIDs []string
}

func (e *IntegrityError) Error() string {
	if len(e.FormIDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.FormIDs, " -> "))
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
