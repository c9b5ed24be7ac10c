// Package ref models a link to another record that may or may not have been loaded.
package ref

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Ref is either Unresolved (only the id is known) or Resolved (the value is loaded).
type Ref[T any] struct {
	id    uuid.UUID
	value *T
}

func Unresolved[T any](id uuid.UUID) Ref[T] {
	return Ref[T]{id: id}
}

func Resolved[T any](id uuid.UUID, value T) Ref[T] {
	return Ref[T]{id: id, value: &value}
}

func (r Ref[T]) ID() uuid.UUID {
	return r.id
}

func (r Ref[T]) IsResolved() bool {
	return r.value != nil
}

// Value returns the loaded value and whether there was one.
func (r Ref[T]) Value() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// Match calls exactly one of the two branches.
func Match[T, R any](r Ref[T], unresolved func(uuid.UUID) R, resolved func(T) R) R {
	if r.value == nil {
		return unresolved(r.id)
	}
	return resolved(*r.value)
}

// MarshalJSON encodes an unresolved ref as its id string and a resolved ref as the value.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return json.Marshal(r.id)
	}
	return json.Marshal(r.value)
}
