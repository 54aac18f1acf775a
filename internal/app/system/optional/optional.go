// Package optional provides a tri-state wrapper for partially updated fields.
//
// A Field is Unset (leave the stored value alone), Clear (remove the stored
// value) or Set (replace it). Decoded from JSON, an absent key is Unset, an
// explicit null is Clear and any other value is Set. Empty strings are Set
// values, not clears.
package optional

import (
	"bytes"
	"encoding/json"
)

type state uint8

const (
	unset state = iota
	cleared
	set
)

// Field holds one patch value.
type Field[T any] struct {
	state state
	value T
}

// Unset returns a Field that leaves the stored value unchanged.
func Unset[T any]() Field[T] { return Field[T]{} }

// Clear returns a Field that removes the stored value.
func Clear[T any]() Field[T] { return Field[T]{state: cleared} }

// Set returns a Field that replaces the stored value with v.
func Set[T any](v T) Field[T] { return Field[T]{state: set, value: v} }

func (f Field[T]) IsUnset() bool { return f.state == unset }
func (f Field[T]) IsClear() bool { return f.state == cleared }
func (f Field[T]) IsSet() bool   { return f.state == set }

// Changed reports whether the field asks for any mutation.
func (f Field[T]) Changed() bool { return f.state != unset }

// Value returns the value and true when the field is Set.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == set
}

// UnmarshalJSON decodes null as Clear and anything else as Set. encoding/json
// never calls it for absent keys, which therefore stay Unset.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}
