package jsonutil

import (
	"encoding/json"
	"errors"
)

// ErrNotNullable is returned when a patch sets null on a field that cannot be cleared.
var ErrNotNullable = errors.New("field cannot be null")

// Optional is a patch field that distinguishes three states:
// absent (Set=false), explicit null (Set=true, Null=true) and a value.
// Absent fields are left untouched by Apply*; null clears nullable fields.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns an Optional holding an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked when the key is present, which is what marks Set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON writes null for absent or null fields.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// ApplyRequired copies the value into dst when set.
// Returns ErrNotNullable for an explicit null. Reports whether dst changed.
func (o Optional[T]) ApplyRequired(dst *T) (bool, error) {
	if !o.Set {
		return false, nil
	}
	if o.Null {
		return false, ErrNotNullable
	}
	*dst = o.Value
	return true, nil
}

// ApplyNullable copies the value into dst when set; explicit null clears dst.
// Reports whether the field was touched.
func (o Optional[T]) ApplyNullable(dst **T) bool {
	if !o.Set {
		return false
	}
	if o.Null {
		*dst = nil
		return true
	}
	v := o.Value
	*dst = &v
	return true
}
