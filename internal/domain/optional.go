package domain

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "leave unchanged" (Set == false) from "set to this
// value", including the zero value. A JSON key that is absent leaves Set false;
// an explicit null sets the zero value.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Clear returns a set Optional holding the zero value.
func Clear[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// ApplyTo overwrites *dst when the value is set.
func (o Optional[T]) ApplyTo(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
