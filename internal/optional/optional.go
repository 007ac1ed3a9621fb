// Package optional decodes the actor's optional encoding, a sequence holding zero or one
// element, into a proper present-or-absent value at the transport boundary.
package optional

import (
	"errors"
	"fmt"
)

// ErrAmbiguous is returned when an optional-encoded sequence holds more than one element.
var ErrAmbiguous = errors.New("ambiguous optional")

// Value is either Some(v) or None.
type Value[T any] struct {
	v  T
	ok bool
}

func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

func None[T any]() Value[T] {
	return Value[T]{}
}

// Unwrap decodes a zero- or one-element sequence.
func Unwrap[T any](seq []T) (Value[T], error) {
	switch len(seq) {
	case 0:
		return None[T](), nil
	case 1:
		return Some(seq[0]), nil
	default:
		return None[T](), fmt.Errorf("%w: %d elements", ErrAmbiguous, len(seq))
	}
}

// Encode turns v back into the wire encoding for outbound arguments.
func Encode[T any](v Value[T]) []T {
	if !v.ok {
		return []T{}
	}
	return []T{v.v}
}

// FromPtr maps nil to None.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// FromString maps the empty string to None. Query parameters and env values use it.
func FromString(s string) Value[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

func (o Value[T]) IsPresent() bool {
	return o.ok
}

// OrZero returns the contained value or T's zero value.
func (o Value[T]) OrZero() T {
	return o.v
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (o Value[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

func (o Value[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.v)
}
