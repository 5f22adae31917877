package remit

import "fmt"

// Option is a value that may be absent. ParseState uses it for loop
// indexes and row handles which do not exist until a loop is entered.
type Option[T any] struct {
	v  T
	ok bool
}

// Some wraps present value.
func Some[T any](v T) Option[T] {
	return Option[T]{v: v, ok: true}
}

// None returns absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns value and presence flag.
func (o Option[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSome reports whether value is present.
func (o Option[T]) IsSome() bool {
	return o.ok
}

// OrElse returns value or def when absent.
func (o Option[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

func (o Option[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprint(o.v)
}
