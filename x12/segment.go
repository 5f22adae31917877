// Package x12 holds the segment model shared by the tokenizer, the loop
// dispatcher and the sinks.
package x12

import (
	"fmt"
	"slices"
	"strings"
)

// Field is a single element path with its value.
type Field struct {
	Path  Path
	Value string
}

// Segment is one record of an X12 transaction. Fields are kept ordered by
// Path.Compare, so iteration order never depends on map ordering.
type Segment struct {
	Name   string
	Fields []Field
}

// NewSegment creates segment from alternating "path", "value" pairs. It is
// mostly useful for literals in tests and panics on malformed paths.
func NewSegment(name string, pairs ...string) *Segment {
	if len(pairs)%2 != 0 {
		panic("odd number of path/value arguments")
	}
	s := &Segment{Name: name}
	for i := 0; i < len(pairs); i += 2 {
		s.Set(MustPath(pairs[i]), pairs[i+1])
	}
	return s
}

func (s *Segment) find(p Path) (int, bool) {
	return slices.BinarySearchFunc(s.Fields, p, func(f Field, p Path) int {
		return f.Path.Compare(p)
	})
}

// Get returns value at path and whether it is present.
func (s *Segment) Get(p Path) (string, bool) {
	if s == nil {
		return "", false
	}
	if i, ok := s.find(p); ok {
		return s.Fields[i].Value, true
	}
	return "", false
}

// Value returns value of top-level element i or empty string.
func (s *Segment) Value(i int) string {
	v, _ := s.Get(Elem(i))
	return v
}

// Has reports whether path is present.
func (s *Segment) Has(p Path) bool {
	_, ok := s.Get(p)
	return ok
}

// Set stores value at path keeping fields ordered.
func (s *Segment) Set(p Path, v string) {
	i, ok := s.find(p)
	if ok {
		s.Fields[i].Value = v
		return
	}
	s.Fields = slices.Insert(s.Fields, i, Field{Path: p, Value: v})
}

// Delete removes path if present.
func (s *Segment) Delete(p Path) {
	if i, ok := s.find(p); ok {
		s.Fields = slices.Delete(s.Fields, i, i+1)
	}
}

// Len returns number of fields.
func (s *Segment) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Fields)
}

// Clone returns deep copy of the segment.
func (s *Segment) Clone() *Segment {
	if s == nil {
		return nil
	}
	return &Segment{Name: s.Name, Fields: slices.Clone(s.Fields)}
}

// Equal reports whether both segments have the same name and fields.
func (s *Segment) Equal(o *Segment) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Name == o.Name && slices.Equal(s.Fields, o.Fields)
}

// Elements returns distinct top-level element indexes present in the
// segment, in ascending order.
func (s *Segment) Elements() []int {
	var out []int
	for _, f := range s.Fields {
		if n := len(out); n == 0 || out[n-1] != f.Path.Element {
			out = append(out, f.Path.Element)
		}
	}
	return out
}

// Composite returns the composite element i as a list of repetitions, each
// a list of components. It understands both tokenizer form (i, i-1, ...)
// and decomposed form (i(k)_m). Missing components inside a repetition are
// returned as empty strings. Returns nil when element is absent.
func (s *Segment) Composite(i int) [][]string {
	var out [][]string
	for _, f := range s.Fields {
		if f.Path.Element != i {
			continue
		}
		switch f.Path.Kind {
		case PathElement:
			out = append(out, []string{f.Value})
		case PathComponent:
			if len(out) == 0 {
				out = append(out, []string{""})
			}
			out[0] = place(out[0], f.Path.Component, f.Value)
		case PathRepeated:
			for len(out) <= f.Path.Repetition {
				out = append(out, nil)
			}
			out[f.Path.Repetition] = place(out[f.Path.Repetition], f.Path.Component-1, f.Value)
		}
	}
	return out
}

// place puts v at 0-based position pos, growing the slice as necessary.
func place(dst []string, pos int, v string) []string {
	for len(dst) <= pos {
		dst = append(dst, "")
	}
	dst[pos] = v
	return dst
}

// String returns segment in "NAME*path=value*..." form used by logs and
// test failure messages.
func (s *Segment) String() string {
	if s == nil {
		return "<nil segment>"
	}
	var b strings.Builder
	b.WriteString(s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "*%s=%s", f.Path, f.Value)
	}
	return b.String()
}
