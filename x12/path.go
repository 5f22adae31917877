package x12

import (
	"fmt"
	"strconv"
	"strings"
)

// PathKind tells which of the three textual element path forms a Path has.
type PathKind int

const (
	// PathElement is a plain top-level element, "3".
	PathElement PathKind = iota
	// PathComponent is a composite sub-element as produced by the tokenizer, "3-1".
	PathComponent
	// PathRepeated is a component of a repeated composite occurrence, "3(0)_1".
	PathRepeated
)

// Path addresses a single value inside a segment.
//
// Component numbering differs between forms: for PathComponent the first
// component lives at the plain element path and Component counts the ones
// after it, for PathRepeated Component is the 1-based position inside the
// repetition.
type Path struct {
	Kind       PathKind
	Element    int
	Repetition int
	Component  int
}

// Elem returns path of the top-level element i.
func Elem(i int) Path {
	return Path{Kind: PathElement, Element: i}
}

// Comp returns composite sub-path i-j.
func Comp(i, j int) Path {
	return Path{Kind: PathComponent, Element: i, Component: j}
}

// Rep returns path of component m of repetition k of element i.
func Rep(i, k, m int) Path {
	return Path{Kind: PathRepeated, Element: i, Repetition: k, Component: m}
}

func (p Path) String() string {
	switch p.Kind {
	case PathComponent:
		return fmt.Sprintf("%d-%d", p.Element, p.Component)
	case PathRepeated:
		return fmt.Sprintf("%d(%d)_%d", p.Element, p.Repetition, p.Component)
	default:
		return strconv.Itoa(p.Element)
	}
}

// Compare defines total order on paths: by element first, then plain
// element, composite sub-paths and repeated occurrences in that order.
func (p Path) Compare(o Path) int {
	switch {
	case p.Element != o.Element:
		return cmpInt(p.Element, o.Element)
	case p.Kind != o.Kind:
		return cmpInt(int(p.Kind), int(o.Kind))
	case p.Repetition != o.Repetition:
		return cmpInt(p.Repetition, o.Repetition)
	default:
		return cmpInt(p.Component, o.Component)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ParsePath parses any of "i", "i-j" or "i(k)_m".
func ParsePath(s string) (Path, error) {
	if open := strings.IndexByte(s, '('); open >= 0 {
		rest, ok := strings.CutPrefix(s[open:], "(")
		if !ok {
			return Path{}, fmt.Errorf("malformed element path %q", s)
		}
		rep, comp, ok := strings.Cut(rest, ")_")
		if !ok {
			return Path{}, fmt.Errorf("malformed element path %q", s)
		}
		i, err := parseIndex(s[:open], 1)
		if err != nil {
			return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
		}
		k, err := parseIndex(rep, 0)
		if err != nil {
			return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
		}
		m, err := parseIndex(comp, 1)
		if err != nil {
			return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
		}
		return Rep(i, k, m), nil
	}
	if elem, sub, ok := strings.Cut(s, "-"); ok {
		i, err := parseIndex(elem, 1)
		if err != nil {
			return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
		}
		j, err := parseIndex(sub, 1)
		if err != nil {
			return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
		}
		return Comp(i, j), nil
	}
	i, err := parseIndex(s, 1)
	if err != nil {
		return Path{}, fmt.Errorf("malformed element path %q: %w", s, err)
	}
	return Elem(i), nil
}

// MustPath is ParsePath for literals known to be valid.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseIndex(s string, min int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < min {
		return 0, fmt.Errorf("index %d is below %d", n, min)
	}
	return n, nil
}
