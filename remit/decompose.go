package remit

import (
	"slices"
	"strings"

	"edi835/x12"
)

// Composite describes composite data element position in a segment.
type Composite struct {
	Element int
	ID      string
}

// CompositeElements lists 835 segments which carry composite elements that
// may repeat. The dispatcher normalizes only these, sinks use the same
// table to break composites into sub-rows.
var CompositeElements = map[string][]Composite{
	"CLP": {{Element: 11, ID: "C022"}},
	"K3":  {{Element: 3, ID: "C001"}},
	"QTY": {{Element: 3, ID: "C001"}},
	"RAS": {{Element: 3, ID: "C058"}},
	"RDM": {{Element: 4, ID: "C040"}, {Element: 5, ID: "C040"}},
	"REF": {{Element: 4, ID: "C040"}},
	"SVC": {{Element: 1, ID: "C003"}, {Element: 6, ID: "C003"}},
}

// Normalize repairs elements the tokenizer conflated. A tokenizer which
// splits composites eagerly turns "AA:BB^CC:DD" into 3="AA", 3-1="BB^CC",
// 3-2="DD" and loses repetition boundaries. For every top-level element
// Normalize rebuilds the original text from the element and its contiguous
// sub-paths, and when repetition separator is found there replaces the
// group with i(k)_m paths: repetition k from 0, component m from 1.
//
// The input is never modified. Normalizing an already normalized segment
// changes nothing since decomposed elements no longer have a top-level
// path. Degenerate separators never fail: without repetition separator the
// segment is returned as is, without component separator each repetition is
// a single component.
func Normalize(seg *x12.Segment, repetition, component string) *x12.Segment {
	out := seg.Clone()
	if out == nil || len(repetition) == 0 {
		return out
	}

	for _, i := range seg.Elements() {
		v, ok := seg.Get(x12.Elem(i))
		if !ok {
			continue
		}
		parts := []string{v}
		for j := 1; ; j++ {
			c, ok := seg.Get(x12.Comp(i, j))
			if !ok {
				break
			}
			parts = append(parts, c)
		}
		if !slices.ContainsFunc(parts, func(p string) bool { return strings.Contains(p, repetition) }) {
			continue
		}

		out.Delete(x12.Elem(i))
		for j := 1; j < len(parts); j++ {
			out.Delete(x12.Comp(i, j))
		}

		literal := strings.Join(parts, component)
		for k, instance := range strings.Split(literal, repetition) {
			comps := []string{instance}
			if len(component) > 0 {
				comps = strings.Split(instance, component)
			}
			for m, c := range comps {
				out.Set(x12.Rep(i, k, m+1), c)
			}
		}
	}
	return out
}
