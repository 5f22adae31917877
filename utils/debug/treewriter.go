// Package debug has helpers for human readable dumps of parsed structures.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

// TreeWriter accumulates indented text tree, one node per line.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

// Line writes formatted node at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value" leaf at depth. Values which do not read well
// unquoted are quoted.
func (tw *TreeWriter) Field(depth int, label, value string) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeValue(value))
	tw.w.WriteByte('\n')
}

func encodeValue(raw string) string {
	if raw == "" {
		return `""`
	}
	for _, r := range raw {
		if !strconv.IsPrint(r) || r == ' ' || r == '"' || r == '\\' {
			return strconv.Quote(raw)
		}
	}
	return raw
}
