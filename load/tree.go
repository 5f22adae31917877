package load

import (
	"context"
	"fmt"

	"edi835/remit"
	"edi835/utils/debug"
	"edi835/x12"
)

type treeNode struct {
	label    string
	segment  string
	fields   []x12.Field
	children []*treeNode
}

// treeSink is in-memory remit.Sink reconstructing loop tree for display.
type treeSink struct {
	roots []*treeNode
	nodes []*treeNode
}

func newTreeSink() *treeSink {
	return &treeSink{}
}

func (t *treeSink) add(parent remit.Handle, hasParent bool, n *treeNode) (remit.Handle, error) {
	if hasParent {
		if parent < 1 || int(parent) > len(t.nodes) {
			return 0, fmt.Errorf("unknown parent handle %d", parent)
		}
		p := t.nodes[parent-1]
		p.children = append(p.children, n)
	} else {
		t.roots = append(t.roots, n)
	}
	t.nodes = append(t.nodes, n)
	return remit.Handle(len(t.nodes)), nil
}

func (t *treeSink) OpenLoop(_ context.Context, kind remit.Level, parent remit.Option[remit.Handle], ordinal int) (remit.Handle, error) {
	h, ok := parent.Get()
	label := fmt.Sprintf("%s #%d", kind, ordinal)
	if kind == remit.LevelHeader {
		label = fmt.Sprintf("transaction #%d", len(t.roots)+1)
	}
	return t.add(h, ok, &treeNode{label: label})
}

func (t *treeSink) WriteAttributes(_ context.Context, name string, parent remit.Parent, ordinal int, fields *x12.Segment) (remit.Handle, error) {
	n := &treeNode{label: fmt.Sprintf("%s [%d]", name, ordinal), segment: name, fields: fields.Fields}
	return t.add(parent.Handle, true, n)
}

// Transaction drops everything written by failed fn. All rows of a
// transaction hang off the header created inside it, so truncating is
// enough.
func (t *treeSink) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	roots, nodes := len(t.roots), len(t.nodes)
	if err := fn(ctx); err != nil {
		t.roots, t.nodes = t.roots[:roots], t.nodes[:nodes]
		return err
	}
	return nil
}

func (t *treeSink) String() string {
	tw := debug.NewTreeWriter()
	var walk func(depth int, n *treeNode)
	walk = func(depth int, n *treeNode) {
		tw.Line(depth, "%s", n.label)
		for _, f := range n.fields {
			tw.Field(depth+1, fieldLabel(n.segment, f.Path), f.Value)
		}
		for _, c := range n.children {
			walk(depth+1, c)
		}
	}
	for _, r := range t.roots {
		walk(0, r)
	}
	return tw.String()
}

// fieldLabel names value the usual X12 way: CLP01, SVC01-1, RAS03(1)_2.
func fieldLabel(segment string, p x12.Path) string {
	switch p.Kind {
	case x12.PathComponent:
		return fmt.Sprintf("%s%02d-%d", segment, p.Element, p.Component)
	case x12.PathRepeated:
		return fmt.Sprintf("%s%02d(%d)_%d", segment, p.Element, p.Repetition, p.Component)
	default:
		return fmt.Sprintf("%s%02d", segment, p.Element)
	}
}

var _ transactor = (*treeSink)(nil)
