package remit

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"edi835/x12"
)

func rasConflated() *x12.Segment {
	return x12.NewSegment("RAS",
		"1", "1",
		"2", "XYZ",
		"3", "AA",
		"3-1", "BB^CC",
		"3-2", "DD",
		"3-3", "EE^FF",
		"4", "stuff",
	)
}

func TestNormalize_Repetitions(t *testing.T) {
	got := Normalize(rasConflated(), "^", ":")
	want := x12.NewSegment("RAS",
		"1", "1",
		"2", "XYZ",
		"3(0)_1", "AA",
		"3(0)_2", "BB",
		"3(1)_1", "CC",
		"3(1)_2", "DD",
		"3(1)_3", "EE",
		"3(2)_1", "FF",
		"4", "stuff",
	)
	assert.True(t, want.Equal(got), "got %s", spew.Sdump(got))
}

func TestNormalize_WellFormedUnchanged(t *testing.T) {
	seg := x12.NewSegment("SVC",
		"1", "HC",
		"1-1", "99214",
		"1-2", "25",
		"2", "500.00",
	)
	got := Normalize(seg, "^", ":")
	assert.True(t, seg.Equal(got), "got %s", got)
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize(rasConflated(), "^", ":")
	twice := Normalize(once, "^", ":")
	assert.True(t, once.Equal(twice), "got %s", twice)
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	in := rasConflated()
	before := in.Clone()
	_ = Normalize(in, "^", ":")
	assert.True(t, before.Equal(in))
}

func TestNormalize_RepetitionInTopLevelElement(t *testing.T) {
	seg := x12.NewSegment("REF", "1", "6R", "4", "A^B")
	got := Normalize(seg, "^", ":")
	want := x12.NewSegment("REF",
		"1", "6R",
		"4(0)_1", "A",
		"4(1)_1", "B",
	)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestNormalize_GapStopsGroup(t *testing.T) {
	// 3-2 is not contiguous with 3 and stays where it is
	seg := x12.NewSegment("RAS", "3", "A^B", "3-2", "X")
	got := Normalize(seg, "^", ":")
	want := x12.NewSegment("RAS",
		"3(0)_1", "A",
		"3(1)_1", "B",
		"3-2", "X",
	)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestNormalize_DegenerateSeparators(t *testing.T) {
	in := rasConflated()

	t.Run("no repetition separator", func(t *testing.T) {
		got := Normalize(in, "", ":")
		assert.True(t, in.Equal(got))
		assert.NotSame(t, in, got)
	})

	t.Run("no component separator", func(t *testing.T) {
		got := Normalize(x12.NewSegment("RAS", "3", "AA^BB"), "^", "")
		want := x12.NewSegment("RAS", "3(0)_1", "AA", "3(1)_1", "BB")
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Normalize(nil, "^", ":"))
	})
}

func TestNormalize_CompositeView(t *testing.T) {
	got := Normalize(rasConflated(), "^", ":")
	assert.Equal(t, [][]string{
		{"AA", "BB"},
		{"CC", "DD", "EE"},
		{"FF"},
	}, got.Composite(3))
}
