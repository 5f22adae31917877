package remit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct {
	level Level
	index Option[int]
}

func walk(t *testing.T, names ...string) []position {
	t.Helper()
	s := NewState()
	out := make([]position, 0, len(names))
	for _, name := range names {
		if c, ok := Transition(s, name).(Changed); ok {
			s = c.State
		}
		out = append(out, position{s.Level(), s.Index(s.Level())})
	}
	return out
}

func TestTransition_LoopWalk(t *testing.T) {
	got := walk(t, "ST", "BPR", "N1", "N1", "LX", "CLP", "CLP", "SVC", "SVC", "N1", "PLB", "SE")
	want := []position{
		{LevelHeader, None[int]()},
		{LevelHeader, None[int]()},
		{Level1000, Some(0)},
		{Level1000, Some(1)},
		{Level2000, Some(0)},
		{Level2100, Some(0)},
		{Level2100, Some(1)},
		{Level2110, Some(0)},
		{Level2110, Some(1)},
		{Level2105, Some(0)},
		{LevelSummary, None[int]()},
		{LevelSummary, None[int]()},
	}
	assert.Equal(t, want, got)
}

func TestTransition_SummaryIsTerminal(t *testing.T) {
	s := NewState()
	out := Transition(s, "SE")
	c, ok := out.(Changed)
	require.True(t, ok)
	assert.Equal(t, LevelSummary, c.State.Level())

	for _, name := range []string{"SE", "PLB", "N1", "LX", "CLP", "SVC", "BPR"} {
		assert.IsType(t, Unchanged{}, Transition(c.State, name), name)
	}
}

func TestTransition_NewClaimClosesNestedLoops(t *testing.T) {
	s := NewState()
	for _, name := range []string{"LX", "CLP", "SVC", "SVC"} {
		s = Transition(s, name).(Changed).State
	}
	assert.Equal(t, Some(1), s.Index(Level2110))

	s = Transition(s, "CLP").(Changed).State
	assert.Equal(t, Level2100, s.Level())
	assert.Equal(t, Some(1), s.Index(Level2100))
	assert.False(t, s.Index(Level2110).IsSome())
	assert.False(t, s.Index(Level2105).IsSome())

	s = Transition(s, "LX").(Changed).State
	assert.Equal(t, Some(1), s.Index(Level2000))
	assert.False(t, s.Index(Level2100).IsSome())

	// first claim of the new header starts from 0 again
	s = Transition(s, "CLP").(Changed).State
	assert.Equal(t, Some(0), s.Index(Level2100))
}

func TestTransition_PartyAfterService(t *testing.T) {
	s := NewState()
	for _, name := range []string{"LX", "CLP", "SVC"} {
		s = Transition(s, name).(Changed).State
	}
	s = Transition(s, "N1").(Changed).State
	assert.Equal(t, Level2105, s.Level())
	assert.Equal(t, Some(0), s.Index(Level2105))

	s = Transition(s, "N1").(Changed).State
	assert.Equal(t, Some(1), s.Index(Level2105))

	s = Transition(s, "SVC").(Changed).State
	assert.Equal(t, Level2110, s.Level())
	assert.Equal(t, Some(0), s.Index(Level2110))
}

func TestTransition_Total(t *testing.T) {
	names := []string{"ISA", "GS", "ST", "BPR", "TRN", "N1", "N3", "LX", "TS3", "CLP", "CAS", "SVC", "DTM", "PLB", "SE", "GE", "IEA", "", "ZZZ"}
	for l := LevelHeader; l < levelCount; l++ {
		s := NewState()
		s.level = l
		for _, name := range names {
			out := Transition(s, name)
			require.NotNil(t, out, "%s at %s", name, l)
			switch c := out.(type) {
			case Changed:
				assert.NotEqual(t, LevelHeader, c.State.Level(), "%s at %s", name, l)
			case Unchanged:
			default:
				t.Fatalf("unexpected outcome %T", out)
			}
		}
	}
}

func TestTransition_DoesNotTouchInput(t *testing.T) {
	s := NewState()
	s = Transition(s, "N1").(Changed).State
	before := s
	_ = Transition(s, "N1")
	_ = Transition(s, "LX")
	assert.Equal(t, before, s)
}

func TestNextOrder(t *testing.T) {
	tests := []struct {
		name    string
		prev    Option[string]
		current string
		counter int
		want    int
	}{
		{"first", None[string](), "DTM", 0, 0},
		{"repeat", Some("DTM"), "DTM", 0, 1},
		{"repeat again", Some("DTM"), "DTM", 1, 2},
		{"different", Some("DTM"), "REF", 5, 0},
		{"absent prev with counter", None[string](), "DTM", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextOrder(tt.prev, tt.current, tt.counter))
		})
	}
}

func TestState_Separators(t *testing.T) {
	s := NewState()
	rep, comp := s.Separators()
	assert.Equal(t, DefaultRepetitionSeparator, rep)
	assert.Equal(t, DefaultComponentSeparator, comp)

	s = s.WithSeparators("|", "")
	rep, comp = s.Separators()
	assert.Equal(t, "|", rep)
	assert.Equal(t, DefaultComponentSeparator, comp)

	s = Transition(s, "N1").(Changed).State
	next := s.Continue()
	assert.Equal(t, LevelHeader, next.Level())
	assert.False(t, next.Index(Level1000).IsSome())
	rep, _ = next.Separators()
	assert.Equal(t, "|", rep)
}

func TestLevel_Parent(t *testing.T) {
	tests := []struct {
		level  Level
		parent Level
		ok     bool
	}{
		{LevelHeader, 0, false},
		{Level1000, LevelHeader, true},
		{Level2000, LevelHeader, true},
		{Level2100, Level2000, true},
		{Level2105, Level2100, true},
		{Level2110, Level2100, true},
		{LevelSummary, 0, false},
	}
	for _, tt := range tests {
		p, ok := tt.level.Parent()
		assert.Equal(t, tt.ok, ok, tt.level.String())
		if ok {
			assert.Equal(t, tt.parent, p, tt.level.String())
		}
	}
	assert.Equal(t, "Level(42)", Level(42).String())
}

func TestLevel_Text(t *testing.T) {
	names := LevelNames()
	require.Len(t, names, int(levelCount))
	for i, name := range names {
		l, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, Level(i), l)

		text, err := l.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("loop 2105")))
	assert.Equal(t, Level2105, l)

	_, err := ParseLevel("loop 3000")
	assert.ErrorIs(t, err, ErrInvalidLevel)
	assert.ErrorIs(t, l.UnmarshalText([]byte("")), ErrInvalidLevel)
	assert.Equal(t, Level2105, l)

	assert.False(t, Level(-1).IsValid())
	_, err = levelCount.MarshalText()
	assert.ErrorIs(t, err, ErrInvalidLevel)
}
