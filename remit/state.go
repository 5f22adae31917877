package remit

const (
	DefaultRepetitionSeparator = "^"
	DefaultComponentSeparator  = ":"
)

// State is the structural cursor of one transaction. It is a plain value:
// Transition returns modified copies and the dispatcher owns the current
// one. Nothing in it is persisted.
type State struct {
	level Level

	// per-level repetition index and handle of the open instance, both
	// absent until the level is entered
	idx     [levelCount]Option[int]
	handles [levelCount]Option[Handle]
	n1      Option[Handle]

	repetition string
	component  string

	prev  Option[string]
	order int
}

// NewState returns initial state positioned at the header with default
// separators.
func NewState() State {
	return State{
		level:      LevelHeader,
		repetition: DefaultRepetitionSeparator,
		component:  DefaultComponentSeparator,
	}
}

// Level returns current structural level.
func (s State) Level() Level { return s.level }

// Index returns repetition index of the given loop level.
func (s State) Index(l Level) Option[int] {
	if !l.IsValid() {
		return None[int]()
	}
	return s.idx[l]
}

// Handle returns handle of the open instance of the given level.
func (s State) Handle(l Level) Option[Handle] {
	if !l.IsValid() {
		return None[Handle]()
	}
	return s.handles[l]
}

// N1Handle returns handle of the most recent N1 row of the current party loop.
func (s State) N1Handle() Option[Handle] { return s.n1 }

// Separators returns repetition and component separators in effect.
func (s State) Separators() (repetition, component string) {
	return s.repetition, s.component
}

// PrevSegment returns name of the previously processed segment.
func (s State) PrevSegment() Option[string] { return s.prev }

// Order returns ordinal of the last processed segment under its parent.
func (s State) Order() int { return s.order }

// Continue returns fresh state for the next transaction of the same
// interchange, only separators are carried over.
func (s State) Continue() State {
	next := NewState()
	next.repetition, next.component = s.repetition, s.component
	return next
}

// WithSeparators returns copy of the state using given separators, empty
// values leave current ones in place.
func (s State) WithSeparators(repetition, component string) State {
	if len(repetition) > 0 {
		s.repetition = repetition
	}
	if len(component) > 0 {
		s.component = component
	}
	return s
}

// enter moves to level l starting its index from 0.
func (s State) enter(l Level) State {
	s.level = l
	s.idx[l] = Some(0)
	return s
}

// advance moves to level l incrementing its index, absent index counts as
// -1.
func (s State) advance(l Level) State {
	s.level = l
	s.idx[l] = Some(s.idx[l].OrElse(-1) + 1)
	return s
}

func (s State) clear(levels ...Level) State {
	for _, l := range levels {
		s.idx[l] = None[int]()
	}
	return s
}
