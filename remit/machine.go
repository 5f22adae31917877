package remit

// Outcome is result of Transition, either Changed or Unchanged.
type Outcome interface {
	outcome()
}

// Changed carries the state after a structural transition.
type Changed struct {
	State State
}

// Unchanged means the segment does not move the cursor.
type Unchanged struct{}

func (Changed) outcome()   {}
func (Unchanged) outcome() {}

// Transition computes structural effect of the segment name on s. Loop
// opening names are unique to their nesting context in 005010X221A1, so
// current level and the name are always enough to decide.
//
//	N1   header -> 1000(0), 1000 -> 1000(+1), 2100 -> 2105(0), 2105|2110 -> 2105(+1)
//	LX   header|1000 -> 2000(0), 2000..2110 -> 2000(+1)
//	CLP  2000 -> 2100(0), 2100..2110 -> 2100(+1)
//	SVC  2100|2105 -> 2110(0), 2110 -> 2110(+1)
//	PLB, SE  anything but summary -> summary
//
// Any other combination is Unchanged.
func Transition(s State, name string) Outcome {
	switch name {
	case "N1":
		switch s.level {
		case LevelHeader:
			return Changed{s.enter(Level1000)}
		case Level1000:
			return Changed{s.advance(Level1000)}
		case Level2100:
			return Changed{s.enter(Level2105)}
		case Level2105, Level2110:
			return Changed{s.advance(Level2105)}
		}
	case "LX":
		switch s.level {
		case LevelHeader, Level1000:
			return Changed{s.enter(Level2000)}
		case Level2000, Level2100, Level2105, Level2110:
			return Changed{s.advance(Level2000).clear(Level2100, Level2105, Level2110)}
		}
	case "CLP":
		switch s.level {
		case Level2000:
			return Changed{s.enter(Level2100)}
		case Level2100, Level2105, Level2110:
			return Changed{s.advance(Level2100).clear(Level2105, Level2110)}
		}
	case "SVC":
		switch s.level {
		case Level2110:
			return Changed{s.advance(Level2110)}
		case Level2100, Level2105:
			return Changed{s.enter(Level2110)}
		}
	case "PLB", "SE":
		if s.level != LevelSummary {
			s.level = LevelSummary
			return Changed{s}
		}
	}
	return Unchanged{}
}

// NextOrder returns ordinal of current segment under its parent: repeated
// adjacent segments with the same name count up from 0, anything else
// starts over. The dispatcher clears prev on every transition, so the
// counter never leaks across parents.
func NextOrder(prev Option[string], current string, counter int) int {
	if p, ok := prev.Get(); ok && p == current {
		return counter + 1
	}
	return 0
}
