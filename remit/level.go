package remit

import (
	"fmt"
	"slices"
	"strings"
)

// Level is structural position of the parser inside 835 transaction.
type Level int

const (
	LevelHeader Level = iota
	Level1000
	Level2000
	Level2100
	Level2105
	Level2110
	LevelSummary

	levelCount
)

var levelNames = [levelCount]string{
	LevelHeader:  "header",
	Level1000:    "loop 1000",
	Level2000:    "loop 2000",
	Level2100:    "loop 2100",
	Level2105:    "loop 2105",
	Level2110:    "loop 2110",
	LevelSummary: "summary",
}

// ErrInvalidLevel is returned when text does not name a level.
var ErrInvalidLevel = fmt.Errorf("not a valid Level, try [%s]", strings.Join(levelNames[:], ", "))

// LevelNames returns names of all levels in order.
func LevelNames() []string {
	return slices.Clone(levelNames[:])
}

// ParseLevel converts level name back to Level.
func ParseLevel(name string) (Level, error) {
	if i := slices.Index(levelNames[:], name); i >= 0 {
		return Level(i), nil
	}
	return 0, fmt.Errorf("%s is %w", name, ErrInvalidLevel)
}

func (l Level) IsValid() bool {
	return l >= 0 && l < levelCount
}

func (l Level) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%d is %w", int(l), ErrInvalidLevel)
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	v, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Parent returns level which instances of l are attached to. Header and
// summary have no parent.
func (l Level) Parent() (Level, bool) {
	switch l {
	case Level1000, Level2000:
		return LevelHeader, true
	case Level2100:
		return Level2000, true
	case Level2105, Level2110:
		return Level2100, true
	default:
		return 0, false
	}
}

// descendants lists levels whose open instances belong to an instance of
// the key level and therefore close when a new one opens.
var descendants = map[Level][]Level{
	LevelHeader: {Level1000, Level2000, Level2100, Level2105, Level2110},
	Level2000:   {Level2100, Level2105, Level2110},
	Level2100:   {Level2105, Level2110},
}
