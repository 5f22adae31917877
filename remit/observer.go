package remit

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"edi835/x12"
)

// AnomalyKind classifies segments the dispatcher could not place.
type AnomalyKind int

const (
	// AnomalyUnhandled - no rule for the segment at current level.
	AnomalyUnhandled AnomalyKind = iota
	// AnomalyNoParent - segment is known but the row it belongs to has not
	// been opened.
	AnomalyNoParent
)

var anomalyNames = [...]string{
	AnomalyUnhandled: "unhandled",
	AnomalyNoParent:  "no parent",
}

// ErrInvalidAnomalyKind is returned when text does not name an anomaly kind.
var ErrInvalidAnomalyKind = fmt.Errorf("not a valid AnomalyKind, try [%s]", strings.Join(anomalyNames[:], ", "))

// ParseAnomalyKind converts anomaly name back to AnomalyKind.
func ParseAnomalyKind(name string) (AnomalyKind, error) {
	if i := slices.Index(anomalyNames[:], name); i >= 0 {
		return AnomalyKind(i), nil
	}
	return 0, fmt.Errorf("%s is %w", name, ErrInvalidAnomalyKind)
}

func (k AnomalyKind) IsValid() bool {
	return k >= 0 && int(k) < len(anomalyNames)
}

func (k AnomalyKind) String() string {
	if !k.IsValid() {
		return fmt.Sprintf("AnomalyKind(%d)", int(k))
	}
	return anomalyNames[k]
}

// Observer is notified about dispatcher progress. Calls are made
// synchronously from Process.
type Observer interface {
	Transition(from, to State, segment string)
	Anomaly(kind AnomalyKind, at State, seg *x12.Segment)
}

type nopObserver struct{}

func (nopObserver) Transition(State, State, string)          {}
func (nopObserver) Anomaly(AnomalyKind, State, *x12.Segment) {}

type logObserver struct {
	log   *zap.Logger
	trace bool
}

// LogObserver reports anomalies to log: segments without open parent at
// warn level, unhandled ones (envelope segments among them) at debug.
// Transitions are logged at debug level only when trace is requested.
func LogObserver(log *zap.Logger, trace bool) Observer {
	return &logObserver{log: log, trace: trace}
}

func (o *logObserver) Transition(from, to State, segment string) {
	if !o.trace {
		return
	}
	o.log.Debug("Loop transition",
		zap.String("segment", segment),
		zap.Stringer("from", from.Level()),
		zap.Stringer("to", to.Level()),
		zap.Stringer("index", to.Index(to.Level())))
}

func (o *logObserver) Anomaly(kind AnomalyKind, at State, seg *x12.Segment) {
	switch kind {
	case AnomalyNoParent:
		o.log.Warn("Segment has no open parent, ignoring",
			zap.String("segment", seg.Name), zap.Stringer("level", at.Level()), zap.Stringer("anomaly", kind))
	default:
		o.log.Debug("Segment is not handled at this level, ignoring",
			zap.String("segment", seg.Name), zap.Stringer("level", at.Level()), zap.Stringer("anomaly", kind))
	}
}
