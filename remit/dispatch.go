package remit

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"edi835/x12"
)

// SinkError is returned by Dispatcher when sink fails. Transaction cannot
// continue after it.
type SinkError struct {
	Segment string
	Level   Level
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("unable to store segment %s (%s): %v", e.Segment, e.Level, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// route describes what to do with a known segment at a given level.
type route struct {
	// segment opens a new instance of the current level before anything else
	opens bool
	// row the segment is attached to
	parent ParentKind
	// segment row becomes parent of following N2/N3/N4
	n1 bool
}

var routes = map[Level]map[string]route{
	LevelHeader: {
		"ST":  {opens: true, parent: ParentHeader},
		"BPR": {parent: ParentHeader},
		"TRN": {parent: ParentHeader},
		"CUR": {parent: ParentHeader},
		"NTE": {parent: ParentHeader},
		"REF": {parent: ParentHeader},
		"DTM": {parent: ParentHeader},
	},
	Level1000: {
		"N1":  {opens: true, parent: Parent1000, n1: true},
		"N2":  {parent: ParentN1},
		"N3":  {parent: ParentN1},
		"N4":  {parent: ParentN1},
		"REF": {parent: Parent1000},
		"PER": {parent: Parent1000},
		"RDM": {parent: Parent1000},
		"DTM": {parent: Parent1000},
	},
	Level2000: {
		"LX":  {opens: true, parent: Parent2000},
		"TS3": {parent: Parent2000},
		"TS2": {parent: Parent2000},
	},
	Level2100: {
		"CLP": {opens: true, parent: Parent2100},
		"CAS": {parent: Parent2100},
		"NM1": {parent: Parent2100},
		"MIA": {parent: Parent2100},
		"MOA": {parent: Parent2100},
		"REF": {parent: Parent2100},
		"DTM": {parent: Parent2100},
		"PER": {parent: Parent2100},
		"AMT": {parent: Parent2100},
		"QTY": {parent: Parent2100},
		"K3":  {parent: Parent2100},
	},
	Level2105: {
		"N1":  {opens: true, parent: Parent2105, n1: true},
		"N2":  {parent: ParentN1},
		"N3":  {parent: ParentN1},
		"N4":  {parent: ParentN1},
		"REF": {parent: Parent2105},
		"RAS": {parent: Parent2105},
	},
	Level2110: {
		"SVC": {opens: true, parent: Parent2110},
		"DTM": {parent: Parent2110},
		"CAS": {parent: Parent2110},
		"REF": {parent: Parent2110},
		"AMT": {parent: Parent2110},
		"QTY": {parent: Parent2110},
		"LQ":  {parent: Parent2110},
		"RAS": {parent: Parent2110},
		"K3":  {parent: Parent2110},
	},
	LevelSummary: {
		"PLB": {parent: ParentHeader},
		"SE":  {parent: ParentHeader},
	},
}

// Handled reports whether segment name has a rule at the given level.
func Handled(l Level, name string) bool {
	_, ok := routes[l][name]
	return ok
}

// Segments returns sorted names of segments with a rule at the given level.
func Segments(l Level) []string {
	return slices.Sorted(maps.Keys(routes[l]))
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver installs observer, by default nothing is reported.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if o != nil {
			d.obs = o
		}
	}
}

// WithState starts dispatcher from given state instead of NewState().
func WithState(s State) DispatcherOption {
	return func(d *Dispatcher) {
		d.state = s
	}
}

// Dispatcher folds segments of a single transaction into sink calls. It is
// not safe for concurrent use, independent transactions need their own
// dispatchers.
type Dispatcher struct {
	sink  Sink
	obs   Observer
	state State
	done  bool
}

// NewDispatcher returns dispatcher writing to sink.
func NewDispatcher(sink Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:  sink,
		obs:   nopObserver{},
		state: NewState(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns current cursor.
func (d *Dispatcher) State() State {
	return d.state
}

// Done reports whether transaction trailer (SE) has been processed.
func (d *Dispatcher) Done() bool {
	return d.done
}

// Process advances the cursor with seg and routes it to the sink. Only sink
// failures are returned, segments which cannot be placed are reported to
// observer and skipped.
func (d *Dispatcher) Process(ctx context.Context, seg *x12.Segment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := d.state
	switch out := Transition(d.state, seg.Name).(type) {
	case Changed:
		d.state = out.State
		d.state.order = 0
		d.state.prev = None[string]()
		d.state.n1 = None[Handle]()
		d.obs.Transition(from, d.state, seg.Name)
	case Unchanged:
	}

	d.state.order = NextOrder(d.state.prev, seg.Name, d.state.order)

	if seg.Name == "ISA" && d.state.level == LevelHeader {
		d.state = d.state.WithSeparators(seg.Value(11), seg.Value(16))
	} else if err := d.dispatch(ctx, seg); err != nil {
		return err
	}

	d.state.prev = Some(seg.Name)
	if seg.Name == "SE" {
		d.done = true
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, seg *x12.Segment) error {
	r, ok := routes[d.state.level][seg.Name]
	if !ok {
		d.obs.Anomaly(AnomalyUnhandled, d.state, seg)
		return nil
	}

	fields := seg
	if _, ok := CompositeElements[seg.Name]; ok {
		fields = Normalize(seg, d.state.repetition, d.state.component)
	}

	if r.opens {
		opened, err := d.openLoop(ctx, seg)
		if err != nil || !opened {
			return err
		}
	}

	h, ok := d.parent(r.parent)
	if !ok {
		d.obs.Anomaly(AnomalyNoParent, d.state, seg)
		return nil
	}
	row, err := d.sink.WriteAttributes(ctx, seg.Name, Parent{Kind: r.parent, Handle: h}, d.state.order, fields)
	if err != nil {
		return &SinkError{Segment: seg.Name, Level: d.state.level, Err: err}
	}
	if r.n1 {
		d.state.n1 = Some(row)
	}
	return nil
}

// openLoop creates row for new instance of the current level and makes it
// the parent of everything that follows. Instances nested in the previous
// one are closed.
func (d *Dispatcher) openLoop(ctx context.Context, seg *x12.Segment) (bool, error) {
	l := d.state.level

	parent := None[Handle]()
	if pl, ok := l.Parent(); ok {
		if parent = d.state.handles[pl]; !parent.IsSome() {
			d.obs.Anomaly(AnomalyNoParent, d.state, seg)
			return false, nil
		}
	}

	h, err := d.sink.OpenLoop(ctx, l, parent, d.state.idx[l].OrElse(0))
	if err != nil {
		return false, &SinkError{Segment: seg.Name, Level: l, Err: err}
	}
	d.state.handles[l] = Some(h)
	for _, c := range descendants[l] {
		d.state.handles[c] = None[Handle]()
	}
	return true, nil
}

func (d *Dispatcher) parent(kind ParentKind) (Handle, bool) {
	switch kind {
	case ParentN1:
		return d.state.n1.Get()
	case Parent1000:
		return d.state.handles[Level1000].Get()
	case Parent2000:
		return d.state.handles[Level2000].Get()
	case Parent2100:
		return d.state.handles[Level2100].Get()
	case Parent2105:
		return d.state.handles[Level2105].Get()
	case Parent2110:
		return d.state.handles[Level2110].Get()
	default:
		return d.state.handles[LevelHeader].Get()
	}
}
