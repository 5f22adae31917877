package load

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"edi835/remit"
	"edi835/x12"
)

func TestReadInterchange(t *testing.T) {
	ic, err := readInterchange(bytes.NewReader(loadSample(t)))
	if err != nil {
		t.Fatalf("readInterchange() error = %v", err)
	}
	if ic.isa.Name != "ISA" {
		t.Errorf("first segment = %s, want ISA", ic.isa.Name)
	}
	if len(ic.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(ic.transactions))
	}
	tx := ic.transactions[0]
	if !tx.closed || tx.control != "0001" {
		t.Errorf("transaction closed=%v control=%q", tx.closed, tx.control)
	}
	if first, last := tx.segments[0].Name, tx.segments[len(tx.segments)-1].Name; first != "ST" || last != "SE" {
		t.Errorf("transaction spans %s..%s, want ST..SE", first, last)
	}
	if got := strings.Join(ic.skipped, ","); got != "GS,GE,IEA" {
		t.Errorf("skipped = %s", got)
	}
}

func TestReadInterchange_Unterminated(t *testing.T) {
	ic, err := readInterchange(strings.NewReader(isaHeader + "ST*835*0007~BPR*I~"))
	if err != nil {
		t.Fatalf("readInterchange() error = %v", err)
	}
	if len(ic.transactions) != 1 || ic.transactions[0].closed {
		t.Errorf("expected single open transaction, got %+v", ic.transactions)
	}
}

func TestReadInterchange_Errors(t *testing.T) {
	for _, in := range []string{"", "hello world", "ISA*00*short~"} {
		if _, err := readInterchange(strings.NewReader(in)); !errors.Is(err, x12.ErrNotInterchange) {
			t.Errorf("readInterchange(%q) error = %v, want ErrNotInterchange", in, err)
		}
	}
}

func TestInterchange_Values(t *testing.T) {
	ic, err := readInterchange(bytes.NewReader(loadSample(t)))
	if err != nil {
		t.Fatal(err)
	}
	got := ic.values("remit", ".835")
	want := Values{
		Name:    "remit",
		Ext:     ".835",
		Control: "000000001",
		Payer:   "INSURANCE COMPANY",
		Payee:   "PROVIDER CLINIC",
		Date:    "2024-01-16",
	}
	if got != want {
		t.Errorf("values() = %+v, want %+v", got, want)
	}

	// without BPR16 interchange date is used
	ic, err = readInterchange(strings.NewReader(isaHeader + "ST*835*1~BPR*I~SE*3*1~"))
	if err != nil {
		t.Fatal(err)
	}
	if got := ic.values("x", "").Date; got != "2024-01-15" {
		t.Errorf("fallback date = %q, want 2024-01-15", got)
	}
}

func TestInterchange_BaseState(t *testing.T) {
	ic, err := readInterchange(strings.NewReader(
		"ISA*00*          *00*          *ZZ*PAYERID        *ZZ*PROVIDERID     *240115*1200*|*00501*000000001*0*P*>~ST*835*1~"))
	if err != nil {
		t.Fatal(err)
	}
	rep, comp := ic.baseState("^", ":").Separators()
	if rep != "|" || comp != ">" {
		t.Errorf("separators = %q %q, want ISA ones", rep, comp)
	}
	if lvl := ic.baseState("^", ":").Level(); lvl != remit.LevelHeader {
		t.Errorf("level = %v, want header", lvl)
	}
}

// failingSink fails on every write of the given segment.
type failingSink struct {
	*treeSink
	failOn string
}

func (f *failingSink) WriteAttributes(ctx context.Context, name string, parent remit.Parent, ordinal int, fields *x12.Segment) (remit.Handle, error) {
	if name == f.failOn && fields.Value(1) == "2" {
		return 0, errors.New("disk full")
	}
	return f.treeSink.WriteAttributes(ctx, name, parent, ordinal, fields)
}

func TestDispatch_FailedTransactionRolledBack(t *testing.T) {
	in := isaHeader +
		"ST*835*1~BPR*I~SE*3*1~" +
		"ST*835*2~BPR*I~LX*2~SE*4*2~" +
		"ST*835*3~BPR*I~SE*3*3~"
	ic, err := readInterchange(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	sink := &failingSink{treeSink: newTreeSink(), failOn: "LX"}
	log := zaptest.NewLogger(t)
	loaded, err := dispatch(context.Background(), ic, sink, ic.baseState("^", ":"), remit.LogObserver(log, true), log)

	if loaded != 2 {
		t.Errorf("loaded = %d, want 2", loaded)
	}
	var se *remit.SinkError
	if !errors.As(err, &se) || se.Segment != "LX" {
		t.Fatalf("dispatch() error = %v, want sink error on LX", err)
	}
	if len(sink.roots) != 2 {
		t.Errorf("transactions kept = %d, want 2", len(sink.roots))
	}
	if out := sink.String(); strings.Contains(out, "LX") {
		t.Errorf("rolled back transaction is visible:\n%s", out)
	}
}

func TestDispatch_Canceled(t *testing.T) {
	ic, err := readInterchange(bytes.NewReader(loadSample(t)))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := zaptest.NewLogger(t)
	loaded, err := dispatch(ctx, ic, newTreeSink(), ic.baseState("^", ":"), remit.LogObserver(log, false), log)
	if loaded != 0 || !errors.Is(err, context.Canceled) {
		t.Errorf("dispatch() = %d, %v; want 0, context.Canceled", loaded, err)
	}
}
