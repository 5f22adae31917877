package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"edi835/remit"
	"edi835/x12"
)

// transaction is ST...SE group of segments.
type transaction struct {
	control  string
	segments []*x12.Segment
	closed   bool
}

// interchange is fully tokenized input file.
type interchange struct {
	isa          *x12.Segment
	transactions []*transaction
	// envelope and stray segments outside of transactions
	skipped []string
}

func readInterchange(r io.Reader) (*interchange, error) {
	tr := x12.NewReader(r)

	ic := &interchange{}
	var cur *transaction
	for {
		seg, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch {
		case ic.isa == nil:
			ic.isa = seg
		case seg.Name == "ST":
			cur = &transaction{control: seg.Value(2)}
			ic.transactions = append(ic.transactions, cur)
			cur.segments = append(cur.segments, seg)
		case cur != nil:
			cur.segments = append(cur.segments, seg)
			if seg.Name == "SE" {
				cur.closed = true
				cur = nil
			}
		default:
			ic.skipped = append(ic.skipped, seg.Name)
		}
	}
	if ic.isa == nil {
		return nil, x12.ErrNotInterchange
	}
	return ic, nil
}

// baseState returns state every transaction of the interchange starts
// with: configured separators overridden by ones declared in ISA.
func (ic *interchange) baseState(repetition, component string) remit.State {
	return remit.NewState().
		WithSeparators(repetition, component).
		WithSeparators(ic.isa.Value(11), ic.isa.Value(16))
}

// values collects data available to output name template.
func (ic *interchange) values(name, ext string) Values {
	v := Values{Name: name, Ext: ext, Control: ic.isa.Value(13)}
	for _, tx := range ic.transactions {
		for _, seg := range tx.segments {
			switch seg.Name {
			case "BPR":
				if v.Date == "" {
					v.Date = formatDate(seg.Value(16))
				}
			case "N1":
				switch seg.Value(1) {
				case "PR":
					if v.Payer == "" {
						v.Payer = seg.Value(2)
					}
				case "PE":
					if v.Payee == "" {
						v.Payee = seg.Value(2)
					}
				}
			}
		}
	}
	if v.Date == "" {
		v.Date = formatDate("20" + ic.isa.Value(9))
	}
	return v
}

func formatDate(s string) string {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// transactor is sink able to group writes into atomic units.
type transactor interface {
	remit.Sink
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// dispatch feeds every transaction of the interchange to its own dispatcher
// inside its own sink transaction. Failed transaction is rolled back and
// does not prevent the rest from being loaded.
func dispatch(ctx context.Context, ic *interchange, sink transactor, base remit.State, obs remit.Observer, log *zap.Logger) (loaded int, err error) {
	for _, name := range ic.skipped {
		log.Debug("Segment outside of transaction, ignoring", zap.String("segment", name))
	}

	for i, tx := range ic.transactions {
		if !tx.closed {
			log.Warn("Transaction is not terminated by SE", zap.String("control", tx.control), zap.Int("segments", len(tx.segments)))
		}

		txErr := sink.Transaction(ctx, func(ctx context.Context) error {
			d := remit.NewDispatcher(sink, remit.WithState(base.Continue()), remit.WithObserver(obs))
			for _, seg := range tx.segments {
				if err := d.Process(ctx, seg); err != nil {
					return err
				}
			}
			return nil
		})
		if txErr != nil {
			if ctx.Err() != nil {
				return loaded, multierr.Append(err, ctx.Err())
			}
			log.Error("Transaction rolled back", zap.Int("index", i+1), zap.String("control", tx.control), zap.Error(txErr))
			err = multierr.Append(err, fmt.Errorf("transaction %d (%s): %w", i+1, tx.control, txErr))
			continue
		}
		loaded++
	}
	return loaded, err
}
