package x12

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	isaLength        = 106
	isaElementCount  = 17
	isaRepetitionIdx = 11
	isaComponentIdx  = 16
)

var (
	// ErrNotInterchange is returned when input does not start with a valid ISA segment.
	ErrNotInterchange = errors.New("input is not an X12 interchange")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Delimiters are the separator characters declared by the ISA segment.
type Delimiters struct {
	Element    byte
	Repetition byte
	Component  byte
	Segment    byte
}

// Reader turns an interchange into a sequence of segments.
//
// It splits elements on the component separator eagerly and leaves
// repetition separators untouched, the same way common X12 tokenizers
// do. Repeated composites come out conflated and have to be repaired by
// the consumer, which knows both separators from the ISA segment.
type Reader struct {
	r       *bufio.Reader
	delims  Delimiters
	started bool
	count   int
}

// NewReader returns Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Delimiters returns separators of the interchange. They are valid after
// the first successful call to Next.
func (r *Reader) Delimiters() Delimiters {
	return r.delims
}

// Count returns number of segments read so far.
func (r *Reader) Count() int {
	return r.count
}

// Next returns the next segment or io.EOF when input is exhausted.
func (r *Reader) Next() (*Segment, error) {
	if !r.started {
		seg, err := r.readISA()
		if err != nil {
			return nil, err
		}
		r.started = true
		r.count++
		return seg, nil
	}

	for {
		raw, err := r.r.ReadString(r.delims.Segment)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unable to read segment %d: %w", r.count+1, err)
		}
		rec := strings.TrimLeft(strings.TrimSuffix(raw, string(r.delims.Segment)), " \t\r\n")
		if len(rec) == 0 {
			if err != nil {
				return nil, io.EOF
			}
			// stray terminator
			continue
		}
		r.count++
		return r.split(rec), nil
	}
}

func (r *Reader) readISA() (*Segment, error) {
	// skip BOM and leading white space some translators emit
	if head, err := r.r.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = r.r.Discard(len(utf8BOM))
	}
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotInterchange, err)
		}
		if !isSpace(b) {
			_ = r.r.UnreadByte()
			break
		}
	}

	buf := make([]byte, isaLength)
	if n, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("%w: ISA segment is too short (%d bytes)", ErrNotInterchange, n)
	}
	if !bytes.HasPrefix(buf, []byte("ISA")) {
		return nil, fmt.Errorf("%w: does not start with ISA", ErrNotInterchange)
	}

	d := Delimiters{Element: buf[3], Segment: buf[isaLength-1]}
	parts := strings.Split(string(buf[:isaLength-1]), string(d.Element))
	if len(parts) != isaElementCount {
		return nil, fmt.Errorf("%w: ISA has %d elements, expected %d", ErrNotInterchange, len(parts)-1, isaElementCount-1)
	}
	if len(parts[isaRepetitionIdx]) != 1 || len(parts[isaComponentIdx]) != 1 {
		return nil, fmt.Errorf("%w: malformed ISA separators", ErrNotInterchange)
	}
	d.Repetition = parts[isaRepetitionIdx][0]
	d.Component = parts[isaComponentIdx][0]
	r.delims = d

	seg := &Segment{Name: parts[0]}
	for i, v := range parts[1:] {
		seg.Set(Elem(i+1), v)
	}
	return seg, nil
}

// split breaks record into elements, then elements into components.
func (r *Reader) split(rec string) *Segment {
	parts := strings.Split(rec, string(r.delims.Element))
	seg := &Segment{Name: parts[0], Fields: make([]Field, 0, len(parts)-1)}
	for i, v := range parts[1:] {
		comps := strings.Split(v, string(r.delims.Component))
		seg.Fields = append(seg.Fields, Field{Path: Elem(i + 1), Value: comps[0]})
		for j, c := range comps[1:] {
			seg.Fields = append(seg.Fields, Field{Path: Comp(i+1, j+1), Value: c})
		}
	}
	return seg
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
