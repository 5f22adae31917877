package remit

import (
	"context"
	"fmt"

	"edi835/x12"
)

// Handle is an opaque reference to a stored row, returned by Sink and passed
// back as parent of subsequent rows.
type Handle int64

// ParentKind tells which kind of row a segment is attached to. The same
// segment (REF, DTM, ...) may appear at several levels and is told apart by
// its parent kind.
type ParentKind int

const (
	ParentHeader ParentKind = iota
	Parent1000
	Parent2000
	Parent2100
	Parent2105
	Parent2110
	ParentN1
)

var parentNames = [...]string{
	ParentHeader: "header",
	Parent1000:   "loop_1000",
	Parent2000:   "loop_2000",
	Parent2100:   "loop_2100",
	Parent2105:   "loop_2105",
	Parent2110:   "loop_2110",
	ParentN1:     "n1",
}

func (k ParentKind) String() string {
	if k < 0 || int(k) >= len(parentNames) {
		return fmt.Sprintf("parent(%d)", int(k))
	}
	return parentNames[k]
}

// Parent is structural address of a segment row.
type Parent struct {
	Kind   ParentKind
	Handle Handle
}

// Sink persists structural positions and segment attributes. Storage layout,
// foreign keys and transactions are entirely up to implementation.
type Sink interface {
	// OpenLoop creates row for a new loop instance (LevelHeader for the
	// transaction itself) under parent and returns its handle. Parent is
	// absent only for LevelHeader.
	OpenLoop(ctx context.Context, kind Level, parent Option[Handle], ordinal int) (Handle, error)
	// WriteAttributes stores normalized segment fields under parent.
	WriteAttributes(ctx context.Context, name string, parent Parent, ordinal int, fields *x12.Segment) (Handle, error)
}
