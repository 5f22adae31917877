// Package store persists dispatched 835 segments into SQLite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"edi835/remit"
	"edi835/x12"
)

var (
	ErrUnknownSegment = errors.New("no table for segment")
	ErrNoParent       = errors.New("loop has no parent")
)

// Store is remit.Sink writing into single SQLite connection. Not safe for
// concurrent use.
type Store struct {
	conn        *sqlite.Conn
	log         *zap.Logger
	loadID      string
	source      string
	journalMode string
	foreignKeys bool

	inserts map[string]string
}

// Option configures Store.
type Option func(*Store)

// WithLogger sets logger, by default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSource records input name on every header row.
func WithSource(source string) Option {
	return func(s *Store) {
		s.source = source
	}
}

// WithLoadID overrides generated load id.
func WithLoadID(id string) Option {
	return func(s *Store) {
		s.loadID = id
	}
}

// WithJournalMode sets SQLite journal mode (wal, delete, memory).
func WithJournalMode(mode string) Option {
	return func(s *Store) {
		s.journalMode = mode
	}
}

// WithForeignKeys turns on foreign keys enforcement.
func WithForeignKeys(on bool) Option {
	return func(s *Store) {
		s.foreignKeys = on
	}
}

// Open opens (creating when necessary) database at path and makes sure
// schema is in place. Use ":memory:" for transient database.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		log:         zap.NewNop(),
		journalMode: "wal",
		foreignKeys: true,
		inserts:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loadID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("unable to generate load id: %w", err)
		}
		s.loadID = id.String()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenURI}
	if path == ":memory:" {
		flags = append(flags, sqlite.OpenMemory)
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open database '%s': %w", path, err)
	}
	s.conn = conn

	if err := s.prepare(); err != nil {
		return nil, multierr.Append(err, conn.Close())
	}
	s.log.Debug("Database opened", zap.String("path", path), zap.String("load_id", s.loadID))
	return s, nil
}

func (s *Store) prepare() error {
	mode := strings.ToLower(s.journalMode)
	if !slices.Contains([]string{"wal", "delete", "memory"}, mode) {
		return fmt.Errorf("unsupported journal mode '%s'", s.journalMode)
	}
	if err := sqlitex.ExecuteTransient(s.conn, "PRAGMA journal_mode = "+mode+";", nil); err != nil {
		return fmt.Errorf("unable to set journal mode: %w", err)
	}
	fk := "OFF"
	if s.foreignKeys {
		fk = "ON"
	}
	if err := sqlitex.ExecuteTransient(s.conn, "PRAGMA foreign_keys = "+fk+";", nil); err != nil {
		return fmt.Errorf("unable to set foreign keys: %w", err)
	}
	if err := sqlitex.ExecuteScript(s.conn, schema(), nil); err != nil {
		return fmt.Errorf("unable to create schema: %w", err)
	}
	return nil
}

// LoadID returns identifier stored on header rows written by this store.
func (s *Store) LoadID() string {
	return s.loadID
}

// Close optimizes and closes database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := sqlitex.ExecuteTransient(s.conn, "PRAGMA optimize;", nil)
	err = multierr.Append(err, s.conn.Close())
	s.conn = nil
	return err
}

// Transaction runs fn inside savepoint: everything fn wrote is rolled back
// when it returns error or panics. Long running statements are interrupted
// when ctx is done.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	prev := s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(prev)

	defer sqlitex.Save(s.conn)(&err)
	return fn(ctx)
}

// OpenLoop implements remit.Sink.
func (s *Store) OpenLoop(ctx context.Context, kind remit.Level, parent remit.Option[remit.Handle], ordinal int) (remit.Handle, error) {
	table, ok := loopTables[kind]
	if !ok {
		return 0, fmt.Errorf("no table for %s", kind)
	}

	var (
		query string
		args  []any
	)
	if kind == remit.LevelHeader {
		query = "INSERT INTO " + table + " (segment_order, load_id, source) VALUES (?, ?, ?);"
		args = []any{ordinal, s.loadID, nullable(s.source)}
	} else {
		pl, _ := kind.Parent()
		h, ok := parent.Get()
		if !ok {
			return 0, fmt.Errorf("%s: %w", kind, ErrNoParent)
		}
		query = "INSERT INTO " + table + " (segment_order, " + loopTables[pl] + "_id) VALUES (?, ?);"
		args = []any{ordinal, int64(h)}
	}
	if err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return remit.Handle(s.conn.LastInsertRowID()), nil
}

// WriteAttributes implements remit.Sink. Composite elements are stored as
// one row per repetition in composite tables referencing segment row.
func (s *Store) WriteAttributes(ctx context.Context, name string, parent remit.Parent, ordinal int, fields *x12.Segment) (remit.Handle, error) {
	t, ok := lookupSegment(name)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownSegment)
	}

	args := make([]any, 0, len(t.columns)+3)
	args = append(args, ordinal, parentTable(parent.Kind), int64(parent.Handle))
	for _, c := range t.columns {
		args = append(args, s.value(name, c, fields))
	}
	if err := sqlitex.Execute(s.conn, s.insertQuery(t), &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, fmt.Errorf("insert into %s: %w", t.table(), err)
	}
	row := s.conn.LastInsertRowID()

	for _, ce := range remit.CompositeElements[name] {
		if err := s.writeComposite(t, row, ce, fields); err != nil {
			return 0, err
		}
	}
	s.reportUnmapped(t, fields)
	return remit.Handle(row), nil
}

func (s *Store) value(segment string, c column, fields *x12.Segment) any {
	v, ok := fields.Get(c.path)
	if !ok || v == "" {
		return nil
	}

	var (
		out string
		err error
	)
	switch c.kind {
	case kindDate:
		out, err = formatDate(v)
	case kindTime:
		out, err = formatTime(v)
	default:
		return v
	}
	if err != nil {
		s.log.Warn("Unable to normalize value, storing as is",
			zap.String("segment", segment), zap.String("column", c.name), zap.Error(err))
		return v
	}
	return out
}

func (s *Store) writeComposite(t *segmentTable, row int64, ce remit.Composite, fields *x12.Segment) error {
	cols, ok := compositeTables[ce.ID]
	if !ok {
		return fmt.Errorf("no table for composite %s", ce.ID)
	}
	table := compositeTableName(ce.ID)

	for k, comps := range fields.Composite(ce.Element) {
		if !slices.ContainsFunc(comps, func(c string) bool { return c != "" }) {
			continue
		}
		if len(comps) > len(cols) {
			s.log.Warn("Composite has too many components, extra ignored",
				zap.String("segment", t.segment), zap.Int("element", ce.Element),
				zap.String("composite", ce.ID), zap.Int("components", len(comps)))
			comps = comps[:len(cols)]
		}

		names := make([]string, 0, len(comps))
		args := []any{k, t.table(), row, ce.Element}
		for m, c := range comps {
			if c == "" {
				continue
			}
			names = append(names, cols[m])
			args = append(args, c)
		}
		query := "INSERT INTO " + table + " (segment_order, parent_type, parent_id, element"
		for _, n := range names {
			query += ", " + n
		}
		query += ") VALUES (?, ?, ?, ?" + strings.Repeat(", ?", len(names)) + ");"

		if err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) insertQuery(t *segmentTable) string {
	if q, ok := s.inserts[t.segment]; ok {
		return q
	}
	var b strings.Builder
	b.WriteString("INSERT INTO " + t.table() + " (segment_order, parent_type, parent_id")
	for _, c := range t.columns {
		b.WriteString(", " + c.name)
	}
	b.WriteString(") VALUES (?, ?, ?" + strings.Repeat(", ?", len(t.columns)) + ");")
	q := b.String()
	s.inserts[t.segment] = q
	return q
}

// reportUnmapped logs fields which did not land in any column.
func (s *Store) reportUnmapped(t *segmentTable, fields *x12.Segment) {
	if ce := s.log.Check(zap.DebugLevel, "Segment field not stored"); ce == nil {
		return
	}
	composites := remit.CompositeElements[t.segment]
	for _, f := range fields.Fields {
		if f.Value == "" {
			continue
		}
		if slices.ContainsFunc(t.columns, func(c column) bool { return c.path == f.Path }) {
			continue
		}
		if slices.ContainsFunc(composites, func(c remit.Composite) bool { return c.Element == f.Path.Element }) {
			continue
		}
		s.log.Debug("Segment field not stored",
			zap.String("segment", t.segment), zap.Stringer("path", f.Path), zap.String("value", f.Value))
	}
}

// Counts returns number of rows in every table.
func (s *Store) Counts() (map[string]int64, error) {
	out := make(map[string]int64)
	for _, table := range Tables() {
		err := sqlitex.Execute(s.conn, "SELECT count(*) FROM "+table+";",
			&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
				out[table] = stmt.ColumnInt64(0)
				return nil
			}})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ remit.Sink = (*Store)(nil)
