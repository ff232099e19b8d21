// ABOUTME: Table documents with an optional numeric range index over their rows
// ABOUTME: Single-column keys use a range tree, lower/upper column pairs an interval tree

package factory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/faktorips/faktorips.base-sub009/pkg/rangetree"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// ErrBadTable is returned for table resources that cannot be indexed
var ErrBadTable = errors.New("factory: malformed table")

type tableIndex struct {
	Column string `yaml:"column,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
	Lower  string `yaml:"lower,omitempty"`
	Upper  string `yaml:"upper,omitempty"`
}

// tableFile is the persisted layout of a table
type tableFile struct {
	Columns []string    `yaml:"columns"`
	Rows    [][]any     `yaml:"rows"`
	Index   *tableIndex `yaml:"index,omitempty"`
}

// TableDocument is a table of rows with an optional key index
type TableDocument struct {
	Entry   *toc.Entry
	Columns []string
	Rows    [][]any

	mode      rangetree.Mode
	keys      *rangetree.Tree[float64, int]
	intervals *rangetree.IntervalTree[float64, int]
}

func parseMode(name string) (rangetree.Mode, error) {
	for _, m := range []rangetree.Mode{rangetree.LowerBound, rangetree.LowerBoundEqual, rangetree.UpperBound, rangetree.UpperBoundEqual} {
		if m.String() == name {
			return m, nil
		}
	}
	if name == "" {
		return rangetree.LowerBoundEqual, nil
	}
	return 0, fmt.Errorf("%w: unknown index mode %q", ErrBadTable, name)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func newTableDocument(e *toc.Entry, tf tableFile) (*TableDocument, error) {
	t := &TableDocument{Entry: e, Columns: tf.Columns, Rows: tf.Rows}
	for i, row := range tf.Rows {
		if len(row) != len(tf.Columns) {
			return nil, fmt.Errorf("%w: %s row %d has %d values for %d columns",
				ErrBadTable, e.ObjectID, i, len(row), len(tf.Columns))
		}
	}
	if tf.Index == nil {
		return t, nil
	}

	column := func(name string) (int, error) {
		i := slices.Index(tf.Columns, name)
		if i < 0 {
			return 0, fmt.Errorf("%w: %s has no column %q", ErrBadTable, e.ObjectID, name)
		}
		return i, nil
	}
	number := func(row, col int) (float64, error) {
		f, ok := toFloat(tf.Rows[row][col])
		if !ok {
			return 0, fmt.Errorf("%w: %s row %d column %q is not numeric",
				ErrBadTable, e.ObjectID, row, tf.Columns[col])
		}
		return f, nil
	}

	if tf.Index.Lower != "" || tf.Index.Upper != "" {
		lo, err := column(tf.Index.Lower)
		if err != nil {
			return nil, err
		}
		hi, err := column(tf.Index.Upper)
		if err != nil {
			return nil, err
		}
		m := make(map[rangetree.Interval[float64]]int, len(tf.Rows))
		for i := range tf.Rows {
			l, err := number(i, lo)
			if err != nil {
				return nil, err
			}
			u, err := number(i, hi)
			if err != nil {
				return nil, err
			}
			m[rangetree.Interval[float64]{Lower: l, Upper: u}] = i
		}
		if len(m) != len(tf.Rows) {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadTable, e.ObjectID, rangetree.ErrOverlappingIntervals)
		}
		tree, err := rangetree.NewOrderedIntervals(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadTable, e.ObjectID, err)
		}
		t.intervals = tree
		return t, nil
	}

	col, err := column(tf.Index.Column)
	if err != nil {
		return nil, err
	}
	mode, err := parseMode(tf.Index.Mode)
	if err != nil {
		return nil, err
	}
	m := make(map[float64]int, len(tf.Rows))
	for i := range tf.Rows {
		k, err := number(i, col)
		if err != nil {
			return nil, err
		}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("%w: %s has duplicate key %v", ErrBadTable, e.ObjectID, k)
		}
		m[k] = i
	}
	t.keys = rangetree.NewOrdered(m)
	t.mode = mode
	return t, nil
}

// ID returns the table's qualified name
func (t *TableDocument) ID() string {
	return t.Entry.ObjectID
}

// Indexed reports whether Lookup can be used
func (t *TableDocument) Indexed() bool {
	return t.keys != nil || t.intervals != nil
}

// Lookup returns the row selected by key through the table's index
func (t *TableDocument) Lookup(key float64) ([]any, bool) {
	var (
		row int
		ok  bool
	)
	switch {
	case t.intervals != nil:
		row, ok = t.intervals.Get(key)
	case t.keys != nil:
		row, ok = t.keys.Get(key, t.mode)
	}
	if !ok {
		return nil, false
	}
	return t.Rows[row], true
}

// Value returns the named column of a row returned by Lookup
func (t *TableDocument) Value(row []any, column string) (any, bool) {
	i := slices.Index(t.Columns, column)
	if i < 0 || i >= len(row) {
		return nil, false
	}
	return row[i], true
}
