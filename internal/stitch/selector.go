package stitch

import (
	"fmt"
	"slices"
	"strings"
)

// Row is one CSV record.
type Row = []string

// Selector decides which columns of one input reach the stitched output.
//
// It is built once from the input's header row and then applied, unchanged,
// to every data row of that input. Column 0 is the row identifier and is
// kept only when first is set. The input's last column is always emitted
// exactly once, whether or not the slice selects it.
type Selector struct {
	header    Row
	width     int   // header field count, minus a blank trailing field
	columns   []int // absolute indices picked by the slice from [1, width)
	first     bool
	forceLast bool
}

// NewSelector builds the selection rule for an input from its header row.
func NewSelector(header Row, s Slice, first bool) (*Selector, error) {
	width := len(header)
	if width > 0 && strings.TrimSpace(header[width-1]) == "" {
		width--
	}
	if width < 1 {
		return nil, ErrEmptyInput
	}

	picked, err := s.Indices(width - 1)
	if err != nil {
		return nil, err
	}

	columns := make([]int, len(picked))
	for i, p := range picked {
		columns[i] = p + 1
	}

	last := width - 1
	return &Selector{
		header:    slices.Clone(header),
		width:     width,
		columns:   columns,
		first:     first,
		forceLast: last >= 1 && !slices.Contains(columns, last),
	}, nil
}

// Width is the number of fields the selector emits per row.
func (s *Selector) Width() int {
	n := len(s.columns)
	if s.first {
		n++
	}
	if s.forceLast {
		n++
	}
	return n
}

// Columns returns the input column indices emitted, in output order.
func (s *Selector) Columns() []int {
	out := make([]int, 0, s.Width())
	if s.first {
		out = append(out, 0)
	}
	out = append(out, s.columns...)
	if s.forceLast {
		out = append(out, s.width-1)
	}
	return out
}

// Select returns row's contribution to the stitched row.
func (s *Selector) Select(row Row) (Row, error) {
	if len(row) < s.width {
		return nil, fmt.Errorf("%w: got %d fields, want at least %d", ErrRowLengthMismatch, len(row), s.width)
	}

	out := make(Row, 0, s.Width())
	if s.first {
		out = append(out, row[0])
	}
	for _, c := range s.columns {
		out = append(out, row[c])
	}
	if s.forceLast {
		out = append(out, row[s.width-1])
	}
	return out, nil
}

// Header returns the selected header cells, each renamed to
// "<name><cell>" with embedded quotes removed and the result quoted,
// so equally named columns from different inputs stay distinguishable.
func (s *Selector) Header(name string) Row {
	renamed := make(Row, len(s.header))
	for i, cell := range s.header {
		renamed[i] = `"` + name + strings.ReplaceAll(cell, `"`, "") + `"`
	}
	// The header always satisfies its own width.
	out, _ := s.Select(renamed)
	return out
}
