// Package stitch joins CSV files side by side.
//
// Each input contributes the columns chosen by its Selector. The first
// input also keeps its identifier column. Output lines are produced one at
// a time by reading exactly one row from every input, and the stitch ends
// when the shortest input runs out.
//
// Output fields are joined with commas and never re-quoted, matching the
// legacy tool: a cell such as "a,b" is written as a,b and reads back as
// two columns.
package stitch

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/distance/internal/csvio"
	"github.com/JonMunkholm/distance/internal/logging"
)

// ContextCheckInterval is how often (in rows) Run checks for cancellation.
var ContextCheckInterval = 100

// Options controls a stitch.
type Options struct {
	// Slice picks data columns (excluding column 0) from every input.
	Slice Slice

	// Strict turns the shortest-input cut-off into ErrUnevenInputs.
	Strict bool

	// TrailingComma ends every output line with a comma, as the legacy
	// tool did.
	TrailingComma bool
}

// DefaultOptions selects every column and keeps the legacy line format.
func DefaultOptions() Options {
	return Options{TrailingComma: true}
}

// Stats summarises a finished stitch.
type Stats struct {
	Inputs    int
	Columns   int
	Rows      int   // data rows written, excluding the header
	BytesRead int64 // across all inputs
}

type source struct {
	name     string
	counter  *csvio.CountingReader
	reader   *csv.Reader
	selector *Selector
}

// Stitcher streams the stitched rows of a fixed set of inputs.
type Stitcher struct {
	sources []*source
	header  Row
	opts    Options
}

// New reads the header of every input and builds its selector.
// Only the first input keeps column 0.
func New(inputs []Input, opts Options) (*Stitcher, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	st := &Stitcher{opts: opts}
	for i, in := range inputs {
		counter := csvio.Wrap(in.Reader)
		reader := csvio.NewReader(counter)

		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, &RowError{Input: in.Name, Line: 1, Err: ErrEmptyInput}
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv in %s: %w", in.Name, err)
		}

		sel, err := NewSelector(header, opts.Slice, i == 0)
		if err != nil {
			return nil, &RowError{Input: in.Name, Line: 1, Err: err}
		}

		st.sources = append(st.sources, &source{
			name:     in.Name,
			counter:  counter,
			reader:   reader,
			selector: sel,
		})
		st.header = append(st.header, sel.Header(in.Name)...)
	}
	return st, nil
}

// Header returns the renamed, selected header line.
func (s *Stitcher) Header() Row {
	return s.header
}

// Run writes the header line and then one stitched line per row until the
// shortest input is exhausted. A read failure in any input aborts the
// stitch without writing a partial line.
func (s *Stitcher) Run(ctx context.Context, w io.Writer) (Stats, error) {
	logger := logging.FromContext(ctx)
	bw := bufio.NewWriter(w)

	stats := Stats{Inputs: len(s.sources), Columns: len(s.header)}
	if err := s.writeLine(bw, s.header); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	for {
		if stats.Rows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				bw.Flush()
				return stats, fmt.Errorf("stitch cancelled after %d rows: %w", stats.Rows, err)
			}
		}

		row, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if flushErr := bw.Flush(); flushErr != nil {
				logger.Warn("flush after stitch failure", "error", flushErr)
			}
			return s.finish(stats), err
		}

		if err := s.writeLine(bw, row); err != nil {
			return s.finish(stats), fmt.Errorf("write row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++
	}

	if err := bw.Flush(); err != nil {
		return s.finish(stats), fmt.Errorf("flush output: %w", err)
	}

	stats = s.finish(stats)
	logger.Debug("stitch complete",
		"inputs", stats.Inputs,
		"columns", stats.Columns,
		"rows", stats.Rows,
		"bytes_read", stats.BytesRead,
	)
	return stats, nil
}

func (s *Stitcher) finish(stats Stats) Stats {
	stats.BytesRead = 0
	for _, src := range s.sources {
		stats.BytesRead += src.counter.BytesRead
	}
	return stats
}

// next reads one row from every input and concatenates their selections.
// It returns io.EOF as soon as any input is exhausted.
func (s *Stitcher) next() (Row, error) {
	out := make(Row, 0, len(s.header))
	var exhausted []string

	for _, src := range s.sources {
		record, err := src.reader.Read()
		if errors.Is(err, io.EOF) {
			if !s.opts.Strict {
				return nil, io.EOF
			}
			exhausted = append(exhausted, src.name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv in %s: %w", src.name, err)
		}

		selected, err := src.selector.Select(record)
		if err != nil {
			line, _ := src.reader.FieldPos(0)
			return nil, &RowError{Input: src.name, Line: line, Err: err}
		}
		out = append(out, selected...)
	}

	switch {
	case len(exhausted) == 0:
		return out, nil
	case len(exhausted) == len(s.sources):
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: %s ended first", ErrUnevenInputs, strings.Join(exhausted, ", "))
	}
}

// writeLine joins row with commas. Fields are written as parsed, without
// CSV quoting.
func (s *Stitcher) writeLine(w *bufio.Writer, row Row) error {
	if _, err := w.WriteString(strings.Join(row, ",")); err != nil {
		return err
	}
	if s.opts.TrailingComma {
		if err := w.WriteByte(','); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// Stitch builds a Stitcher over already opened inputs and runs it.
func Stitch(ctx context.Context, inputs []Input, opts Options, w io.Writer) (Stats, error) {
	st, err := New(inputs, opts)
	if err != nil {
		return Stats{}, err
	}
	return st.Run(ctx, w)
}
