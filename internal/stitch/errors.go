package stitch

import (
	"errors"
	"fmt"
)

var (
	// ErrRowLengthMismatch is returned when a data row has fewer fields
	// than its file's header declared.
	ErrRowLengthMismatch = errors.New("row length mismatch")

	// ErrEmptyInput is returned for an input without a usable header row.
	ErrEmptyInput = errors.New("empty file")

	// ErrNoInputs is returned when a stitch is started without inputs.
	ErrNoInputs = errors.New("no file provided")

	// ErrZeroStep is returned for a slice whose step is 0.
	ErrZeroStep = errors.New("slice step cannot be zero")

	// ErrMalformedSlice is only returned by strict slice parsing; the default
	// parser treats malformed components as unbounded.
	ErrMalformedSlice = errors.New("malformed slice")

	// ErrUnevenInputs is returned in strict mode when one input runs out of
	// rows before the others.
	ErrUnevenInputs = errors.New("inputs have different row counts")
)

// OpenError reports an input file that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open input %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// RowError locates a failure inside one input.
type RowError struct {
	Input string // input name (file base name)
	Line  int    // 1-indexed line in the input
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Input, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
