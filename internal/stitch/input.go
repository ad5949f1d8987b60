package stitch

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// StdinPath names standard input on the command line.
const StdinPath = "-"

// Input is one named CSV stream taking part in a stitch.
type Input struct {
	Name   string // prefix used when renaming header cells
	Reader io.Reader
}

// NameFromPath returns the header prefix for a path: its base name
// without extension.
func NameFromPath(path string) string {
	if path == StdinPath {
		return "stdin"
	}
	base := filepath.Base(path)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

// Files holds the inputs opened from disk for a single stitch.
type Files struct {
	Inputs  []Input
	closers []io.Closer
}

// Open opens every path once, in argument order. StdinPath reads stdin.
// If any path fails to open, the files already opened are closed and an
// *OpenError is returned.
func Open(paths []string, stdin io.Reader) (*Files, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	files := &Files{Inputs: make([]Input, 0, len(paths))}
	for _, path := range paths {
		if path == StdinPath {
			files.Inputs = append(files.Inputs, Input{Name: NameFromPath(path), Reader: stdin})
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			files.Close()
			return nil, &OpenError{Path: path, Err: err}
		}
		files.closers = append(files.closers, f)
		files.Inputs = append(files.Inputs, Input{Name: NameFromPath(path), Reader: f})
	}
	return files, nil
}

// Close closes every opened file and reports all failures together.
func (f *Files) Close() error {
	var result *multierror.Error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	f.closers = nil
	return result.ErrorOrNil()
}
