// Package csvio prepares raw CSV byte streams for encoding/csv.
//
// Legacy exports often start with a UTF-8 byte order mark or carry stray
// Latin-1 bytes. The readers here clean both up on the fly so a stitch
// never has to hold a whole file in memory:
//
//   - BOMSkippingReader drops a leading 0xEF 0xBB 0xBF
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader tracks how many bytes were consumed
//
// Wrap applies all three in that order.
package csvio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader removes a UTF-8 byte order mark from the start of a stream.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader returns a reader that strips a leading BOM from r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?'.
//
// A multi-byte sequence split across two reads is held back until the
// next read completes it, so valid input passes through unchanged.
type UTF8Sanitizer struct {
	r       io.Reader
	pending []byte
}

// NewUTF8Sanitizer returns a sanitizing reader over r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	if offset < len(s.pending) {
		s.pending = s.pending[:copy(s.pending, s.pending[offset:])]
		return offset, nil
	}
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	data := p[:n]
	if isASCII(data) {
		return n, err
	}
	return s.sanitize(data, err != nil), err
}

// sanitize rewrites data in place and returns the number of bytes kept.
// When more input may follow, an incomplete trailing rune moves to pending.
func (s *UTF8Sanitizer) sanitize(data []byte, final bool) int {
	w := 0
	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			data[w] = data[i]
			w++
			i++
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !final && !utf8.FullRune(data[i:]) {
				s.pending = append(s.pending, data[i:]...)
				return w
			}
			data[w] = '?'
			w++
			i++
			continue
		}

		w += copy(data[w:], data[i:i+size])
		i += size
	}
	return w
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// CountingReader records the number of bytes read through it.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
}

// NewCountingReader returns a counting reader over r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Wrap strips the BOM, sanitizes UTF-8 and counts bytes, in that order.
func Wrap(r io.Reader) *CountingReader {
	return NewCountingReader(NewUTF8Sanitizer(NewBOMSkippingReader(r)))
}

// NewReader returns a csv.Reader tuned for hand-edited and legacy files:
// rows may have differing field counts and stray quotes are tolerated.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
