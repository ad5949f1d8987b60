package csvio

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,qty")...),
			expected: "id,qty",
		},
		{
			name:     "file without BOM",
			input:    []byte("id,qty"),
			expected: "id,qty",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM kept",
			input:    []byte{0xEF, 0xBB, 'a'},
			expected: string([]byte{0xEF, 0xBB, 'a'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"ascii", []byte("a,b,c"), "a,b,c"},
		{"multibyte", []byte("größe,€"), "größe,€"},
		{"invalid byte", []byte{'a', 0x80, 'b'}, "a?b"},
		{"truncated rune at end", []byte{'a', 0xE2, 0x82}, "a??"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitRune(t *testing.T) {
	// One byte per read forces every multi-byte rune across reads.
	input := "€uro,größe"
	got, err := io.ReadAll(NewUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestWrap(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'i', 'd', 0x80, ',', 'x'}...)

	r := Wrap(bytes.NewReader(input))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "id?,x" {
		t.Errorf("got %q, want %q", got, "id?,x")
	}
	if r.BytesRead != int64(len(got)) {
		t.Errorf("BytesRead = %d, want %d", r.BytesRead, len(got))
	}
}

func TestNewReader_RaggedRows(t *testing.T) {
	r := NewReader(strings.NewReader("a,b,c,\n1,2\n3, \"x\" ,4,5,6\n"))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := []int{4, 2, 5}
	for i, rec := range records {
		if len(rec) != want[i] {
			t.Errorf("record %d has %d fields, want %d", i, len(rec), want[i])
		}
	}
}
