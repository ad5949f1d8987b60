package stitch

import (
	"errors"
	"slices"
	"testing"
)

func TestSlice_Indices(t *testing.T) {
	tests := []struct {
		expr string
		n    int
		want []int
	}{
		{"::", 5, []int{0, 1, 2, 3, 4}},
		{"", 3, []int{0, 1, 2}},
		{"::2", 5, []int{0, 2, 4}},
		{"1:3", 4, []int{1, 2}},
		{"::-1", 3, []int{2, 1, 0}},
		{"-2:", 5, []int{3, 4}},
		{":-1", 4, []int{0, 1, 2}},
		{":100", 3, []int{0, 1, 2}},
		{"-100:2", 4, []int{0, 1}},
		{"5:1", 6, nil},
		{"3:0:-1", 5, []int{3, 2, 1}},
		{"::", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseSlice(tt.expr).Indices(tt.n)
			if err != nil {
				t.Fatalf("Indices(%d) error = %v", tt.n, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Indices(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestSlice_ZeroStep(t *testing.T) {
	_, err := ParseSlice("::0").Indices(4)
	if !errors.Is(err, ErrZeroStep) {
		t.Errorf("expected ErrZeroStep, got %v", err)
	}
}

func TestParseSlice_MalformedIsUnbounded(t *testing.T) {
	for _, expr := range []string{"abc", "x:y:z", "1.5::", " : : "} {
		s := ParseSlice(expr)
		if s.Start != nil || s.Stop != nil || s.Step != nil {
			t.Errorf("ParseSlice(%q) = %s, want ::", expr, s)
		}
	}
}

func TestParseSlice_PartialComponents(t *testing.T) {
	s := ParseSlice("2:abc:3")
	if s.String() != "2::3" {
		t.Errorf("ParseSlice(2:abc:3) = %s, want 2::3", s)
	}

	s = ParseSlice(" 1 : 4 ")
	if s.String() != "1:4:" {
		t.Errorf("ParseSlice(\" 1 : 4 \") = %s, want 1:4:", s)
	}

	// Components past the third are ignored.
	s = ParseSlice("1:2:3:4")
	if s.String() != "1:2:3" {
		t.Errorf("ParseSlice(1:2:3:4) = %s, want 1:2:3", s)
	}
}

func TestParseSliceStrict(t *testing.T) {
	if _, err := ParseSliceStrict("1:3"); err != nil {
		t.Errorf("ParseSliceStrict(1:3) error = %v", err)
	}
	if _, err := ParseSliceStrict("::"); err != nil {
		t.Errorf("ParseSliceStrict(::) error = %v", err)
	}

	for _, expr := range []string{"abc", "1:x", "1:2:3:4"} {
		if _, err := ParseSliceStrict(expr); !errors.Is(err, ErrMalformedSlice) {
			t.Errorf("ParseSliceStrict(%q) error = %v, want ErrMalformedSlice", expr, err)
		}
	}
}
