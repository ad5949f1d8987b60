package stitch

import (
	"errors"
	"slices"
	"testing"
)

func cols(n int) Row {
	row := make(Row, n)
	for i := range row {
		row[i] = "c" + string(rune('0'+i))
	}
	return row
}

func TestSelector_Select(t *testing.T) {
	tests := []struct {
		name   string
		header Row
		slice  string
		first  bool
		want   Row
	}{
		{
			name:   "all columns first file",
			header: cols(4),
			slice:  "::",
			first:  true,
			want:   Row{"c0", "c1", "c2", "c3"},
		},
		{
			name:   "all columns later file drops identifier",
			header: cols(4),
			slice:  "::",
			want:   Row{"c1", "c2", "c3"},
		},
		{
			name:   "every other column, last already selected",
			header: cols(6),
			slice:  "::2",
			first:  true,
			want:   Row{"c0", "c1", "c3", "c5"},
		},
		{
			name:   "range excludes last so it is forced",
			header: cols(5),
			slice:  "1:3",
			want:   Row{"c2", "c3", "c4"},
		},
		{
			name:   "every other column, last forced",
			header: cols(5),
			slice:  "::2",
			first:  true,
			want:   Row{"c0", "c1", "c3", "c4"},
		},
		{
			name:   "empty selection keeps last",
			header: cols(5),
			slice:  "3:1",
			want:   Row{"c4"},
		},
		{
			name:   "reverse already contains last",
			header: cols(4),
			slice:  "::-1",
			want:   Row{"c3", "c2", "c1"},
		},
		{
			name:   "malformed slice selects everything",
			header: cols(4),
			slice:  "abc",
			first:  true,
			want:   Row{"c0", "c1", "c2", "c3"},
		},
		{
			name:   "single column",
			header: cols(1),
			slice:  "::",
			first:  true,
			want:   Row{"c0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NewSelector(tt.header, ParseSlice(tt.slice), tt.first)
			if err != nil {
				t.Fatalf("NewSelector() error = %v", err)
			}

			got, err := sel.Select(tt.header)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
			if sel.Width() != len(tt.want) {
				t.Errorf("Width() = %d, want %d", sel.Width(), len(tt.want))
			}
		})
	}
}

func TestSelector_TrailingBlankField(t *testing.T) {
	header := Row{"id", "a", "b", " "}
	sel, err := NewSelector(header, ParseSlice("::"), true)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	got, err := sel.Select(Row{"1", "2", "3", ""})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if want := (Row{"1", "2", "3"}); !slices.Equal(got, want) {
		t.Errorf("Select() = %v, want %v", got, want)
	}

	// A row without the trailing separator is still long enough.
	if _, err := sel.Select(Row{"1", "2", "3"}); err != nil {
		t.Errorf("Select() on row without trailing field: %v", err)
	}
}

func TestSelector_RowTooShort(t *testing.T) {
	sel, err := NewSelector(cols(4), ParseSlice("::"), false)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	_, err = sel.Select(Row{"x", "y"})
	if !errors.Is(err, ErrRowLengthMismatch) {
		t.Errorf("expected ErrRowLengthMismatch, got %v", err)
	}
}

func TestSelector_ReusedForEveryRow(t *testing.T) {
	sel, err := NewSelector(cols(5), ParseSlice("1:3"), false)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	for _, row := range []Row{{"a", "b", "c", "d", "e"}, {"f", "g", "h", "i", "j"}} {
		got, err := sel.Select(row)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		want := Row{row[2], row[3], row[4]}
		if !slices.Equal(got, want) {
			t.Errorf("Select(%v) = %v, want %v", row, got, want)
		}
	}
}

func TestSelector_Columns(t *testing.T) {
	sel, err := NewSelector(cols(6), ParseSlice("::2"), true)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	if got, want := sel.Columns(), []int{0, 1, 3, 5}; !slices.Equal(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestSelector_Header(t *testing.T) {
	sel, err := NewSelector(Row{"Day", `"Qty"`, `Total "usd"`}, ParseSlice("::"), true)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	got := sel.Header("sales")
	want := Row{`"salesDay"`, `"salesQty"`, `"salesTotal usd"`}
	if !slices.Equal(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}
}

func TestNewSelector_Errors(t *testing.T) {
	if _, err := NewSelector(Row{" "}, ParseSlice("::"), true); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("blank header: expected ErrEmptyInput, got %v", err)
	}
	if _, err := NewSelector(Row{}, ParseSlice("::"), true); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty header: expected ErrEmptyInput, got %v", err)
	}
	if _, err := NewSelector(cols(3), ParseSlice("::0"), true); !errors.Is(err, ErrZeroStep) {
		t.Errorf("zero step: expected ErrZeroStep, got %v", err)
	}
}
