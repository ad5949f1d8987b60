package distance

import (
	"errors"
	"slices"
	"testing"
)

func TestParsePowerList(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
	}{
		{"2", []float64{2}},
		{"1_3", []float64{1, 2, 3}},
		{"1_20_3", []float64{1, 4, 7, 10, 13, 16, 19}},
		{".5,.75,2.5", []float64{0.5, 0.75, 2.5}},
		{"1,,3", []float64{1, 3}},
		{"0", []float64{1}},
		{"-4_2", []float64{1, 2}},
		{"x", []float64{1}},
		{"1_2_0.5_9", []float64{1, 1.5, 2}},
		{"0.1_0.3_0.1", []float64{0.1, 0.2, 0.30000000000000004}},
		{"3_1", nil},
		{"2x", []float64{2}},
		{"1.5e1abc_16", []float64{15, 16}},
		{"1e_2", []float64{1, 2}},
		{"e5", []float64{1}},
		{" .5 ", []float64{0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePowerList(tt.in)
			if tt.want == nil {
				if !errors.Is(err, ErrNoPowers) {
					t.Fatalf("ParsePowerList(%q) error = %v, want ErrNoPowers", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePowerList(%q) error = %v", tt.in, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParsePowerList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePowerList_Errors(t *testing.T) {
	if _, err := ParsePowerList(""); !errors.Is(err, ErrNoPowers) {
		t.Errorf("empty list: got %v, want ErrNoPowers", err)
	}
	if _, err := ParsePowerList("1_5000"); !errors.Is(err, ErrTooManyPowers) {
		t.Errorf("huge range: got %v, want ErrTooManyPowers", err)
	}
}

func TestMaxPowers(t *testing.T) {
	if got := MaxPowers(5); !slices.Equal(got, []float64{1, 2, 3, 4, 5}) {
		t.Errorf("MaxPowers(5) = %v", got)
	}
	if got := MaxPowers(1); !slices.Equal(got, []float64{1, 2, 3}) {
		t.Errorf("MaxPowers(1) = %v, want raised to 3", got)
	}
	if got := MaxPowers(1 << 40); len(got) != MaxPowerCount || got[len(got)-1] != MaxPowerCount {
		t.Errorf("len(MaxPowers(1<<40)) = %d, want capped at %d", len(got), MaxPowerCount)
	}
}
