package stitch

import (
	"fmt"
	"strconv"
	"strings"
)

// Slice selects a subsequence of indices with start:stop:step semantics:
// zero-indexed, exclusive stop, negative values count from the end.
// A nil bound is unbounded.
type Slice struct {
	Start *int
	Stop  *int
	Step  *int
}

// ParseSlice parses "start:stop:step". Missing or unparseable components
// are left unbounded, so "abc" selects everything just like "::".
func ParseSlice(expr string) Slice {
	s, _ := parseSlice(expr, false)
	return s
}

// ParseSliceStrict is ParseSlice but rejects components that are not
// integers and expressions with more than three components.
func ParseSliceStrict(expr string) (Slice, error) {
	return parseSlice(expr, true)
}

func parseSlice(expr string, strict bool) (Slice, error) {
	if strict && strings.Count(expr, ":") > 2 {
		return Slice{}, fmt.Errorf("%w %q: more than three components", ErrMalformedSlice, expr)
	}

	parts := strings.SplitN(expr+"::", ":", 4)[:3]

	var s Slice
	bounds := []**int{&s.Start, &s.Stop, &s.Step}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			if strict {
				return Slice{}, fmt.Errorf("%w %q: component %q is not an integer", ErrMalformedSlice, expr, part)
			}
			continue
		}
		*bounds[i] = &v
	}
	return s, nil
}

// Indices returns the positions selected from a sequence of length n.
func (s Slice) Indices(n int) ([]int, error) {
	step := 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 {
		return nil, ErrZeroStep
	}

	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}

	start, stop := lower, upper
	if step < 0 {
		start, stop = upper, lower
	}
	start = resolveBound(s.Start, n, lower, upper, start)
	stop = resolveBound(s.Stop, n, lower, upper, stop)

	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}

func resolveBound(v *int, n, lower, upper, def int) int {
	if v == nil {
		return def
	}
	i := *v
	if i < 0 {
		i += n
		if i < lower {
			i = lower
		}
	} else if i > upper {
		i = upper
	}
	return i
}

// String renders the slice back to start:stop:step form.
func (s Slice) String() string {
	format := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	return format(s.Start) + ":" + format(s.Stop) + ":" + format(s.Step)
}
