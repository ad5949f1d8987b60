package distance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPowerCount bounds the size of a parsed power list.
const MaxPowerCount = 1000

var (
	// ErrNoPowers is returned for a power list that selects nothing.
	ErrNoPowers = errors.New("power list is empty")

	// ErrTooManyPowers is returned when a range expands past MaxPowerCount.
	ErrTooManyPowers = fmt.Errorf("power list longer than %d entries", MaxPowerCount)
)

// MaxPowers returns the integer powers 1..n, with n raised to at least
// MinMaxPower and lowered to at most MaxPowerCount.
func MaxPowers(n int) []float64 {
	n = max(n, MinMaxPower)
	n = min(n, MaxPowerCount)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// ParsePowerList parses a list of metric powers.
//
// Items are separated by commas. Each item is a single value "a", a range
// "a_b" (step 1) or a stepped range "a_b_c". Values are real numbers read
// from the longest numeric prefix, so "2x" is 2; anything without a
// positive numeric prefix counts as 1.
//
//	"2"          -> 2
//	"1_3"        -> 1 2 3
//	"1_20_3"     -> 1 4 7 10 13 16 19
//	".5,.75,2.5" -> 0.5 0.75 2.5
func ParsePowerList(s string) ([]float64, error) {
	var out []float64
	for _, item := range splitNonEmpty(s, ",") {
		parts := splitNonEmpty(item, "_")
		if len(parts) > 3 {
			parts = parts[:3]
		}

		vals := make([]float64, len(parts))
		for i, p := range parts {
			vals[i] = positiveOrOne(p)
		}

		var from, to, step float64
		switch len(vals) {
		case 1:
			from, to, step = vals[0], vals[0], 1
		case 2:
			from, to, step = vals[0], vals[1], 1
		case 3:
			from, to, step = vals[0], vals[1], vals[2]
		default:
			continue
		}

		for i := 0; ; i++ {
			v := from + float64(i)*step
			if v > to+1e-9 {
				break
			}
			if len(out) == MaxPowerCount {
				return nil, ErrTooManyPowers
			}
			out = append(out, v)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoPowers, s)
	}
	return out, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveOrOne(s string) float64 {
	v, ok := leadingFloat(s)
	if !ok || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

// leadingFloat parses the longest prefix of s that reads as a decimal
// number: optional sign, digits with an optional fraction, and an
// exponent only when it has digits.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}

	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			end = j
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
