package distance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Metric selects how per-dimension differences combine into a distance.
type Metric string

const (
	// MetricRoot is the p-norm (sum |dx|^p)^(1/p).
	MetricRoot Metric = "root"

	// MetricF is sum |dx|^p without the root. It is not homogeneous:
	// D(c*x) != c*D(x).
	MetricF Metric = "f"
)

var (
	// ErrInvalidMetric is returned for a metric name other than root or f.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrInvalidPower is returned for a power that is not a positive number.
	ErrInvalidPower = errors.New("invalid metric power")

	// ErrTooManyDimensions is returned for more than MaxDimensions.
	ErrTooManyDimensions = errors.New("too many dimensions")
)

// ParseMetric accepts "root" (also "norm" and "") or "f".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "root", "norm":
		return MetricRoot, nil
	case "f":
		return MetricF, nil
	default:
		return "", fmt.Errorf("%w %q: want root or f", ErrInvalidMetric, s)
	}
}

const (
	DefaultDimensions = 100
	DefaultRandoms    = 1_000_000
	MinRandoms        = 1000
	MinMaxPower       = 3

	// MaxDimensions bounds CubeParams.Dimensions.
	MaxDimensions = 1 << 16
)

// CubeParams configures a unit N-cube run.
type CubeParams struct {
	Dimensions int       // highest dimension; at least 1
	Powers     []float64 // metric powers; default 1, 2, 3
	Randoms    int       // sample pairs; at least MinRandoms
	Normalize  bool      // divide by the longest diagonal
	Metric     Metric    // default MetricRoot
	Workers    int       // goroutines sharing the samples; at least 1
	Seed       uint64    // 0 picks a time based seed
}

func (p CubeParams) withDefaults() CubeParams {
	if p.Dimensions < 1 {
		p.Dimensions = 1
	}
	if p.Randoms < MinRandoms {
		p.Randoms = MinRandoms
	}
	if len(p.Powers) == 0 {
		p.Powers = MaxPowers(MinMaxPower)
	}
	if p.Metric == "" {
		p.Metric = MetricRoot
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.Workers > p.Randoms {
		p.Workers = p.Randoms
	}
	p.Seed = resolveSeed(p.Seed)
	return p
}

// CubeResult holds the average distance for every dimension and power.
type CubeResult struct {
	Params CubeParams // with defaults and the seed actually used

	// Averages[d-1][k] is the mean distance in dimension d for Powers[k].
	Averages [][]float64
}

// Cube runs the N-cube simulation.
func Cube(ctx context.Context, p CubeParams) (*CubeResult, error) {
	if p.Dimensions > MaxDimensions {
		return nil, fmt.Errorf("%w: %d, limit %d", ErrTooManyDimensions, p.Dimensions, MaxDimensions)
	}
	if len(p.Powers) > MaxPowerCount {
		return nil, ErrTooManyPowers
	}
	p = p.withDefaults()
	for _, pw := range p.Powers {
		if pw <= 0 || math.IsNaN(pw) || math.IsInf(pw, 0) {
			return nil, fmt.Errorf("%w %v", ErrInvalidPower, pw)
		}
	}

	partials := make([][][]float64, p.Workers)
	per, rem := p.Randoms/p.Workers, p.Randoms%p.Workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.Workers; w++ {
		samples := per
		if w == p.Workers-1 {
			samples += rem
		}
		g.Go(func() error {
			totals, err := sampleCube(gctx, p, samples, w)
			if err != nil {
				return err
			}
			partials[w] = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cube simulation: %w", err)
	}

	averages := newMatrix(p.Dimensions, len(p.Powers))
	for d := range averages {
		dim := float64(d + 1)
		for k, pw := range p.Powers {
			var total float64
			for _, part := range partials {
				total += part[d][k]
			}
			avg := total / float64(p.Randoms)
			if p.Normalize {
				if p.Metric == MetricF {
					avg /= dim
				} else {
					avg /= math.Pow(dim, 1/pw)
				}
			}
			averages[d][k] = avg
		}
	}

	return &CubeResult{Params: p, Averages: averages}, nil
}

// sampleCube accumulates distance totals for one worker's share of samples.
// Each sample grows one coordinate at a time, so dimension d reuses the
// differences drawn for dimensions 1..d-1.
func sampleCube(ctx context.Context, p CubeParams, samples, worker int) ([][]float64, error) {
	rng := newRand(p.Seed, worker)
	totals := newMatrix(p.Dimensions, len(p.Powers))
	sums := make([]float64, len(p.Powers))

	inverse := make([]float64, len(p.Powers))
	for k, pw := range p.Powers {
		inverse[k] = 1 / pw
	}

	for s := 0; s < samples; s++ {
		if s%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		clear(sums)
		for d := 0; d < p.Dimensions; d++ {
			dx := math.Abs(rng.Float64() - rng.Float64())
			row := totals[d]
			for k, pw := range p.Powers {
				sums[k] += pow(dx, pw)
				if p.Metric == MetricF {
					row[k] += sums[k]
				} else {
					row[k] += pow(sums[k], inverse[k])
				}
			}
		}
	}
	return totals, nil
}

// pow short-circuits the common small integer exponents.
func pow(x, y float64) float64 {
	switch y {
	case 1:
		return x
	case 2:
		return x * x
	case 3:
		return x * x * x
	case 0.5:
		return math.Sqrt(x)
	}
	return math.Pow(x, y)
}

func newMatrix(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out
}

// WriteCSV prints a "DIM\Power" header naming every power and then one
// line per dimension.
func (r *CubeResult) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(`DIM\Power, `)
	for _, pw := range r.Params.Powers {
		bw.WriteString(r.powerLabel(pw))
		bw.WriteString(", ")
	}
	bw.WriteString("\n")

	for d, row := range r.Averages {
		bw.WriteString(strconv.Itoa(d + 1))
		bw.WriteString(", ")
		for _, v := range row {
			bw.WriteString(formatG(v))
			bw.WriteString(", ")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (r *CubeResult) powerLabel(pw float64) string {
	if r.Params.Metric == MetricF {
		return strconv.FormatFloat(pw, 'f', 2, 64)
	}
	return strconv.FormatFloat(pw, 'g', -1, 64)
}
