package distance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

const (
	// DefaultBins is the histogram resolution when none is given.
	DefaultBins = 100

	// MaxBins bounds HistogramParams.Bins.
	MaxBins = 1 << 20
)

// ErrTooManyBins is returned for more than MaxBins bins.
var ErrTooManyBins = errors.New("too many histogram bins")

// HistogramParams configures a unit segment histogram.
type HistogramParams struct {
	Bins    int    // default DefaultBins
	Randoms int    // sample pairs; default 1000 per bin
	Seed    uint64 // 0 picks a time based seed
}

func (p HistogramParams) withDefaults() HistogramParams {
	if p.Bins <= 0 {
		p.Bins = DefaultBins
	}
	if p.Randoms <= 0 {
		p.Randoms = 1000 * p.Bins
	}
	p.Seed = resolveSeed(p.Seed)
	return p
}

// HistogramResult holds the filled histogram of one run.
type HistogramResult struct {
	Params HistogramParams // with defaults and the seed actually used
	hist   *hbook.H1D
}

// Histogram samples Randoms pairs of points on [0, 1) and counts each
// distance in bucket int(Bins*|a-b|). There are Bins+1 buckets; the last
// one only receives a distance of exactly 1.
func Histogram(ctx context.Context, p HistogramParams) (*HistogramResult, error) {
	if p.Bins > MaxBins {
		return nil, fmt.Errorf("%w: %d, limit %d", ErrTooManyBins, p.Bins, MaxBins)
	}
	p = p.withDefaults()
	rng := newRand(p.Seed, 0)

	// One unit wide bucket per index, filled at its centre.
	h := hbook.NewH1D(p.Bins+1, 0, float64(p.Bins+1))
	for i := 0; i < p.Randoms; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("histogram cancelled after %d samples: %w", i, err)
			}
		}
		d := math.Abs(rng.Float64() - rng.Float64())
		bucket := int(float64(p.Bins) * d)
		h.Fill(float64(bucket)+0.5, 1)
	}

	return &HistogramResult{Params: p, hist: h}, nil
}

// Counts returns the number of samples in each bucket.
func (r *HistogramResult) Counts() []int {
	bins := r.hist.Binning.Bins
	out := make([]int, len(bins))
	for i := range bins {
		out[i] = int(math.Round(bins[i].SumW()))
	}
	return out
}

// Fractions returns each bucket's share of all samples.
func (r *HistogramResult) Fractions() []float64 {
	counts := r.Counts()
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c) / float64(r.Params.Randoms)
	}
	return out
}

// WriteCSV prints a "bin,count," header and one "i, fraction," line per
// bucket.
func (r *HistogramResult) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("bin,count,\n"); err != nil {
		return err
	}
	for i, f := range r.Fractions() {
		if _, err := fmt.Fprintf(bw, "%d, %s,\n", i, formatShortest(f)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SavePlot renders the histogram to path. The image format follows the
// file extension (png, svg, pdf, ...).
func (r *HistogramResult) SavePlot(path string) error {
	p := hplot.New()
	p.Title.Text = fmt.Sprintf("|a-b| on the unit segment (%d samples)", r.Params.Randoms)
	p.X.Label.Text = fmt.Sprintf("bucket (1/%d)", r.Params.Bins)
	p.Y.Label.Text = "samples"

	p.Add(hplot.NewH1D(r.hist), hplot.NewGrid())
	if err := p.Save(20*vg.Centimeter, 12*vg.Centimeter, path); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}
