package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/distance/internal/distance"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/stitch"
	"github.com/JonMunkholm/distance/internal/store"
)

var (
	// ErrHistoryDisabled is returned by history queries when no store is
	// configured.
	ErrHistoryDisabled = errors.New("run history disabled")

	// ErrTooManySamples is returned when a simulation asks for more
	// samples than Options.MaxRandoms.
	ErrTooManySamples = errors.New("too many samples")
)

// RunStore is the run history used by the service. *store.Store
// implements it.
type RunStore interface {
	RecordRun(ctx context.Context, run store.Run) (store.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Options configures a Service.
type Options struct {
	// Limiter bounds concurrent jobs. Nil means unbounded.
	Limiter *JobLimiter

	// MaxRandoms caps simulation sample counts. 0 means no cap.
	MaxRandoms int

	// MaxBins caps histogram bins. 0 or anything above distance.MaxBins
	// means distance.MaxBins.
	MaxBins int

	// MaxDimensions caps cube dimensions. 0 or anything above
	// distance.MaxDimensions means distance.MaxDimensions.
	MaxDimensions int
}

// Service runs stitches and simulations and records them.
type Service struct {
	runs          RunStore
	limiter       *JobLimiter
	maxRandoms    int
	maxBins       int
	maxDimensions int
	now           func() time.Time
}

// NewService creates a Service. runs may be nil to disable history.
func NewService(runs RunStore, opts Options) *Service {
	return &Service{
		runs:          runs,
		limiter:       opts.Limiter,
		maxRandoms:    opts.MaxRandoms,
		maxBins:       bounded(opts.MaxBins, distance.MaxBins),
		maxDimensions: bounded(opts.MaxDimensions, distance.MaxDimensions),
		now:           time.Now,
	}
}

// HistoryEnabled reports whether runs are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.runs != nil
}

// Limiter returns the job limiter, or nil.
func (s *Service) Limiter() *JobLimiter {
	return s.limiter
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.limiter == nil {
		return func() {}, nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return s.limiter.Release, nil
}

// WaitForJobs blocks until running jobs finish or ctx is done.
func (s *Service) WaitForJobs(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.WaitForDrain(ctx)
}

// Stitch stitches already opened inputs to w.
func (s *Service) Stitch(ctx context.Context, inputs []stitch.Input, opts stitch.Options, w io.Writer) (stitch.Stats, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return stitch.Stats{}, err
	}
	defer release()

	start := s.now()
	stats, err := stitch.Stitch(ctx, inputs, opts, w)
	if err != nil {
		return stats, err
	}

	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	s.record(ctx, store.Run{
		Kind: store.KindStitch,
		Params: map[string]any{
			"inputs":         names,
			"slice":          opts.Slice.String(),
			"strict":         opts.Strict,
			"trailing_comma": opts.TrailingComma,
			"columns":        stats.Columns,
			"bytes_read":     stats.BytesRead,
		},
		Rows:     stats.Rows,
		Duration: s.now().Sub(start),
	})
	return stats, nil
}

// StitchFiles opens paths ("-" is stdin), stitches them to w and closes
// them again.
func (s *Service) StitchFiles(ctx context.Context, paths []string, stdin io.Reader, opts stitch.Options, w io.Writer) (stats stitch.Stats, err error) {
	files, err := stitch.Open(paths, stdin)
	if err != nil {
		return stitch.Stats{}, err
	}
	defer func() {
		if closeErr := files.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close inputs: %w", closeErr)
		}
	}()

	return s.Stitch(ctx, files.Inputs, opts, w)
}

// RunHistogram runs a unit segment histogram. The returned id is uuid.Nil
// when history is disabled or recording failed.
func (s *Service) RunHistogram(ctx context.Context, p distance.HistogramParams) (*distance.HistogramResult, uuid.UUID, error) {
	// Bins are checked first so the default sample count cannot overflow.
	if p.Bins > s.maxBins {
		return nil, uuid.Nil, fmt.Errorf("%w: %d requested, limit %d", distance.ErrTooManyBins, p.Bins, s.maxBins)
	}

	randoms := p.Randoms
	if randoms <= 0 {
		bins := p.Bins
		if bins <= 0 {
			bins = distance.DefaultBins
		}
		randoms = 1000 * bins
	}
	if err := s.checkRandoms(randoms); err != nil {
		return nil, uuid.Nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	defer release()

	start := s.now()
	res, err := distance.Histogram(ctx, p)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id := s.recordResult(ctx, store.Run{
		Kind: store.KindHistogram,
		Params: map[string]any{
			"bins":    res.Params.Bins,
			"randoms": res.Params.Randoms,
			"seed":    res.Params.Seed,
		},
		Rows:     res.Params.Bins + 1,
		Duration: s.now().Sub(start),
	}, res)
	return res, id, nil
}

// RunCube runs the unit N-cube simulation. The returned id is uuid.Nil
// when history is disabled or recording failed.
func (s *Service) RunCube(ctx context.Context, p distance.CubeParams) (*distance.CubeResult, uuid.UUID, error) {
	if p.Dimensions > s.maxDimensions {
		return nil, uuid.Nil, fmt.Errorf("%w: %d requested, limit %d", distance.ErrTooManyDimensions, p.Dimensions, s.maxDimensions)
	}
	if err := s.checkRandoms(max(p.Randoms, distance.MinRandoms)); err != nil {
		return nil, uuid.Nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	defer release()

	start := s.now()
	res, err := distance.Cube(ctx, p)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id := s.recordResult(ctx, store.Run{
		Kind: store.KindCube,
		Params: map[string]any{
			"dimensions": res.Params.Dimensions,
			"powers":     res.Params.Powers,
			"randoms":    res.Params.Randoms,
			"normalize":  res.Params.Normalize,
			"metric":     string(res.Params.Metric),
			"workers":    res.Params.Workers,
			"seed":       res.Params.Seed,
		},
		Rows:     res.Params.Dimensions,
		Duration: s.now().Sub(start),
	}, res)
	return res, id, nil
}

// bounded returns limit, or hard when limit is unset or above it.
func bounded(limit, hard int) int {
	if limit <= 0 || limit > hard {
		return hard
	}
	return limit
}

func (s *Service) checkRandoms(n int) error {
	if s.maxRandoms > 0 && n > s.maxRandoms {
		return fmt.Errorf("%w: %d requested, limit %d", ErrTooManySamples, n, s.maxRandoms)
	}
	return nil
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.ListRuns(ctx, limit)
}

// GetRun returns one recorded run including its output.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (store.Run, error) {
	if s.runs == nil {
		return store.Run{}, ErrHistoryDisabled
	}
	return s.runs.GetRun(ctx, id)
}

type csvWriter interface {
	WriteCSV(w io.Writer) error
}

// recordResult stores run together with the CSV rendering of res.
func (s *Service) recordResult(ctx context.Context, run store.Run, res csvWriter) uuid.UUID {
	if s.runs == nil {
		return uuid.Nil
	}
	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		logging.FromContext(ctx).Warn("render run output", "kind", run.Kind, "error", err)
	}
	run.Output = buf.String()
	return s.record(ctx, run)
}

// record stores run. History is best effort: a failed insert is logged
// and the job still succeeds.
func (s *Service) record(ctx context.Context, run store.Run) uuid.UUID {
	if s.runs == nil {
		return uuid.Nil
	}
	logger := logging.WithFields(ctx, "kind", run.Kind)

	if ip := ClientIPFromContext(ctx); ip != "" {
		if run.Params == nil {
			run.Params = map[string]any{}
		}
		run.Params["client_ip"] = ip
	}

	saved, err := s.runs.RecordRun(ctx, run)
	if err != nil {
		logger.Warn("record run failed", "error", err)
		return uuid.Nil
	}
	logger.Info("run recorded", "run_id", saved.ID, "rows", saved.Rows, "duration", saved.Duration)
	return saved.ID
}
