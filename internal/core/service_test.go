package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/distance/internal/distance"
	"github.com/JonMunkholm/distance/internal/stitch"
	"github.com/JonMunkholm/distance/internal/store"
)

// memoryStore is an in-memory RunStore.
type memoryStore struct {
	mu   sync.Mutex
	runs []store.Run
	err  error
}

func (m *memoryStore) RecordRun(_ context.Context, run store.Run) (store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.Run{}, m.err
	}
	run.ID = uuid.New()
	run.CreatedAt = time.Now()
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memoryStore) GetRun(_ context.Context, id uuid.UUID) (store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return store.Run{}, store.ErrRunNotFound
}

func (m *memoryStore) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Run(nil), m.runs...), nil
}

func inputs(files map[string]string, order ...string) []stitch.Input {
	out := make([]stitch.Input, len(order))
	for i, name := range order {
		out[i] = stitch.Input{Name: name, Reader: strings.NewReader(files[name])}
	}
	return out
}

func TestService_Stitch(t *testing.T) {
	runs := &memoryStore{}
	svc := NewService(runs, Options{})

	var out bytes.Buffer
	stats, err := svc.Stitch(context.Background(), inputs(map[string]string{
		"a": "id,x,\n1,2,\n3,4,\n",
		"b": "id,y\n1,5\n3,6\n",
	}, "a", "b"), stitch.DefaultOptions(), &out)
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}

	want := "\"aid\",\"ax\",\"by\",\n1,2,5,\n3,4,6,\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if stats.Rows != 2 {
		t.Errorf("Rows = %d, want 2", stats.Rows)
	}

	if len(runs.runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs.runs))
	}
	run := runs.runs[0]
	if run.Kind != store.KindStitch || run.Rows != 2 {
		t.Errorf("recorded run = %+v", run)
	}
	if names, _ := run.Params["inputs"].([]string); len(names) != 2 || names[0] != "a" {
		t.Errorf("recorded inputs = %v", run.Params["inputs"])
	}
}

func TestService_Stitch_ErrorNotRecorded(t *testing.T) {
	runs := &memoryStore{}
	svc := NewService(runs, Options{})

	_, err := svc.Stitch(context.Background(), inputs(map[string]string{
		"a": "id,x\n1,2\n",
		"b": "id,y,z\n1\n",
	}, "a", "b"), stitch.DefaultOptions(), &bytes.Buffer{})
	if !errors.Is(err, stitch.ErrRowLengthMismatch) {
		t.Fatalf("Stitch() error = %v, want ErrRowLengthMismatch", err)
	}
	if len(runs.runs) != 0 {
		t.Errorf("failed stitch should not be recorded, got %d runs", len(runs.runs))
	}
}

func TestService_StitchFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "left.csv")
	b := filepath.Join(dir, "right.csv")
	if err := os.WriteFile(a, []byte("k,v\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("k,w\n1,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(nil, Options{})
	var out bytes.Buffer
	if _, err := svc.StitchFiles(context.Background(), []string{a, b}, nil, stitch.DefaultOptions(), &out); err != nil {
		t.Fatalf("StitchFiles() error = %v", err)
	}
	want := "\"leftk\",\"leftv\",\"rightw\",\n1,2,3,\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	_, err := svc.StitchFiles(context.Background(), []string{a, filepath.Join(dir, "missing.csv")}, nil, stitch.DefaultOptions(), &out)
	var openErr *stitch.OpenError
	if !errors.As(err, &openErr) {
		t.Errorf("StitchFiles() error = %v, want *stitch.OpenError", err)
	}
}

func TestService_RunHistogram(t *testing.T) {
	runs := &memoryStore{}
	svc := NewService(runs, Options{})

	res, id, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 5, Randoms: 2000, Seed: 3})
	if err != nil {
		t.Fatalf("RunHistogram() error = %v", err)
	}
	if len(res.Counts()) != 6 {
		t.Errorf("len(Counts) = %d, want 6", len(res.Counts()))
	}
	if id == uuid.Nil {
		t.Fatal("run id should be set when history is enabled")
	}

	run, err := svc.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !strings.HasPrefix(run.Output, "bin,count,\n") {
		t.Errorf("recorded output = %q", run.Output)
	}
	if run.Params["seed"] != uint64(3) {
		t.Errorf("recorded seed = %v", run.Params["seed"])
	}
}

func TestService_RunCube(t *testing.T) {
	runs := &memoryStore{}
	svc := NewService(runs, Options{MaxRandoms: 5000})

	res, id, err := svc.RunCube(context.Background(), distance.CubeParams{Dimensions: 3, Randoms: 2000, Seed: 9})
	if err != nil {
		t.Fatalf("RunCube() error = %v", err)
	}
	if len(res.Averages) != 3 || id == uuid.Nil {
		t.Errorf("RunCube() = %d rows, id %v", len(res.Averages), id)
	}
	if !strings.HasPrefix(runs.runs[0].Output, `DIM\Power, 1, 2, 3, `) {
		t.Errorf("recorded output = %q", runs.runs[0].Output)
	}
}

func TestService_SampleCap(t *testing.T) {
	svc := NewService(nil, Options{MaxRandoms: 5000})

	if _, _, err := svc.RunCube(context.Background(), distance.CubeParams{Randoms: 10000}); !errors.Is(err, ErrTooManySamples) {
		t.Errorf("RunCube() error = %v, want ErrTooManySamples", err)
	}
	// Default histogram samples are 1000 per bin.
	if _, _, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 6}); !errors.Is(err, ErrTooManySamples) {
		t.Errorf("RunHistogram() error = %v, want ErrTooManySamples", err)
	}
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := NewService(nil, Options{})
	if svc.HistoryEnabled() {
		t.Error("HistoryEnabled() = true without a store")
	}

	_, id, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 2, Randoms: 100, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if id != uuid.Nil {
		t.Errorf("id = %v, want uuid.Nil", id)
	}

	if _, err := svc.ListRuns(context.Background(), 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("ListRuns() error = %v, want ErrHistoryDisabled", err)
	}
	if _, err := svc.GetRun(context.Background(), uuid.New()); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("GetRun() error = %v, want ErrHistoryDisabled", err)
	}
}

func TestService_RecordFailureKeepsResult(t *testing.T) {
	svc := NewService(&memoryStore{err: errors.New("connection refused")}, Options{})

	res, id, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 2, Randoms: 100, Seed: 1})
	if err != nil {
		t.Fatalf("RunHistogram() error = %v", err)
	}
	if res == nil || id != uuid.Nil {
		t.Errorf("RunHistogram() = %v, %v", res, id)
	}
}

func TestService_Busy(t *testing.T) {
	limiter := NewJobLimiter(1, 10*time.Millisecond)
	svc := NewService(nil, Options{Limiter: limiter})

	limiter.TryAcquire()
	_, _, err := svc.RunCube(context.Background(), distance.CubeParams{Seed: 1})
	if !errors.Is(err, ErrTooManyJobs) {
		t.Errorf("RunCube() error = %v, want ErrTooManyJobs", err)
	}
	limiter.Release()

	if err := svc.WaitForJobs(context.Background()); err != nil {
		t.Errorf("WaitForJobs() error = %v", err)
	}
}

func TestService_RecordsClientIP(t *testing.T) {
	runs := &memoryStore{}
	svc := NewService(runs, Options{})

	ctx := ContextWithClientIP(context.Background(), "203.0.113.7")
	if _, _, err := svc.RunHistogram(ctx, distance.HistogramParams{Bins: 2, Randoms: 100, Seed: 1}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 2, Randoms: 100, Seed: 1}); err != nil {
		t.Fatal(err)
	}

	if got := runs.runs[0].Params["client_ip"]; got != "203.0.113.7" {
		t.Errorf("client_ip = %v, want 203.0.113.7", got)
	}
	if _, ok := runs.runs[1].Params["client_ip"]; ok {
		t.Error("client_ip recorded without a client")
	}
}

func TestService_SizeLimits(t *testing.T) {
	svc := NewService(nil, Options{MaxRandoms: 10_000_000, MaxBins: 1000, MaxDimensions: 50})
	unlimited := NewService(nil, Options{MaxRandoms: 10_000_000})

	histograms := []struct {
		name string
		svc  *Service
		p    distance.HistogramParams
	}{
		{"default samples would overflow", svc, distance.HistogramParams{Bins: 1 << 60}},
		{"explicit samples under the cap", svc, distance.HistogramParams{Bins: 1 << 50, Randoms: 1000}},
		{"over the configured limit", svc, distance.HistogramParams{Bins: 1001, Randoms: 1000}},
		{"no configured limit", unlimited, distance.HistogramParams{Bins: 1 << 60}},
	}
	for _, tt := range histograms {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.svc.RunHistogram(context.Background(), tt.p)
			if !errors.Is(err, distance.ErrTooManyBins) {
				t.Errorf("RunHistogram() error = %v, want ErrTooManyBins", err)
			}
		})
	}

	if _, _, err := svc.RunCube(context.Background(), distance.CubeParams{Dimensions: 51, Seed: 1}); !errors.Is(err, distance.ErrTooManyDimensions) {
		t.Errorf("RunCube() error = %v, want ErrTooManyDimensions", err)
	}
	if _, _, err := unlimited.RunCube(context.Background(), distance.CubeParams{Dimensions: 1 << 40, Seed: 1}); !errors.Is(err, distance.ErrTooManyDimensions) {
		t.Errorf("RunCube() without a configured limit: error = %v, want ErrTooManyDimensions", err)
	}

	if _, _, err := svc.RunHistogram(context.Background(), distance.HistogramParams{Bins: 1000, Randoms: 1000, Seed: 1}); err != nil {
		t.Errorf("RunHistogram() at the limit: error = %v", err)
	}
}
