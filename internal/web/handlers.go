package web

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/JonMunkholm/distance/internal/distance"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/stitch"
	"github.com/JonMunkholm/distance/internal/web/templates"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// handleIndex renders the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{
		HistoryEnabled: s.service.HistoryEnabled(),
		Slice:          s.cfg.Stitch.Slice,
		Bins:           s.cfg.Simulation.Bins,
		Dimensions:     s.cfg.Simulation.Dimensions,
		Powers:         s.cfg.Simulation.Powers,
	}
	if data.HistoryEnabled {
		runs, err := s.service.ListRuns(r.Context(), 0)
		if err != nil {
			// The page still works without the list.
			logging.FromContext(r.Context()).Warn("list runs for index", "error", err)
		}
		data.Runs = runs
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealth reports liveness and job slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"history": s.service.HistoryEnabled(),
	}
	if l := s.service.Limiter(); l != nil {
		resp["jobs"] = l.Status()
	}
	writeJSON(w, r, resp)
}

// handleStitch stitches the uploaded "files" in upload order.
//
// Form fields: files (one or more), slice, strict, trailing_comma.
// The result is buffered so that a failure halfway through still produces
// a clean error response instead of a truncated CSV.
func (s *Server) handleStitch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		respondError(w, r, fmt.Errorf("parse upload: %w", err), status)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.stitchOptions(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, stitch.ErrNoInputs, http.StatusBadRequest)
		return
	}

	inputs, closeAll, err := openUploads(headers)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer func() {
		if err := closeAll(); err != nil {
			logging.FromContext(r.Context()).Warn("close uploads", "error", err)
		}
	}()

	var buf bytes.Buffer
	stats, err := s.service.Stitch(r.Context(), inputs, opts, &buf)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stitched.csv"`)
	w.Header().Set("X-Stitch-Rows", strconv.Itoa(stats.Rows))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write stitch response", "error", err)
	}
}

func (s *Server) stitchOptions(r *http.Request) (stitch.Options, error) {
	opts := stitch.Options{
		Strict:        s.cfg.Stitch.Strict,
		TrailingComma: s.cfg.Stitch.TrailingComma,
	}

	var err error
	if opts.Strict, err = boolParam(r.FormValue("strict"), "strict", opts.Strict); err != nil {
		return opts, err
	}
	if opts.TrailingComma, err = boolParam(r.FormValue("trailing_comma"), "trailing_comma", opts.TrailingComma); err != nil {
		return opts, err
	}

	expr := r.FormValue("slice")
	if expr == "" {
		expr = s.cfg.Stitch.Slice
	}
	if opts.Strict {
		opts.Slice, err = stitch.ParseSliceStrict(expr)
	} else {
		opts.Slice = stitch.ParseSlice(expr)
	}
	return opts, err
}

// openUploads opens every uploaded file. The returned func closes them all.
func openUploads(headers []*multipart.FileHeader) ([]stitch.Input, func() error, error) {
	var files []multipart.File
	closeAll := func() error {
		var result *multierror.Error
		for _, f := range files {
			if err := f.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	inputs := make([]stitch.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, &stitch.OpenError{Path: fh.Filename, Err: err}
		}
		files = append(files, f)
		inputs = append(inputs, stitch.Input{Name: stitch.NameFromPath(fh.Filename), Reader: f})
	}
	return inputs, closeAll, nil
}

// handleHistogram runs the unit segment histogram.
// Query: bins, randoms, seed.
func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := distance.HistogramParams{
		Bins:    q.integer("bins", s.cfg.Simulation.Bins),
		Randoms: q.integer("randoms", s.cfg.Simulation.Randoms),
		Seed:    q.unsigned("seed", s.cfg.Simulation.Seed),
	}
	if err := q.err(); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, id, err := s.service.RunHistogram(r.Context(), p)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeCSV(w, r, res, id, res.Params.Seed)
}

// handleCube runs the unit N-cube simulation.
// Query: dims, p (highest integer power) or powers (list), randoms,
// normalize, metric, workers, seed.
func (s *Server) handleCube(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := distance.CubeParams{
		Dimensions: q.integer("dims", s.cfg.Simulation.Dimensions),
		Randoms:    q.integer("randoms", s.cfg.Simulation.Randoms),
		Normalize:  q.flag("normalize", false),
		Workers:    q.integer("workers", s.cfg.Simulation.Workers),
		Seed:       q.unsigned("seed", s.cfg.Simulation.Seed),
	}
	maxPower := q.integer("p", s.cfg.Simulation.Powers)
	if err := q.err(); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	// Clamp workers so one request cannot claim every core.
	p.Workers = min(p.Workers, s.cfg.Simulation.Workers)

	var err error
	if p.Metric, err = distance.ParseMetric(r.URL.Query().Get("metric")); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if list := r.URL.Query().Get("powers"); list != "" {
		if p.Powers, err = distance.ParsePowerList(list); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	} else {
		p.Powers = distance.MaxPowers(maxPower)
	}

	res, id, err := s.service.RunCube(r.Context(), p)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeCSV(w, r, res, id, res.Params.Seed)
}

type csvResult interface {
	WriteCSV(w io.Writer) error
}

func writeCSV(w http.ResponseWriter, r *http.Request, res csvResult, id uuid.UUID, seed uint64) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("X-Seed", strconv.FormatUint(seed, 10))
	if id != uuid.Nil {
		w.Header().Set("X-Run-ID", id.String())
	}
	if err := res.WriteCSV(w); err != nil {
		logging.FromContext(r.Context()).Warn("write csv response", "error", err)
	}
}

// handleListRuns returns recent runs as JSON. Query: limit.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	limit := q.integer("limit", 0)
	if err := q.err(); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, runs)
}

// handleGetRun returns one run including its output.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w id: %w", errBadParam, err), http.StatusBadRequest)
		return
	}

	run, err := s.service.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, run)
}

// query parses typed URL parameters and remembers the first failure.
type query struct {
	values map[string][]string
	first  error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) get(name string) string {
	if v := q.values[name]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *query) fail(name, value string) {
	if q.first == nil {
		q.first = fmt.Errorf("%w %s: %q", errBadParam, name, value)
	}
}

func (q *query) integer(name string, def int) int {
	v := q.get(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		q.fail(name, v)
		return def
	}
	return i
}

func (q *query) unsigned(name string, def uint64) uint64 {
	v := q.get(name)
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		q.fail(name, v)
		return def
	}
	return u
}

func (q *query) flag(name string, def bool) bool {
	b, err := boolParam(q.get(name), name, def)
	if err != nil {
		q.fail(name, q.get(name))
	}
	return b
}

func (q *query) err() error {
	return q.first
}

// boolParam parses a form or query flag. HTML checkboxes send "on".
func boolParam(v, name string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w %s: %q", errBadParam, name, v)
	}
	return b, nil
}
