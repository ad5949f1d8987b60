package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB records statements and serves canned rows.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error

	queryArgs []any
	rows      [][]any
	queryErr  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...interface{}) (pgx.Rows, error) {
	f.queryArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	f.queryArgs = args
	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: f.rows[0]}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx], nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.idx], dest)
}

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, v := range values {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func runRow(id uuid.UUID, kind string, params string, created time.Time) []any {
	return []any{id, kind, []byte(params), 42, "bin,count,\n", int64(1500 * time.Millisecond), created}
}

func TestStore_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.execSQL) != 1 || !strings.Contains(db.execSQL[0], "CREATE TABLE IF NOT EXISTS runs") {
		t.Errorf("unexpected schema statement: %v", db.execSQL)
	}
}

func TestStore_RecordRun(t *testing.T) {
	db := &fakeDB{}
	s := New(db)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	run, err := s.RecordRun(context.Background(), Run{
		Kind:     KindCube,
		Params:   map[string]any{"dims": 3},
		Rows:     3,
		Duration: time.Second,
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	if run.ID == uuid.Nil {
		t.Error("RecordRun should assign an id")
	}
	if !run.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, fixed)
	}

	args := db.execArgs[0]
	if args[0] != run.ID {
		t.Errorf("inserted id = %v, want %v", args[0], run.ID)
	}
	if args[1] != "cube" {
		t.Errorf("inserted kind = %v, want cube", args[1])
	}
	if got := string(args[2].([]byte)); got != `{"dims":3}` {
		t.Errorf("inserted params = %s", got)
	}
	if args[5] != int64(time.Second) {
		t.Errorf("inserted duration = %v", args[5])
	}
}

func TestStore_RecordRun_NilParams(t *testing.T) {
	db := &fakeDB{}
	if _, err := New(db).RecordRun(context.Background(), Run{Kind: KindStitch}); err != nil {
		t.Fatal(err)
	}
	if got := string(db.execArgs[0][2].([]byte)); got != "{}" {
		t.Errorf("inserted params = %s, want {}", got)
	}
}

func TestStore_RecordRun_Error(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}
	_, err := New(db).RecordRun(context.Background(), Run{Kind: KindHistogram})
	if err == nil || !strings.Contains(err.Error(), "record histogram run") {
		t.Errorf("RecordRun() error = %v", err)
	}
}

func TestStore_GetRun(t *testing.T) {
	id := uuid.New()
	created := time.Now().UTC()
	db := &fakeDB{rows: [][]any{runRow(id, "histogram", `{"bins":10}`, created)}}

	run, err := New(db).GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.ID != id || run.Kind != KindHistogram || run.Rows != 42 {
		t.Errorf("GetRun() = %+v", run)
	}
	if run.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", run.Duration)
	}
	if run.Params["bins"] != float64(10) {
		t.Errorf("Params = %v", run.Params)
	}
	if db.queryArgs[0] != id {
		t.Errorf("queried id = %v, want %v", db.queryArgs[0], id)
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	_, err := New(&fakeDB{}).GetRun(context.Background(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{rows: [][]any{
		runRow(uuid.New(), "cube", `{}`, now),
		runRow(uuid.New(), "stitch", `{"files":2}`, now.Add(-time.Minute)),
	}}

	runs, err := New(db).ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].Kind != KindCube || runs[1].Kind != KindStitch {
		t.Errorf("kinds = %s, %s", runs[0].Kind, runs[1].Kind)
	}
	if db.queryArgs[0] != DefaultListLimit {
		t.Errorf("limit = %v, want %d", db.queryArgs[0], DefaultListLimit)
	}
}

func TestStore_ListRuns_Limit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, DefaultListLimit},
		{5, 5},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		db := &fakeDB{}
		if _, err := New(db).ListRuns(context.Background(), tt.in); err != nil {
			t.Fatal(err)
		}
		if db.queryArgs[0] != tt.want {
			t.Errorf("ListRuns(%d) limit = %v, want %d", tt.in, db.queryArgs[0], tt.want)
		}
	}
}

func TestStore_ListRuns_QueryError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("deadlock detected")}
	if _, err := New(db).ListRuns(context.Background(), 10); err == nil {
		t.Error("expected error")
	}
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://user:pw@localhost:5432/runs?sslmode=disable", "runs"},
		{"postgres://localhost/", ""},
		{"host=localhost dbname=runs", ""},
	}
	for _, tt := range tests {
		if got := DatabaseName(tt.url); got != tt.want {
			t.Errorf("DatabaseName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDeleteRunsBefore(t *testing.T) {
	db := &fakeDB{}
	s := New(db)
	cutoff := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	n, err := s.DeleteRunsBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteRunsBefore: %v", err)
	}
	// The fake reports "INSERT 0 1" for every statement.
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if !strings.HasPrefix(db.execSQL[0], "DELETE FROM runs") {
		t.Errorf("sql = %q", db.execSQL[0])
	}
	if got := db.execArgs[0][0].(time.Time); got.Location() != time.UTC || !got.Equal(cutoff) {
		t.Errorf("cutoff arg = %v, want %v in UTC", got, cutoff)
	}

	db.execErr = errors.New("boom")
	if _, err := s.DeleteRunsBefore(context.Background(), cutoff); err == nil {
		t.Error("expected error")
	}
}
