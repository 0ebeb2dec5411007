package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTemp(t)
	started := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	run := RunRecord{
		Root:         "/data/logs",
		Threshold:    2,
		StartedAt:    started,
		Duration:     1500 * time.Millisecond,
		Files:        3,
		Lines:        40,
		SkippedLines: 1,
		Pairs:        780,
	}
	matches := []MatchRecord{
		{Str1: "b", Str2: "c", File1: "f1", File2: "f2", Distance: 2},
		{Str1: "hello", Str2: "hallo", File1: "f1", File2: "f1", Distance: 1},
	}

	id, err := s.SaveRun(run, matches)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	want := run
	want.ID = id
	want.MatchCount = 2
	if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("GetRun() mismatch (-want +got):\n%s", diff)
	}

	stored, err := s.Matches(id)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	var distances []int
	for _, m := range stored {
		if m.RunID != id {
			t.Errorf("match %+v has run ID %d, want %d", m, m.RunID, id)
		}
		distances = append(distances, m.Distance)
	}
	if diff := cmp.Diff([]int{1, 2}, distances); diff != "" {
		t.Errorf("Matches() not ordered by distance (-want +got):\n%s", diff)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTemp(t)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.SaveRun(RunRecord{Root: "r", Threshold: i, StartedAt: time.Now()}, nil)
		if err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	var got []int64
	for _, r := range runs {
		got = append(got, r.ID)
	}
	if diff := cmp.Diff([]int64{ids[2], ids[1]}, got); diff != "" {
		t.Errorf("ListRuns(2) mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.GetRun(42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestDeleteRun(t *testing.T) {
	s := openTemp(t)
	id, err := s.SaveRun(RunRecord{Root: "r", StartedAt: time.Now()}, []MatchRecord{{Str1: "a", Str2: "b", Distance: 1}})
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if _, err := s.GetRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}
	ms, err := s.Matches(id)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("Matches() after delete returned %d rows", len(ms))
	}
	if err := s.DeleteRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}

type deleteResult struct {
	n   int64
	err error
}

func (r deleteResult) LastInsertId() (int64, error) { return 0, nil }
func (r deleteResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestCheckDeleted(t *testing.T) {
	driverErr := errors.New("rows affected unavailable")
	tests := []struct {
		name    string
		res     deleteResult
		wantErr error
	}{
		{"deleted", deleteResult{n: 1}, nil},
		{"no rows", deleteResult{n: 0}, ErrRunNotFound},
		{"driver error", deleteResult{err: driverErr}, driverErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDeleted(7, tt.res)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkDeleted() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkDeleted() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
