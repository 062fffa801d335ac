package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	fdxerrors "github.com/FocuswithJustin/fdx2fountain/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{RunID: "run-a", Source: "one.fdx", Digest: "d1", Paragraphs: 10, OutputBytes: 120, Status: StatusConverted, CreatedAt: base},
		{RunID: "run-a", Source: "two.fdx", Status: StatusFailed, Error: "Could not parse the final draft document.", CreatedAt: base.Add(time.Second)},
		{RunID: "run-b", Source: "one.fdx", Digest: "d1", Paragraphs: 10, OutputBytes: 120, Status: StatusCached, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		id, err := s.Record(ctx, e)
		if err != nil {
			t.Fatalf("Record(%s) error: %v", e.Source, err)
		}
		if id <= 0 {
			t.Errorf("Record(%s) id = %d, want > 0", e.Source, id)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].RunID != "run-b" || all[2].Source != "one.fdx" || all[2].RunID != "run-a" {
		t.Errorf("List() not newest first: %+v", all)
	}
	if !all[0].CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", all[0].CreatedAt, base.Add(2*time.Second))
	}
	if all[1].Status != StatusFailed || all[1].Error == "" {
		t.Errorf("failed entry = %+v", all[1])
	}
	if all[2].Paragraphs != 10 || all[2].OutputBytes != 120 || all[2].Digest != "d1" {
		t.Errorf("converted entry = %+v", all[2])
	}

	runA, err := s.List(ctx, Filter{RunID: "run-a"})
	if err != nil {
		t.Fatalf("List(run-a) error: %v", err)
	}
	if len(runA) != 2 {
		t.Errorf("List(run-a) returned %d entries, want 2", len(runA))
	}

	limited, err := s.List(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List(limit) error: %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != "run-b" {
		t.Errorf("List(limit 1) = %+v", limited)
	}
}

func TestRecord_DefaultsCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if _, err := s.Record(ctx, Entry{RunID: "r", Source: "s.fdx", Status: StatusConverted}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	got, err := s.List(ctx, Filter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("List() = %v, %v", got, err)
	}
	if got[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want about now", got[0].CreatedAt)
	}
}

func TestRecord_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
	}{
		{"missing run id", Entry{Source: "a.fdx", Status: StatusConverted}},
		{"missing source", Entry{RunID: "r", Status: StatusConverted}},
		{"unknown status", Entry{RunID: "r", Source: "a.fdx", Status: "exploded"}},
		{"empty status", Entry{RunID: "r", Source: "a.fdx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Record(ctx, tt.entry)
			if !errors.Is(err, fdxerrors.ErrInvalidInput) {
				t.Errorf("Record() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLastByDigest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mustRecord := func(e Entry) {
		t.Helper()
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
	mustRecord(Entry{RunID: "r1", Source: "a.fdx", Output: "out/a.fountain", Digest: "abc", Status: StatusConverted, CreatedAt: base})
	mustRecord(Entry{RunID: "r2", Source: "b.fdx", Digest: "abc", Status: StatusFailed, CreatedAt: base.Add(time.Minute)})

	got, err := s.LastByDigest(ctx, "abc")
	if err != nil {
		t.Fatalf("LastByDigest() error: %v", err)
	}
	if got.RunID != "r1" || got.Output != "out/a.fountain" {
		t.Errorf("LastByDigest() = %+v, want the successful r1 entry", got)
	}

	if _, err := s.LastByDigest(ctx, "missing"); !errors.Is(err, fdxerrors.ErrNotFound) {
		t.Errorf("LastByDigest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Record(ctx, Entry{RunID: "r", Source: "a.fdx", Status: StatusConverted}); !errors.Is(err, context.Canceled) {
		t.Errorf("Record() error = %v, want context.Canceled", err)
	}
	if _, err := s.List(ctx, Filter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil store = %v, want nil", err)
	}
	if _, err := s.Record(ctx, Entry{RunID: "r", Source: "a", Status: StatusConverted}); !errors.Is(err, fdxerrors.ErrConfiguration) {
		t.Errorf("Record() on nil store error = %v, want ErrConfiguration", err)
	}
	if _, err := s.List(ctx, Filter{}); !errors.Is(err, fdxerrors.ErrConfiguration) {
		t.Errorf("List() on nil store error = %v, want ErrConfiguration", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := s.Record(ctx, Entry{RunID: "r", Source: "a.fdx", Status: StatusConverted}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()

	got, err := s.List(ctx, Filter{})
	if err != nil || len(got) != 1 {
		t.Errorf("List() after reopen = %v, %v; want 1 entry", got, err)
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	var ioErr *fdxerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Open() error = %v, want IOError", err)
	}
}
