package memory

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/bolt/v3"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, _ := os.MkdirTemp("", "memory-test-*")
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	log := bolt.New(bolt.NewConsoleHandler(io.Discard))
	s, err := NewSQLiteStore(filepath.Join(tmpDir, "memories.db"), log)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := s.Save(ctx, "s1", "likes coffee", "remember that I like coffee")
	if !res.Success {
		t.Fatalf("Save failed: %+v", res)
	}
	if res.RecordID == 0 {
		t.Error("expected a record id")
	}
	if res.Message != ConfirmMessage("likes coffee") {
		t.Errorf("unexpected message %q", res.Message)
	}

	records := s.Load(ctx, "s1", 10)
	if len(records) != 1 {
		t.Fatalf("Load returned %d records, want 1", len(records))
	}
	got := records[0]
	if got.Text != "likes coffee" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Context != "remember that I like coffee" {
		t.Errorf("Context = %q", got.Context)
	}
	if got.SessionID != "s1" {
		t.Errorf("SessionID = %q", got.SessionID)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestSQLiteStore_LoadNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if res := s.Save(ctx, "s1", text, text); !res.Success {
			t.Fatalf("Save(%q) failed", text)
		}
	}

	records := s.Load(ctx, "s1", 10)
	if len(records) != 3 {
		t.Fatalf("Load returned %d records, want 3", len(records))
	}
	want := []string{"third", "second", "first"}
	for i, w := range want {
		if records[i].Text != w {
			t.Errorf("records[%d].Text = %q, want %q", i, records[i].Text, w)
		}
	}

	limited := s.Load(ctx, "s1", 2)
	if len(limited) != 2 || limited[0].Text != "third" {
		t.Errorf("Load with limit 2 = %+v", limited)
	}
}

func TestSQLiteStore_EmptyTextIsPersisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := s.Save(ctx, "s1", "", "please remember")
	if !res.Success {
		t.Fatalf("Save of empty text failed: %+v", res)
	}

	records := s.Load(ctx, "s1", 10)
	if len(records) != 1 || records[0].Text != "" {
		t.Fatalf("empty-text record not persisted: %+v", records)
	}
}

func TestSQLiteStore_SessionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Save(ctx, "s1", "a", "a")
	if records := s.Load(ctx, "other", 10); len(records) != 0 {
		t.Errorf("Load for unrelated session = %+v, want empty", records)
	}
}

func TestSQLiteStore_FailureNeverEscapes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A closed database is the simplest stand-in for a store outage.
	s.Close()

	res := s.Save(ctx, "s1", "text", "text")
	if res.Success {
		t.Error("Save on closed store reported success")
	}
	if res.Message != SaveFailedMessage {
		t.Errorf("Message = %q, want user-safe failure message", res.Message)
	}

	if records := s.Load(ctx, "s1", 10); records != nil {
		t.Errorf("Load on closed store = %+v, want empty", records)
	}
}
