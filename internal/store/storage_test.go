package store

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "chessforge-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	dbDir := filepath.Join(tmpDir, "db")
	s, err := OpenAt(dbDir)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBookEntryCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	const key uint64 = 0x1234567890ABCDEF
	want := []CachedEntry{{Move: 0x0C1D, Weight: 10}, {Move: 0x0203, Weight: 5}}

	if err := s.PutBookEntries(key, want); err != nil {
		t.Fatalf("PutBookEntries: %v", err)
	}

	got, found, err := s.GetBookEntries(key)
	if err != nil {
		t.Fatalf("GetBookEntries: %v", err)
	}
	if !found {
		t.Fatal("expected cached entries to be found")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestBookEntryCacheMiss(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.GetBookEntries(0xDEADBEEF)
	if err != nil {
		t.Fatalf("GetBookEntries: %v", err)
	}
	if found {
		t.Fatal("expected no cached entries for an unseen key")
	}
}

func TestSearchHistoryAppendAndLoad(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		rec := SearchRecord{FEN: "startpos", Depth: i + 1, Score: i * 10, Nodes: uint64(i) * 1000}
		if err := s.AppendSearchRecord(rec); err != nil {
			t.Fatalf("AppendSearchRecord: %v", err)
		}
	}

	history, err := s.LoadSearchHistory()
	if err != nil {
		t.Fatalf("LoadSearchHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	if history[2].Depth != 3 {
		t.Errorf("expected last record depth 3, got %d", history[2].Depth)
	}
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}
}
