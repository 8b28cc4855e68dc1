package chatlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"voxbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "ChatLog.json"), testLogger())
}

func TestLoadMissingFileCreatesEmptyLog(t *testing.T) {
	s := testStore(t)

	turns, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty log, got %d turns", len(turns))
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty JSON array on disk, got %q", data)
	}
}

func TestRoundTripPreservesTimestampAbsence(t *testing.T) {
	s := testStore(t)

	in := []domain.Turn{
		{Role: domain.RoleUser, Content: "hello"}, // pre-timestamp entry
		domain.NewTurn(domain.RoleAssistant, "hi there"),
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
	if out[0].Timestamp != "" {
		t.Error("timestamp must not be synthesized for undated turns")
	}
}

func TestCorruptLogIsBackedUpAndReset(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load()
	if !errors.Is(err, ErrLogReset) {
		t.Fatalf("expected ErrLogReset, got %v", err)
	}

	// Second load succeeds: the reset leaves a valid empty array.
	turns, err := s.Load()
	if err != nil {
		t.Fatalf("Load after reset: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty log after reset, got %d turns", len(turns))
	}

	bak, err := os.ReadFile(s.Path() + ".bak")
	if err != nil {
		t.Fatalf("expected a backup of the corrupt log: %v", err)
	}
	if string(bak) != "{not json" {
		t.Errorf("backup does not match corrupt content: %q", bak)
	}
}

func TestUpdateHoldsLockAcrossReadModifyWrite(t *testing.T) {
	s := testStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Append(domain.NewTurn(domain.RoleUser, fmt.Sprintf("turn %d", i))); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		if err := s.Update(func(turns []domain.Turn) []domain.Turn { return turns }); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	wg.Wait()

	turns, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 8 {
		t.Fatalf("interleaved Update dropped appends: got %d turns, want 8", len(turns))
	}
}

func TestNearEmptyLogIsSeededNotReset(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.Path(), []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	turns, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty log, got %d turns", len(turns))
	}
	if _, err := os.Stat(s.Path() + ".bak"); err == nil {
		t.Error("a near-empty log must not produce a corruption backup")
	}
}

func TestAppendAndClear(t *testing.T) {
	s := testStore(t)

	if err := s.Append(domain.NewTurn(domain.RoleUser, "one")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(domain.NewTurn(domain.RoleAssistant, "two")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "one" || turns[1].Content != "two" {
		t.Errorf("unexpected turns: %+v", turns)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	turns, err = s.Load()
	if err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty log after Clear, got %d turns", len(turns))
	}
}

func TestHistoryStripsTimestamps(t *testing.T) {
	msgs := History([]domain.Turn{
		domain.NewTurn(domain.RoleUser, "q"),
		domain.NewTurn(domain.RoleAssistant, "a"),
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "q" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestRecent(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "1"},
		{Role: domain.RoleAssistant, Content: "2"},
		{Role: domain.RoleUser, Content: "3"},
	}
	got := Recent(turns, 2)
	if len(got) != 2 || got[0].Content != "2" {
		t.Errorf("unexpected recent turns: %+v", got)
	}
	if len(Recent(turns, 10)) != 3 {
		t.Error("Recent with large n must return all turns")
	}
}
