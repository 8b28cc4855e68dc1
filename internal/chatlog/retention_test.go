package chatlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxbot/internal/domain"
)

func datedTurn(content string, at time.Time) domain.Turn {
	return domain.Turn{
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: at.Format(time.RFC3339Nano),
	}
}

func TestApplyAgeBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-retentionWindow)

	tooOld := datedTurn("too old", now.Add(-retentionWindow-time.Second))
	fresh := datedTurn("fresh", now.Add(-(6*24*time.Hour + 23*time.Hour + 59*time.Minute)))

	kept := ApplyAge([]domain.Turn{tooOld, fresh}, cutoff)
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept turn, got %d", len(kept))
	}
	if kept[0].Content != "fresh" {
		t.Errorf("wrong turn kept: %q", kept[0].Content)
	}
}

func TestApplyAgeKeepsUndatedWhenAnySiblingIsDated(t *testing.T) {
	now := time.Now()
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "ancient but undated"},
		datedTurn("dated and old", now.Add(-30*24*time.Hour)),
		datedTurn("dated and fresh", now),
	}

	kept := ApplyAge(turns, now.Add(-retentionWindow))
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept turns, got %d: %+v", len(kept), kept)
	}
	if kept[0].Content != "ancient but undated" || kept[1].Content != "dated and fresh" {
		t.Errorf("unexpected kept turns: %+v", kept)
	}
}

func TestApplyAgeFallsBackToPositionalWhenNoTimestamps(t *testing.T) {
	turns := make([]domain.Turn, undatedKeep+10)
	for i := range turns {
		turns[i] = domain.Turn{Role: domain.RoleUser, Content: "msg"}
	}

	kept := ApplyAge(turns, time.Now())
	if len(kept) != undatedKeep {
		t.Errorf("expected %d kept turns, got %d", undatedKeep, len(kept))
	}
}

func TestApplyAgeKeepsInvalidTimestamps(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "bad stamp", Timestamp: "not-a-time"},
	}
	kept := ApplyAge(turns, time.Now())
	if len(kept) != 1 {
		t.Error("turn with invalid timestamp must be kept")
	}
}

func TestPurgerGatedByPreferenceAndInterval(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "ChatLog.json"), testLogger())
	lastRun := filepath.Join(dir, "LastCleanup.json")

	old := datedTurn("old", time.Now().Add(-30*24*time.Hour))
	if err := store.Save([]domain.Turn{old}); err != nil {
		t.Fatal(err)
	}

	// Disabled: nothing happens.
	p := NewPurger(store, lastRun, func() bool { return false }, testLogger())
	p.Run()
	turns, _ := store.Load()
	if len(turns) != 1 {
		t.Fatal("disabled purger must not touch the log")
	}

	// Enabled: old turn removed, last-run stamped.
	p = NewPurger(store, lastRun, func() bool { return true }, testLogger())
	p.Run()
	turns, _ = store.Load()
	if len(turns) != 0 {
		t.Fatalf("expected purged log, got %d turns", len(turns))
	}
	if !fileExists(lastRun) {
		t.Fatal("expected last-cleanup stamp file")
	}

	// Second run on the same day: gate holds even with new old data.
	if err := store.Save([]domain.Turn{old}); err != nil {
		t.Fatal(err)
	}
	p.Run()
	turns, _ = store.Load()
	if len(turns) != 1 {
		t.Error("purge must run at most once per day")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
