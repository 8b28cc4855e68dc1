package learning

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testFactStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "LearningMemory.json"), testLogger())
}

func TestAddDeduplicatesCaseInsensitive(t *testing.T) {
	s := testFactStore(t)

	if err := s.Add("User prefers coffee over tea"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("user PREFERS coffee over tea"); err != nil {
		t.Fatal(err)
	}

	facts, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if facts[0].RelevanceCount != 2 {
		t.Errorf("expected relevance_count 2, got %d", facts[0].RelevanceCount)
	}
	// Original casing of the first insert is preserved.
	if facts[0].Fact != "User prefers coffee over tea" {
		t.Errorf("unexpected fact text: %q", facts[0].Fact)
	}
}

func TestDuplicateRefreshesTimestamp(t *testing.T) {
	s := testFactStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Add("user is learning Go"); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return base.Add(time.Hour) }
	if err := s.Add("user is learning Go"); err != nil {
		t.Fatal(err)
	}

	facts, _ := s.Load()
	if facts[0].Timestamp != base.Add(time.Hour).Format(time.RFC3339Nano) {
		t.Errorf("timestamp not refreshed: %q", facts[0].Timestamp)
	}
}

func TestEvictionKeepsHighestRanked(t *testing.T) {
	s := testFactStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < capacity; i++ {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		if err := s.Add(fmt.Sprintf("fact number %03d", i)); err != nil {
			t.Fatal(err)
		}
	}
	// Bump one fact so the lowest-ranked entry is unambiguous.
	s.now = func() time.Time { return base.Add(capacity * time.Minute) }
	if err := s.Add("fact number 000"); err != nil {
		t.Fatal(err)
	}

	// The 101st distinct fact triggers eviction.
	s.now = func() time.Time { return base.Add((capacity + 1) * time.Minute) }
	if err := s.Add("the newest fact"); err != nil {
		t.Fatal(err)
	}

	facts, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != capacity {
		t.Fatalf("expected exactly %d facts, got %d", capacity, len(facts))
	}

	// The evicted entry is the lowest (relevance_count, timestamp) tuple:
	// the oldest count-1 fact, i.e. "fact number 001".
	for _, f := range facts {
		if f.Fact == "fact number 001" {
			t.Error("lowest-ranked fact was not evicted")
		}
	}
	found := false
	for _, f := range facts {
		if f.Fact == "the newest fact" {
			found = true
		}
	}
	if !found {
		t.Error("newest fact missing after eviction")
	}
}

func TestContextBlockRanksByRelevanceThenRecency(t *testing.T) {
	s := testFactStore(t)

	for i := 0; i < contextFacts+5; i++ {
		if err := s.Add(fmt.Sprintf("minor fact %02d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Add("user works as a pilot"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("user works as a pilot"); err != nil {
		t.Fatal(err)
	}

	block := s.ContextBlock()
	if block == "" {
		t.Fatal("expected a non-empty context block")
	}
	lines := strings.Split(strings.TrimSpace(block), "\n")
	// Header plus at most contextFacts bullet lines.
	if len(lines) != contextFacts+1 {
		t.Fatalf("expected %d lines, got %d", contextFacts+1, len(lines))
	}
	if lines[1] != "- user works as a pilot" {
		t.Errorf("highest-relevance fact must rank first, got %q", lines[1])
	}
}

func TestContextBlockEmptyStore(t *testing.T) {
	s := testFactStore(t)
	if got := s.ContextBlock(); got != "" {
		t.Errorf("expected empty context block, got %q", got)
	}
}

func TestCorruptMemoryResetsToEmpty(t *testing.T) {
	s := testFactStore(t)
	if err := os.WriteFile(s.path, []byte("not json at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	facts, err := s.Load()
	if err != nil {
		t.Fatalf("Load on corrupt memory: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected reset-to-empty, got %d facts", len(facts))
	}
}

// chatStub returns a canned completion.
type chatStub struct {
	answer string
	err    error
	calls  int
}

func (c *chatStub) Chat(_ context.Context, _ domain.ChatRequest) (string, error) {
	c.calls++
	return c.answer, c.err
}

func (c *chatStub) Healthy(context.Context) error { return nil }

func TestExtractorParsesBulletLines(t *testing.T) {
	stub := &chatStub{answer: "- User prefers coffee over tea\n- User is learning Go\n- tiny\nnot a bullet"}
	e := NewExtractor(stub, testFactStore(t), "test-model", testLogger())

	facts, err := e.Extract(context.Background(), "q", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %v", facts)
	}
	if facts[0] != "User prefers coffee over tea" {
		t.Errorf("unexpected fact: %q", facts[0])
	}
}

func TestExtractorNone(t *testing.T) {
	stub := &chatStub{answer: "NONE"}
	e := NewExtractor(stub, testFactStore(t), "test-model", testLogger())

	facts, err := e.Extract(context.Background(), "q", "a")
	if err != nil {
		t.Fatal(err)
	}
	if facts != nil {
		t.Errorf("expected no facts for NONE, got %v", facts)
	}
}

func TestLearnFromExchangeSwallowsErrors(t *testing.T) {
	stub := &chatStub{err: fmt.Errorf("service down")}
	store := testFactStore(t)
	e := NewExtractor(stub, store, "test-model", testLogger())

	e.LearnFromExchange(context.Background(), "q", "a") // must not panic

	facts, _ := store.Load()
	if len(facts) != 0 {
		t.Errorf("expected no facts after failed extraction, got %d", len(facts))
	}
}
