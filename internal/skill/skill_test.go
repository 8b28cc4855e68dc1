package skill

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voxbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeLauncher struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
	openErr  error
}

func (f *fakeLauncher) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeLauncher) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLauncher) OpenURL(_ context.Context, url string) error {
	f.record("url:" + url)
	return nil
}

func (f *fakeLauncher) StartApp(_ context.Context, name string) error {
	f.record("app:" + name)
	return f.startErr
}

func (f *fakeLauncher) StopApp(_ context.Context, name string) error {
	f.record("stop:" + name)
	return f.stopErr
}

func (f *fakeLauncher) Open(_ context.Context, target string) error {
	f.record("open:" + target)
	return f.openErr
}

func (f *fakeLauncher) Exec(_ context.Context, line string) error {
	f.record("exec:" + line)
	return nil
}

func (f *fakeLauncher) SendKeys(_ context.Context, chord string) error {
	f.record("keys:" + chord)
	return nil
}

type searchStub struct {
	results []domain.SearchResult
	err     error
}

func (s *searchStub) Search(context.Context, string, int) ([]domain.SearchResult, error) {
	return s.results, s.err
}

type chatStub struct {
	answer string
	err    error
	reqs   []domain.ChatRequest
}

func (c *chatStub) Chat(_ context.Context, req domain.ChatRequest) (string, error) {
	c.reqs = append(c.reqs, req)
	return c.answer, c.err
}

func (c *chatStub) Healthy(context.Context) error { return nil }

func TestLooksLikeURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://youtube.com", true},
		{"youtube.com", true},
		{"github.com/golang/go", true},
		{"notepad", false},
		{"visual studio code", false},
		{"file.", false},
	}
	for _, tc := range cases {
		if got := looksLikeURL(tc.in); got != tc.want {
			t.Errorf("looksLikeURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOpenSkillOpensURLDirectly(t *testing.T) {
	launcher := &fakeLauncher{}
	s := NewOpenSkill(launcher, nil, testLogger())

	if err := s.Run(context.Background(), "youtube.com"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := launcher.recorded()
	if len(calls) != 1 || calls[0] != "url:https://youtube.com" {
		t.Errorf("calls = %v", calls)
	}
}

func TestOpenSkillTriesOSOpenBeforeWebSearch(t *testing.T) {
	launcher := &fakeLauncher{startErr: errors.New("not installed")}
	search := &searchStub{results: []domain.SearchResult{{URL: "https://example.com/app"}}}
	s := NewOpenSkill(launcher, search, testLogger())

	if err := s.Run(context.Background(), "someapp"); err != nil {
		t.Fatalf("open must not fail the turn: %v", err)
	}
	calls := launcher.recorded()
	want := []string{"app:someapp", "open:someapp"}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestOpenSkillFallsBackToWebSearch(t *testing.T) {
	launcher := &fakeLauncher{
		startErr: errors.New("not installed"),
		openErr:  errors.New("no handler"),
	}
	search := &searchStub{results: []domain.SearchResult{{URL: "https://example.com/app"}}}
	s := NewOpenSkill(launcher, search, testLogger())

	if err := s.Run(context.Background(), "someapp"); err != nil {
		t.Fatalf("open must not fail the turn: %v", err)
	}
	calls := launcher.recorded()
	if len(calls) != 3 || calls[2] != "url:https://example.com/app" {
		t.Errorf("calls = %v", calls)
	}
}

func TestOpenSkillLastResortIsSearchPage(t *testing.T) {
	launcher := &fakeLauncher{
		startErr: errors.New("not installed"),
		openErr:  errors.New("no handler"),
	}
	search := &searchStub{err: errors.New("offline")}
	s := NewOpenSkill(launcher, search, testLogger())

	if err := s.Run(context.Background(), "someapp"); err != nil {
		t.Fatalf("open must not fail the turn: %v", err)
	}
	calls := launcher.recorded()
	last := calls[len(calls)-1]
	if !strings.HasPrefix(last, "url:https://www.google.com/search?q=") {
		t.Errorf("last call = %q", last)
	}
}

func TestCloseSkillRefusesBrowsers(t *testing.T) {
	launcher := &fakeLauncher{}
	s := NewCloseSkill(launcher, testLogger())

	if err := s.Run(context.Background(), "Chrome"); err != nil {
		t.Fatalf("refusal must still report success, got %v", err)
	}
	if len(launcher.recorded()) != 0 {
		t.Error("refusal must not touch the launcher")
	}

	if err := s.Run(context.Background(), "spotify"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls := launcher.recorded(); len(calls) != 1 || calls[0] != "stop:spotify" {
		t.Errorf("calls = %v", calls)
	}
}

func TestContentSkillWritesAndOpensDraft(t *testing.T) {
	dataDir := t.TempDir()
	client := &chatStub{answer: "Dear Sir,\n\nI am unwell.</s>"}
	launcher := &fakeLauncher{}
	s := NewContentSkill(client, launcher, "writer-model", dataDir, testLogger())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := s.Run(context.Background(), "a sick leave application"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := filepath.Join(dataDir, "Content", "sick_leave_application_20260102_030405.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("draft not written: %v", err)
	}
	if strings.Contains(string(data), "</s>") {
		t.Error("stop token must be stripped from the draft")
	}

	req := client.reqs[0]
	if req.Model != "writer-model" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Errorf("content requests must use their own one-shot prompt, got %+v", req.Messages)
	}

	calls := launcher.recorded()
	if len(calls) != 1 || calls[0] != "open:"+path {
		t.Errorf("calls = %v", calls)
	}
}

func TestContentFilenames(t *testing.T) {
	s := NewContentSkill(nil, nil, "", "", testLogger())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	cases := []struct{ topic, wantPrefix string }{
		{"a letter of resignation", "resignation_letter_"},
		{"resign letter for my manager", "resignation_letter_"},
		{"my job application for acme", "job_application_"},
		{"an application to the city council", "job_application_"},
		{"a sick note for tomorrow", "sick_leave_application_"},
		{"leave letter for next week", "sick_leave_application_"},
		{"a poem about rain", "a_poem_about_rain_"},
	}
	for _, tc := range cases {
		if got := s.filename(tc.topic); !strings.HasPrefix(got, tc.wantPrefix) {
			t.Errorf("filename(%q) = %q, want prefix %q", tc.topic, got, tc.wantPrefix)
		}
	}
}

func TestSystemSkillUnknownControl(t *testing.T) {
	l := &fakeLauncher{}
	s := NewSystemSkill(l, testLogger())
	if err := s.Run(context.Background(), "self destruct"); err != nil {
		t.Fatalf("unknown control must be a no-op, got %v", err)
	}
	if len(l.recorded()) != 0 {
		t.Fatalf("unknown control must not run anything, got %v", l.recorded())
	}
}

func TestMacrosMatchAndRun(t *testing.T) {
	dir := t.TempDir()
	macroYAML := `
name: morning
phrases: ["morning setup", "start my day"]
steps:
  - open: "https://mail.example.com"
  - app: "editor"
`
	if err := os.WriteFile(filepath.Join(dir, "morning.yaml"), []byte(macroYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadMacros(dir, testLogger())
	if err != nil {
		t.Fatalf("LoadMacros: %v", err)
	}

	macro := set.Match("Start My Day")
	if macro == nil || macro.Name != "morning" {
		t.Fatalf("macro = %+v", macro)
	}
	if set.Match("something else") != nil {
		t.Error("unexpected macro match")
	}

	launcher := &fakeLauncher{}
	if err := set.Run(context.Background(), launcher, macro); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := launcher.recorded()
	want := []string{"open:https://mail.example.com", "app:editor"}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestLoadMacrosMissingDir(t *testing.T) {
	set, err := LoadMacros(filepath.Join(t.TempDir(), "absent"), testLogger())
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if set.Match("anything") != nil {
		t.Error("empty set must match nothing")
	}
}

func TestExecutorRunsFirstAutomationOnly(t *testing.T) {
	launcher := &fakeLauncher{}
	logger := testLogger()
	registry := NewRegistry(logger)
	registry.Register(NewOpenSkill(launcher, nil, logger))
	registry.Register(NewPlaySkill(launcher, logger))

	exec := NewExecutor(ExecutorConfig{Registry: registry, Launcher: launcher, Logger: logger})

	var acks []string
	intents := []domain.Intent{
		{Kind: domain.IntentGeneral, Argument: "how are you"},
		{Kind: domain.IntentOpen, Argument: "youtube.com"},
		{Kind: domain.IntentPlay, Argument: "lo-fi beats"},
	}
	if err := exec.Execute(context.Background(), intents, func(text string) {
		acks = append(acks, text)
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(acks) != 1 || !strings.HasPrefix(acks[0], "Ok, opening") {
		t.Errorf("acks = %v", acks)
	}
	if calls := launcher.recorded(); len(calls) != 1 || calls[0] != "url:https://youtube.com" {
		t.Errorf("calls = %v", calls)
	}
}

func TestExecutorPrefersMacroOverOpen(t *testing.T) {
	launcher := &fakeLauncher{}
	logger := testLogger()
	registry := NewRegistry(logger)
	registry.Register(NewOpenSkill(launcher, nil, logger))

	set := &MacroSet{logger: logger, macros: []Macro{{
		Name:    "workspace",
		Phrases: []string{"my workspace"},
		Steps:   []MacroStep{{Exec: "true"}},
	}}}
	exec := NewExecutor(ExecutorConfig{Registry: registry, Macros: set, Launcher: launcher, Logger: logger})

	var acks []string
	intents := []domain.Intent{{Kind: domain.IntentOpen, Argument: "my workspace"}}
	if err := exec.Execute(context.Background(), intents, func(text string) {
		acks = append(acks, text)
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(acks) != 1 || acks[0] != "Ok, running workspace." {
		t.Errorf("acks = %v", acks)
	}
	calls := launcher.recorded()
	if len(calls) != 1 || calls[0] != "exec:true" {
		t.Errorf("calls = %v", calls)
	}
}

func TestExecutorReportsSkillFailure(t *testing.T) {
	launcher := &fakeLauncher{stopErr: errors.New("no such process")}
	logger := testLogger()
	registry := NewRegistry(logger)
	registry.Register(NewCloseSkill(launcher, logger))

	exec := NewExecutor(ExecutorConfig{Registry: registry, Launcher: launcher, Logger: logger})
	intents := []domain.Intent{{Kind: domain.IntentClose, Argument: "editor"}}
	if err := exec.Execute(context.Background(), intents, nil); err == nil {
		t.Fatal("launcher failure must surface to the caller")
	}
}

func TestExecutePhraseMatchesSpokenUtterance(t *testing.T) {
	launcher := &fakeLauncher{}
	logger := testLogger()
	set := &MacroSet{logger: logger, macros: []Macro{{
		Name:    "workspace",
		Phrases: []string{"my workspace"},
		Steps:   []MacroStep{{Exec: "true"}},
	}}}
	exec := NewExecutor(ExecutorConfig{Registry: NewRegistry(logger), Macros: set, Launcher: launcher, Logger: logger})

	var acks []string
	ran, err := exec.ExecutePhrase(context.Background(), "My workspace.", func(text string) {
		acks = append(acks, text)
	})
	if err != nil || !ran {
		t.Fatalf("ran = %v, err = %v", ran, err)
	}
	if len(acks) != 1 || acks[0] != "Ok, running workspace." {
		t.Errorf("acks = %v", acks)
	}

	ran, err = exec.ExecutePhrase(context.Background(), "Open my mail.", nil)
	if err != nil || ran {
		t.Fatalf("non-phrase must not match, ran = %v, err = %v", ran, err)
	}
}

func TestAuditLogRoundTrip(t *testing.T) {
	log, err := OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"), testLogger())
	if err != nil {
		t.Fatalf("OpenAuditLog: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	log.Record(ctx, "open", "youtube.com", nil, 120*time.Millisecond)
	log.Record(ctx, "close", "chrome", errors.New("refused"), 5*time.Millisecond)

	entries, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	var sawFailure bool
	for _, e := range entries {
		if e.Skill == "close" && !e.OK && e.Error == "refused" {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Errorf("entries = %+v", entries)
	}
}
