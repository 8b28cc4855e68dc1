package convo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxbot/internal/chatlog"
	"voxbot/internal/config"
	"voxbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type chatStub struct {
	answers []string
	errs    []error
	reqs    []domain.ChatRequest
}

func (c *chatStub) Chat(_ context.Context, req domain.ChatRequest) (string, error) {
	c.reqs = append(c.reqs, req)
	i := len(c.reqs) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.answers) {
		return c.answers[i], nil
	}
	return c.answers[len(c.answers)-1], nil
}

func (c *chatStub) Healthy(context.Context) error { return nil }

type searchStub struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (s *searchStub) Search(_ context.Context, query string, _ int) ([]domain.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func newTestResponder(t *testing.T, client domain.ChatClient, search domain.SearchClient) (*Responder, *chatlog.Store) {
	t.Helper()
	store := chatlog.NewStore(filepath.Join(t.TempDir(), "ChatLog.json"), testLogger())
	prompts := NewPromptBuilder("Vox", "Alex", config.Profile{}, nil)
	r := NewResponder(ResponderConfig{
		Client:        client,
		Search:        search,
		Log:           store,
		Prompts:       prompts,
		ChatModel:     "chat-model",
		RealtimeModel: "realtime-model",
		Logger:        testLogger(),
	})
	return r, store
}

func TestChatCleansAndPersistsExchange(t *testing.T) {
	client := &chatStub{answers: []string{"Hello!\n\n\nNice to meet you.</s>"}}
	r, store := newTestResponder(t, client, nil)

	answer, err := r.Chat(context.Background(), "Introduce yourself.")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Hello!\nNice to meet you." {
		t.Errorf("answer = %q", answer)
	}

	turns, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[0].Content != "Introduce yourself." {
		t.Errorf("user turn = %+v", turns[0])
	}
	if turns[1].Role != domain.RoleAssistant || turns[1].Content != answer {
		t.Errorf("assistant turn = %+v", turns[1])
	}

	req := client.reqs[0]
	if req.Model != "chat-model" || req.MaxTokens != chatMaxTokens || req.Temperature != chatTemperature {
		t.Errorf("request params = %+v", req)
	}
	if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "voice assistant named Vox") {
		t.Errorf("first message should be the persona, got %+v", req.Messages[0])
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || last.Content != "Introduce yourself." {
		t.Errorf("last message = %+v", last)
	}
}

func TestChatIncludesHistory(t *testing.T) {
	client := &chatStub{answers: []string{"Again?"}}
	r, store := newTestResponder(t, client, nil)
	if err := store.Append(
		domain.NewTurn(domain.RoleUser, "first question"),
		domain.NewTurn(domain.RoleAssistant, "first answer"),
	); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Chat(context.Background(), "second question"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var sawHistory bool
	for _, m := range client.reqs[0].Messages {
		if m.Role == "assistant" && m.Content == "first answer" {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Error("request should carry prior turns")
	}
}

func TestChatClearsHistoryAndRetriesOnce(t *testing.T) {
	client := &chatStub{
		answers: []string{"", "recovered"},
		errs:    []error{errors.New("model overloaded"), nil},
	}
	r, store := newTestResponder(t, client, nil)
	if err := store.Append(domain.NewTurn(domain.RoleUser, "old turn")); err != nil {
		t.Fatal(err)
	}

	answer, err := r.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if len(client.reqs) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(client.reqs))
	}

	turns, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, turn := range turns {
		if turn.Content == "old turn" {
			t.Error("history should have been cleared before the retry")
		}
	}
}

func TestChatFailsAfterSecondError(t *testing.T) {
	boom := errors.New("still down")
	client := &chatStub{answers: []string{"", ""}, errs: []error{boom, boom}}
	r, _ := newTestResponder(t, client, nil)

	if _, err := r.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("expected error after retry")
	}
	if len(client.reqs) != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", len(client.reqs))
	}
}

func TestRealtimeGroundsOnSearchSnippets(t *testing.T) {
	client := &chatStub{answers: []string{"Grounded answer."}}
	search := &searchStub{results: []domain.SearchResult{
		{Title: "Result A", Snippet: "Snippet A"},
		{Title: "Result B", Snippet: "Snippet B"},
	}}
	r, _ := newTestResponder(t, client, search)

	if _, err := r.Realtime(context.Background(), "latest news"); err != nil {
		t.Fatalf("Realtime: %v", err)
	}
	if len(search.queries) != 1 || search.queries[0] != "latest news" {
		t.Errorf("search queries = %v", search.queries)
	}

	req := client.reqs[0]
	if req.Model != "realtime-model" || req.MaxTokens != realtimeMaxTokens || req.Temperature != realtimeTemperature {
		t.Errorf("request params = %+v", req)
	}
	var block string
	for _, m := range req.Messages {
		if m.Role == "system" && strings.Contains(m.Content, "[start]") {
			block = m.Content
		}
	}
	if block == "" {
		t.Fatal("no search block in request")
	}
	for _, want := range []string{"Title: Result A", "Description: Snippet B", "[end]"} {
		if !strings.Contains(block, want) {
			t.Errorf("search block missing %q", want)
		}
	}
}

func TestRealtimeAnswersWithoutSearchOnFailure(t *testing.T) {
	client := &chatStub{answers: []string{"Best effort."}}
	search := &searchStub{err: errors.New("network down")}
	r, _ := newTestResponder(t, client, search)

	answer, err := r.Realtime(context.Background(), "weather today")
	if err != nil {
		t.Fatalf("Realtime: %v", err)
	}
	if answer != "Best effort." {
		t.Errorf("answer = %q", answer)
	}
	for _, m := range client.reqs[0].Messages {
		if strings.Contains(m.Content, "[start]") {
			t.Error("failed search must not leave a block in the request")
		}
	}
}

func TestQueryModifier(t *testing.T) {
	cases := []struct{ in, want string }{
		{"what is the time", "What is the time?"},
		{"open the door", "Open the door."},
		{"how's the weather today.", "How's the weather today?"},
		{"can you help me", "Can you help me?"},
		{"tell me a joke!", "Tell me a joke."},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := QueryModifier(tc.in); got != tc.want {
			t.Errorf("QueryModifier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAnswerModifierStripsBlankLines(t *testing.T) {
	in := "First line.\n\n  \nSecond line.\n"
	if got := AnswerModifier(in); got != "First line.\nSecond line." {
		t.Errorf("got %q", got)
	}
}

func TestRealtimeInformationFormat(t *testing.T) {
	b := NewPromptBuilder("Vox", "Alex", config.Profile{}, nil)
	b.now = func() time.Time {
		return time.Date(2026, time.March, 9, 14, 5, 9, 0, time.UTC)
	}
	info := b.RealtimeInformation()
	for _, want := range []string{
		"Day: Monday", "Date: 09", "Month: March", "Year: 2026",
		"Time: 14 hours :05 minutes :09 seconds.",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("missing %q in %q", want, info)
		}
	}
}

func TestPersonaIncludesProfile(t *testing.T) {
	profile := config.Profile{Name: "Alex", Occupation: "engineer", Hobbies: []string{"chess", "running"}}
	b := NewPromptBuilder("Vox", "Alex", profile, nil)
	persona := b.Persona()
	for _, want := range []string{"About the user", "Name: Alex", "Occupation: engineer", "Hobbies: chess, running"} {
		if !strings.Contains(persona, want) {
			t.Errorf("persona missing %q", want)
		}
	}
}

func TestSearchPersonaOmitsProfile(t *testing.T) {
	profile := config.Profile{Name: "Alex", Occupation: "engineer"}
	b := NewPromptBuilder("Vox", "Alex", profile, nil)
	persona := b.SearchPersona()
	if !strings.Contains(persona, "voice assistant named Vox") {
		t.Errorf("base persona missing: %q", persona)
	}
	for _, banned := range []string{"About the user", "Occupation: engineer"} {
		if strings.Contains(persona, banned) {
			t.Errorf("search persona must not carry %q", banned)
		}
	}
}

func TestRealtimeSystemPromptOmitsProfile(t *testing.T) {
	client := &chatStub{answers: []string{"Fresh answer."}}
	store := chatlog.NewStore(filepath.Join(t.TempDir(), "ChatLog.json"), testLogger())
	profile := config.Profile{Name: "Alex", Occupation: "engineer"}
	prompts := NewPromptBuilder("Vox", "Alex", profile, nil)
	r := NewResponder(ResponderConfig{
		Client:        client,
		Log:           store,
		Prompts:       prompts,
		ChatModel:     "chat-model",
		RealtimeModel: "realtime-model",
		Logger:        testLogger(),
	})

	if _, err := r.Realtime(context.Background(), "latest news"); err != nil {
		t.Fatalf("Realtime: %v", err)
	}
	if strings.Contains(client.reqs[0].Messages[0].Content, "About the user") {
		t.Error("realtime system prompt must not include the profile block")
	}

	if _, err := r.Chat(context.Background(), "introduce yourself"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(client.reqs[1].Messages[0].Content, "About the user") {
		t.Error("chat system prompt should include the profile block")
	}
}
