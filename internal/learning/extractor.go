package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voxbot/internal/domain"
)

const extractorSystemPrompt = "You are a learning extraction system. Extract only meaningful, important facts from conversations that would be useful to remember in the future."

const extractionTemplate = `Analyze this conversation between the user and assistant and extract any important facts, preferences, or information about the user that should be remembered for future conversations.

User: %s
Assistant: %s

Extract ONLY significant facts worth remembering, such as:
- User's preferences, likes/dislikes
- Personal information or experiences shared
- Goals, plans, or intentions mentioned
- Important context about their life, work, or interests
- Recurring topics or concerns

Format: Return each learning as a brief, clear statement, one per line, each starting with "-". If there's nothing significant to learn, respond with "NONE".

Extracted learnings:`

// minFactLen filters out fragments too short to be worth remembering.
const minFactLen = 5

// Extractor distills learned facts from a (query, answer) pair via a
// secondary LLM call.
type Extractor struct {
	client domain.ChatClient
	store  *Store
	model  string
	logger *slog.Logger
}

func NewExtractor(client domain.ChatClient, store *Store, model string, logger *slog.Logger) *Extractor {
	return &Extractor{client: client, store: store, model: model, logger: logger}
}

// Extract returns the fact statements found in one exchange.
func (e *Extractor) Extract(ctx context.Context, userQuery, assistantAnswer string) ([]string, error) {
	answer, err := e.client.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(extractionTemplate, userQuery, assistantAnswer)},
		},
		Model:       e.model,
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("learning extraction: %w", err)
	}

	result := strings.TrimSpace(answer)
	if result == "" || strings.EqualFold(result, "NONE") {
		return nil, nil
	}

	var facts []string
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		fact := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if len(fact) > minFactLen {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}

// LearnFromExchange extracts and stores facts from one turn. Best effort:
// every failure is swallowed into a log line, never surfaced to the turn.
func (e *Extractor) LearnFromExchange(ctx context.Context, userQuery, assistantAnswer string) {
	facts, err := e.Extract(ctx, userQuery, assistantAnswer)
	if err != nil {
		e.logger.Warn("learning extraction failed", "error", err)
		return
	}
	for _, fact := range facts {
		if err := e.store.Add(fact); err != nil {
			e.logger.Warn("could not store learned fact", "error", err)
		}
	}
	if len(facts) > 0 {
		e.logger.Debug("learned from conversation", "facts", len(facts))
	}
}
