package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voxbot/internal/domain"
)

const classifierSystemPrompt = `You are a decision-making model. You classify user queries into one or more tags from this fixed grammar, and output ONLY the tags, comma-separated, nothing else:

- "general (query)" for questions answerable from your own knowledge.
- "realtime (query)" for questions needing up-to-date information from the internet (news, weather, prices, people in the news).
- "open (app or website)" to open an application or website.
- "close (app)" to close an application.
- "play (song or video)" to play something on a video platform.
- "content (topic)" to write content such as letters, emails, essays, code, or to generate an image.
- "google search (query)" for an explicit google search request.
- "youtube search (query)" for an explicit youtube search request.
- "system (action)" for mute, unmute, volume up, volume down, shutdown, restart, lock, sleep, hibernate, log off.
- "skip ads" to skip a video advertisement.
- "exit" when the user says goodbye or asks you to stop.

A query may produce multiple tags, e.g. "open chrome and tell me a joke" -> "open chrome, general tell me a joke". If unsure, answer "general (query)".`

// Classifier asks the decision LLM to map an utterance onto the tag grammar.
type Classifier struct {
	client domain.ChatClient
	model  string
	logger *slog.Logger
}

func NewClassifier(client domain.ChatClient, model string, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, model: model, logger: logger}
}

// Classify returns the ordered tag list for one utterance. The tag strings
// are raw; callers run them through Parse. A classifier failure is not fatal
// to the turn: the caller falls back to chit-chat on the raw utterance.
func (c *Classifier) Classify(ctx context.Context, utterance string) ([]string, error) {
	answer, err := c.client.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: utterance},
		},
		Model:       c.model,
		MaxTokens:   128,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("classify utterance: %w", err)
	}

	tags := splitTags(answer)
	c.logger.Debug("classified utterance", "tags", tags)
	return tags, nil
}

// splitTags splits the model output on commas and trims decoration the
// model sometimes adds (quotes, trailing periods, bullet dashes).
func splitTags(answer string) []string {
	var tags []string
	for _, part := range strings.Split(answer, ",") {
		tag := strings.TrimSpace(part)
		tag = strings.Trim(tag, `"'`)
		tag = strings.TrimPrefix(tag, "- ")
		tag = strings.TrimSuffix(tag, ".")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
