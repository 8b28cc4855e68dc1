package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voxbot/internal/chatlog"
	"voxbot/internal/domain"
	"voxbot/internal/learning"
)

const (
	chatTemperature     = 0.5
	chatMaxTokens       = 512
	realtimeTemperature = 0.7
	realtimeMaxTokens   = 2048
	searchResultLimit   = 5
	learnTimeout        = 30 * time.Second
)

// Responder answers conversational and realtime queries. Both paths share
// the same protocol: load the log, append the user turn, complete against
// the model, clean the answer, persist both turns, then hand the exchange to
// the learning extractor.
type Responder struct {
	client        domain.ChatClient
	search        domain.SearchClient
	log           *chatlog.Store
	prompts       *PromptBuilder
	extractor     *learning.Extractor
	chatModel     string
	realtimeModel string
	logger        *slog.Logger
}

type ResponderConfig struct {
	Client        domain.ChatClient
	Search        domain.SearchClient
	Log           *chatlog.Store
	Prompts       *PromptBuilder
	Extractor     *learning.Extractor
	ChatModel     string
	RealtimeModel string
	Logger        *slog.Logger
}

func NewResponder(cfg ResponderConfig) *Responder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Responder{
		client:        cfg.Client,
		search:        cfg.Search,
		log:           cfg.Log,
		prompts:       cfg.Prompts,
		extractor:     cfg.Extractor,
		chatModel:     cfg.ChatModel,
		realtimeModel: cfg.RealtimeModel,
		logger:        cfg.Logger,
	}
}

// Chat answers a conversational query from the persona and the chat history.
// On failure the log is cleared and the answer is attempted once more; a
// corrupt history must not wedge the assistant.
func (r *Responder) Chat(ctx context.Context, query string) (string, error) {
	answer, err := r.answer(ctx, query, false)
	if err == nil {
		return answer, nil
	}
	r.logger.Warn("chat answer failed, clearing history and retrying", "error", err)
	if clearErr := r.log.Clear(); clearErr != nil {
		r.logger.Error("cannot clear chat history", "error", clearErr)
	}
	return r.answer(ctx, query, false)
}

// Realtime answers a query that needs fresh information, grounding the
// completion on web search snippets.
func (r *Responder) Realtime(ctx context.Context, query string) (string, error) {
	return r.answer(ctx, query, true)
}

func (r *Responder) answer(ctx context.Context, query string, realtime bool) (string, error) {
	turns, err := r.log.Load()
	if err != nil && !errors.Is(err, chatlog.ErrLogReset) {
		return "", fmt.Errorf("load chat history: %w", err)
	}
	if errors.Is(err, chatlog.ErrLogReset) {
		r.logger.Warn("chat history was reset, continuing with empty history")
		turns = nil
	}

	persona := r.prompts.Persona()
	if realtime {
		persona = r.prompts.SearchPersona()
	}
	messages := []domain.Message{{Role: "system", Content: persona}}

	if realtime {
		block, err := r.searchBlock(ctx, query)
		if err != nil {
			r.logger.Warn("web search failed, answering without snippets", "error", err)
		} else if block != "" {
			messages = append(messages, domain.Message{Role: "system", Content: block})
		}
	}

	messages = append(messages, domain.Message{Role: "system", Content: r.prompts.RealtimeInformation()})
	messages = append(messages, chatlog.History(turns)...)
	messages = append(messages, domain.Message{Role: "user", Content: query})

	req := domain.ChatRequest{
		Messages:    messages,
		Model:       r.chatModel,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	}
	if realtime {
		req.Model = r.realtimeModel
		req.MaxTokens = realtimeMaxTokens
		req.Temperature = realtimeTemperature
	}

	raw, err := r.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	answer := AnswerModifier(strings.ReplaceAll(raw, "</s>", ""))

	userTurn := domain.NewTurn(domain.RoleUser, query)
	assistantTurn := domain.NewTurn(domain.RoleAssistant, answer)
	if err := r.log.Append(userTurn, assistantTurn); err != nil {
		r.logger.Error("cannot persist exchange", "error", err)
	}

	if r.extractor != nil {
		go func() {
			lctx, cancel := context.WithTimeout(context.Background(), learnTimeout)
			defer cancel()
			r.extractor.LearnFromExchange(lctx, query, answer)
		}()
	}

	return answer, nil
}

func (r *Responder) searchBlock(ctx context.Context, query string) (string, error) {
	if r.search == nil {
		return "", nil
	}
	results, err := r.search.Search(ctx, query, searchResultLimit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The search results for '%s' are:\n[start]\n", query)
	for _, res := range results {
		fmt.Fprintf(&sb, "Title: %s\nDescription: %s\n\n", res.Title, res.Snippet)
	}
	sb.WriteString("[end]")
	return sb.String(), nil
}
