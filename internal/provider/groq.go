// Package provider holds typed clients for the external services the
// assistant calls: streaming chat completion, speech synthesis, and image
// generation.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"voxbot/internal/domain"
	"voxbot/internal/metrics"
)

const (
	groqDefaultBase  = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama-3.1-8b-instant"
)

// Groq implements domain.ChatClient against an OpenAI-compatible chat
// completion API in streaming mode.
type Groq struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type GroqConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewGroq(cfg GroqConfig) *Groq {
	if cfg.APIBase == "" {
		cfg.APIBase = groqDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = groqDefaultModel
	}
	if cfg.Client == nil {
		cfg.Client = sharedClient(120 * time.Second)
	}
	return &Groq{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

type groqRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        int              `json:"top_p,omitempty"`
	Stream      bool             `json:"stream"`
}

type groqChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Chat sends the request with streaming enabled and concatenates the
// streamed content deltas into one string.
func (g *Groq) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	start := time.Now()
	metrics.LLMRequestsTotal.Inc()
	defer func() {
		metrics.LLMLatency.Observe(time.Since(start).Seconds())
	}()

	model := req.Model
	if model == "" {
		model = g.model
	}

	body := groqRequest{
		Model:    model,
		Messages: req.Messages,
		TopP:     1,
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	buildReq := func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
		httpReq.Header.Set("Accept", "text/event-stream")
		return httpReq, nil
	}

	resp, err := doWithRetry(ctx, g.client, quadraticBackoff, buildReq, g.logger)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completion %d: %s", resp.StatusCode, string(respBody))
	}

	answer, err := readStream(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion stream: %w", err)
	}
	return answer, nil
}

// readStream concatenates content deltas from an SSE body. Lines look like
// "data: {json}" with a final "data: [DONE]".
func readStream(body io.Reader) (string, error) {
	var answer strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk groqChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Malformed chunk: skip it rather than aborting mid-answer.
			continue
		}
		if len(chunk.Choices) > 0 {
			answer.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return answer.String(), nil
}

func (g *Groq) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat service not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("chat service: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat service returned %d", resp.StatusCode)
	}
	return nil
}
