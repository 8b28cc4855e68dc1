package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// ttsAttempts is the fixed retry budget for synthesis calls.
	ttsAttempts = 3
	ttsBackoff  = 1 * time.Second
)

// TTSConfig configures the neural voice synthesis client.
type TTSConfig struct {
	APIBase string
	APIKey  string
	Model   string
	Voice   string
	Client  *http.Client
	Logger  *slog.Logger
}

// TTSClient synthesizes speech from text via an OpenAI-compatible
// /audio/speech endpoint.
type TTSClient struct {
	apiBase string
	apiKey  string
	model   string
	voice   string
	client  *http.Client
	logger  *slog.Logger
}

func NewTTSClient(cfg TTSConfig) *TTSClient {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "onyx"
	}
	if cfg.Client == nil {
		cfg.Client = sharedClient(60 * time.Second)
	}
	return &TTSClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		voice:   cfg.Voice,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

type ttsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize converts text to MP3 audio, retrying transient failures on
// the fixed-backoff policy.
func (t *TTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{Model: t.model, Input: text, Voice: t.voice})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	buildReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBase+"/audio/speech", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := doWithRetry(ctx, t.client, fixedBackoff, buildReq, t.logger)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("synthesis error %d: %s", resp.StatusCode, respBody)
	}
	return io.ReadAll(resp.Body)
}
