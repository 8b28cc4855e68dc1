// Package search resolves realtime queries against the DuckDuckGo Instant
// Answer API. Results feed the realtime responder as grounding snippets.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"voxbot/internal/domain"
)

const (
	searchTimeout   = 15 * time.Second
	userAgentString = "VoxBot/0.1"
)

type ddgResponse struct {
	Heading       string `json:"Heading"`
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// DuckDuckGo implements domain.SearchClient over the keyless Instant Answer
// API.
type DuckDuckGo struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

type Config struct {
	APIBase string
	Client  *http.Client
	Logger  *slog.Logger
}

func New(cfg Config) *DuckDuckGo {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.duckduckgo.com"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: searchTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DuckDuckGo{base: cfg.APIBase, client: cfg.Client, logger: cfg.Logger}
}

// Search returns up to limit ranked results. The instant answer, when
// present, ranks first so the responder quotes authoritative text before
// related topics.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.base, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgentString)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var results []domain.SearchResult

	if ddg.Abstract != "" {
		results = append(results, domain.SearchResult{
			Title:   ddg.Heading,
			URL:     ddg.AbstractURL,
			Snippet: ddg.Abstract,
		})
	}
	if ddg.Answer != "" {
		results = append(results, domain.SearchResult{
			Title:   query,
			Snippet: ddg.Answer,
		})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= limit {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   topic.Text,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		d.logger.Debug("no instant results", "query", query)
	}
	return results, nil
}
