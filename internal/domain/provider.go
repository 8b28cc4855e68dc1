package domain

import "context"

// Message is a single chat message on the wire. Conversation timestamps are
// stripped before transmission; the completion API does not accept extra
// fields.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a completion request against the text-generation service.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatClient is the streaming chat-completion service. Chat concatenates the
// streamed fragments and returns the full answer.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Healthy(ctx context.Context) error
}

// SearchResult is one ranked organic result from the web-search service.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchClient returns ranked result snippets for a query.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
