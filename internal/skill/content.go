package skill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxbot/internal/domain"
)

const (
	contentMaxTokens   = 2048
	contentTemperature = 0.7
)

const contentSystemPrompt = "You are a content writer. You write letters, applications, essays, " +
	"poems, and code on request. Write only the requested content, with no preamble and no notes."

// ContentSkill drafts written content with the model, saves it under the
// data directory, and opens it in the default editor. Content requests use
// their own one-shot prompt so drafts never leak into the conversation
// history.
type ContentSkill struct {
	client   domain.ChatClient
	launcher Launcher
	model    string
	dataDir  string
	logger   *slog.Logger
	now      func() time.Time
}

func NewContentSkill(client domain.ChatClient, launcher Launcher, model, dataDir string, logger *slog.Logger) *ContentSkill {
	return &ContentSkill{
		client:   client,
		launcher: launcher,
		model:    model,
		dataDir:  dataDir,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ContentSkill) Name() string            { return "content" }
func (s *ContentSkill) Kind() domain.IntentKind { return domain.IntentContent }

func (s *ContentSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, writing %s.", arg)
}

func (s *ContentSkill) Run(ctx context.Context, arg string) error {
	topic := strings.TrimSpace(arg)
	if topic == "" {
		return fmt.Errorf("empty content topic")
	}

	draft, err := s.client.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: contentSystemPrompt},
			{Role: "user", Content: "Write: " + topic},
		},
		Model:       s.model,
		MaxTokens:   contentMaxTokens,
		Temperature: contentTemperature,
	})
	if err != nil {
		return fmt.Errorf("draft content: %w", err)
	}
	draft = strings.ReplaceAll(draft, "</s>", "")

	dir := filepath.Join(s.dataDir, "Content")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create content directory: %w", err)
	}
	path := filepath.Join(dir, s.filename(topic))
	if err := os.WriteFile(path, []byte(draft), 0o644); err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	s.logger.Info("content written", "topic", topic, "path", path)

	if err := s.launcher.Open(ctx, path); err != nil {
		s.logger.Warn("cannot open content in editor", "path", path, "error", err)
	}
	return nil
}

// filename picks a stable name for common letter types and slugs everything
// else, with a timestamp so repeated requests never overwrite each other.
func (s *ContentSkill) filename(topic string) string {
	lower := strings.ToLower(topic)
	base := ""
	switch {
	case strings.Contains(lower, "sick"), strings.Contains(lower, "leave"):
		base = "sick_leave_application"
	case strings.Contains(lower, "resign"):
		base = "resignation_letter"
	case strings.Contains(lower, "job"), strings.Contains(lower, "application"):
		base = "job_application"
	default:
		base = slug(lower)
	}
	return fmt.Sprintf("%s_%s.txt", base, s.now().Format("20060102_150405"))
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "content"
	}
	const maxLen = 48
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
