package skill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voxbot/internal/domain"
)

// browserNames are applications the close skill refuses to terminate: the
// speech recognizer runs inside a browser, and killing it would cut the
// assistant's own ears off.
var browserNames = map[string]bool{
	"chrome":   true,
	"chromium": true,
	"browser":  true,
	"firefox":  true,
	"safari":   true,
	"edge":     true,
}

// CloseSkill terminates applications by name.
type CloseSkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewCloseSkill(launcher Launcher, logger *slog.Logger) *CloseSkill {
	return &CloseSkill{launcher: launcher, logger: logger}
}

func (s *CloseSkill) Name() string            { return "close" }
func (s *CloseSkill) Kind() domain.IntentKind { return domain.IntentClose }

func (s *CloseSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, closing %s.", arg)
}

func (s *CloseSkill) Run(ctx context.Context, arg string) error {
	name := strings.ToLower(strings.TrimSpace(arg))
	if name == "" {
		return nil
	}
	if browserNames[name] {
		s.logger.Warn("refusing to close browser, the speech recognizer depends on it", "app", name)
		return nil
	}
	if err := s.launcher.StopApp(ctx, name); err != nil {
		s.logger.Warn("cannot close app", "app", name, "error", err)
		return err
	}
	return nil
}
