package skill

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"voxbot/internal/domain"
)

// GoogleSearchSkill opens a Google results page for the query.
type GoogleSearchSkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewGoogleSearchSkill(launcher Launcher, logger *slog.Logger) *GoogleSearchSkill {
	return &GoogleSearchSkill{launcher: launcher, logger: logger}
}

func (s *GoogleSearchSkill) Name() string            { return "google_search" }
func (s *GoogleSearchSkill) Kind() domain.IntentKind { return domain.IntentGoogleSearch }

func (s *GoogleSearchSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, searching Google for %s.", arg)
}

func (s *GoogleSearchSkill) Run(ctx context.Context, arg string) error {
	target := "https://www.google.com/search?q=" + url.QueryEscape(arg)
	if err := s.launcher.OpenURL(ctx, target); err != nil {
		s.logger.Warn("cannot open google search", "query", arg, "error", err)
		return err
	}
	return nil
}

// YouTubeSearchSkill opens a YouTube results page for the query.
type YouTubeSearchSkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewYouTubeSearchSkill(launcher Launcher, logger *slog.Logger) *YouTubeSearchSkill {
	return &YouTubeSearchSkill{launcher: launcher, logger: logger}
}

func (s *YouTubeSearchSkill) Name() string            { return "youtube_search" }
func (s *YouTubeSearchSkill) Kind() domain.IntentKind { return domain.IntentYouTubeSearch }

func (s *YouTubeSearchSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, searching YouTube for %s.", arg)
}

func (s *YouTubeSearchSkill) Run(ctx context.Context, arg string) error {
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(arg)
	if err := s.launcher.OpenURL(ctx, target); err != nil {
		s.logger.Warn("cannot open youtube search", "query", arg, "error", err)
		return err
	}
	return nil
}

// PlaySkill plays media by opening the top YouTube match.
type PlaySkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewPlaySkill(launcher Launcher, logger *slog.Logger) *PlaySkill {
	return &PlaySkill{launcher: launcher, logger: logger}
}

func (s *PlaySkill) Name() string            { return "play" }
func (s *PlaySkill) Kind() domain.IntentKind { return domain.IntentPlay }

func (s *PlaySkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, playing %s.", arg)
}

func (s *PlaySkill) Run(ctx context.Context, arg string) error {
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(arg)
	if err := s.launcher.OpenURL(ctx, target); err != nil {
		s.logger.Warn("cannot start playback", "query", arg, "error", err)
		return err
	}
	return nil
}
