package skill

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"voxbot/internal/domain"
)

// OpenSkill opens websites and applications. A target that looks like a URL
// goes straight to the browser; anything else is tried as an installed
// application, then handed to the OS opener, then resolved through web search
// and opened as a site. Opening never fails the turn: there is always a
// browser tab to fall back to.
type OpenSkill struct {
	launcher Launcher
	search   domain.SearchClient
	logger   *slog.Logger
}

func NewOpenSkill(launcher Launcher, search domain.SearchClient, logger *slog.Logger) *OpenSkill {
	return &OpenSkill{launcher: launcher, search: search, logger: logger}
}

func (s *OpenSkill) Name() string            { return "open" }
func (s *OpenSkill) Kind() domain.IntentKind { return domain.IntentOpen }

func (s *OpenSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, opening %s.", arg)
}

func (s *OpenSkill) Run(ctx context.Context, arg string) error {
	target := strings.TrimSpace(arg)
	if target == "" {
		return nil
	}

	if looksLikeURL(target) {
		if err := s.launcher.OpenURL(ctx, normalizeURL(target)); err != nil {
			s.logger.Warn("cannot open url", "url", target, "error", err)
		}
		return nil
	}

	if err := s.launcher.StartApp(ctx, target); err == nil {
		return nil
	} else {
		s.logger.Debug("app launch failed, trying generic open", "app", target, "error", err)
	}

	// The OS opener resolves names the app launcher cannot: registered
	// protocols, documents, anything the desktop knows how to open.
	if err := s.launcher.Open(ctx, target); err == nil {
		return nil
	} else {
		s.logger.Debug("generic open failed, resolving via web", "target", target, "error", err)
	}

	if s.search != nil {
		if results, err := s.search.Search(ctx, target, 1); err == nil && len(results) > 0 && results[0].URL != "" {
			if err := s.launcher.OpenURL(ctx, results[0].URL); err == nil {
				return nil
			}
		}
	}

	// Last resort: a search results page for the target.
	fallback := "https://www.google.com/search?q=" + url.QueryEscape(target)
	if err := s.launcher.OpenURL(ctx, fallback); err != nil {
		s.logger.Warn("cannot open fallback search page", "target", target, "error", err)
	}
	return nil
}

func looksLikeURL(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	if strings.ContainsAny(s, " \t") {
		return false
	}
	host := s
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	dot := strings.LastIndexByte(host, '.')
	// A bare word is an app name; "youtube.com" is a site.
	return dot > 0 && dot < len(host)-1
}

func normalizeURL(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}
