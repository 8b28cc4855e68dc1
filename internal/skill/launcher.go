// Package skill implements the automation skills: opening and closing
// applications, playback, content writing, web searches, system controls,
// and user-defined voice macros. Skills are dispatched by intent kind.
package skill

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher abstracts the host OS actions skills need. Tests substitute a
// recording fake.
type Launcher interface {
	// OpenURL opens a URL in the default browser.
	OpenURL(ctx context.Context, url string) error
	// StartApp launches an application by name.
	StartApp(ctx context.Context, name string) error
	// StopApp terminates an application by name.
	StopApp(ctx context.Context, name string) error
	// Open asks the OS to open an arbitrary target (file, folder, app).
	Open(ctx context.Context, target string) error
	// Exec runs a raw command line, for system controls and macros.
	Exec(ctx context.Context, line string) error
	// SendKeys delivers a keystroke chord to the focused window.
	SendKeys(ctx context.Context, chord string) error
}

// OSLauncher is the production Launcher backed by exec.Command.
type OSLauncher struct{}

func NewOSLauncher() *OSLauncher { return &OSLauncher{} }

func (l *OSLauncher) OpenURL(ctx context.Context, url string) error {
	switch runtime.GOOS {
	case "darwin":
		return run(ctx, "open", url)
	case "windows":
		return run(ctx, "cmd", "/c", "start", "", url)
	default:
		return run(ctx, "xdg-open", url)
	}
}

func (l *OSLauncher) StartApp(ctx context.Context, name string) error {
	switch runtime.GOOS {
	case "darwin":
		return run(ctx, "open", "-a", name)
	case "windows":
		return run(ctx, "cmd", "/c", "start", "", name)
	default:
		return run(ctx, "sh", "-c", fmt.Sprintf("%s >/dev/null 2>&1 &", shellQuote(name)))
	}
}

func (l *OSLauncher) StopApp(ctx context.Context, name string) error {
	switch runtime.GOOS {
	case "windows":
		return run(ctx, "taskkill", "/IM", name+".exe", "/F")
	default:
		return run(ctx, "pkill", "-f", name)
	}
}

func (l *OSLauncher) Open(ctx context.Context, target string) error {
	switch runtime.GOOS {
	case "darwin":
		return run(ctx, "open", target)
	case "windows":
		return run(ctx, "cmd", "/c", "start", "", target)
	default:
		return run(ctx, "xdg-open", target)
	}
}

func (l *OSLauncher) Exec(ctx context.Context, line string) error {
	switch runtime.GOOS {
	case "windows":
		return run(ctx, "cmd", "/c", line)
	default:
		return run(ctx, "sh", "-c", line)
	}
}

func (l *OSLauncher) SendKeys(ctx context.Context, chord string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, chord)
		return run(ctx, "osascript", "-e", script)
	case "windows":
		return fmt.Errorf("keystroke injection not supported on windows without extra tooling")
	default:
		return run(ctx, "xdotool", "key", chord)
	}
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
