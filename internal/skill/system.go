package skill

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"voxbot/internal/domain"
)

// systemCommands maps the recognized system controls to a command line per
// OS family.
var systemCommands = map[string]map[string]string{
	"mute": {
		"linux":  "amixer -q set Master mute",
		"darwin": `osascript -e "set volume output muted true"`,
	},
	"unmute": {
		"linux":  "amixer -q set Master unmute",
		"darwin": `osascript -e "set volume output muted false"`,
	},
	"volume up": {
		"linux":  "amixer -q set Master 10%+",
		"darwin": `osascript -e "set volume output volume ((output volume of (get volume settings)) + 10)"`,
	},
	"volume down": {
		"linux":  "amixer -q set Master 10%-",
		"darwin": `osascript -e "set volume output volume ((output volume of (get volume settings)) - 10)"`,
	},
	"shutdown": {
		"linux":   "systemctl poweroff",
		"darwin":  `osascript -e "tell app \"System Events\" to shut down"`,
		"windows": "shutdown /s /t 0",
	},
	"restart": {
		"linux":   "systemctl reboot",
		"darwin":  `osascript -e "tell app \"System Events\" to restart"`,
		"windows": "shutdown /r /t 0",
	},
	"lock": {
		"linux":   "loginctl lock-session",
		"darwin":  "pmset displaysleepnow",
		"windows": "rundll32.exe user32.dll,LockWorkStation",
	},
	"sleep": {
		"linux":   "systemctl suspend",
		"darwin":  "pmset sleepnow",
		"windows": "rundll32.exe powrprof.dll,SetSuspendState 0,1,0",
	},
	"hibernate": {
		"linux":   "systemctl hibernate",
		"windows": "shutdown /h",
	},
	"log off": {
		"linux":   "loginctl terminate-user $USER",
		"darwin":  `osascript -e "tell app \"System Events\" to log out"`,
		"windows": "shutdown /l",
	},
}

// SystemSkill runs recognized system controls: audio (mute, unmute, volume
// up, volume down) and power/session actions (shutdown, restart, lock,
// sleep, hibernate, log off).
type SystemSkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewSystemSkill(launcher Launcher, logger *slog.Logger) *SystemSkill {
	return &SystemSkill{launcher: launcher, logger: logger}
}

func (s *SystemSkill) Name() string            { return "system" }
func (s *SystemSkill) Kind() domain.IntentKind { return domain.IntentSystem }

func (s *SystemSkill) Ack(arg string) string {
	return fmt.Sprintf("Ok, %s.", arg)
}

func (s *SystemSkill) Run(ctx context.Context, arg string) error {
	control := strings.ToLower(strings.TrimSpace(arg))
	byOS, ok := systemCommands[control]
	if !ok {
		s.logger.Warn("unknown system control", "control", control)
		return nil
	}
	line, ok := byOS[runtime.GOOS]
	if !ok {
		line, ok = byOS["linux"]
		if !ok {
			return fmt.Errorf("system control %q not supported on %s", control, runtime.GOOS)
		}
	}
	if err := s.launcher.Exec(ctx, line); err != nil {
		s.logger.Warn("system control failed", "control", control, "error", err)
		return err
	}
	return nil
}

// SkipAdsSkill sends the keystroke sequence most players bind to the skip
// button. Delivery is best effort: there is no feedback channel from the
// focused window.
type SkipAdsSkill struct {
	launcher Launcher
	logger   *slog.Logger
}

func NewSkipAdsSkill(launcher Launcher, logger *slog.Logger) *SkipAdsSkill {
	return &SkipAdsSkill{launcher: launcher, logger: logger}
}

func (s *SkipAdsSkill) Name() string            { return "skip_ads" }
func (s *SkipAdsSkill) Kind() domain.IntentKind { return domain.IntentSkipAds }

func (s *SkipAdsSkill) Ack(string) string { return "Ok, skipping the ad." }

func (s *SkipAdsSkill) Run(ctx context.Context, _ string) error {
	for _, chord := range []string{"Tab", "Return"} {
		if err := s.launcher.SendKeys(ctx, chord); err != nil {
			s.logger.Debug("keystroke delivery failed", "chord", chord, "error", err)
			return nil
		}
	}
	return nil
}
