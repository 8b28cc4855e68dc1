// Package config loads and validates the assistant configuration. The root
// config is a JSON file with ${VAR} environment substitution; the user
// profile and runtime preferences live in separate JSON files under the data
// directory so the assistant can rewrite them without touching the config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for VoxBot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Provider ProviderConfig `json:"provider"`
	TTS      TTSConfig      `json:"tts"`
	Speech   SpeechConfig   `json:"speech"`
	Channels ChannelsConfig `json:"channels"`
	Image    ImageConfig    `json:"image"`
	Macros   MacrosConfig   `json:"macros"`
	Audit    AuditConfig    `json:"audit"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	DataDir       string `json:"dataDir"`
	AssistantName string `json:"assistantName"`
	Username      string `json:"username"`
	WakeWord      string `json:"wakeWord"`
	LogLevel      string `json:"logLevel"`
	LogFile       string `json:"logFile,omitempty"`
}

// ProviderConfig holds the chat-completion service credentials and the model
// assignment per role. Conversation and realtime answers use different
// models with different token budgets.
type ProviderConfig struct {
	APIBase         string `json:"apiBase,omitempty"`
	APIKey          string `json:"apiKey"`
	ChatModel       string `json:"chatModel"`
	RealtimeModel   string `json:"realtimeModel"`
	ClassifierModel string `json:"classifierModel"`
	ContentModel    string `json:"contentModel"`
}

type TTSConfig struct {
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
	Voice   string `json:"voice"`
}

// SpeechConfig configures the browser-based speech recognizer.
type SpeechConfig struct {
	Enabled  bool   `json:"enabled"`
	Language string `json:"language"`
	Headless bool   `json:"headless"`
}

type ChannelsConfig struct {
	Web      WebConfig      `json:"web"`
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
}

type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

// TelegramConfig configures the transcript mirror. When enabled, every
// spoken exchange is forwarded to the given chat.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
}

type ImageConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
}

// MacrosConfig points at the YAML file of voice macro definitions.
type MacrosConfig struct {
	Path string `json:"path,omitempty"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.voxbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxbot"
	}
	return filepath.Join(home, ".voxbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.Macros.Path = ExpandPath(cfg.Macros.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.DataDir == "" {
		errs = append(errs, "general.dataDir must not be empty")
	}
	if cfg.General.WakeWord == "" {
		errs = append(errs, "general.wakeWord must not be empty")
	}
	switch strings.ToLower(cfg.General.LogLevel) {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Provider.ChatModel == "" {
		errs = append(errs, "provider.chatModel must not be empty")
	}
	if cfg.Provider.ClassifierModel == "" {
		errs = append(errs, "provider.classifierModel must not be empty")
	}

	if cfg.Channels.Web.Port < 0 || cfg.Channels.Web.Port > 65535 {
		errs = append(errs, "channels.web.port must be between 0 and 65535")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when the mirror is enabled")
	}
	if cfg.Image.Enabled && cfg.Image.APIKey == "" {
		errs = append(errs, "image.apiKey is required when image generation is enabled")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when the audit log is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
