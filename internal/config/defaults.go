package config

import "path/filepath"

func Defaults() *Config {
	dataDir := filepath.Join(DefaultConfigDir(), "data")
	return &Config{
		General: GeneralConfig{
			DataDir:       dataDir,
			AssistantName: "Vox",
			Username:      "there",
			WakeWord:      "vox",
			LogLevel:      "info",
		},
		Provider: ProviderConfig{
			ChatModel:       "llama-3.1-8b-instant",
			RealtimeModel:   "llama-3.3-70b-versatile",
			ClassifierModel: "llama-3.1-8b-instant",
			ContentModel:    "llama-3.3-70b-versatile",
		},
		TTS: TTSConfig{
			Model: "tts-1",
			Voice: "onyx",
		},
		Speech: SpeechConfig{
			Enabled:  true,
			Language: "en",
			Headless: true,
		},
		Channels: ChannelsConfig{
			Web: WebConfig{
				Enabled: false,
				Host:    "127.0.0.1",
				Port:    8080,
			},
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
		},
		Image: ImageConfig{
			Enabled: false,
			Model:   "stabilityai/stable-diffusion-xl-base-1.0",
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  filepath.Join(dataDir, "audit.db"),
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
