package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voxbot/internal/audio"
	"voxbot/internal/bus"
	"voxbot/internal/channel"
	"voxbot/internal/chatlog"
	"voxbot/internal/config"
	"voxbot/internal/convo"
	"voxbot/internal/domain"
	"voxbot/internal/intent"
	"voxbot/internal/learning"
	"voxbot/internal/provider"
	"voxbot/internal/search"
	"voxbot/internal/skill"
	"voxbot/internal/speech"
	"voxbot/internal/turn"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the voice assistant",
		RunE:  runAssistant,
	}
}

func chatLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.General.DataDir, "ChatLog.json")
}

func learningPath(cfg *config.Config) string {
	return filepath.Join(cfg.General.DataDir, "LearningMemory.json")
}

func runAssistant(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(logger)
	defer eventBus.Close()

	// Providers.
	chatClient := provider.NewGroq(provider.GroqConfig{
		APIKey:  cfg.Provider.APIKey,
		APIBase: cfg.Provider.APIBase,
		Model:   cfg.Provider.ChatModel,
		Logger:  logger,
	})
	ttsClient := provider.NewTTSClient(provider.TTSConfig{
		APIBase: cfg.TTS.APIBase,
		APIKey:  cfg.TTS.APIKey,
		Model:   cfg.TTS.Model,
		Voice:   cfg.TTS.Voice,
		Logger:  logger,
	})
	searchClient := search.New(search.Config{Logger: logger})

	// Stores.
	logStore := chatlog.NewStore(chatLogPath(cfg), logger)
	memory := learning.NewStore(learningPath(cfg), logger)
	extractor := learning.NewExtractor(chatClient, memory, cfg.Provider.ChatModel, logger)

	prefs := config.LoadPreferences(cfg.General.DataDir)
	purger := chatlog.NewPurger(
		logStore,
		filepath.Join(cfg.General.DataDir, "LastCleanup.json"),
		func() bool { return config.LoadPreferences(cfg.General.DataDir).AutoDeleteChat },
		logger,
	)
	logger.Info("chat retention", "policy", purger.Describe(), "autoDelete", prefs.AutoDeleteChat)

	// Conversation.
	profile := config.LoadProfile(cfg.General.DataDir)
	username := cfg.General.Username
	if profile.Name != "" {
		username = profile.Name
	}
	prompts := convo.NewPromptBuilder(cfg.General.AssistantName, username, profile, memory).
		WithLanguages(prefs.Languages)
	responder := convo.NewResponder(convo.ResponderConfig{
		Client:        chatClient,
		Search:        searchClient,
		Log:           logStore,
		Prompts:       prompts,
		Extractor:     extractor,
		ChatModel:     cfg.Provider.ChatModel,
		RealtimeModel: cfg.Provider.RealtimeModel,
		Logger:        logger,
	})

	// Skills.
	launcher := skill.NewOSLauncher()
	registry := skill.NewRegistry(logger)
	registry.Register(skill.NewOpenSkill(launcher, searchClient, logger))
	registry.Register(skill.NewCloseSkill(launcher, logger))
	registry.Register(skill.NewPlaySkill(launcher, logger))
	registry.Register(skill.NewGoogleSearchSkill(launcher, logger))
	registry.Register(skill.NewYouTubeSearchSkill(launcher, logger))
	registry.Register(skill.NewSystemSkill(launcher, logger))
	registry.Register(skill.NewSkipAdsSkill(launcher, logger))
	registry.Register(skill.NewContentSkill(chatClient, launcher, cfg.Provider.ContentModel, cfg.General.DataDir, logger))

	macros, err := skill.LoadMacros(cfg.Macros.Path, logger)
	if err != nil {
		return fmt.Errorf("load voice macros: %w", err)
	}

	var audit *skill.AuditLog
	if cfg.Audit.Enabled {
		audit, err = skill.OpenAuditLog(cfg.Audit.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer audit.Close()
	}

	executor := skill.NewExecutor(skill.ExecutorConfig{
		Registry: registry,
		Macros:   macros,
		Launcher: launcher,
		Audit:    audit,
		Logger:   logger,
	})

	// Speech in and out.
	recognizer, err := speech.NewChromeRecognizer(speech.Config{
		DataDir:  cfg.General.DataDir,
		Language: cfg.Speech.Language,
		Headless: cfg.Speech.Headless,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("start speech recognizer: %w", err)
	}
	defer recognizer.Close()

	player := audio.NewPlayer(logger)
	speaker := turn.NewVoiceSpeaker(ttsClient, player, logger)

	state := turn.NewState()
	monitor := turn.NewWakeWordMonitor(recognizer, cfg.General.WakeWord, state, logger)

	controller := turn.NewController(turn.ControllerConfig{
		State:      state,
		Recognizer: recognizer,
		Speaker:    speaker,
		Classifier: intent.NewClassifier(chatClient, cfg.Provider.ClassifierModel, logger),
		Responder:  responder,
		Executor:   executor,
		Bus:        eventBus,
		Purger:     purger,
		Monitor:    monitor,
		Username:   username,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Display channels, seeded with the tail of the stored transcript.
	seed := transcriptSeed(logStore, username, cfg.General.AssistantName)
	if cfg.Channels.Web.Enabled {
		web := channel.NewWebChannel(channel.WebConfig{
			Host:    cfg.Channels.Web.Host,
			Port:    cfg.Channels.Web.Port,
			Bus:     eventBus,
			History: seed,
			Logger:  logger,
		})
		g.Go(func() error { return web.Start(gctx) })
	}
	if cfg.Channels.CLI.Enabled {
		cli := channel.NewCLI(channel.CLIConfig{Bus: eventBus, History: seed, Logger: logger})
		g.Go(func() error { return cli.Start(gctx) })
	}
	if cfg.Channels.Telegram.Enabled {
		mirror := channel.NewTelegramMirror(channel.TelegramConfig{
			Token:  cfg.Channels.Telegram.Token,
			ChatID: cfg.Channels.Telegram.ChatID,
			Bus:    eventBus,
			Logger: logger,
		})
		g.Go(func() error { return mirror.Start(gctx) })
	}

	// Background image worker.
	if cfg.Image.Enabled {
		imageClient := provider.NewImageClient(provider.ImageConfig{
			APIURL:  imageAPIURL(cfg),
			APIKey:  cfg.Image.APIKey,
			DataDir: cfg.General.DataDir,
			Logger:  logger,
		})
		worker := turn.NewImageWorker(eventBus, imageClient, logger)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	// Daily retention re-check, independent of turn cadence.
	purgeStop := make(chan struct{})
	defer close(purgeStop)
	go purger.RunDaily(purgeStop)

	// The voice loop is the foreground; when it exits, everything stops.
	g.Go(func() error {
		defer stop()
		return controller.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// transcriptSeed maps the tail of the stored chat log onto display events so
// the channels open with recent context instead of a blank pane.
func transcriptSeed(store *chatlog.Store, username, assistantName string) []domain.Event {
	turns, err := store.Load()
	if err != nil {
		return nil
	}
	var seed []domain.Event
	for _, t := range chatlog.Recent(turns, 20) {
		speaker := assistantName
		if t.Role == domain.RoleUser {
			speaker = username
		}
		evt := domain.Event{Type: domain.EventTranscript, Speaker: speaker, Text: t.Content}
		if ts, ok := t.Time(); ok {
			evt.Time = ts
		}
		seed = append(seed, evt)
	}
	return seed
}

func imageAPIURL(cfg *config.Config) string {
	if cfg.Image.APIBase != "" {
		return cfg.Image.APIBase
	}
	if cfg.Image.Model != "" {
		return "https://api-inference.huggingface.co/models/" + cfg.Image.Model
	}
	return ""
}
