package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voxbot/internal/chatlog"
	"voxbot/internal/config"
	"voxbot/internal/convo"
	"voxbot/internal/intent"
	"voxbot/internal/learning"
	"voxbot/internal/provider"
	"voxbot/internal/search"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <text>",
		Short: "Answer one typed turn without audio",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatTurn(cmd, strings.Join(args, " "))
		},
	}
}

// runChatTurn runs the classify-and-answer half of a voice turn on typed
// text: no recognizer, no speaker, no automations. The exchange still
// lands in ChatLog.json like a spoken one.
func runChatTurn(cmd *cobra.Command, text string) error {
	cfg := loadConfig()
	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return err
	}
	setupLogging(cfg)

	chatClient := provider.NewGroq(provider.GroqConfig{
		APIKey:  cfg.Provider.APIKey,
		APIBase: cfg.Provider.APIBase,
		Model:   cfg.Provider.ChatModel,
		Logger:  logger,
	})
	searchClient := search.New(search.Config{Logger: logger})

	logStore := chatlog.NewStore(chatLogPath(cfg), logger)
	memory := learning.NewStore(learningPath(cfg), logger)
	extractor := learning.NewExtractor(chatClient, memory, cfg.Provider.ChatModel, logger)

	prefs := config.LoadPreferences(cfg.General.DataDir)
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
	classifier := intent.NewClassifier(chatClient, cfg.Provider.ClassifierModel, logger)

	answer, err := answerText(cmd.Context(), classifier, responder, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

// answerText classifies typed text and routes it the way a spoken turn is
// routed, minus automations and audio.
func answerText(ctx context.Context, classifier *intent.Classifier, responder *convo.Responder, text string) (string, error) {
	utterance := convo.QueryModifier(text)

	var decision intent.Decision
	tags, err := classifier.Classify(ctx, utterance)
	if err != nil {
		logger.Warn("classification failed, treating as general query", "error", err)
		decision = intent.Parse(utterance, []string{"general " + utterance})
	} else {
		decision = intent.Parse(utterance, tags)
	}

	switch {
	case decision.WantsExit():
		return "Okay, goodbye!", nil
	case decision.HasRealtime():
		return responder.Realtime(ctx, decision.MergedQuery())
	case decision.HasConversational():
		return responder.Chat(ctx, decision.MergedQuery())
	default:
		return responder.Chat(ctx, utterance)
	}
}
