package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"voxbot/internal/chatlog"
	"voxbot/internal/config"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	// Credentials commonly live in a .env next to the binary; a missing
	// file is fine.
	_ = godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "voxbot",
		Short: "VoxBot: a wake-word voice assistant",
		Long:  "VoxBot listens on the microphone, classifies what you asked for, runs automations, and talks back.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.voxbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(purgeCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
				return err
			}
			// Seed the editable data files so users have something to fill
			// in, without clobbering an existing profile.
			if _, err := os.Stat(filepath.Join(cfg.General.DataDir, "Profile.json")); os.IsNotExist(err) {
				if err := config.SaveProfile(cfg.General.DataDir, config.Profile{Name: cfg.General.Username}); err != nil {
					return err
				}
			}
			if _, err := os.Stat(filepath.Join(cfg.General.DataDir, "Preferences.json")); os.IsNotExist(err) {
				if err := config.SavePreferences(cfg.General.DataDir, config.LoadPreferences(cfg.General.DataDir)); err != nil {
					return err
				}
			}
			logger.Info("initialized", "config", cfgPath, "dataDir", cfg.General.DataDir)
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete the chat history and learned facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			store := chatlog.NewStore(chatLogPath(cfg), logger)
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear chat log: %w", err)
			}
			if err := os.Remove(learningPath(cfg)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove learned facts: %w", err)
			}
			fmt.Println("Chat history and learned facts removed.")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			paths := config.ListPaths(config.Sanitize(cfg))
			keys := make([]string, 0, len(paths))
			for k := range paths {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s = %v\n", k, paths[k])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <path>",
		Short: "Read one value by dot path (e.g. general.wakeWord)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(val)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set one value by dot path and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := loadConfig()
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return config.Save(cfgPath, cfg)
		},
	})

	return cmd
}
