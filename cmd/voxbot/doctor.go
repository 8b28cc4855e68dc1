package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"voxbot/internal/config"
	"voxbot/internal/provider"
	"voxbot/internal/skill"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your VoxBot installation",
		Long: `Verifies that VoxBot's configuration, credentials, data directory, and
audit database are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("VoxBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'voxbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\nResults: %d passed, %d failed\n", passed, failed)
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Data directory writable
			if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
				printFail("Data directory", err.Error())
				failed++
			} else {
				printPass("Data directory", cfg.General.DataDir)
				passed++
			}

			// 4. Chat provider reachable
			if cfg.Provider.APIKey == "" {
				printWarn("Chat provider", "no API key configured")
				warned++
			} else {
				groq := provider.NewGroq(provider.GroqConfig{
					APIKey:  cfg.Provider.APIKey,
					APIBase: cfg.Provider.APIBase,
					Logger:  logger,
				})
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				err := groq.Healthy(ctx)
				cancel()
				if err != nil {
					printFail("Chat provider", err.Error())
					failed++
				} else {
					printPass("Chat provider", "reachable")
					passed++
				}
			}

			// 5. TTS key present
			if cfg.TTS.APIKey == "" {
				printWarn("Speech synthesis", "no API key configured")
				warned++
			} else {
				printPass("Speech synthesis", "configured")
				passed++
			}

			// 6. Audit database writable, plus recent skill failures
			if cfg.Audit.Enabled {
				if err := checkDatabase(cfg.Audit.DBPath); err != nil {
					printFail("Audit database", err.Error())
					failed++
				} else {
					printPass("Audit database", cfg.Audit.DBPath)
					passed++
					if n, detail := recentSkillFailures(cfg.Audit.DBPath); n > 0 {
						printWarn("Skill runs", detail)
						warned++
					} else {
						printPass("Skill runs", "no recent failures")
						passed++
					}
				}
			}

			// 7. Web channel port free
			if cfg.Channels.Web.Enabled {
				if err := checkPort(cfg.Channels.Web.Port); err != nil {
					printWarn("Web port", fmt.Sprintf("port %d may be in use: %v", cfg.Channels.Web.Port, err))
					warned++
				} else {
					printPass("Web port", fmt.Sprintf(":%d available", cfg.Channels.Web.Port))
					passed++
				}
			}

			// 8. Macro directory parses
			if cfg.Macros.Path != "" {
				if _, err := os.Stat(cfg.Macros.Path); err != nil {
					printWarn("Voice macros", fmt.Sprintf("directory not found: %s", cfg.Macros.Path))
					warned++
				} else {
					printPass("Voice macros", cfg.Macros.Path)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running VoxBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nVoxBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! VoxBot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

// recentSkillFailures counts failures among the last 20 audited skill runs
// and names the most recent one.
func recentSkillFailures(dbPath string) (int, string) {
	audit, err := skill.OpenAuditLog(dbPath, logger)
	if err != nil {
		return 0, ""
	}
	defer audit.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := audit.Recent(ctx, 20)
	if err != nil {
		return 0, ""
	}

	failures := 0
	var latest string
	for _, e := range entries {
		if e.OK {
			continue
		}
		failures++
		if latest == "" {
			latest = fmt.Sprintf("%s %q: %s", e.Skill, e.Argument, e.Error)
		}
	}
	if failures == 0 {
		return 0, ""
	}
	return failures, fmt.Sprintf("%d of last %d runs failed, latest: %s", failures, len(entries), latest)
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
