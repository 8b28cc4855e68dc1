package skill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Macro is a user-defined voice shortcut: when a spoken target matches one
// of its phrases, its steps run instead of the default open behavior.
type Macro struct {
	Name    string      `yaml:"name"`
	Phrases []string    `yaml:"phrases"`
	Steps   []MacroStep `yaml:"steps"`
}

// MacroStep is a single action. Exactly one field should be set.
type MacroStep struct {
	Open string `yaml:"open,omitempty"` // URL or file to open
	App  string `yaml:"app,omitempty"`  // application to start
	Exec string `yaml:"exec,omitempty"` // raw command line
}

// MacroSet holds the loaded macros and matches spoken targets against them.
type MacroSet struct {
	macros []Macro
	logger *slog.Logger
}

// LoadMacros reads macro definitions from YAML files in a directory. Files
// must have a .yaml or .yml extension. A missing directory is not an error;
// macros are optional.
func LoadMacros(dir string, logger *slog.Logger) (*MacroSet, error) {
	set := &MacroSet{logger: logger}
	if dir == "" {
		return set, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("macro directory does not exist, skipping", "dir", dir)
		return set, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read macro dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read macro file", "path", path, "err", err)
			continue
		}

		var macro Macro
		if err := yaml.Unmarshal(data, &macro); err != nil {
			logger.Warn("cannot parse macro file", "path", path, "err", err)
			continue
		}
		if macro.Name == "" {
			macro.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if len(macro.Phrases) == 0 || len(macro.Steps) == 0 {
			logger.Warn("macro needs phrases and steps, skipping", "path", path)
			continue
		}

		logger.Info("loaded voice macro", "name", macro.Name, "phrases", len(macro.Phrases))
		set.macros = append(set.macros, macro)
	}

	return set, nil
}

// Match returns the first macro whose phrase matches the spoken target, or
// nil.
func (m *MacroSet) Match(target string) *Macro {
	lower := strings.ToLower(strings.TrimSpace(target))
	if lower == "" {
		return nil
	}
	for i := range m.macros {
		for _, phrase := range m.macros[i].Phrases {
			if strings.ToLower(phrase) == lower {
				return &m.macros[i]
			}
		}
	}
	return nil
}

// Run executes the macro's steps in order. The first failing step aborts
// the macro.
func (m *MacroSet) Run(ctx context.Context, launcher Launcher, macro *Macro) error {
	for i, step := range macro.Steps {
		var err error
		switch {
		case step.Open != "":
			err = launcher.Open(ctx, step.Open)
		case step.App != "":
			err = launcher.StartApp(ctx, step.App)
		case step.Exec != "":
			err = launcher.Exec(ctx, step.Exec)
		default:
			m.logger.Warn("empty macro step", "macro", macro.Name, "step", i)
			continue
		}
		if err != nil {
			return fmt.Errorf("macro %s step %d: %w", macro.Name, i, err)
		}
	}
	return nil
}
