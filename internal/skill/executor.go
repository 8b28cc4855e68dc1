package skill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"voxbot/internal/domain"
)

// Executor dispatches parsed automation intents to skills and runs them
// concurrently, the way a person would kick off several windows at once.
type Executor struct {
	registry *Registry
	macros   *MacroSet
	launcher Launcher
	audit    *AuditLog
	logger   *slog.Logger
}

type ExecutorConfig struct {
	Registry *Registry
	Macros   *MacroSet
	Launcher Launcher
	Audit    *AuditLog
	Logger   *slog.Logger
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Macros == nil {
		cfg.Macros = &MacroSet{logger: cfg.Logger}
	}
	return &Executor{
		registry: cfg.Registry,
		macros:   cfg.Macros,
		launcher: cfg.Launcher,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
	}
}

// ExecutePhrase runs a voice macro when the spoken utterance is exactly one
// of its trigger phrases, skipping the classifier entirely. It reports
// whether a macro matched.
func (e *Executor) ExecutePhrase(ctx context.Context, utterance string, ack func(text string)) (bool, error) {
	macro := e.macros.Match(strings.TrimRight(strings.TrimSpace(utterance), ".?!"))
	if macro == nil {
		return false, nil
	}
	if ack != nil {
		ack(fmt.Sprintf("Ok, running %s.", macro.Name))
	}
	return true, e.runMacro(ctx, macro)
}

// Execute runs the first automation intent in the decision and waits for
// it. Only one automation skill runs per turn; later automation intents in
// the same decision are ignored. ack is called with the phrase to speak
// before dispatch; it may be nil. The skill runs on a worker goroutine so a
// hung OS call cannot wedge the caller past ctx.
func (e *Executor) Execute(ctx context.Context, intents []domain.Intent, ack func(text string)) error {
	g, gctx := errgroup.WithContext(ctx)
	dispatched := false

	for _, it := range intents {
		if !it.Kind.Automation() {
			continue
		}

		// Voice macros shadow the default open behavior.
		if it.Kind == domain.IntentOpen {
			if macro := e.macros.Match(it.Argument); macro != nil {
				dispatched = true
				if ack != nil {
					ack(fmt.Sprintf("Ok, running %s.", macro.Name))
				}
				g.Go(func() error {
					return e.runMacro(gctx, macro)
				})
				break
			}
		}

		s := e.registry.Lookup(it.Kind)
		if s == nil {
			e.logger.Warn("no skill for intent", "kind", it.Kind, "argument", it.Argument)
			continue
		}

		dispatched = true
		if ack != nil {
			ack(s.Ack(it.Argument))
		}
		arg := it.Argument
		g.Go(func() error {
			return e.runSkill(gctx, s, arg)
		})
		break
	}

	if !dispatched {
		return nil
	}
	return g.Wait()
}

func (e *Executor) runSkill(ctx context.Context, s domain.Skill, arg string) error {
	start := time.Now()
	err := s.Run(ctx, arg)
	if e.audit != nil {
		e.audit.Record(ctx, s.Name(), arg, err, time.Since(start))
	}
	if err != nil {
		e.logger.Warn("skill failed", "skill", s.Name(), "argument", arg, "error", err)
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	e.logger.Info("skill done", "skill", s.Name(), "argument", arg, "took", time.Since(start))
	return nil
}

func (e *Executor) runMacro(ctx context.Context, macro *Macro) error {
	start := time.Now()
	err := e.macros.Run(ctx, e.launcher, macro)
	if e.audit != nil {
		e.audit.Record(ctx, "macro:"+macro.Name, "", err, time.Since(start))
	}
	return err
}
