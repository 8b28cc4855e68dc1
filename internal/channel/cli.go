package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"voxbot/internal/domain"
)

// CLI prints the transcript to the terminal as the conversation happens.
type CLI struct {
	bus     domain.EventBus
	out     io.Writer
	history []domain.Event
	logger  *slog.Logger
}

type CLIConfig struct {
	Bus domain.EventBus
	Out io.Writer
	// History is printed before the live transcript so the terminal shows
	// where the conversation left off.
	History []domain.Event
	Logger  *slog.Logger
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{bus: cfg.Bus, out: cfg.Out, history: cfg.History, logger: cfg.Logger}
}

func (c *CLI) Name() string { return "cli" }

func (c *CLI) Start(ctx context.Context) error {
	for _, evt := range c.history {
		if evt.Type == domain.EventTranscript {
			fmt.Fprintf(c.out, "%s: %s\n", evt.Speaker, evt.Text)
		}
	}

	events := c.bus.Subscribe("cli")
	defer c.bus.Unsubscribe("cli")

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case domain.EventStatus:
				fmt.Fprintf(c.out, "  [%s]\n", evt.Text)
			case domain.EventTranscript:
				fmt.Fprintf(c.out, "%s: %s\n", evt.Speaker, evt.Text)
			}
		}
	}
}
