package turn

import (
	"context"
	"fmt"
	"log/slog"

	"voxbot/internal/domain"
)

type imageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]string, error)
}

// ImageWorker drains image requests from the bus and generates them in the
// background, so a "generate an image of ..." request never blocks the
// voice loop.
type ImageWorker struct {
	bus    domain.EventBus
	client imageGenerator
	logger *slog.Logger
}

func NewImageWorker(bus domain.EventBus, client imageGenerator, logger *slog.Logger) *ImageWorker {
	return &ImageWorker{bus: bus, client: client, logger: logger}
}

func (w *ImageWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-w.bus.Images():
			if !ok {
				return
			}
			w.generate(ctx, req.Prompt)
		}
	}
}

func (w *ImageWorker) generate(ctx context.Context, prompt string) {
	w.bus.Publish(domain.Event{Type: domain.EventStatus, Text: "Generating images..."})
	paths, err := w.client.Generate(ctx, prompt)
	if err != nil {
		w.logger.Warn("image generation failed", "prompt", prompt, "error", err)
		w.bus.Publish(domain.Event{
			Type:    domain.EventTranscript,
			Speaker: "assistant",
			Text:    "Sorry, I could not generate those images.",
		})
		return
	}
	w.logger.Info("images generated", "prompt", prompt, "count", len(paths))
	w.bus.Publish(domain.Event{
		Type:    domain.EventTranscript,
		Speaker: "assistant",
		Text:    fmt.Sprintf("Generated %d images for %q.", len(paths), prompt),
	})
}
