package turn

import (
	"context"
	"log/slog"
	"strings"

	"voxbot/internal/domain"
	"voxbot/internal/metrics"
)

// WakeWordMonitor listens for the wake word while the assistant is
// speaking, so the user can talk over an answer to cut it short.
type WakeWordMonitor struct {
	recognizer domain.Recognizer
	wakeWord   string
	state      *State
	logger     *slog.Logger
}

func NewWakeWordMonitor(recognizer domain.Recognizer, wakeWord string, state *State, logger *slog.Logger) *WakeWordMonitor {
	return &WakeWordMonitor{
		recognizer: recognizer,
		wakeWord:   strings.ToLower(wakeWord),
		state:      state,
		logger:     logger,
	}
}

// Watch runs recognition passes until the context is canceled, flagging an
// interrupt whenever a transcript contains the wake word. It is meant to
// run in a goroutine for the duration of one spoken answer.
func (m *WakeWordMonitor) Watch(ctx context.Context) {
	for ctx.Err() == nil {
		text, err := m.recognizer.Recognize(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("wake word pass failed", "error", err)
			continue
		}
		if strings.Contains(strings.ToLower(text), m.wakeWord) {
			if m.state.Interrupt() {
				metrics.InterruptionsTotal.Inc()
				m.logger.Info("wake word heard, interrupting answer")
				return
			}
		}
	}
}
