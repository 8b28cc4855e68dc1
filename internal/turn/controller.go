package turn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voxbot/internal/chatlog"
	"voxbot/internal/convo"
	"voxbot/internal/domain"
	"voxbot/internal/intent"
	"voxbot/internal/metrics"
	"voxbot/internal/skill"
)

const farewell = "Okay, goodbye!"

// Controller owns the foreground loop. One iteration is a full voice turn:
// capture an utterance, classify it, run automations, answer conversational
// queries, and speak the result while watching for the wake word.
type Controller struct {
	state      *State
	recognizer domain.Recognizer
	speaker    domain.Synthesizer
	classifier *intent.Classifier
	responder  *convo.Responder
	executor   *skill.Executor
	bus        domain.EventBus
	purger     *chatlog.Purger
	monitor    *WakeWordMonitor
	username   string
	logger     *slog.Logger
}

type ControllerConfig struct {
	State      *State
	Recognizer domain.Recognizer
	Speaker    domain.Synthesizer
	Classifier *intent.Classifier
	Responder  *convo.Responder
	Executor   *skill.Executor
	Bus        domain.EventBus
	Purger     *chatlog.Purger
	Monitor    *WakeWordMonitor
	Username   string
	Logger     *slog.Logger
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.State == nil {
		cfg.State = NewState()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		state:      cfg.State,
		recognizer: cfg.Recognizer,
		speaker:    cfg.Speaker,
		classifier: cfg.Classifier,
		responder:  cfg.Responder,
		executor:   cfg.Executor,
		bus:        cfg.Bus,
		purger:     cfg.Purger,
		monitor:    cfg.Monitor,
		username:   cfg.Username,
		logger:     cfg.Logger,
	}
}

// Run greets the user and loops over voice turns until the context is
// canceled or the user says goodbye.
func (c *Controller) Run(ctx context.Context) error {
	c.speak(ctx, Greeting(c.username, time.Now()))

	for ctx.Err() == nil {
		exit, err := c.turn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrNoSpeechEngine) {
				return err
			}
			c.logger.Warn("turn failed", "error", err)
			continue
		}
		if exit {
			c.speak(ctx, farewell)
			return nil
		}
		if c.purger != nil {
			c.purger.Run()
		}
	}
	return ctx.Err()
}

func (c *Controller) turn(ctx context.Context) (exit bool, err error) {
	start := time.Now()

	c.state.Set(PhaseListening)
	c.status("Listening...")
	raw, err := c.recognizer.Recognize(ctx)
	if err != nil {
		metrics.RecognizerErrors.Inc()
		if errors.Is(err, domain.ErrNoSpeechEngine) {
			// Without a capture engine every further turn would fail the
			// same way. Tell the channels and stop the loop.
			c.status("Speech capture is unavailable.")
		}
		return false, err
	}
	utterance := convo.QueryModifier(raw)
	if utterance == "" {
		return false, nil
	}
	c.transcript(c.username, utterance)

	c.state.Set(PhaseThinking)
	c.status("Thinking...")

	// Exact macro phrases never reach the classifier.
	if c.executor != nil {
		ran, macroErr := c.executor.ExecutePhrase(ctx, utterance, func(text string) {
			c.transcript("assistant", text)
			c.speak(ctx, text)
		})
		if ran {
			if macroErr != nil {
				c.logger.Warn("macro failed", "error", macroErr)
			}
			metrics.SkillRunsTotal.Inc()
			c.answer(ctx, "Done.")
			return false, nil
		}
	}

	decision := c.classify(ctx, utterance)
	metrics.TurnsTotal.Inc()
	defer func() {
		metrics.TurnLatency.Observe(time.Since(start).Seconds())
	}()

	if decision.WantsExit() {
		return true, nil
	}

	if prompt, ok := decision.ImagePrompt(); ok && c.bus != nil {
		c.bus.RequestImage(domain.ImageRequest{Prompt: prompt})
	}

	_, hasAutomation := decision.Automation()
	if hasAutomation && c.executor != nil {
		metrics.SkillRunsTotal.Inc()
		execErr := c.executor.Execute(ctx, decision.Intents, func(text string) {
			c.transcript("assistant", text)
			c.speak(ctx, text)
		})
		if execErr != nil {
			c.logger.Warn("automation failed", "error", execErr)
		}
		// A failed skill still ends with the acknowledgment; errors stay in
		// the log and the audit trail.
		c.answer(ctx, "Done.")
	}

	switch {
	case decision.HasConversational():
		query := decision.MergedQuery()
		var answer string
		var answerErr error
		if decision.HasRealtime() {
			answer, answerErr = c.responder.Realtime(ctx, query)
		} else {
			answer, answerErr = c.responder.Chat(ctx, query)
		}
		if answerErr != nil {
			return false, answerErr
		}
		c.answer(ctx, answer)
	case !hasAutomation:
		// Nothing recognized. Fall back to chit-chat on the raw utterance
		// so every stored user turn gets an assistant reply.
		answer, answerErr := c.responder.Chat(ctx, utterance)
		if answerErr != nil {
			return false, answerErr
		}
		c.answer(ctx, answer)
	}

	return false, nil
}

// classify runs the intent model. When classification fails the utterance
// is still answered as plain conversation; losing a turn to a model error
// would feel broken.
func (c *Controller) classify(ctx context.Context, utterance string) intent.Decision {
	tags, err := c.classifier.Classify(ctx, utterance)
	if err != nil {
		c.logger.Warn("classification failed, treating as general query", "error", err)
		return intent.Parse(utterance, []string{"general " + utterance})
	}
	return intent.Parse(utterance, tags)
}

// answer publishes the full text to the channels, then speaks it with the
// wake-word monitor running so the user can cut it short.
func (c *Controller) answer(ctx context.Context, text string) {
	c.transcript("assistant", text)

	c.state.Set(PhaseSpeaking)
	c.state.ClearInterrupt()
	c.status("Answering...")

	var stopMonitor context.CancelFunc
	if c.monitor != nil {
		var mctx context.Context
		mctx, stopMonitor = context.WithCancel(ctx)
		go c.monitor.Watch(mctx)
	}

	err := c.speaker.Speak(ctx, text, func() bool {
		return !c.state.Interrupted()
	})
	if stopMonitor != nil {
		stopMonitor()
	}
	if err != nil {
		c.logger.Warn("cannot speak answer", "error", err)
	}
	if c.state.Interrupted() {
		c.logger.Info("answer interrupted by wake word")
	}

	c.state.Set(PhaseIdle)
	c.state.ClearInterrupt()
}

// speak voices short service phrases without interrupt monitoring.
func (c *Controller) speak(ctx context.Context, text string) {
	if err := c.speaker.Speak(ctx, text, nil); err != nil {
		c.logger.Warn("cannot speak", "text", text, "error", err)
	}
}

func (c *Controller) transcript(speaker, text string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(domain.Event{Type: domain.EventTranscript, Speaker: speaker, Text: text})
}

func (c *Controller) status(text string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(domain.Event{Type: domain.EventStatus, Text: text})
}
