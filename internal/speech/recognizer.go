// Package speech captures microphone input through Chrome's Web Speech API.
// A small capture page runs webkitSpeechRecognition; the recognizer drives
// it over the DevTools protocol and polls the transcript element.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"voxbot/internal/domain"
)

const (
	captureFile  = "Voice.html"
	pollEvery    = 100 * time.Millisecond
	captureTotal = 60 * time.Second
)

// capturePage is the recognition page written into the data directory. The
// status element flips to "done" when a final result is in.
const capturePage = `<!DOCTYPE html>
<html>
<body>
  <button id="start" onclick="startRecognition()">Start</button>
  <p id="output"></p>
  <p id="status">idle</p>
  <script>
    const output = document.getElementById('output');
    const status = document.getElementById('status');
    let recognition;

    function startRecognition() {
      recognition = new webkitSpeechRecognition() || new SpeechRecognition();
      recognition.lang = '%s';
      recognition.continuous = true;
      recognition.onresult = function(event) {
        output.textContent = event.results[event.results.length - 1][0].transcript;
      };
      recognition.onend = function() {
        if (output.textContent.trim() !== '') {
          status.textContent = 'done';
        } else {
          recognition.start();
        }
      };
      output.textContent = '';
      status.textContent = 'listening';
      recognition.start();
    }
  </script>
</body>
</html>`

// ChromeRecognizer implements domain.Recognizer on a dedicated Chrome
// instance. The instance stays alive across turns; starting Chrome per
// utterance would add seconds of latency.
type ChromeRecognizer struct {
	dataDir  string
	language string
	headless bool
	logger   *slog.Logger

	taskCtx context.Context
	cancel  context.CancelFunc
}

type Config struct {
	DataDir  string
	Language string
	Headless bool
	Logger   *slog.Logger
}

func NewChromeRecognizer(cfg Config) (*ChromeRecognizer, error) {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &ChromeRecognizer{
		dataDir:  cfg.DataDir,
		language: cfg.Language,
		headless: cfg.Headless,
		logger:   cfg.Logger,
	}

	pagePath, err := r.writeCapturePage()
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	r.taskCtx = taskCtx
	r.cancel = func() {
		taskCancel()
		allocCancel()
	}

	if err := chromedp.Run(taskCtx,
		chromedp.Navigate("file://"+pagePath),
		chromedp.WaitReady("body"),
	); err != nil {
		r.cancel()
		return nil, fmt.Errorf("%w: cannot open capture page: %v", domain.ErrNoSpeechEngine, err)
	}

	r.logger.Info("speech recognizer ready", "language", cfg.Language, "headless", cfg.Headless)
	return r, nil
}

func (r *ChromeRecognizer) writeCapturePage() (string, error) {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(r.dataDir, captureFile)
	page := fmt.Sprintf(capturePage, r.language)
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write capture page: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// Recognize starts a recognition pass and blocks until the user finished a
// phrase, the context is canceled, or the capture window elapses.
func (r *ChromeRecognizer) Recognize(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(r.taskCtx, captureTotal)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click("#start", chromedp.ByID)); err != nil {
		return "", fmt.Errorf("start recognition: %w", err)
	}

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stop()
			return "", ctx.Err()
		case <-runCtx.Done():
			return "", fmt.Errorf("speech capture timed out")
		case <-ticker.C:
			var status, text string
			err := chromedp.Run(runCtx,
				chromedp.Text("#status", &status, chromedp.ByID),
				chromedp.Text("#output", &text, chromedp.ByID),
			)
			if err != nil {
				return "", fmt.Errorf("poll transcript: %w", err)
			}
			if status == "done" && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text), nil
			}
		}
	}
}

func (r *ChromeRecognizer) stop() {
	stopCtx, cancel := context.WithTimeout(r.taskCtx, 2*time.Second)
	defer cancel()
	_ = chromedp.Run(stopCtx, chromedp.Evaluate(`recognition && recognition.stop()`, nil))
}

func (r *ChromeRecognizer) Close() error {
	r.cancel()
	return nil
}
