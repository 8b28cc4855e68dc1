// Package audio plays synthesized speech through the system speaker and
// supports cutting playback short when the user talks over the assistant.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// pollInterval is how often playback re-checks whether it should keep
// going. Interruption latency is bounded by this value.
const pollInterval = 50 * time.Millisecond

// Player decodes MP3 speech and plays it on the default output device.
type Player struct {
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
}

func NewPlayer(logger *slog.Logger) *Player {
	return &Player{logger: logger}
}

// Play plays the MP3 payload until it finishes, the context is canceled, or
// keepGoing reports false. keepGoing is polled every 50ms; a nil keepGoing
// plays to the end.
func (p *Player) Play(ctx context.Context, mp3Data []byte, keepGoing func() bool) error {
	streamer, format, err := mp3.Decode(nopReadSeekCloser{bytes.NewReader(mp3Data)})
	if err != nil {
		return fmt.Errorf("decode speech audio: %w", err)
	}
	defer streamer.Close()

	p.initOnce.Do(func() {
		p.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("init speaker: %w", p.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			speaker.Clear()
			return ctx.Err()
		case <-ticker.C:
			if keepGoing != nil && !keepGoing() {
				speaker.Clear()
				p.logger.Debug("playback interrupted")
				return nil
			}
		}
	}
}

type nopReadSeekCloser struct {
	io.ReadSeeker
}

func (nopReadSeekCloser) Close() error { return nil }
