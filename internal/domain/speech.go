package domain

import (
	"context"
	"errors"
)

// ErrNoSpeechEngine is returned by a Recognizer when no compatible browser
// engine is available for speech capture. Callers must special-case it or it
// will be mistaken for recognized user speech.
var ErrNoSpeechEngine = errors.New("no compatible browser engine for speech recognition")

// Recognizer captures one recognized utterance. Recognize blocks until
// speech is recognized or the context is cancelled; there is no internal
// timeout.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
	Close() error
}

// Synthesizer speaks text aloud. keepGoing is polled at a fixed cadence
// during playback; when it returns false, playback stops immediately and
// Speak returns nil. Already-spoken audio is not retracted.
type Synthesizer interface {
	Speak(ctx context.Context, text string, keepGoing func() bool) error
}
