package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	longAnswerSentences = 4
	longAnswerChars     = 250
	longAnswerNotice    = " The rest of the answer is on the chat screen, kindly check it out."
)

type ttsService interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type audioPlayer interface {
	Play(ctx context.Context, mp3Data []byte, keepGoing func() bool) error
}

// VoiceSpeaker implements domain.Synthesizer: it synthesizes the text and
// plays it, shortening long answers to their first sentences so the
// assistant does not drone on.
type VoiceSpeaker struct {
	tts    ttsService
	player audioPlayer
	logger *slog.Logger
}

func NewVoiceSpeaker(tts ttsService, player audioPlayer, logger *slog.Logger) *VoiceSpeaker {
	return &VoiceSpeaker{tts: tts, player: player, logger: logger}
}

func (s *VoiceSpeaker) Speak(ctx context.Context, text string, keepGoing func() bool) error {
	spoken := SpokenForm(text)
	audio, err := s.tts.Synthesize(ctx, spoken)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	if err := s.player.Play(ctx, audio, keepGoing); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

// SpokenForm shortens long answers to their first two sentences plus a
// pointer at the screen. Short answers pass through unchanged.
func SpokenForm(text string) string {
	sentences := strings.Split(text, ".")
	if len(sentences) <= longAnswerSentences || len(text) < longAnswerChars {
		return text
	}
	preview := strings.TrimSpace(strings.Join(sentences[:2], ".") + ".")
	return preview + longAnswerNotice
}
