// Package channel renders the assistant's transcript on secondary surfaces:
// a local web page, the terminal, and an optional Telegram mirror. Channels
// are display-only; the microphone remains the sole input.
package channel

import "context"

// Channel is a transcript display surface.
type Channel interface {
	Name() string
	// Start blocks until the context is canceled.
	Start(ctx context.Context) error
}
