package domain

import "time"

// EventType classifies a bus event.
type EventType string

const (
	EventTranscript EventType = "transcript"
	EventStatus     EventType = "status"
)

// Event is a display update pushed from the turn controller to the
// channels: either a transcript line (speaker + text) or an assistant
// status change ("Listening...", "Thinking...", ...).
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Speaker string    `json:"speaker,omitempty"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
}

// ImageRequest asks the background image worker to generate images for a
// prompt.
type ImageRequest struct {
	Prompt string
}

// EventBus decouples the turn controller from the display channels.
type EventBus interface {
	Publish(evt Event)
	Subscribe(name string) <-chan Event
	Unsubscribe(name string)
	RequestImage(req ImageRequest)
	Images() <-chan ImageRequest
	Close()
}
