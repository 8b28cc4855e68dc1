// Package bus provides the in-process event bus between the turn controller
// and the display channels (web, CLI, Telegram).
package bus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxbot/internal/domain"
)

const defaultBuffer = 64

// InMemoryBus fans display events out to named subscribers and carries image
// generation requests to the background worker.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan domain.Event
	images      chan domain.ImageRequest
	closed      bool
	logger      *slog.Logger
}

func New(logger *slog.Logger) *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]chan domain.Event),
		images:      make(chan domain.ImageRequest, 8),
		logger:      logger,
	}
}

// Publish delivers an event to every subscriber. Slow subscribers have
// their oldest pending event dropped rather than blocking the turn loop.
func (b *InMemoryBus) Publish(evt domain.Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("publish on closed bus", "type", evt.Type)
		return
	}

	for name, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
				b.logger.Warn("subscriber lagging, dropped oldest event", "subscriber", name)
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

func (b *InMemoryBus) Subscribe(name string) <-chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[name]; ok {
		return ch
	}
	ch := make(chan domain.Event, defaultBuffer)
	b.subscribers[name] = ch
	return ch
}

func (b *InMemoryBus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[name]; ok {
		delete(b.subscribers, name)
		close(ch)
	}
}

// RequestImage queues an image-generation request. A full queue drops the
// request with a warning; image generation is best-effort.
func (b *InMemoryBus) RequestImage(req domain.ImageRequest) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.images <- req:
	default:
		b.logger.Warn("image request queue full, dropping", "prompt", req.Prompt)
	}
}

func (b *InMemoryBus) Images() <-chan domain.ImageRequest {
	return b.images
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for name, ch := range b.subscribers {
		delete(b.subscribers, name)
		close(ch)
	}
	close(b.images)
}
