package notification

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultSubscriberBuffer is the number of messages a slow listener may lag
// behind before it starts missing events.
const DefaultSubscriberBuffer = 32

// Hub fans notifications out to in-process subscribers such as SSE streams
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	buffer int
	log    zerolog.Logger
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[chan Message]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of connected listeners
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Notify(ctx context.Context, event string, payload any) {
	msg, err := NewMessage(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode notification")
		return
	}
	h.Broadcast(msg)
}

// Broadcast delivers msg to every subscriber without blocking; listeners
// whose buffer is full miss it.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.log.Warn().Str("event", msg.Event).Msg("dropping notification for slow subscriber")
		}
	}
}
