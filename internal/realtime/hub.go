package realtime

import (
	"context"
	"sync"
)

// Hub is the in-process Transport: a channel → subscriber map. It serves
// single-node deployments and doubles as the test transport.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[string]Handler // channel -> connID -> handler
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[string]Handler),
	}
}

// Publish delivers the event to every subscriber registered at call time.
// Handlers are invoked synchronously; they must enqueue, not block.
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	env := Envelope{Channel: channel, Event: event, Payload: payload}

	h.mu.RLock()
	subs := make([]Handler, 0, len(h.channels[channel]))
	for _, fn := range h.channels[channel] {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(env)
	}
	return nil
}

// Subscribe registers fn for channel under connID.
func (h *Hub) Subscribe(channel, connID string, fn Handler) (func(), error) {
	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]Handler)
	}
	h.channels[channel][connID] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.channels[channel]; ok {
				delete(subs, connID)
				if len(subs) == 0 {
					delete(h.channels, channel)
				}
			}
		})
	}, nil
}

// SubscriberCount reports current subscribers on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = make(map[string]map[string]Handler)
	h.closed = true
	return nil
}
