package realtime

import (
	"context"
	"errors"
	"sync"
)

// captureTransport records published envelopes for assertions. When fail
// is set, every Publish returns an error.
type captureTransport struct {
	mu   sync.Mutex
	envs []Envelope
	fail bool
}

func (t *captureTransport) Publish(_ context.Context, channel, event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return errors.New("transport unavailable")
	}
	t.envs = append(t.envs, Envelope{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (t *captureTransport) Subscribe(string, string, Handler) (func(), error) {
	return func() {}, nil
}

func (t *captureTransport) Close() error { return nil }

func (t *captureTransport) published(channel, event string) []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Envelope
	for _, env := range t.envs {
		if env.Channel == channel && env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (t *captureTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.envs)
}
