package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"lawdesk_backend/internal/logger"
)

// subjectPrefix maps channel names onto a NATS subject namespace.
const subjectPrefix = "lawdesk.realtime."

// NATSTransport fans events out across nodes through a NATS cluster.
// Every node subscribes on behalf of its local connections; channel names
// are embedded in the subject so no routing table is needed.
type NATSTransport struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription // channel/connID -> subscription
}

// NATSConfig holds connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "lawdesk-realtime",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NewNATSTransport connects to NATS and returns a ready transport.
func NewNATSTransport(cfg NATSConfig) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl())

	return &NATSTransport{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

func subjectFor(channel string) string {
	return subjectPrefix + channel
}

// Publish marshals the envelope and publishes it to the channel subject.
func (t *NATSTransport) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(Envelope{Channel: channel, Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := t.conn.Publish(subjectFor(channel), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe registers fn on the channel subject, keyed by connID so many
// local connections can follow the same channel independently.
func (t *NATSTransport) Subscribe(channel, connID string, fn Handler) (func(), error) {
	sub, err := t.conn.Subscribe(subjectFor(channel), func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warn("nats envelope decode failed", "channel", channel, "error", err)
			return
		}
		fn(env)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", channel, err)
	}

	key := channel + "/" + connID
	t.mu.Lock()
	t.subs[key] = sub
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if s, ok := t.subs[key]; ok {
				_ = s.Unsubscribe()
				delete(t.subs, key)
			}
		})
	}, nil
}

// Close drains the connection so in-flight messages are handed to
// subscribers before shutdown.
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	for key, sub := range t.subs {
		_ = sub.Unsubscribe()
		delete(t.subs, key)
	}
	t.mu.Unlock()
	return t.conn.Drain()
}
