package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lawdesk_backend/internal/logger"
	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/internal/realtime"
)

// MessageService is the chat surface a connection needs: sends issued
// over socket frames and delivery receipts. Satisfied by
// *chat.ChatService.
type MessageService interface {
	SendMessage(roomID, senderID string, msgType modelChat.MessageType, content string) (*modelChat.Message, error)
	MarkMessageDelivered(messageID, recipientID string) error
}

// Manager owns the set of live websocket connections. Registration and
// teardown run on a single goroutine so a connection is cleaned up
// exactly once no matter how it dies.
type Manager struct {
	gateway   *realtime.Gateway
	transport realtime.Transport
	presence  *realtime.Tracker
	typing    *realtime.TypingBroadcaster
	chat      MessageService

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewManager(
	gateway *realtime.Gateway,
	transport realtime.Transport,
	presence *realtime.Tracker,
	typing *realtime.TypingBroadcaster,
	chat MessageService,
) *Manager {
	return &Manager{
		gateway:    gateway,
		transport:  transport,
		presence:   presence,
		typing:     typing,
		chat:       chat,
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then force-closes
// whatever is still connected.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.clients[client.ID] = client
			realtime.ConnectionsTotal.Inc()
			logger.Info("websocket connected",
				"conn_id", client.ID,
				"user_id", client.Identity.UserID,
				"connections", len(m.clients),
			)

		case client := <-m.unregister:
			if _, ok := m.clients[client.ID]; !ok {
				continue
			}
			delete(m.clients, client.ID)
			realtime.ConnectionsTotal.Dec()
			client.cleanup()
			close(client.Send)
			logger.Info("websocket disconnected",
				"conn_id", client.ID,
				"user_id", client.Identity.UserID,
				"connections", len(m.clients),
			)

		case <-ctx.Done():
			for id, client := range m.clients {
				client.cleanup()
				close(client.Send)
				client.Conn.Close()
				delete(m.clients, id)
				realtime.ConnectionsTotal.Dec()
			}
			return
		}
	}
}

// Wait blocks until Run has returned.
func (m *Manager) Wait() {
	<-m.done
}

// NewClient wraps an upgraded connection and starts its pumps.
func (m *Manager) NewClient(conn *websocket.Conn, identity realtime.Identity) *Client {
	client := &Client{
		ID:       "conn-" + uuid.NewString(),
		Identity: identity,
		Conn:     conn,
		Send:     make(chan realtime.Envelope, sendBuffer),
		manager:  m,
		subs:     make(map[string]func()),
	}
	m.register <- client
	go client.writePump()
	go client.readPump()
	return client
}
