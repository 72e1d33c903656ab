package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lawdesk_backend/internal/logger"
	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/services/dto"
	"lawdesk_backend/pkg/apperrors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// IncomingMessage is one client frame.
type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Client is one live websocket connection. A user may hold any number of
// clients at once; presence refcounts coalesce them into one logical
// online state.
type Client struct {
	ID       string // connection id, unique per socket
	Identity realtime.Identity
	Conn     *websocket.Conn
	Send     chan realtime.Envelope

	manager *Manager

	mu     sync.Mutex
	subs   map[string]func() // channel -> unsubscribe
	closed bool              // set by cleanup before the manager closes Send
}

// deliver enqueues an envelope for the write pump. Never blocks: a client
// that cannot drain its buffer is disconnected and will reconnect with a
// fresh snapshot. The closed check runs under the client mutex because a
// publish may still be in flight between the transport's handler snapshot
// and its invocation while the manager tears this connection down.
func (c *Client) deliver(env realtime.Envelope) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- env:
		c.mu.Unlock()
		c.afterDeliver(env)
	default:
		c.mu.Unlock()
		logger.Warn("client send buffer full, disconnecting", "conn_id", c.ID, "user_id", c.Identity.UserID)
		c.manager.unregister <- c
	}
}

// afterDeliver records best-effort delivery receipts for chat messages
// addressed to this user.
func (c *Client) afterDeliver(env realtime.Envelope) {
	if env.Event != realtime.EventNewMessage {
		return
	}
	msg, ok := messagePayload(env.Payload)
	if !ok || msg.SenderID == c.Identity.UserID {
		return
	}
	go func() {
		if err := c.manager.chat.MarkMessageDelivered(msg.ID, c.Identity.UserID); err != nil {
			logger.Warn("delivery receipt failed", "message_id", msg.ID, "error", err.Error())
		}
	}()
}

// messagePayload recovers the message fields from an in-process struct or
// a broker-decoded map.
func messagePayload(payload any) (dto.MessageResponse, bool) {
	switch p := payload.(type) {
	case *dto.MessageResponse:
		return *p, true
	case dto.MessageResponse:
		return p, true
	case map[string]interface{}:
		id, _ := p["id"].(string)
		sender, _ := p["sender_id"].(string)
		if id == "" {
			return dto.MessageResponse{}, false
		}
		return dto.MessageResponse{ID: id, SenderID: sender}, true
	}
	return dto.MessageResponse{}, false
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(64 << 10)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			// Covers abrupt network loss: the missed pong pushes the read
			// deadline past and the connection is reclaimed here.
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("", "invalid frame")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {
	case "subscribe":
		var payload struct {
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("", "invalid subscribe payload")
			return
		}
		c.subscribe(payload.Channel)

	case "unsubscribe":
		var payload struct {
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("", "invalid unsubscribe payload")
			return
		}
		c.unsubscribe(payload.Channel)

	case "send_message":
		var payload struct {
			RoomID  string `json:"room_id"`
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("", "invalid send_message payload")
			return
		}
		c.sendChatMessage(payload.RoomID, payload.Type, payload.Content)

	case "typing_start":
		if roomID, ok := c.typingRoom(msg.Data); ok {
			c.manager.typing.StartTyping(roomID, realtime.Member{
				ID:          c.Identity.UserID,
				DisplayName: c.Identity.DisplayName,
			})
		}

	case "typing_stop":
		if roomID, ok := c.typingRoom(msg.Data); ok {
			c.manager.typing.StopTyping(roomID, c.Identity.UserID)
		}

	default:
		c.sendError("", "unknown action: "+msg.Action)
	}
}

// subscribe admits the connection to a channel through the gateway and
// wires the transport subscription. Presence channels additionally join
// the tracker and hand the connection a full membership snapshot, so the
// client never reconstructs state from incremental events alone.
func (c *Client) subscribe(channelName string) {
	grant, err := c.manager.gateway.Authorize(c.Identity, channelName, c.ID)
	if err != nil {
		c.sendAuthError(channelName, err)
		return
	}
	_ = grant // the socket is server-side; the signature exists for detached transports

	ch, err := realtime.ParseChannel(channelName)
	if err != nil {
		c.sendAuthError(channelName, err)
		return
	}

	c.mu.Lock()
	if _, exists := c.subs[channelName]; exists {
		c.mu.Unlock()
		c.sendEvent(channelName, "subscription_succeeded", nil)
		return
	}
	c.mu.Unlock()

	unsub, err := c.manager.transport.Subscribe(channelName, c.ID, c.deliver)
	if err != nil {
		c.sendError(channelName, "transport subscribe failed")
		return
	}

	c.mu.Lock()
	c.subs[channelName] = unsub
	c.mu.Unlock()

	if ch.IsPresence() {
		member := realtime.Member{ID: c.Identity.UserID, DisplayName: c.Identity.DisplayName}
		snapshot := c.manager.presence.Join(ch.RoomID, member, c.ID)
		c.deliver(realtime.Envelope{
			Channel: channelName,
			Event:   realtime.EventPresenceState,
			Payload: realtime.StatePayload{Room: ch.RoomID, Members: snapshot},
		})
	}

	c.sendEvent(channelName, "subscription_succeeded", nil)
}

// unsubscribe releases the transport subscription and, for presence
// channels, this connection's refcount. Navigation away from a room
// lands here.
func (c *Client) unsubscribe(channelName string) {
	c.mu.Lock()
	unsub, ok := c.subs[channelName]
	delete(c.subs, channelName)
	c.mu.Unlock()
	if !ok {
		return
	}
	unsub()

	if ch, err := realtime.ParseChannel(channelName); err == nil && ch.IsPresence() {
		c.manager.presence.Leave(ch.RoomID, c.Identity.UserID, c.ID)
	}
}

func (c *Client) sendChatMessage(roomID, msgType, content string) {
	_, err := c.manager.chat.SendMessage(roomID, c.Identity.UserID, modelChat.MessageType(msgType), content)
	if err != nil {
		c.sendAuthError(realtime.PrivateRoomChannel(roomID), err)
	}
}

// typingRoom validates that this connection actually holds the room's
// presence subscription before relaying a typing event.
func (c *Client) typingRoom(data json.RawMessage) (string, bool) {
	var payload struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		c.sendError("", "invalid typing payload")
		return "", false
	}

	channel := realtime.PresenceRoomChannel(payload.RoomID)
	c.mu.Lock()
	_, subscribed := c.subs[channel]
	c.mu.Unlock()
	if !subscribed {
		c.sendError(channel, "not subscribed to room presence")
		return "", false
	}
	return payload.RoomID, true
}

// cleanup releases everything this connection holds. Called exactly once
// by the manager; presence release also covers heartbeat timeouts, so no
// client cooperation is required.
func (c *Client) cleanup() {
	c.mu.Lock()
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]func())
	c.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	c.manager.presence.ReleaseConnection(c.ID)
}

func (c *Client) sendEvent(channel, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- realtime.Envelope{Channel: channel, Event: event, Payload: payload}:
	default:
	}
}

func (c *Client) sendError(channel, message string) {
	c.sendEvent(channel, "error", map[string]string{"message": message})
}

func (c *Client) sendAuthError(channel string, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.sendEvent(channel, "error", map[string]any{"code": appErr.Code, "message": appErr.Message})
		return
	}
	c.sendError(channel, "internal error")
}
