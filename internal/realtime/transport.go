// Package realtime contains the transport-side core: the channel
// authorization gateway, presence tracking, typing indicators, and the
// background push dispatcher. Durable state lives in the services layer;
// everything here is either pure or ephemeral.
package realtime

import "context"

// Channel name prefixes. Bit-exact on both publish and subscribe.
const (
	ChannelPrivateChatRoomPrefix      = "private-chat-room-"
	ChannelPresenceChatRoomPrefix     = "presence-chat-room-"
	ChannelPrivateNotificationsPrefix = "private-notifications-user-"
)

// Event names emitted over the transport.
const (
	EventNewMessage          = "new-message"
	EventPresenceState       = "presence:state"
	EventMemberAdded         = "presence:member_added"
	EventMemberRemoved       = "presence:member_removed"
	EventTypingStarted       = "typing-started"
	EventTypingStopped       = "typing-stopped"
	EventNotificationCreated = "notification-created"
	EventNotificationNew     = "notification-new"
	EventNotificationCount   = "notification-count"
)

// PrivateRoomChannel returns the message channel for a room.
func PrivateRoomChannel(roomID string) string {
	return ChannelPrivateChatRoomPrefix + roomID
}

// PresenceRoomChannel returns the presence channel for a room.
func PresenceRoomChannel(roomID string) string {
	return ChannelPresenceChatRoomPrefix + roomID
}

// UserNotificationsChannel returns a user's private notification channel.
func UserNotificationsChannel(userID string) string {
	return ChannelPrivateNotificationsPrefix + userID
}

// Envelope is one event as delivered to subscribers.
type Envelope struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Handler receives envelopes for one subscription. Handlers must not
// block: websocket clients enqueue into a buffered send channel and drop
// the connection when it is full.
type Handler func(env Envelope)

// Transport is the publish/subscribe fabric connecting the core to live
// connections. The in-process Hub serves single-node deployments and
// tests; the NATS adapter fans out across nodes. Admission to a channel is
// decided by the Gateway before Subscribe is ever called.
type Transport interface {
	// Publish delivers an event to every current subscriber of channel.
	Publish(ctx context.Context, channel, event string, payload any) error

	// Subscribe registers fn for channel under connID and returns an
	// unsubscribe func. Unsubscribing twice is a no-op.
	Subscribe(channel, connID string, fn Handler) (func(), error)

	// Close releases transport resources.
	Close() error
}
