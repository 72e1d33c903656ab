package realtime

import (
	"strings"

	"lawdesk_backend/pkg/apperrors"
)

// ChannelKind classifies a parsed channel name.
type ChannelKind int

const (
	ChannelPrivateRoom ChannelKind = iota
	ChannelPresenceRoom
	ChannelUserNotifications
)

// Channel is a parsed channel name.
type Channel struct {
	Name   string
	Kind   ChannelKind
	RoomID string // set for room and presence channels
	UserID string // set for notification channels
}

// IsPresence reports whether the channel carries presence membership.
func (c Channel) IsPresence() bool {
	return c.Kind == ChannelPresenceRoom
}

// ParseChannel validates a channel name against the supported grammar.
// Malformed names yield a ValidationError.
func ParseChannel(name string) (Channel, error) {
	switch {
	case strings.HasPrefix(name, ChannelPrivateChatRoomPrefix):
		roomID := strings.TrimPrefix(name, ChannelPrivateChatRoomPrefix)
		if !validChannelID(roomID) {
			return Channel{}, apperrors.NewValidationError("malformed channel name: " + name)
		}
		return Channel{Name: name, Kind: ChannelPrivateRoom, RoomID: roomID}, nil

	case strings.HasPrefix(name, ChannelPresenceChatRoomPrefix):
		roomID := strings.TrimPrefix(name, ChannelPresenceChatRoomPrefix)
		if !validChannelID(roomID) {
			return Channel{}, apperrors.NewValidationError("malformed channel name: " + name)
		}
		return Channel{Name: name, Kind: ChannelPresenceRoom, RoomID: roomID}, nil

	case strings.HasPrefix(name, ChannelPrivateNotificationsPrefix):
		userID := strings.TrimPrefix(name, ChannelPrivateNotificationsPrefix)
		if !validChannelID(userID) {
			return Channel{}, apperrors.NewValidationError("malformed channel name: " + name)
		}
		return Channel{Name: name, Kind: ChannelUserNotifications, UserID: userID}, nil
	}

	return Channel{}, apperrors.NewValidationError("malformed channel name: " + name)
}

// Channel IDs are opaque tokens; they only need to be non-empty and free
// of characters that would break subject mapping on brokered transports.
func validChannelID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, " .*>/\t\n")
}
