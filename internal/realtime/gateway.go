package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"lawdesk_backend/pkg/apperrors"
)

// Identity is the authenticated caller as resolved from its bearer token.
type Identity struct {
	UserID      string
	DisplayName string
}

// Grant is the channel-specific authorization payload handed back to the
// connection. Auth is "app_key:hex(hmac_sha256(secret, connID:channel
// [:channelData]))" so a detached transport can verify it offline.
type Grant struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// RoomDirectory resolves a room's fixed participants. Implemented by the
// chat room repository; missing rooms return a NotFoundError.
type RoomDirectory interface {
	RoomParticipants(roomID string) (clientID, lawyerID string, err error)
}

// Gateway decides whether a connection may subscribe to a named channel.
// Pure and read-only: safe to call on every (re)connect.
type Gateway struct {
	appKey string
	secret string
	rooms  RoomDirectory
}

func NewGateway(appKey, secret string, rooms RoomDirectory) *Gateway {
	return &Gateway{appKey: appKey, secret: secret, rooms: rooms}
}

// presenceMember is the member metadata carried by presence grants.
type presenceMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Authorize validates the channel name and the caller's right to it.
// Errors: malformed name → ValidationError; empty identity →
// AuthenticationError; authenticated non-member or cross-user →
// AuthorizationError. No side effects.
func (g *Gateway) Authorize(identity Identity, channelName, connID string) (*Grant, error) {
	ch, err := ParseChannel(channelName)
	if err != nil {
		return nil, err
	}

	if identity.UserID == "" {
		return nil, apperrors.NewAuthenticationError("missing or expired credential")
	}

	switch ch.Kind {
	case ChannelPrivateRoom, ChannelPresenceRoom:
		clientID, lawyerID, err := g.rooms.RoomParticipants(ch.RoomID)
		if err != nil {
			return nil, err
		}
		if identity.UserID != clientID && identity.UserID != lawyerID {
			return nil, apperrors.NewAuthorizationError("not a participant of this room")
		}

	case ChannelUserNotifications:
		// A user may only subscribe to their own notification channel.
		if identity.UserID != ch.UserID {
			return nil, apperrors.NewAuthorizationError("cannot subscribe to another user's notifications")
		}
	}

	grant := &Grant{}
	if ch.IsPresence() {
		data, err := json.Marshal(presenceMember{ID: identity.UserID, DisplayName: identity.DisplayName})
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		grant.ChannelData = string(data)
	}

	grant.Auth = g.appKey + ":" + g.sign(connID, channelName, grant.ChannelData)
	return grant, nil
}

func (g *Gateway) sign(connID, channelName, channelData string) string {
	payload := connID + ":" + channelName
	if channelData != "" {
		payload += ":" + channelData
	}
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
