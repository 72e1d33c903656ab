package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawdesk_backend/pkg/apperrors"
)

type stubDirectory struct {
	clientID string
	lawyerID string
	missing  bool
}

func (d *stubDirectory) RoomParticipants(roomID string) (string, string, error) {
	if d.missing {
		return "", "", apperrors.NewNotFoundError("chat", "room not found")
	}
	return d.clientID, d.lawyerID, nil
}

func newTestGateway(dir RoomDirectory) *Gateway {
	return NewGateway("app-key", "app-secret", dir)
}

func TestAuthorizeRoomChannels(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "client-1", lawyerID: "lawyer-1"})

	for _, channel := range []string{PrivateRoomChannel("r1"), PresenceRoomChannel("r1")} {
		grant, err := gw.Authorize(Identity{UserID: "client-1", DisplayName: "Alice"}, channel, "conn-1")
		require.NoError(t, err, "participant should be admitted to %s", channel)
		assert.True(t, strings.HasPrefix(grant.Auth, "app-key:"))

		grant, err = gw.Authorize(Identity{UserID: "lawyer-1", DisplayName: "Bob"}, channel, "conn-2")
		require.NoError(t, err)
		assert.NotEmpty(t, grant.Auth)
	}
}

func TestAuthorizeRejectsNonParticipant(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "client-1", lawyerID: "lawyer-1"})

	_, err := gw.Authorize(Identity{UserID: "intruder"}, PrivateRoomChannel("r1"), "conn-1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestAuthorizeRejectsEmptyIdentity(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "c", lawyerID: "l"})

	_, err := gw.Authorize(Identity{}, PrivateRoomChannel("r1"), "conn-1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

func TestAuthorizeRejectsMalformedChannel(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "c", lawyerID: "l"})

	_, err := gw.Authorize(Identity{UserID: "c"}, "public-stuff", "conn-1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestAuthorizeNotificationChannelOwnOnly(t *testing.T) {
	gw := newTestGateway(&stubDirectory{})

	_, err := gw.Authorize(Identity{UserID: "u1"}, UserNotificationsChannel("u1"), "conn-1")
	require.NoError(t, err)

	_, err = gw.Authorize(Identity{UserID: "u1"}, UserNotificationsChannel("u2"), "conn-1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestAuthorizeMissingRoom(t *testing.T) {
	gw := newTestGateway(&stubDirectory{missing: true})

	_, err := gw.Authorize(Identity{UserID: "u1"}, PrivateRoomChannel("nope"), "conn-1")
	require.Error(t, err)
}

func TestPresenceGrantCarriesMemberData(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "client-1", lawyerID: "lawyer-1"})

	grant, err := gw.Authorize(Identity{UserID: "client-1", DisplayName: "Alice"}, PresenceRoomChannel("r1"), "conn-1")
	require.NoError(t, err)
	require.NotEmpty(t, grant.ChannelData)

	var member struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	require.NoError(t, json.Unmarshal([]byte(grant.ChannelData), &member))
	assert.Equal(t, "client-1", member.ID)
	assert.Equal(t, "Alice", member.DisplayName)

	// Private grants carry no member data.
	grant, err = gw.Authorize(Identity{UserID: "client-1", DisplayName: "Alice"}, PrivateRoomChannel("r1"), "conn-1")
	require.NoError(t, err)
	assert.Empty(t, grant.ChannelData)
}

func TestGrantSignatureIsVerifiable(t *testing.T) {
	gw := newTestGateway(&stubDirectory{clientID: "client-1", lawyerID: "lawyer-1"})
	channel := PrivateRoomChannel("r1")

	grant, err := gw.Authorize(Identity{UserID: "client-1"}, channel, "conn-7")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte("conn-7:" + channel))
	expected := "app-key:" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, grant.Auth)

	// Same inputs give the same grant; a different connection does not.
	again, err := gw.Authorize(Identity{UserID: "client-1"}, channel, "conn-7")
	require.NoError(t, err)
	assert.Equal(t, grant.Auth, again.Auth)

	other, err := gw.Authorize(Identity{UserID: "client-1"}, channel, "conn-8")
	require.NoError(t, err)
	assert.NotEqual(t, grant.Auth, other.Auth)
}
