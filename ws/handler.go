package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lawdesk_backend/internal/logger"
	"lawdesk_backend/internal/middleware"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/services"
	"lawdesk_backend/pkg/apperrors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser origin policy is enforced at the edge proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated HTTP requests to websocket clients.
type Handler struct {
	manager *Manager
	auth    *services.AuthService
}

func NewHandler(manager *Manager, auth *services.AuthService) *Handler {
	return &Handler{manager: manager, auth: auth}
}

// ServeWS runs behind AuthMiddleware, so the user is already verified.
// The display name is resolved here once and pinned to the connection;
// presence events reuse it for the lifetime of the socket.
func (h *Handler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewAuthenticationError("authentication required"))
		return
	}

	id, displayName, err := h.auth.Identity(userID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "user_id", userID, "error", err.Error())
		return
	}

	h.manager.NewClient(conn, realtime.Identity{UserID: id, DisplayName: displayName})
}
