package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawdesk_backend/internal/middleware"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/services"
	"lawdesk_backend/pkg/apperrors"
)

// RealtimeAuthHandler signs channel subscriptions for connections held
// by a detached transport. In-process websocket clients authorize
// directly through the gateway and never hit this endpoint.
type RealtimeAuthHandler struct {
	*BaseHandler
	gateway     *realtime.Gateway
	authService *services.AuthService
}

func NewRealtimeAuthHandler(base *BaseHandler, gateway *realtime.Gateway, authService *services.AuthService) *RealtimeAuthHandler {
	return &RealtimeAuthHandler{BaseHandler: base, gateway: gateway, authService: authService}
}

func (h *RealtimeAuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	rt := r.Group("/realtime")
	rt.Use(middleware.AuthMiddleware())
	{
		rt.POST("/auth", h.Authorize)
	}
}

type channelAuthRequest struct {
	SocketID    string `json:"socket_id" validate:"required"`
	ChannelName string `json:"channel_name" validate:"required"`
}

func (h *RealtimeAuthHandler) Authorize(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req channelAuthRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	id, displayName, err := h.authService.Identity(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	grant, err := h.gateway.Authorize(
		realtime.Identity{UserID: id, DisplayName: displayName},
		req.ChannelName,
		req.SocketID,
	)
	if err != nil {
		// Room lookup failures surface as 403, not 404, so channel names
		// cannot be probed for room existence.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeNotFound {
			apperrors.HandleError(c, apperrors.NewAuthorizationError("not a participant of this room"))
			return
		}
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}
