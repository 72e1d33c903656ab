package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lawdesk_backend/internal/middleware"
	modelChat "lawdesk_backend/internal/models/chat"
	chatservice "lawdesk_backend/internal/services/chat"
	"lawdesk_backend/internal/services/dto"
)

type ChatHandler struct {
	*BaseHandler
	chatService *chatservice.ChatService
}

func NewChatHandler(base *BaseHandler, chatService *chatservice.ChatService) *ChatHandler {
	return &ChatHandler{BaseHandler: base, chatService: chatService}
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/rooms", h.ListRooms)
		chat.GET("/rooms/:roomId/messages", h.ListMessages)
		chat.POST("/rooms/:roomId/messages", h.SendMessage)
	}
}

// ListRooms returns the caller's rooms with unread counts and peer
// online flags, most recently active first.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	rooms, err := h.chatService.ListRooms(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// ListMessages also marks the room read for the caller, so opening a
// conversation clears its unread count.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	roomID := c.Param("roomId")

	messages, err := h.chatService.ListMessages(roomID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	responses := make([]*dto.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, dto.NewMessageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": responses})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	roomID := c.Param("roomId")

	var req dto.SendMessageRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(roomID, userID, modelChat.MessageType(req.Type), req.Content)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageResponse(message))
}
