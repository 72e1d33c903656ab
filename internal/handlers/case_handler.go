package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lawdesk_backend/internal/middleware"
	"lawdesk_backend/internal/models"
	"lawdesk_backend/internal/services"
	"lawdesk_backend/pkg/apperrors"
)

type CaseHandler struct {
	*BaseHandler
	caseService *services.CaseService
}

func NewCaseHandler(base *BaseHandler, caseService *services.CaseService) *CaseHandler {
	return &CaseHandler{BaseHandler: base, caseService: caseService}
}

func (h *CaseHandler) RegisterRoutes(r *gin.RouterGroup) {
	cases := r.Group("/cases")
	cases.Use(middleware.AuthMiddleware())
	{
		cases.POST("", middleware.RequireRoles(models.UserRoleClient), h.Create)
		cases.GET("/:caseId", h.Get)
		cases.PUT("/:caseId/approve", middleware.RequireRoles(models.UserRoleLawyer), h.Approve)
		cases.POST("/:caseId/updates", middleware.RequireRoles(models.UserRoleLawyer), h.AddTrackingUpdate)
		cases.DELETE("/:caseId", middleware.RequireRoles(models.UserRoleLawyer, models.UserRoleAdmin), h.Delete)
	}
}

type createCaseRequest struct {
	LawyerID    string `json:"lawyer_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=10000"`
}

type trackingUpdateRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

func (h *CaseHandler) Create(c *gin.Context) {
	clientID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req createCaseRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	created, err := h.caseService.Create(clientID, req.LawyerID, req.Title, req.Description)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CaseHandler) Get(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	found, err := h.caseService.Get(c.Param("caseId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if found.ClientID != userID && found.LawyerID != userID && c.GetString("role") != string(models.UserRoleAdmin) {
		apperrors.HandleError(c, apperrors.NewAuthorizationError("not a participant of this case"))
		return
	}
	c.JSON(http.StatusOK, found)
}

// Approve moves the case to approved, provisions its chat room, and
// notifies the client. Only the assigned lawyer may approve.
func (h *CaseHandler) Approve(c *gin.Context) {
	lawyerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	caseID := c.Param("caseId")

	if !h.authorizeCaseLawyer(c, caseID, lawyerID) {
		return
	}

	approved, err := h.caseService.Approve(caseID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, approved)
}

func (h *CaseHandler) AddTrackingUpdate(c *gin.Context) {
	lawyerID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	caseID := c.Param("caseId")

	var req trackingUpdateRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	update, err := h.caseService.AddTrackingUpdate(caseID, lawyerID, req.Body)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

// Delete removes the case together with its chat history and
// notifications in one transaction.
func (h *CaseHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	caseID := c.Param("caseId")

	if c.GetString("role") != string(models.UserRoleAdmin) {
		if !h.authorizeCaseLawyer(c, caseID, userID) {
			return
		}
	}

	if err := h.caseService.Delete(caseID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *CaseHandler) authorizeCaseLawyer(c *gin.Context, caseID, lawyerID string) bool {
	found, err := h.caseService.Get(caseID)
	if err != nil {
		h.HandleServiceError(c, err)
		return false
	}
	if found.LawyerID != lawyerID {
		apperrors.HandleError(c, apperrors.NewAuthorizationError("not the assigned lawyer for this case"))
		return false
	}
	return true
}
