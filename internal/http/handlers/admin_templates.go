package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/services"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// AdminTemplateHandler manages the program's email templates, including the
// test-send that mails an admin a sample render.
type AdminTemplateHandler struct {
	templates     services.EmailTemplateService
	notifications services.NotificationService
	users         services.UserService
}

func NewAdminTemplateHandler(
	templates services.EmailTemplateService,
	notifications services.NotificationService,
	users services.UserService,
) *AdminTemplateHandler {
	return &AdminTemplateHandler{templates: templates, notifications: notifications, users: users}
}

func (h *AdminTemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"templates": templates})
}

func (h *AdminTemplateHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, tpl)
}

func (h *AdminTemplateHandler) Create(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		Name    string `json:"name"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tpl := &types.EmailTemplate{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		UpdatedBy: &rd.UserID,
	}
	created, err := h.templates.Create(c.Request.Context(), tpl)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, created)
}

func (h *AdminTemplateHandler) Update(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Subject   string   `json:"subject"`
		Body      string   `json:"body"`
		Variables []string `json:"variables"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), id, rd.UserID, req.Subject, req.Body, req.Variables)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, tpl)
}

func (h *AdminTemplateHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// TestSend mails the calling admin a render of the template with sample
// values, so copy edits can be checked before they reach constituents.
func (h *AdminTemplateHandler) TestSend(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	admin, err := h.users.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	notification, err := h.notifications.TestSendTemplate(c.Request.Context(), admin, req.Name)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, notification)
}
