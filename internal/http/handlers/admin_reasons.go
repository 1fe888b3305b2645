package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

type AdminReasonHandler struct {
	reasons services.RejectionReasonService
}

func NewAdminReasonHandler(reasons services.RejectionReasonService) *AdminReasonHandler {
	return &AdminReasonHandler{reasons: reasons}
}

func (h *AdminReasonHandler) List(c *gin.Context) {
	reasons, err := h.reasons.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reasons": reasons})
}

func (h *AdminReasonHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reason, err := h.reasons.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, reason)
}

func (h *AdminReasonHandler) Create(c *gin.Context) {
	var req struct {
		Code        string `json:"code"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Remedy      string `json:"remedy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reason, err := h.reasons.Create(c.Request.Context(), services.RejectionReasonInput{
		Code:        req.Code,
		Category:    req.Category,
		Description: req.Description,
		Remedy:      req.Remedy,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, reason)
}

func (h *AdminReasonHandler) Update(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Code        string `json:"code"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Remedy      string `json:"remedy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reason, err := h.reasons.Update(c.Request.Context(), id, services.RejectionReasonInput{
		Code:        req.Code,
		Category:    req.Category,
		Description: req.Description,
		Remedy:      req.Remedy,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, reason)
}

func (h *AdminReasonHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.reasons.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
