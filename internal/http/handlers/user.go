package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	user, err := h.users.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) ListDependents(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	relationships, err := h.users.ListDependents(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dependents": relationships})
}

func (h *UserHandler) AdminListUsers(c *gin.Context) {
	filter := repos.UserFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	users, total, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"users": users, "total": total})
}

func (h *UserHandler) AdminSuspendUser(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	userID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.users.Suspend(c.Request.Context(), rd.UserID, userID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *UserHandler) AdminReactivateUser(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	userID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.users.Reactivate(c.Request.Context(), rd.UserID, userID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *UserHandler) AdminAddGuardian(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		GuardianID       string `json:"guardian_id"`
		DependentID      string `json:"dependent_id"`
		RelationshipType string `json:"relationship_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	guardianID, err := parseUUIDField(req.GuardianID, "guardian_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dependentID, err := parseUUIDField(req.DependentID, "dependent_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rel, err := h.users.AddGuardian(c.Request.Context(), rd.UserID, guardianID, dependentID, req.RelationshipType)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, rel)
}

func (h *UserHandler) AdminRemoveGuardian(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	relationshipID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.users.RemoveGuardian(c.Request.Context(), rd.UserID, relationshipID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *UserHandler) AdminReport(c *gin.Context) {
	report, err := h.users.Report(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, report)
}
