package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

type ApplicationHandler struct {
	applications   services.ApplicationService
	certifications services.CertificationService
	notifications  services.NotificationService
}

func NewApplicationHandler(
	applications services.ApplicationService,
	certifications services.CertificationService,
	notifications services.NotificationService,
) *ApplicationHandler {
	return &ApplicationHandler{
		applications:   applications,
		certifications: certifications,
		notifications:  notifications,
	}
}

func (h *ApplicationHandler) Create(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		ForUserID             string `json:"for_user_id"`
		HouseholdSize         int    `json:"household_size"`
		AnnualIncomeCents     int64  `json:"annual_income_cents"`
		StateResident         bool   `json:"state_resident"`
		SelfCertifyDisability bool   `json:"self_certify_disability"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	createReq := services.CreateApplicationRequest{
		HouseholdSize:         req.HouseholdSize,
		AnnualIncomeCents:     req.AnnualIncomeCents,
		StateResident:         req.StateResident,
		SelfCertifyDisability: req.SelfCertifyDisability,
	}
	if req.ForUserID != "" {
		forID, pErr := uuid.Parse(req.ForUserID)
		if pErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", pErr)
			return
		}
		createReq.ForUserID = forID
	}
	app, err := h.applications.CreateDraft(c.Request.Context(), rd.UserID, createReq)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, app)
}

func (h *ApplicationHandler) Update(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		HouseholdSize         *int    `json:"household_size"`
		AnnualIncomeCents     *int64  `json:"annual_income_cents"`
		StateResident         *bool   `json:"state_resident"`
		SelfCertifyDisability *bool   `json:"self_certify_disability"`
		TermsAccepted         *bool   `json:"terms_accepted"`
		ProviderName          *string `json:"provider_name"`
		ProviderEmail         *string `json:"provider_email"`
		ProviderPhone         *string `json:"provider_phone"`
		ProviderFax           *string `json:"provider_fax"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	app, err := h.applications.UpdateDraft(c.Request.Context(), rd.UserID, appID, services.UpdateApplicationRequest{
		HouseholdSize:         req.HouseholdSize,
		AnnualIncomeCents:     req.AnnualIncomeCents,
		StateResident:         req.StateResident,
		SelfCertifyDisability: req.SelfCertifyDisability,
		TermsAccepted:         req.TermsAccepted,
		ProviderName:          req.ProviderName,
		ProviderEmail:         req.ProviderEmail,
		ProviderPhone:         req.ProviderPhone,
		ProviderFax:           req.ProviderFax,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, app)
}

func (h *ApplicationHandler) Submit(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	app, err := h.applications.Submit(c.Request.Context(), rd.UserID, appID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, app)
}

func (h *ApplicationHandler) UploadProof(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Kind        string `json:"kind"`
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
		ByteSize    int64  `json:"byte_size"`
		StoragePath string `json:"storage_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	proof, err := h.applications.UploadProof(c.Request.Context(), rd.UserID, appID, services.UploadProofRequest{
		Kind:        req.Kind,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		ByteSize:    req.ByteSize,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, proof)
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	app, err := h.applications.Get(c.Request.Context(), rd.UserID, rd.Role, appID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, app)
}

func (h *ApplicationHandler) ListOwn(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	apps, err := h.applications.ListOwn(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applications": apps})
}

func (h *ApplicationHandler) GetCertification(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	// Ownership check rides on the application fetch.
	if _, err := h.applications.Get(c.Request.Context(), rd.UserID, rd.Role, appID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	cert, err := h.certifications.GetByApplication(c.Request.Context(), appID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, cert)
}

func (h *ApplicationHandler) AdminList(c *gin.Context) {
	filter := repos.ApplicationFilter{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if userID := c.Query("user_id"); userID != "" {
		id, pErr := uuid.Parse(userID)
		if pErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", pErr)
			return
		}
		filter.UserID = id
	}
	apps, total, err := h.applications.AdminList(c.Request.Context(), filter)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applications": apps, "total": total})
}

func (h *ApplicationHandler) AdminReject(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	appID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.applications.Reject(c.Request.Context(), rd.UserID, appID, req.Note); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ApplicationHandler) ListNotifications(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	notifications, total, err := h.notifications.ListForUser(c.Request.Context(), rd.UserID, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": notifications, "total": total})
}

func (h *ApplicationHandler) MarkNotificationRead(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	notificationID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), rd.UserID, notificationID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
