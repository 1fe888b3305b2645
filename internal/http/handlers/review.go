package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

// ReviewHandler covers the evaluator queue: eligibility proofs and received
// medical certifications.
type ReviewHandler struct {
	proofs         services.ProofReviewService
	certifications services.CertificationService
}

func NewReviewHandler(proofs services.ProofReviewService, certifications services.CertificationService) *ReviewHandler {
	return &ReviewHandler{proofs: proofs, certifications: certifications}
}

func (h *ReviewHandler) ListPendingProofs(c *gin.Context) {
	proofs, total, err := h.proofs.ListPending(c.Request.Context(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"proofs": proofs, "total": total})
}

func (h *ReviewHandler) ApproveProof(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	proofID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.proofs.Approve(c.Request.Context(), rd.UserID, proofID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ReviewHandler) RejectProof(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	proofID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		ReasonID string `json:"reason_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reasonID, err := parseUUIDField(req.ReasonID, "reason_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.proofs.Reject(c.Request.Context(), rd.UserID, proofID, reasonID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ReviewHandler) ApproveCertification(c *gin.Context) {
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
	if err := h.certifications.Approve(c.Request.Context(), rd.UserID, appID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ReviewHandler) RejectCertification(c *gin.Context) {
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
		ReasonID string `json:"reason_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reasonID, err := parseUUIDField(req.ReasonID, "reason_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.certifications.Reject(c.Request.Context(), rd.UserID, appID, reasonID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
