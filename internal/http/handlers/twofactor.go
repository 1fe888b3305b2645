package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

type TwoFactorHandler struct {
	twoFactor   services.TwoFactorService
	authService services.AuthService
}

func NewTwoFactorHandler(twoFactor services.TwoFactorService, authService services.AuthService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor, authService: authService}
}

func (h *TwoFactorHandler) EnrollTOTP(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	enrollment, err := h.twoFactor.EnrollTOTP(c.Request.Context(), rd.UserID, req.Nickname)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, enrollment)
}

func (h *TwoFactorHandler) ConfirmTOTP(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	credentialID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.twoFactor.ConfirmTOTP(c.Request.Context(), rd.UserID, credentialID, req.Code); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *TwoFactorHandler) DisableTOTP(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	credentialID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.twoFactor.DisableTOTP(c.Request.Context(), rd.UserID, credentialID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *TwoFactorHandler) EnableSMS(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	if err := h.twoFactor.EnableSMS(c.Request.Context(), rd.UserID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *TwoFactorHandler) DisableSMS(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	if err := h.twoFactor.DisableSMS(c.Request.Context(), rd.UserID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// ResendChallenge re-texts the SMS code for a pending login challenge.
// Public: the caller only holds a challenge token, not an access token.
func (h *TwoFactorHandler) ResendChallenge(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.twoFactor.StartSMSChallenge(c.Request.Context(), req.ChallengeToken); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *TwoFactorHandler) Verify(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token"`
		Method         string `json:"method"`
		Code           string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	accessToken, refreshToken, err := h.twoFactor.VerifyChallenge(c.Request.Context(), req.ChallengeToken, req.Method, req.Code)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "two_factor_failed", err)
		return
	}
	expiresIn := int(h.authService.GetAccessTTL().Seconds())
	response.RespondOK(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    expiresIn,
	})
}
