package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/http/response"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

// VendorHandler covers vendor self-registration, the admin approval queue,
// and voucher redemption at the point of sale.
type VendorHandler struct {
	users    services.UserService
	vouchers services.VoucherService
}

func NewVendorHandler(users services.UserService, vouchers services.VoucherService) *VendorHandler {
	return &VendorHandler{users: users, vouchers: vouchers}
}

func (h *VendorHandler) Register(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		BusinessName string `json:"business_name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		ContactFax   string `json:"contact_fax"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	vendor, err := h.users.RegisterVendor(c.Request.Context(), rd.UserID, services.VendorRegistration{
		BusinessName: req.BusinessName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		ContactFax:   req.ContactFax,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, vendor)
}

func (h *VendorHandler) AdminList(c *gin.Context) {
	vendors, err := h.users.ListVendors(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"vendors": vendors})
}

func (h *VendorHandler) AdminApprove(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	vendorID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.users.ApproveVendor(c.Request.Context(), rd.UserID, vendorID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *VendorHandler) AdminSuspend(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	vendorID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.users.SuspendVendor(c.Request.Context(), rd.UserID, vendorID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *VendorHandler) Redeem(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req struct {
		Code        string `json:"code"`
		AmountCents int64  `json:"amount_cents"`
		Reference   string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	txn, err := h.vouchers.Redeem(c.Request.Context(), services.RedeemRequest{
		VendorUserID: rd.UserID,
		Code:         req.Code,
		AmountCents:  req.AmountCents,
		Reference:    req.Reference,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, txn)
}

func (h *VendorHandler) CheckVoucher(c *gin.Context) {
	voucher, err := h.vouchers.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, voucher)
}

func (h *VendorHandler) AdminVoidTransaction(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	transactionID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.vouchers.VoidTransaction(c.Request.Context(), rd.UserID, transactionID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *VendorHandler) AdminCancelVoucher(c *gin.Context) {
	rd, err := currentRequestData(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	voucherID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.vouchers.Cancel(c.Request.Context(), rd.UserID, voucherID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *VendorHandler) AdminListTransactions(c *gin.Context) {
	voucherID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	transactions, err := h.vouchers.ListTransactions(c.Request.Context(), voucherID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": transactions})
}
