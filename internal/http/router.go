package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/matvulcan/vulcan-backend/internal/http/handlers"
	httpMW "github.com/matvulcan/vulcan-backend/internal/http/middleware"
	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler        *httpH.HealthHandler
	AuthHandler          *httpH.AuthHandler
	TwoFactorHandler     *httpH.TwoFactorHandler
	UserHandler          *httpH.UserHandler
	ApplicationHandler   *httpH.ApplicationHandler
	ReviewHandler        *httpH.ReviewHandler
	VendorHandler        *httpH.VendorHandler
	AdminTemplateHandler *httpH.AdminTemplateHandler
	AdminReasonHandler   *httpH.AdminReasonHandler
	WebhookHandler       *httpH.WebhookHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("vulcan-backend"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
		// Two-factor challenge endpoints are public: callers hold only a
		// short-lived challenge token at this point.
		if cfg.TwoFactorHandler != nil {
			api.POST("/2fa/verify", cfg.TwoFactorHandler.Verify)
			api.POST("/2fa/resend", cfg.TwoFactorHandler.ResendChallenge)
		}
		// Vendor callbacks (signature-verified, not token-authenticated)
		if cfg.WebhookHandler != nil {
			api.POST("/webhooks/esign", cfg.WebhookHandler.ESign)
			api.POST("/webhooks/telephony", cfg.WebhookHandler.Telephony)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/me/dependents", cfg.UserHandler.ListDependents)
		}

		if cfg.TwoFactorHandler != nil {
			protected.POST("/2fa/totp", cfg.TwoFactorHandler.EnrollTOTP)
			protected.POST("/2fa/totp/:id/confirm", cfg.TwoFactorHandler.ConfirmTOTP)
			protected.DELETE("/2fa/totp/:id", cfg.TwoFactorHandler.DisableTOTP)
			protected.POST("/2fa/sms", cfg.TwoFactorHandler.EnableSMS)
			protected.DELETE("/2fa/sms", cfg.TwoFactorHandler.DisableSMS)
		}

		if cfg.ApplicationHandler != nil {
			protected.POST("/applications", cfg.ApplicationHandler.Create)
			protected.GET("/applications", cfg.ApplicationHandler.ListOwn)
			protected.GET("/applications/:id", cfg.ApplicationHandler.Get)
			protected.PATCH("/applications/:id", cfg.ApplicationHandler.Update)
			protected.POST("/applications/:id/submit", cfg.ApplicationHandler.Submit)
			protected.POST("/applications/:id/proofs", cfg.ApplicationHandler.UploadProof)
			protected.GET("/applications/:id/certification", cfg.ApplicationHandler.GetCertification)
			protected.GET("/notifications", cfg.ApplicationHandler.ListNotifications)
			protected.POST("/notifications/:id/read", cfg.ApplicationHandler.MarkNotificationRead)
		}

		if cfg.VendorHandler != nil {
			protected.POST("/vendors/register", cfg.VendorHandler.Register)
		}
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	// Evaluator queue: admins review too.
	review := api.Group("/review")
	review.Use(cfg.AuthMiddleware.RequireAuth())
	review.Use(cfg.AuthMiddleware.RequireRole(types.RoleEvaluator, types.RoleAdmin))
	{
		if cfg.ReviewHandler != nil {
			review.GET("/proofs", cfg.ReviewHandler.ListPendingProofs)
			review.POST("/proofs/:id/approve", cfg.ReviewHandler.ApproveProof)
			review.POST("/proofs/:id/reject", cfg.ReviewHandler.RejectProof)
			review.POST("/applications/:id/certification/approve", cfg.ReviewHandler.ApproveCertification)
			review.POST("/applications/:id/certification/reject", cfg.ReviewHandler.RejectCertification)
		}
	}

	vendor := api.Group("/vendor")
	vendor.Use(cfg.AuthMiddleware.RequireAuth())
	vendor.Use(cfg.AuthMiddleware.RequireRole(types.RoleVendor))
	{
		if cfg.VendorHandler != nil {
			vendor.GET("/vouchers/:code", cfg.VendorHandler.CheckVoucher)
			vendor.POST("/redemptions", cfg.VendorHandler.Redeem)
		}
	}

	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth())
	admin.Use(cfg.AuthMiddleware.RequireRole(types.RoleAdmin))
	{
		if cfg.UserHandler != nil {
			admin.GET("/users", cfg.UserHandler.AdminListUsers)
			admin.POST("/users/:id/suspend", cfg.UserHandler.AdminSuspendUser)
			admin.POST("/users/:id/reactivate", cfg.UserHandler.AdminReactivateUser)
			admin.POST("/guardians", cfg.UserHandler.AdminAddGuardian)
			admin.DELETE("/guardians/:id", cfg.UserHandler.AdminRemoveGuardian)
			admin.GET("/report", cfg.UserHandler.AdminReport)
		}
		if cfg.ApplicationHandler != nil {
			admin.GET("/applications", cfg.ApplicationHandler.AdminList)
			admin.POST("/applications/:id/reject", cfg.ApplicationHandler.AdminReject)
		}
		if cfg.VendorHandler != nil {
			admin.GET("/vendors", cfg.VendorHandler.AdminList)
			admin.POST("/vendors/:id/approve", cfg.VendorHandler.AdminApprove)
			admin.POST("/vendors/:id/suspend", cfg.VendorHandler.AdminSuspend)
			admin.POST("/transactions/:id/void", cfg.VendorHandler.AdminVoidTransaction)
			admin.POST("/vouchers/:id/cancel", cfg.VendorHandler.AdminCancelVoucher)
			admin.GET("/vouchers/:id/transactions", cfg.VendorHandler.AdminListTransactions)
		}
		if cfg.AdminTemplateHandler != nil {
			admin.GET("/templates", cfg.AdminTemplateHandler.List)
			admin.POST("/templates", cfg.AdminTemplateHandler.Create)
			admin.GET("/templates/:id", cfg.AdminTemplateHandler.Get)
			admin.PATCH("/templates/:id", cfg.AdminTemplateHandler.Update)
			admin.DELETE("/templates/:id", cfg.AdminTemplateHandler.Delete)
			admin.POST("/templates/test-send", cfg.AdminTemplateHandler.TestSend)
		}
		if cfg.AdminReasonHandler != nil {
			admin.GET("/rejection-reasons", cfg.AdminReasonHandler.List)
			admin.POST("/rejection-reasons", cfg.AdminReasonHandler.Create)
			admin.GET("/rejection-reasons/:id", cfg.AdminReasonHandler.Get)
			admin.PATCH("/rejection-reasons/:id", cfg.AdminReasonHandler.Update)
			admin.DELETE("/rejection-reasons/:id", cfg.AdminReasonHandler.Delete)
		}
	}

	return r
}
