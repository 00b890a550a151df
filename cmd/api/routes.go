package main

import (
	"whisperline/internal/httpapi"
	"whisperline/internal/payments"
	"whisperline/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhook payments.WebhookHandler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public). Authenticated by payload signature, not
	// by bearer token.
	r.POST("/webhooks/stripe", webhook.Handle)

	// AUTH routes (token issuance).
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)
		v1.PUT("/me/availability", h.SetAvailability)
		v1.PUT("/me/payout-email", h.SetPayoutEmail)
		v1.GET("/whispers", h.ListWhispers)

		// CALLS routes
		calls := v1.Group("/calls")
		{
			calls.POST("", h.RequestCall)
			calls.GET("/:call_id", h.GetCall)
			calls.POST("/:call_id/accept", h.AcceptCall)
			calls.POST("/:call_id/ready", h.ConfirmReady)
			calls.POST("/:call_id/end", h.EndCall)
			calls.POST("/:call_id/media-token", h.MediaToken)
		}

		// PAYMENTS routes
		v1.POST("/payments/checkout", h.CreateCheckout)

		// Capability query: any authenticated user may ask whether they
		// hold the admin role, so it sits outside the admin middleware.
		v1.GET("/admin/check", h.AdminCheck)

		// ADMIN routes.
		// The hidden service role is intentionally NOT included.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAdmin())
		{
			admin.POST("/coins", h.AdminGiveCoins)
			admin.POST("/free-call", h.AdminFreeCall)
		}
	}
}
