package httpapi

import (
	"net/http"
	"time"

	"whisperline/internal/audit"
	"whisperline/internal/auth"
	"whisperline/internal/calls"
	"whisperline/internal/ledger"
	"whisperline/internal/media"
	"whisperline/internal/payments"
	"whisperline/internal/rbac"
	"whisperline/internal/users"
	"whisperline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Users    *users.Service
	Calls    *calls.Service
	Ledger   *ledger.Service
	Payments *payments.Service
	Media    *media.Issuer
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair and ensures the user record exists, which
// grants the signup bonus on first sight of a new id.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if req.Role == "" {
		req.Role = rbac.RoleUser
	}
	if req.Role != rbac.RoleUser {
		// Privileged roles are never self-asserted through login.
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if h.Users != nil {
		if _, err := h.Users.EnsureUser(c.Request.Context(), req.UserID); err != nil {
			writeError(c, err)
			return
		}
	}

	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Users ---

func (h Handlers) Me(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	u, err := h.Users.Get(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h Handlers) SetAvailability(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "available required"})
		return
	}
	if err := h.Users.SetAvailability(c.Request.Context(), uid, *req.Available); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type payoutEmailRequest struct {
	Email string `json:"email"`
}

func (h Handlers) SetPayoutEmail(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req payoutEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Users.SetPayoutEmail(c.Request.Context(), uid, req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h Handlers) ListWhispers(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	list, err := h.Users.ListAvailableWhispers(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"whispers": list})
}

// --- Calls ---

type requestCallRequest struct {
	WhisperID string `json:"whisper_id"`
}

func (h Handlers) RequestCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req requestCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WhisperID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "whisper_id required"})
		return
	}
	call, err := h.Calls.Request(c.Request.Context(), uid, req.WhisperID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": call.ID})
}

func (h Handlers) AcceptCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if _, err := h.Calls.Accept(c.Request.Context(), c.Param("call_id"), uid); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h Handlers) ConfirmReady(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	call, err := h.Calls.ConfirmReady(c.Request.Context(), c.Param("call_id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": call.Status})
}

func (h Handlers) EndCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, _ := auth.Role(c.Request.Context())
	if _, err := h.Calls.End(c.Request.Context(), c.Param("call_id"), uid, rbac.IsAdmin(role)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h Handlers) GetCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, _ := auth.Role(c.Request.Context())
	call, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"), uid, rbac.IsAdmin(role))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// --- Media ---

// MediaToken mints a channel-scoped voice token for one party of a call.
// The channel name is the call id; only the call's parties (or an admin)
// may obtain a token for it.
func (h Handlers) MediaToken(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, _ := auth.Role(c.Request.Context())
	callID := c.Param("call_id")

	if _, err := h.Calls.Get(c.Request.Context(), callID, uid, rbac.IsAdmin(role)); err != nil {
		writeError(c, err)
		return
	}

	tok, err := h.Media.Token(callID, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// --- Payments ---

type checkoutRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h Handlers) CreateCheckout(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	url, err := h.Payments.CreateCheckout(c.Request.Context(), uid, req.AmountCents)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect_url": url})
}

// --- Admin ---

// AdminCheck reports whether the caller holds the admin role. The check is
// claim-based; there is no privileged user id.
func (h Handlers) AdminCheck(c *gin.Context) {
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"is_admin": rbac.IsAdmin(role)})
}

type giveCoinsRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// AdminGiveCoins credits coins to a user and writes the audit entry.
// RBAC: admin only (enforced by route middleware).
func (h Handlers) AdminGiveCoins(c *gin.Context) {
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())

	var req giveCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Amount <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and positive amount required"})
		return
	}

	balance, err := h.Ledger.AdjustCoins(c.Request.Context(), req.UserID, req.Amount, ledger.ReasonAdminGrant, "")
	if err != nil {
		writeError(c, err)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.LogCoinGrant(c.Request.Context(), actorID, actorRole, c.ClientIP(), req.UserID, req.Amount); err != nil {
			logger.FromGin(c).Error("audit append failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "coins": balance})
}

type freeCallRequest struct {
	UserID string `json:"user_id"`
}

// AdminFreeCall reports whether the actor may place an uncharged call to
// the given user, and records the capability use.
func (h Handlers) AdminFreeCall(c *gin.Context) {
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())

	var req freeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	allowed := rbac.IsAdmin(actorRole)
	if allowed && h.Audit != nil {
		if err := h.Audit.LogFreeCall(c.Request.Context(), actorID, actorRole, c.ClientIP(), req.UserID, ""); err != nil {
			logger.FromGin(c).Error("audit append failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}
