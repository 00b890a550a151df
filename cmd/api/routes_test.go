package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whisperline/internal/auth"
	"whisperline/internal/config"
	"whisperline/internal/httpapi"
	"whisperline/internal/payments"
	"whisperline/internal/rbac"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	r := gin.New()
	registerRoutes(r, httpapi.Handlers{Auth: m}, payments.WebhookHandler{}, auth.RequireAccessToken(m))
	return r, m
}

func doAs(t *testing.T, r *gin.Engine, m *auth.Manager, method, path, role string) *httptest.ResponseRecorder {
	t.Helper()
	pair, err := m.IssuePair(time.Now(), "u-1", role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminCheck_AnswersForNonAdmins(t *testing.T) {
	r, m := newTestRouter(t)

	w := doAs(t, r, m, http.MethodGet, "/v1/admin/check", rbac.RoleUser)
	if w.Code != 200 {
		t.Fatalf("expected 200 for user role, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"is_admin":false`) {
		t.Fatalf("expected is_admin false, got %s", w.Body.String())
	}

	w = doAs(t, r, m, http.MethodGet, "/v1/admin/check", rbac.RoleAdmin)
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"is_admin":true`) {
		t.Fatalf("expected is_admin true, got %d %s", w.Code, w.Body.String())
	}
}

func TestAdminMutations_RequireAdminRole(t *testing.T) {
	r, m := newTestRouter(t)

	w := doAs(t, r, m, http.MethodPost, "/v1/admin/coins", rbac.RoleUser)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d: %s", w.Code, w.Body.String())
	}
	w = doAs(t, r, m, http.MethodPost, "/v1/admin/free-call", rbac.RoleUser)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutes_RejectMissingToken(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/check", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
