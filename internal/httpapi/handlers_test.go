package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whisperline/internal/auth"
	"whisperline/internal/calls"
	"whisperline/internal/config"
	"whisperline/internal/media"
	"whisperline/internal/rbac"
	"whisperline/internal/users"

	"github.com/gin-gonic/gin"
)

type fixture struct {
	router    *gin.Engine
	users     *users.MemoryRepo
	callsRepo *calls.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := users.NewMemoryRepo()
	userSvc := users.NewService(userRepo, 10)
	callRepo := calls.NewMemoryRepo()
	callSvc := calls.NewService(callRepo, userSvc, nil)
	issuer := media.NewIssuer(config.MediaConfig{
		AppID:       "app-test",
		Certificate: "cert-secret",
		TokenTTL:    6 * time.Minute,
	})

	h := Handlers{
		Users: userSvc,
		Calls: callSvc,
		Media: issuer,
	}

	r := gin.New()
	identity := func(c *gin.Context) {
		uid := c.GetHeader("X-Test-User")
		role := c.GetHeader("X-Test-Role")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if role == "" {
			role = rbac.RoleUser
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), uid, role))
		c.Next()
	}

	v1 := r.Group("/v1", identity)
	v1.GET("/me", h.Me)
	v1.GET("/whispers", h.ListWhispers)
	v1.POST("/calls", h.RequestCall)
	v1.POST("/calls/:call_id/accept", h.AcceptCall)
	v1.POST("/calls/:call_id/ready", h.ConfirmReady)
	v1.POST("/calls/:call_id/end", h.EndCall)
	v1.GET("/calls/:call_id", h.GetCall)
	v1.POST("/calls/:call_id/media-token", h.MediaToken)
	v1.GET("/admin/check", h.AdminCheck)

	return &fixture{router: r, users: userRepo, callsRepo: callRepo}
}

func (f *fixture) do(t *testing.T, method, path, uid, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if uid != "" {
		req.Header.Set("X-Test-User", uid)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func seedWhisper(f *fixture, id string) {
	f.users.Put(users.User{ID: id, IsWhisper: true, IsAvailable: true})
	f.callsRepo.SeedAccount(id, 0)
}

func seedCaller(f *fixture, id string, coins int64) {
	f.users.Put(users.User{ID: id, Coins: coins})
	f.callsRepo.SeedAccount(id, coins)
}

func TestRequestCall_HappyPath(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "caller-1", 5)
	seedWhisper(f, "whisper-1")

	w := f.do(t, http.MethodPost, "/v1/calls", "caller-1", "", `{"whisper_id":"whisper-1"}`)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["call_id"] == "" {
		t.Fatalf("expected call_id in response, got %s", w.Body.String())
	}
}

func TestRequestCall_InsufficientCoins(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "caller-1", 0)
	seedWhisper(f, "whisper-1")

	w := f.do(t, http.MethodPost, "/v1/calls", "caller-1", "", `{"whisper_id":"whisper-1"}`)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestCall_WhisperUnavailable(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "caller-1", 5)
	f.users.Put(users.User{ID: "whisper-1", IsWhisper: true, IsAvailable: false})
	f.callsRepo.SeedAccount("whisper-1", 0)

	w := f.do(t, http.MethodPost, "/v1/calls", "caller-1", "", `{"whisper_id":"whisper-1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestCall_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/calls", "", "", `{"whisper_id":"whisper-1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAcceptCall_OutsiderForbidden(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "caller-1", 5)
	seedWhisper(f, "whisper-1")

	w := f.do(t, http.MethodPost, "/v1/calls", "caller-1", "", `{"whisper_id":"whisper-1"}`)
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	callID := resp["call_id"]

	w = f.do(t, http.MethodPost, "/v1/calls/"+callID+"/accept", "stranger", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMediaToken_PartyGetsToken(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "caller-1", 5)
	seedWhisper(f, "whisper-1")

	w := f.do(t, http.MethodPost, "/v1/calls", "caller-1", "", `{"whisper_id":"whisper-1"}`)
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	callID := resp["call_id"]

	w = f.do(t, http.MethodPost, "/v1/calls/"+callID+"/media-token", "whisper-1", "", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tok map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil || tok["token"] == "" {
		t.Fatalf("expected token, got %s", w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/v1/calls/"+callID+"/media-token", "stranger", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", w.Code)
	}
}

func TestAdminCheck_ReportsRole(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/admin/check", "u-1", rbac.RoleUser, "")
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"is_admin":false`) {
		t.Fatalf("expected is_admin false, got %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/v1/admin/check", "a-1", rbac.RoleAdmin, "")
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"is_admin":true`) {
		t.Fatalf("expected is_admin true, got %d %s", w.Code, w.Body.String())
	}
}

func TestMe_ReturnsProfile(t *testing.T) {
	f := newFixture(t)
	seedCaller(f, "u-1", 7)

	w := f.do(t, http.MethodGet, "/v1/me", "u-1", "", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var u users.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil || u.ID != "u-1" || u.Coins != 7 {
		t.Fatalf("unexpected profile %s", w.Body.String())
	}
}
