package media

import (
	"testing"
	"time"

	"whisperline/internal/config"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	i := NewIssuer(config.MediaConfig{
		AppID:       "app-test",
		Certificate: "cert-secret-0123456789",
		TokenTTL:    6 * time.Minute,
	})
	i.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return i
}

func TestToken_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.Token("call-123", "user-abc")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims, err := iss.Verify(tok, iss.clock().Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Channel != "call-123" {
		t.Errorf("channel = %q, want call-123", claims.Channel)
	}
	if claims.UID != "user-abc" {
		t.Errorf("uid = %q, want user-abc", claims.UID)
	}
	if claims.AppID != "app-test" {
		t.Errorf("app_id = %q, want app-test", claims.AppID)
	}
}

func TestToken_ExpiresAfterTTL(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.Token("call-123", "user-abc")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := iss.Verify(tok, iss.clock().Add(7*time.Minute)); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestToken_NotConfigured(t *testing.T) {
	iss := NewIssuer(config.MediaConfig{TokenTTL: time.Minute})

	if iss.Configured() {
		t.Fatal("issuer without credentials should report not configured")
	}
	if _, err := iss.Token("call-123", "user-abc"); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestToken_InvalidArguments(t *testing.T) {
	iss := newTestIssuer(t)

	if _, err := iss.Token("", "user-abc"); err != ErrInvalidArgument {
		t.Fatalf("empty channel: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := iss.Token("call-123", ""); err != ErrInvalidArgument {
		t.Fatalf("empty uid: expected ErrInvalidArgument, got %v", err)
	}
}
