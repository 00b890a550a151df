package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndStripe(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "whisperline", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "whisperline", JWTAudience: "api"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and Stripe keys")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "whisperline", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Billing.CoinPriceCents != 1500 {
		t.Fatalf("expected coin price default 1500, got %d", c.Billing.CoinPriceCents)
	}
	if c.Billing.PayoutRateCents != 1200 {
		t.Fatalf("expected payout rate default 1200, got %d", c.Billing.PayoutRateCents)
	}
	if c.Billing.SignupBonusCoins != 10 {
		t.Fatalf("expected signup bonus default 10, got %d", c.Billing.SignupBonusCoins)
	}
	if c.Media.TokenTTL != time.Hour {
		t.Fatalf("expected media token ttl default 1h, got %v", c.Media.TokenTTL)
	}
}

func TestValidate_RejectsNegativeSignupBonus(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "local", Port: 8080},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "whisperline"},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "secret"},
		Billing: BillingConfig{SignupBonusCoins: -1},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative signup bonus")
	}
}
