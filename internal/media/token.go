package media

import (
	"errors"
	"time"

	"whisperline/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured   = errors.New("media: provider not configured")
	ErrInvalidArgument = errors.New("media: invalid argument")
)

// Claims scope a media token to a single voice channel. The channel name
// is the call id; both parties of a call receive tokens for the same
// channel and nothing else.
type Claims struct {
	jwt.RegisteredClaims
	AppID   string `json:"app_id"`
	Channel string `json:"channel"`
	UID     string `json:"uid"`
}

// Issuer mints short-lived channel-scoped tokens for the voice provider.
type Issuer struct {
	appID string
	cert  []byte
	ttl   time.Duration
	clock func() time.Time
}

func NewIssuer(cfg config.MediaConfig) *Issuer {
	return &Issuer{
		appID: cfg.AppID,
		cert:  []byte(cfg.Certificate),
		ttl:   cfg.TokenTTL,
		clock: time.Now,
	}
}

// Configured reports whether provider credentials are present. Deployments
// without them run everything except media token issuance.
func (i *Issuer) Configured() bool {
	return i.appID != "" && len(i.cert) > 0
}

// Token mints one token binding uid to channel. The TTL comes from config
// and covers the ringing window plus the full active budget.
func (i *Issuer) Token(channel, uid string) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}
	if channel == "" || uid == "" {
		return "", ErrInvalidArgument
	}

	now := i.clock()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.appID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AppID:   i.appID,
		Channel: channel,
		UID:     uid,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.cert)
}

// Verify parses and validates a token previously minted by this issuer.
// Used in tests and by the provider-side simulator.
func (i *Issuer) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return i.cert, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if claims.Channel == "" || claims.UID == "" {
		return Claims{}, errors.New("channel or uid missing")
	}
	return claims, nil
}
