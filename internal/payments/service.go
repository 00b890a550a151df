package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"whisperline/internal/config"
	"whisperline/internal/ledger"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// Credit is the coin posting applied together with a session's
// pending->completed transition. UserID may be empty, in which case the
// repository falls back to the user stored on the session record.
type Credit struct {
	UserID string
	Coins  int64
	Reason ledger.Reason
}

// SessionRepository is the persistence contract for checkout session
// records.
//
// Complete must be a conditional pending->completed transition with the
// coin credit applied in the same transaction: it reports ok=false when
// the session is already completed, which is what makes webhook
// redelivery safe, and a failed credit must leave the session pending so
// a redelivery can settle it.
type SessionRepository interface {
	Create(ctx context.Context, s Session) error
	Complete(ctx context.Context, id string, credit Credit, now time.Time) (Session, bool, error)
}

// Service creates checkout sessions with the payment collaborator and
// settles completed ones into the coin ledger.
type Service struct {
	repo    SessionRepository
	cfg     config.StripeConfig
	billing config.BillingConfig
	clock   func() time.Time
}

func NewService(repo SessionRepository, cfg config.StripeConfig, billing config.BillingConfig) *Service {
	stripe.Key = cfg.SecretKey
	return &Service{repo: repo, cfg: cfg, billing: billing, clock: time.Now}
}

var (
	ErrInvalidArgument = errors.New("payments: invalid argument")
	ErrPaymentProvider = errors.New("payments: provider error")
)

// CreateCheckout opens a Stripe checkout session for a coin purchase and
// records the pending session. Returns the redirect URL for the buyer.
func (s *Service) CreateCheckout(ctx context.Context, userID string, amountCents int64) (string, error) {
	if userID == "" {
		return "", ErrInvalidArgument
	}
	if amountCents <= 0 {
		amountCents = s.billing.CoinPriceCents
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Whisper Coin"),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:  stripe.String(s.cfg.CheckoutCancelURL),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	if err := s.repo.Create(ctx, Session{
		ID:          sess.ID,
		UserID:      userID,
		AmountCents: amountCents,
		Status:      SessionStatusPending,
		CreatedAt:   s.clock().UTC(),
	}); err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CompleteSession settles one completed checkout: flips the session record
// to completed and credits the purchased coins, both in one transaction.
// Idempotent on session id; a redelivered event finds the session already
// completed and does nothing. A failed credit leaves the session pending,
// so the purchase survives to the next delivery.
//
// A missing or unknown user id is logged, not returned as an error: the
// webhook must acknowledge receipt regardless of internal outcome.
func (s *Service) CompleteSession(ctx context.Context, sessionID string, amountCents int64, userID string) error {
	if sessionID == "" {
		return ErrInvalidArgument
	}

	now := s.clock().UTC()
	coins := CoinsForAmount(amountCents, s.billing.CoinPriceCents)

	sess, ok, err := s.repo.Complete(ctx, sessionID, Credit{
		UserID: userID,
		Coins:  coins,
		Reason: ledger.ReasonPurchase,
	}, now)
	if err != nil {
		return fmt.Errorf("settle session %s: %w", sessionID, err)
	}
	if !ok {
		slog.Info("checkout session already settled", "session_id", sessionID)
		return nil
	}

	if userID == "" && sess.UserID == "" {
		slog.Error("completed session has no user id; coins not credited", "session_id", sessionID)
		return nil
	}
	if coins <= 0 {
		slog.Warn("completed session below coin price; nothing credited",
			"session_id", sessionID, "amount_cents", amountCents)
	}
	return nil
}

// CoinsForAmount converts a paid amount to whole coins at the configured
// coin price, rounding down.
func CoinsForAmount(amountCents, coinPriceCents int64) int64 {
	if amountCents <= 0 || coinPriceCents <= 0 {
		return 0
	}
	return amountCents / coinPriceCents
}
