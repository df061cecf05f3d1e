package payments

import (
	"context"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/pkg/config"
)

// CheckoutParams carries everything needed to open a hosted checkout
// for one booking or membership purchase. The amount always comes from
// the server-side catalog, never from the client.
type CheckoutParams struct {
	AmountCents   int64
	Currency      string
	ProductLabel  string
	CustomerEmail string
	Metadata      map[string]string
	ExpiresAt     time.Time
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the payment-processor surface the services depend on.
// Stripe remains the source of truth for payment completion.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

type stripeGateway struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewStripeGateway(cfg config.StripeConfig) Gateway {
	api := client.New(cfg.SecretKey, nil)
	return &stripeGateway{
		api:        api,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:        stripe.Params{Context: ctx},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.successURL),
		CancelURL:     stripe.String(g.cancelURL),
		CustomerEmail: stripe.String(p.CustomerEmail),
		ExpiresAt:     stripe.Int64(p.ExpiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductLabel),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, domain.Upstream("create checkout session", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	sub, err := g.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return time.Time{}, domain.Upstream("retrieve subscription", err)
	}
	return time.Unix(sub.CurrentPeriodEnd, 0).UTC(), nil
}
