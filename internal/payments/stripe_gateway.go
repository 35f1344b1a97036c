package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psicoliz/booking/pkg/logging"
)

var stripeTracer = otel.Tracer("booking.internal.payments.stripe")

// sessionPlaceholder is replaced by Stripe with the session id on redirect.
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// StripeGateway takes card payments through hosted Stripe Checkout sessions.
type StripeGateway struct {
	secretKey string
	baseURL   string
	api       *client.API
	logger    *logging.Logger
}

func NewStripeGateway(secretKey string, logger *logging.Logger) *StripeGateway {
	if logger == nil {
		logger = logging.Default()
	}
	g := &StripeGateway{secretKey: secretKey, logger: logger}
	g.api = g.newClient()
	return g
}

// WithBaseURL points the client at a different API host (for testing).
func (g *StripeGateway) WithBaseURL(baseURL string) *StripeGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
		g.api = g.newClient()
	}
	return g
}

func (g *StripeGateway) newClient() *client.API {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if g.baseURL != "" {
		cfg.URL = stripe.String(g.baseURL)
	}
	return client.New(g.secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
}

func (g *StripeGateway) Name() string { return "card" }

// CreateCheckout opens a one-item payment session. The session id comes back
// on the success URL as {CHECKOUT_SESSION_ID}.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", req.BookingID.String()),
		attribute.Int64("booking.amount_cents", req.AmountCents),
	)

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.BookingID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID.String())

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payments: stripe create session: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("payments: stripe session %s has no url", session.ID)
	}
	g.logger.Info("stripe checkout session created", "booking_id", req.BookingID, "session_id", session.ID)
	return &Checkout{PaymentID: session.ID, RedirectURL: session.URL}, nil
}

// Capture reads the session back; Checkout captures on its own, so a paid
// session is complete.
func (g *StripeGateway) Capture(ctx context.Context, paymentID, _ string) (*Capture, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.get_checkout_session")
	defer span.End()
	span.SetAttributes(attribute.String("stripe.session_id", paymentID))

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	session, err := g.api.CheckoutSessions.Get(paymentID, params)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payments: stripe get session: %w", err)
	}
	result := &Capture{
		PaymentID: session.ID,
		State:     string(session.PaymentStatus),
		Completed: session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if session.PaymentIntent != nil {
		result.PayerID = session.PaymentIntent.ID
	}
	return result, nil
}
