package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/psicoliz/booking/pkg/logging"
)

// FakeGateway sends the client straight back to the return URL with a fake
// payment id, and every capture succeeds.
//
// This MUST be gated by configuration (ALLOW_FAKE_PAYMENTS) and never enabled
// in production.
type FakeGateway struct {
	name   string
	logger *logging.Logger
}

func NewFakeGateway(name string, logger *logging.Logger) *FakeGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeGateway{name: name, logger: logger}
}

func (g *FakeGateway) Name() string { return g.name }

func (g *FakeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	_ = ctx
	if req.BookingID == uuid.Nil {
		return nil, fmt.Errorf("payments: fake checkout requires booking id")
	}
	if !isValidBaseURL(req.ReturnURL) {
		return nil, fmt.Errorf("payments: fake checkout return url must be an absolute http(s) URL")
	}
	paymentID := "fake:" + req.BookingID.String()
	g.logger.Warn("fake checkout created", "gateway", g.name, "booking_id", req.BookingID)
	return &Checkout{
		PaymentID: paymentID,
		RedirectURL: withQuery(strings.ReplaceAll(req.ReturnURL, sessionPlaceholder, paymentID), map[string]string{
			"paymentId": paymentID,
			"PayerID":   "FAKEPAYER",
		}),
	}, nil
}

func (g *FakeGateway) Capture(ctx context.Context, paymentID, payerID string) (*Capture, error) {
	_ = ctx
	if payerID == "" {
		payerID = "FAKEPAYER"
	}
	return &Capture{PaymentID: paymentID, PayerID: payerID, State: "approved", Completed: true}, nil
}
