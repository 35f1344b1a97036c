package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotCompleted means the gateway did not report the payment as captured.
	ErrNotCompleted = errors.New("payments: payment not completed")
)

// CheckoutRequest describes the redirect checkout for one booking.
type CheckoutRequest struct {
	BookingID     uuid.UUID
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	ReturnURL     string
	CancelURL     string
}

// Checkout is the gateway's answer: where to send the client and the id to confirm later.
type Checkout struct {
	PaymentID   string
	RedirectURL string
}

// Capture is the result of finalizing a payment after the client returns.
type Capture struct {
	PaymentID string
	PayerID   string
	State     string
	Completed bool
}

// Gateway is a redirect-based payment provider.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Capture(ctx context.Context, paymentID, payerID string) (*Capture, error)
}

// formatAmount renders minor units as a decimal string ("50.00").
func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func isValidBaseURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// withQuery appends query parameters to a URL string.
func withQuery(raw string, params map[string]string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
