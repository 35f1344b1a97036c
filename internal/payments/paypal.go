package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psicoliz/booking/pkg/logging"
)

var paypalTracer = otel.Tracer("booking.internal.payments.paypal")

const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"
)

// PayPalGateway creates and executes PayPal payments through the REST API.
// The client approves on PayPal and returns with paymentId and PayerID.
type PayPalGateway struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewPayPalGateway(clientID, clientSecret string, sandbox bool, logger *logging.Logger) *PayPalGateway {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := paypalLiveURL
	if sandbox {
		baseURL = paypalSandboxURL
	}
	return &PayPalGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// WithBaseURL overrides the PayPal API base URL (for testing).
func (g *PayPalGateway) WithBaseURL(baseURL string) *PayPalGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

func (g *PayPalGateway) Name() string { return "paypal" }

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paypalPayment struct {
	ID    string       `json:"id"`
	State string       `json:"state"`
	Links []paypalLink `json:"links"`
	Payer struct {
		PayerInfo struct {
			PayerID string `json:"payer_id"`
		} `json:"payer_info"`
	} `json:"payer"`
}

// CreateCheckout creates a sale payment and returns its approval URL.
func (g *PayPalGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	ctx, span := paypalTracer.Start(ctx, "paypal.create_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", req.BookingID.String()),
		attribute.Int64("booking.amount_cents", req.AmountCents),
	)

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	amount := formatAmount(req.AmountCents)
	body := map[string]any{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"redirect_urls": map[string]string{
			"return_url": req.ReturnURL,
			"cancel_url": req.CancelURL,
		},
		"transactions": []map[string]any{{
			"item_list": map[string]any{
				"items": []map[string]any{{
					"name":     req.Description,
					"sku":      "consultation",
					"price":    amount,
					"currency": currency,
					"quantity": 1,
				}},
			},
			"amount":         map[string]string{"total": amount, "currency": currency},
			"description":    req.Description,
			"invoice_number": req.BookingID.String(),
		}},
	}

	var payment paypalPayment
	if err := g.do(ctx, http.MethodPost, "/v1/payments/payment", body, &payment); err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, link := range payment.Links {
		if link.Rel == "approval_url" {
			g.logger.Info("paypal payment created", "booking_id", req.BookingID, "payment_id", payment.ID)
			return &Checkout{PaymentID: payment.ID, RedirectURL: link.Href}, nil
		}
	}
	return nil, fmt.Errorf("payments: paypal response missing approval url")
}

// Capture executes an approved payment for payerID.
func (g *PayPalGateway) Capture(ctx context.Context, paymentID, payerID string) (*Capture, error) {
	ctx, span := paypalTracer.Start(ctx, "paypal.execute_payment")
	defer span.End()
	span.SetAttributes(attribute.String("paypal.payment_id", paymentID))

	if strings.TrimSpace(payerID) == "" {
		return nil, fmt.Errorf("payments: paypal payer id required")
	}
	var payment paypalPayment
	path := "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	if err := g.do(ctx, http.MethodPost, path, map[string]string{"payer_id": payerID}, &payment); err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := &Capture{
		PaymentID: payment.ID,
		PayerID:   payerID,
		State:     payment.State,
		Completed: payment.State == "approved",
	}
	if id := payment.Payer.PayerInfo.PayerID; id != "" {
		result.PayerID = id
	}
	span.SetAttributes(attribute.String("paypal.state", payment.State))
	return result, nil
}

func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && g.now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("payments: paypal token request: %w", err)
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payments: paypal token http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("payments: paypal token status %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("payments: paypal token decode: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("payments: paypal token missing")
	}
	g.accessToken = parsed.AccessToken
	// Refresh a minute early.
	g.tokenExpiry = g.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

func (g *PayPalGateway) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := g.token(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payments: paypal marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("payments: paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: paypal http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payments: paypal api status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: paypal decode: %w", err)
	}
	return nil
}
