// Package client is the Go client for the booking API, used by the booking
// wizard and the admin console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
	"github.com/psicoliz/booking/pkg/logging"
)

// ErrUnauthorized is returned when the server rejects admin credentials.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is a non-2xx response carrying the server's {"error": ...} message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Redirect is the gateway checkout the caller must send the user to.
type Redirect struct {
	URL       string
	BookingID string
}

// Client talks to the booking API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New normalizes baseURL so it always ends in /api.
func New(baseURL string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client (for testing).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpClient = h
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// NormalizeBaseURL trims trailing slashes and appends /api when missing.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base
}

// AvailableSlots lists the free times on date (YYYY-MM-DD).
func (c *Client) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	var resp schedule.AvailableSlotsResponse
	if err := c.do(ctx, http.MethodGet, "/available-slots/"+url.PathEscape(date), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.AvailableTimes, nil
}

func (c *Client) PricingConfig(ctx context.Context) (*settings.PricingConfigResponse, error) {
	var resp settings.PricingConfigResponse
	if err := c.do(ctx, http.MethodGet, "/pricing-config", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ZelleConfig(ctx context.Context) (*settings.ZelleConfigResponse, error) {
	var resp settings.ZelleConfigResponse
	if err := c.do(ctx, http.MethodGet, "/zelle-config", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreatePayPalOrder(ctx context.Context, req appointments.BookingRequest) (*Redirect, error) {
	var resp struct {
		ApprovalURL string `json:"approval_url"`
		BookingID   string `json:"booking_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-paypal-order", "", req, &resp); err != nil {
		return nil, err
	}
	return &Redirect{URL: resp.ApprovalURL, BookingID: resp.BookingID}, nil
}

func (c *Client) CreateCardCheckout(ctx context.Context, req appointments.BookingRequest) (*Redirect, error) {
	var resp struct {
		CheckoutURL string `json:"checkout_url"`
		BookingID   string `json:"booking_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-card-checkout", "", req, &resp); err != nil {
		return nil, err
	}
	return &Redirect{URL: resp.CheckoutURL, BookingID: resp.BookingID}, nil
}

func (c *Client) CreateZelleBooking(ctx context.Context, req appointments.BookingRequest) (*payments.ZelleBookingResponse, error) {
	var resp payments.ZelleBookingResponse
	if err := c.do(ctx, http.MethodPost, "/create-zelle-booking", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmPayment finalizes a gateway booking after the redirect returns.
func (c *Client) ConfirmPayment(ctx context.Context, method appointments.PaymentMethod, req payments.ConfirmPaymentRequest) (*payments.ConfirmPaymentResponse, error) {
	var path string
	switch method {
	case appointments.MethodPayPal:
		path = "/confirm-paypal-payment"
	case appointments.MethodCard:
		path = "/confirm-card-payment"
	default:
		return nil, fmt.Errorf("client: %s has no gateway confirmation", method)
	}
	var resp payments.ConfirmPaymentResponse
	if err := c.do(ctx, http.MethodPost, path, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadProof validates the image locally, then uploads it for bookingID.
func (c *Client) UploadProof(ctx context.Context, bookingID, filename, contentType string, data []byte) (*proofs.UploadResponse, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if err := proofs.Validate(contentType, int64(len(data))); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("booking_id", bookingID); err != nil {
		return nil, fmt.Errorf("client: write form: %w", err)
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("client: create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("client: write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-zelle-proof", &body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var resp proofs.UploadResponse
	if err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, auth string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
