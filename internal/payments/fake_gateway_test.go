package payments

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeGateway_RedirectsToReturnURL(t *testing.T) {
	g := NewFakeGateway("paypal", nil)
	id := uuid.New()
	checkout, err := g.CreateCheckout(context.Background(), CheckoutRequest{
		BookingID: id,
		ReturnURL: "https://site.example/payment-success?booking_id=" + id.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "fake:"+id.String(), checkout.PaymentID)

	u, err := url.Parse(checkout.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, id.String(), u.Query().Get("booking_id"))
	assert.Equal(t, checkout.PaymentID, u.Query().Get("paymentId"))
	assert.Equal(t, "FAKEPAYER", u.Query().Get("PayerID"))

	capture, err := g.Capture(context.Background(), checkout.PaymentID, "")
	require.NoError(t, err)
	assert.True(t, capture.Completed)
}

func TestFakeGateway_FillsSessionPlaceholder(t *testing.T) {
	g := NewFakeGateway("card", nil)
	id := uuid.New()
	checkout, err := g.CreateCheckout(context.Background(), CheckoutRequest{
		BookingID: id,
		ReturnURL: "https://site.example/payment-success?session_id=" + sessionPlaceholder,
	})
	require.NoError(t, err)
	u, err := url.Parse(checkout.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentID, u.Query().Get("session_id"))
}

func TestFakeGateway_Validation(t *testing.T) {
	g := NewFakeGateway("paypal", nil)
	_, err := g.CreateCheckout(context.Background(), CheckoutRequest{ReturnURL: "https://site.example"})
	assert.Error(t, err)
	_, err = g.CreateCheckout(context.Background(), CheckoutRequest{BookingID: uuid.New(), ReturnURL: "/relative"})
	assert.Error(t, err)
}
