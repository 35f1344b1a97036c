package notify

import (
	"strings"

	"github.com/psicoliz/booking/pkg/logging"
)

// SenderOptions lists every configured email transport.
type SenderOptions struct {
	// Provider is one of auto, sendgrid, ses, smtp or stub.
	Provider  string
	SendGrid  SendGridConfig
	SMTP      SMTPConfig
	SES       SESAPI
	SESConfig SESConfig
}

// NewSender picks the transport. "auto" prefers SendGrid, then SMTP, then
// SES, and falls back to the stub so bookings never fail on email setup.
func NewSender(opts SenderOptions, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	sendgrid := func() EmailSender {
		if s := NewSendGridSender(opts.SendGrid, logger); s != nil {
			return s
		}
		return nil
	}
	smtp := func() EmailSender {
		if s := NewSMTPSender(opts.SMTP, logger); s != nil {
			return s
		}
		return nil
	}
	ses := func() EmailSender {
		if s := NewSESSender(opts.SES, opts.SESConfig, logger); s != nil {
			return s
		}
		return nil
	}

	var candidates []func() EmailSender
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "sendgrid":
		candidates = append(candidates, sendgrid)
	case "smtp":
		candidates = append(candidates, smtp)
	case "ses":
		candidates = append(candidates, ses)
	case "stub", "none":
	default:
		candidates = append(candidates, sendgrid, smtp, ses)
	}
	for _, build := range candidates {
		if sender := build(); sender != nil {
			return sender
		}
	}
	logger.Warn("no email transport configured, using stub sender", "provider", opts.Provider)
	return NewStubEmailSender(logger)
}
