package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
	"github.com/psicoliz/booking/pkg/logging"
)

// Service sends booking emails to the client and the practitioner.
type Service struct {
	email            EmailSender
	practitionerName string
	practitionerTo   string
	adminURL         string
	logger           *logging.Logger
}

func NewService(email EmailSender, practitionerName, practitionerEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if practitionerName == "" {
		practitionerName = "Liz Parra"
	}
	return &Service{
		email:            email,
		practitionerName: practitionerName,
		practitionerTo:   practitionerEmail,
		logger:           logger,
	}
}

// WithAdminURL adds a link to the admin console in practitioner emails.
func (s *Service) WithAdminURL(u string) *Service {
	s.adminURL = strings.TrimRight(u, "/")
	return s
}

type emailData struct {
	Practitioner string
	Name         string
	Email        string
	WhatsApp     string
	Date         string
	Time         string
	Method       string
	Amount       string
	BookingID    string
	AdminURL     string
	ProofName    string
}

var (
	clientConfirmedTmpl = template.Must(template.New("client_confirmed").Parse(`<h2>¡Tu cita ha sido confirmada!</h2>
<p>Hola {{.Name}},</p>
<p>Tu cita psicológica ha sido confirmada para:</p>
<ul>
  <li><strong>Fecha:</strong> {{.Date}}</li>
  <li><strong>Hora:</strong> {{.Time}}</li>
  <li><strong>Método de pago:</strong> {{.Method}}</li>
  {{- if .Amount}}
  <li><strong>Monto:</strong> {{.Amount}}</li>
  {{- end}}
</ul>
<p><strong>Importante:</strong> {{.Practitioner}} se contactará contigo por WhatsApp en la hora de tu cita.</p>
<p>¡Nos vemos pronto!</p>
<p>Saludos,<br>{{.Practitioner}}<br>Psicóloga</p>
`))

	practitionerBookingTmpl = template.Must(template.New("practitioner_booking").Parse(`<h2>{{if .ProofName}}Comprobante de pago recibido{{else}}Nueva Cita Reservada{{end}}</h2>
<p><strong>Cliente:</strong> {{.Name}}</p>
<p><strong>WhatsApp:</strong> {{.WhatsApp}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Fecha:</strong> {{.Date}}</p>
<p><strong>Hora:</strong> {{.Time}}</p>
<p><strong>Método de pago:</strong> {{.Method}}</p>
{{- if .Amount}}
<p><strong>Monto:</strong> {{.Amount}}</p>
{{- end}}
{{- if .ProofName}}
<p>El comprobante <em>{{.ProofName}}</em> va adjunto. Confirma el pago desde el panel de administración.</p>
{{- end}}
{{- if .AdminURL}}
<p><a href="{{.AdminURL}}">Abrir panel de administración</a></p>
{{- end}}
<p style="color:#888">Reserva {{.BookingID}}</p>
`))
)

// AppointmentConfirmed emails the client and the practitioner. Both sends are
// attempted; the errors are joined.
func (s *Service) AppointmentConfirmed(ctx context.Context, appt appointments.Appointment) error {
	if s.email == nil {
		return nil
	}
	data := s.data(appt)

	var errs []error
	clientHTML, err := render(clientConfirmedTmpl, data)
	if err != nil {
		return err
	}
	errs = append(errs, s.email.Send(ctx, EmailMessage{
		To:      appt.Email,
		ToName:  appt.FullName,
		Subject: fmt.Sprintf("Confirmación de Cita - %s Psicóloga", s.practitionerName),
		Body:    clientText(data),
		HTML:    clientHTML,
	}))

	if s.practitionerTo != "" {
		html, err := render(practitionerBookingTmpl, data)
		if err != nil {
			return err
		}
		errs = append(errs, s.email.Send(ctx, EmailMessage{
			To:      s.practitionerTo,
			ToName:  s.practitionerName,
			Subject: fmt.Sprintf("Nueva Cita - %s - %s", appt.FullName, appt.Date),
			Body:    practitionerText(data),
			HTML:    html,
		}))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: appointment confirmed %s: %w", appt.ID, err)
	}
	s.logger.Info("confirmation emails sent", "booking_id", appt.ID)
	return nil
}

// ProofReceived sends the practitioner the uploaded proof for review.
func (s *Service) ProofReceived(ctx context.Context, appt appointments.Appointment, img proofs.Image) error {
	if s.email == nil || s.practitionerTo == "" {
		s.logger.Debug("notify: practitioner email not configured, skipping proof notice", "booking_id", appt.ID)
		return nil
	}
	data := s.data(appt)
	data.ProofName = img.Filename
	if data.ProofName == "" {
		data.ProofName = "comprobante" + proofs.Extension(img.ContentType, "")
	}
	html, err := render(practitionerBookingTmpl, data)
	if err != nil {
		return err
	}
	err = s.email.Send(ctx, EmailMessage{
		To:      s.practitionerTo,
		ToName:  s.practitionerName,
		Subject: fmt.Sprintf("Comprobante Zelle - %s - %s %s", appt.FullName, appt.Date, appt.Time),
		Body:    practitionerText(data),
		HTML:    html,
		Attachments: []Attachment{{
			Filename:    data.ProofName,
			ContentType: img.ContentType,
			Data:        img.Data,
		}},
	})
	if err != nil {
		return fmt.Errorf("notify: proof received %s: %w", appt.ID, err)
	}
	return nil
}

func (s *Service) data(appt appointments.Appointment) emailData {
	d := emailData{
		Practitioner: s.practitionerName,
		Name:         appt.FullName,
		Email:        appt.Email,
		WhatsApp:     appt.WhatsApp,
		Date:         SpanishDate(appt.Date),
		Time:         appt.Time,
		Method:       methodLabel(appt.PaymentMethod),
		BookingID:    appt.ID.String(),
	}
	if appt.AmountCents > 0 {
		d.Amount = settings.FormatAmount(appt.AmountCents, appt.Currency)
	}
	if s.adminURL != "" {
		d.AdminURL = s.adminURL + "/admin"
	}
	return d
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func clientText(d emailData) string {
	return fmt.Sprintf("Hola %s,\n\nTu cita psicológica ha sido confirmada para el %s a las %s (pago: %s).\n%s se contactará contigo por WhatsApp en la hora de tu cita.\n\nSaludos,\n%s",
		d.Name, d.Date, d.Time, d.Method, d.Practitioner, d.Practitioner)
}

func practitionerText(d emailData) string {
	return fmt.Sprintf("Cliente: %s\nWhatsApp: %s\nEmail: %s\nFecha: %s\nHora: %s\nMétodo de pago: %s\nReserva: %s",
		d.Name, d.WhatsApp, d.Email, d.Date, d.Time, d.Method, d.BookingID)
}

func methodLabel(m appointments.PaymentMethod) string {
	switch m {
	case appointments.MethodPayPal:
		return "PayPal"
	case appointments.MethodCard:
		return "Tarjeta"
	case appointments.MethodZelle:
		return "Zelle"
	}
	return string(m)
}

var (
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// SpanishDate renders "2026-03-02" as "lunes 2 de marzo de 2026". Unparseable
// input is returned unchanged.
func SpanishDate(date string) string {
	t, err := schedule.ParseDate(date, time.UTC)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %d de %s de %d", spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1], t.Year())
}
