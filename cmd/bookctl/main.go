// Command bookctl drives the booking API from a terminal: it walks the
// booking wizard, uploads Zelle proofs and runs admin console operations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/client"
	appconfig "github.com/psicoliz/booking/internal/config"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/wizard"
	"github.com/psicoliz/booking/pkg/logging"
)

const usage = `usage: bookctl <command> [flags]

commands:
  slots <YYYY-MM-DD>                 list free times
  book [flags]                       book a slot (-date -time -name -email -whatsapp -method -session)
  upload <booking-id> <image>        upload a Zelle payment proof
  confirm [flags]                    confirm a gateway payment (-method -payment-id -payer-id -booking-id)
  admin <op> [args]                  stats | list [status,...] | confirm-zelle <id> | cancel <id> |
                                     delete <id> | export [status,...] | proof <id> | settings | schedule

environment: BOOKING_API_URL, ADMIN_USERNAME, ADMIN_PASSWORD, TIMEZONE, BOOKING_HORIZON_MONTHS
`

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cfg := appconfig.Load()
	logger := logging.New(envOr("BOOKCTL_LOG_LEVEL", "error"))
	api := client.New(envOr("BOOKING_API_URL", "http://localhost:8080"), logger)

	switch args[0] {
	case "slots":
		if len(args) < 2 {
			return errors.New("slots needs a date")
		}
		times, err := api.AvailableSlots(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out, schedule.AvailableSlotsResponse{Date: args[1], AvailableTimes: times})
	case "book":
		window := schedule.NewWindow(cfg.Location(), cfg.BookingHorizonMonths)
		return book(ctx, wizard.New(api, api, window, logger), args[1:], out)
	case "upload":
		if len(args) < 3 {
			return errors.New("upload needs a booking id and an image path")
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		resp, err := api.UploadProof(ctx, args[1], filepath.Base(args[2]), "", data)
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	case "confirm":
		return confirm(ctx, api, args[1:], out)
	case "admin":
		session, err := api.AdminLogin(ctx, cfg.AdminUsername, os.Getenv("ADMIN_PASSWORD"))
		if err != nil {
			return err
		}
		defer session.Logout()
		return admin(ctx, session, args[1:], out)
	}
	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

func book(ctx context.Context, w *wizard.Wizard, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	date := fs.String("date", "", "appointment date (YYYY-MM-DD)")
	slot := fs.String("time", "", "appointment time (HH:MM)")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	phone := fs.String("whatsapp", "", "WhatsApp number")
	method := fs.String("method", "zelle", "paypal, card or zelle")
	session := fs.String("session", "standard", "standard, extended or long")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if times := w.SelectDate(ctx, *date); len(times) == 0 {
		return fmt.Errorf("no available times on %q", *date)
	}
	if err := w.SelectTime(*slot); err != nil {
		return fmt.Errorf("%w (free: %s)", err, strings.Join(w.Slots(), " "))
	}
	if err := w.Next(); err != nil {
		return err
	}
	w.SetContact(wizard.Contact{FullName: *name, Email: *email, WhatsApp: *phone})
	if err := w.Next(); err != nil {
		return err
	}
	w.SetPaymentMethod(appointments.PaymentMethod(*method))
	w.SetSessionType(appointments.SessionType(*session))
	if err := w.Next(); err != nil {
		return err
	}
	outcome, err := w.Submit(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, outcome)
}

func confirm(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
	method := fs.String("method", "paypal", "paypal or card")
	var req payments.ConfirmPaymentRequest
	fs.StringVar(&req.PaymentID, "payment-id", "", "gateway payment or session id")
	fs.StringVar(&req.PayerID, "payer-id", "", "PayPal payer id")
	fs.StringVar(&req.BookingID, "booking-id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := api.ConfirmPayment(ctx, appointments.PaymentMethod(*method), req)
	if err != nil {
		return err
	}
	return printJSON(out, resp)
}

func admin(ctx context.Context, s *client.AdminSession, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("admin needs an operation")
	}
	arg := func() (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("admin %s needs an argument", args[0])
		}
		return args[1], nil
	}
	statuses := func() []appointments.Status {
		if len(args) < 2 {
			return nil
		}
		return appointments.ParseStatuses(args[1])
	}

	var (
		result any
		err    error
	)
	switch args[0] {
	case "stats":
		result, err = s.Stats(ctx)
	case "list":
		result, err = s.Appointments(ctx, statuses()...)
	case "confirm-zelle", "cancel", "delete", "proof":
		id, aerr := arg()
		if aerr != nil {
			return aerr
		}
		switch args[0] {
		case "confirm-zelle":
			result, err = s.ConfirmZelle(ctx, id)
		case "cancel":
			result, err = s.CancelAppointment(ctx, id)
		case "delete":
			result, err = s.DeleteAppointment(ctx, id)
		case "proof":
			result, err = s.ProofURL(ctx, id)
		}
	case "export":
		csv, eerr := s.ExportCSV(ctx, statuses()...)
		if eerr != nil {
			return eerr
		}
		_, err = io.WriteString(out, csv)
		return err
	case "settings":
		result, err = s.Settings(ctx)
	case "schedule":
		result, err = s.Schedule(ctx)
	default:
		return fmt.Errorf("unknown admin operation %q", args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(out, result)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
