package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fakeAPI(t *testing.T, date string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/available-slots/"+date, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"date": date, "available_times": []string{"09:00", "10:00"}})
	})
	mux.HandleFunc("/api/create-zelle-booking", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode booking: %v", err)
		}
		if body["appointment_time"] != "10:00" || body["payment_method"] != "zelle" {
			t.Errorf("unexpected booking body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"booking_id":  "44444444-4444-4444-4444-444444444444",
			"zelle_email": "pagos@example.com",
			"amount":      "$50.00",
		})
	})
	mux.HandleFunc("/api/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		if _, pass, ok := r.BasicAuth(); !ok || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"total_appointments": 7})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bookableDate() string {
	loc, err := time.LoadLocation("America/Caracas")
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc).AddDate(0, 0, 7).Format("2006-01-02")
}

func TestRunSlots(t *testing.T) {
	date := bookableDate()
	t.Setenv("BOOKING_API_URL", fakeAPI(t, date).URL)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"slots", date}, &out); err != nil {
		t.Fatalf("slots: %v", err)
	}
	if !strings.Contains(out.String(), `"09:00"`) {
		t.Fatalf("expected times in output, got %s", out.String())
	}
}

func TestRunBookZelle(t *testing.T) {
	date := bookableDate()
	t.Setenv("BOOKING_API_URL", fakeAPI(t, date).URL)

	var out bytes.Buffer
	err := run(context.Background(), []string{"book",
		"-date", date, "-time", "10:00",
		"-name", "Ana", "-email", "ana@example.com", "-whatsapp", "+584141234567",
		"-method", "zelle",
	}, &out)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if !strings.Contains(out.String(), "pagos@example.com") {
		t.Fatalf("expected zelle instructions, got %s", out.String())
	}
}

func TestRunBookRejectsUnofferedTime(t *testing.T) {
	date := bookableDate()
	t.Setenv("BOOKING_API_URL", fakeAPI(t, date).URL)

	err := run(context.Background(), []string{"book", "-date", date, "-time", "13:00"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "09:00 10:00") {
		t.Fatalf("expected slot error listing free times, got %v", err)
	}
}

func TestRunAdminStats(t *testing.T) {
	t.Setenv("BOOKING_API_URL", fakeAPI(t, bookableDate()).URL)
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "secret")

	var out bytes.Buffer
	if err := run(context.Background(), []string{"admin", "stats"}, &out); err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if !strings.Contains(out.String(), `"total_appointments": 7`) {
		t.Fatalf("unexpected stats output: %s", out.String())
	}

	t.Setenv("ADMIN_PASSWORD", "wrong")
	if err := run(context.Background(), []string{"admin", "stats"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"nope"}, &out); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out.String(), "usage: bookctl") {
		t.Fatalf("expected usage, got %s", out.String())
	}
}
