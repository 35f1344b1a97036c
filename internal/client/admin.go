package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/reports"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
)

// AdminSession carries admin credentials for one console session. Every
// mutation waits for the server and returns the reloaded dataset it touched.
// A 401 ends the session.
type AdminSession struct {
	client   *Client
	username string

	mu   sync.Mutex
	auth string
}

// AdminLogin checks the credentials with one privileged call and returns a session.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*AdminSession, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrUnauthorized
	}
	s := &AdminSession{
		client:   c,
		username: username,
		auth:     "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password)),
	}
	if _, err := s.Stats(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("admin session started", "username", username)
	return s, nil
}

func (s *AdminSession) Username() string { return s.username }

// Active reports whether the session still holds credentials.
func (s *AdminSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth != ""
}

// Logout discards the credentials.
func (s *AdminSession) Logout() {
	s.mu.Lock()
	s.auth = ""
	s.mu.Unlock()
}

func (s *AdminSession) do(ctx context.Context, method, path string, payload, out any) error {
	s.mu.Lock()
	auth := s.auth
	s.mu.Unlock()
	if auth == "" {
		return ErrUnauthorized
	}
	err := s.client.do(ctx, method, "/admin"+path, auth, payload, out)
	if errors.Is(err, ErrUnauthorized) {
		s.Logout()
	}
	return err
}

func (s *AdminSession) Stats(ctx context.Context) (reports.Stats, error) {
	var stats reports.Stats
	err := s.do(ctx, http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

// Appointments lists appointments newest first, optionally filtered by status.
func (s *AdminSession) Appointments(ctx context.Context, statuses ...appointments.Status) ([]appointments.Appointment, error) {
	path := "/appointments"
	if len(statuses) > 0 {
		parts := make([]string, len(statuses))
		for i, st := range statuses {
			parts[i] = string(st)
		}
		path += "?status=" + url.QueryEscape(strings.Join(parts, ","))
	}
	var list []appointments.Appointment
	if err := s.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *AdminSession) ConfirmZelle(ctx context.Context, id string) ([]appointments.Appointment, error) {
	return s.mutateAppointment(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/confirm-zelle")
}

func (s *AdminSession) CancelAppointment(ctx context.Context, id string) ([]appointments.Appointment, error) {
	return s.mutateAppointment(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/cancel")
}

func (s *AdminSession) DeleteAppointment(ctx context.Context, id string) ([]appointments.Appointment, error) {
	return s.mutateAppointment(ctx, http.MethodDelete, "/appointments/"+url.PathEscape(id))
}

func (s *AdminSession) mutateAppointment(ctx context.Context, method, path string) ([]appointments.Appointment, error) {
	if err := s.do(ctx, method, path, nil, nil); err != nil {
		return nil, err
	}
	return s.Appointments(ctx)
}

// ExportCSV returns the appointment export as CSV text.
func (s *AdminSession) ExportCSV(ctx context.Context, statuses ...appointments.Status) (string, error) {
	path := "/appointments/export"
	if len(statuses) > 0 {
		parts := make([]string, len(statuses))
		for i, st := range statuses {
			parts[i] = string(st)
		}
		path += "?status=" + url.QueryEscape(strings.Join(parts, ","))
	}
	var resp reports.ExportResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.CSVData, nil
}

// ProofURL returns the presigned link to an appointment's payment proof.
func (s *AdminSession) ProofURL(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	auth := s.auth
	s.mu.Unlock()
	if auth == "" {
		return "", ErrUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+"/admin/appointments/"+url.PathEscape(id)+"/proof", nil)
	if err != nil {
		return "", fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Authorization", auth)

	noFollow := *s.client.httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := noFollow.Do(req)
	if err != nil {
		return "", fmt.Errorf("client: proof url: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.Logout()
		return "", ErrUnauthorized
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return resp.Header.Get("Location"), nil
	case resp.StatusCode >= http.StatusBadRequest:
		return "", decodeError(resp)
	}
	return "", fmt.Errorf("client: proof url: unexpected status %d", resp.StatusCode)
}

func (s *AdminSession) Settings(ctx context.Context) (settings.PricingConfig, error) {
	var cfg settings.PricingConfig
	err := s.do(ctx, http.MethodGet, "/settings", nil, &cfg)
	return cfg, err
}

func (s *AdminSession) UpdateSettings(ctx context.Context, req settings.UpdateSettingsRequest) (settings.PricingConfig, error) {
	if err := s.do(ctx, http.MethodPut, "/settings", req, nil); err != nil {
		return settings.PricingConfig{}, err
	}
	return s.Settings(ctx)
}

func (s *AdminSession) Schedule(ctx context.Context) (schedule.Snapshot, error) {
	var snap schedule.Snapshot
	err := s.do(ctx, http.MethodGet, "/schedule", nil, &snap)
	return snap, err
}

func (s *AdminSession) SaveWeekly(ctx context.Context, tmpl schedule.WeeklyTemplate) (schedule.Snapshot, error) {
	if err := s.do(ctx, http.MethodPut, "/schedule/weekly", tmpl, nil); err != nil {
		return schedule.Snapshot{}, err
	}
	return s.Schedule(ctx)
}

func (s *AdminSession) SetOverride(ctx context.Context, req schedule.OverrideRequest) (schedule.Snapshot, error) {
	if err := s.do(ctx, http.MethodPut, "/schedule/custom", req, nil); err != nil {
		return schedule.Snapshot{}, err
	}
	return s.Schedule(ctx)
}

func (s *AdminSession) ClearOverride(ctx context.Context, date string) (schedule.Snapshot, error) {
	if err := s.do(ctx, http.MethodDelete, "/schedule/custom/"+url.PathEscape(date), nil, nil); err != nil {
		return schedule.Snapshot{}, err
	}
	return s.Schedule(ctx)
}
