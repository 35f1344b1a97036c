package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/psicoliz/booking/internal/schedule"
)

// MemoryRepository keeps appointments in process. Used by tests and local runs without Postgres.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]Appointment)}
}

func (m *MemoryRepository) Insert(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = *a
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) List(_ context.Context, filter ListFilter) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Appointment{}
	for _, a := range m.items {
		if filter.matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, a *Appointment, expected Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[a.ID]
	if !ok || current.Status != expected {
		return ErrConflict
	}
	m.items[a.ID] = *a
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

func (m *MemoryRepository) HoldsForDate(_ context.Context, date string) ([]schedule.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var holds []schedule.Hold
	for _, a := range m.items {
		if a.Date == date && a.Status.HoldsSlot() {
			holds = append(holds, schedule.Hold{Date: a.Date, Time: a.Time})
		}
	}
	return holds, nil
}

func (m *MemoryRepository) CancelStale(_ context.Context, methods []PaymentMethod, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, a := range m.items {
		if a.Status != StatusPending || !a.CreatedAt.Before(cutoff) || !containsMethod(methods, a.PaymentMethod) {
			continue
		}
		a.Status = StatusCancelled
		a.UpdatedAt = time.Now().UTC()
		m.items[id] = a
		ids = append(ids, id)
	}
	return ids, nil
}

func containsMethod(methods []PaymentMethod, m PaymentMethod) bool {
	for _, candidate := range methods {
		if candidate == m {
			return true
		}
	}
	return false
}
