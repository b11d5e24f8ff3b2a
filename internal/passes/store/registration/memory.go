package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
)

type key struct {
	deviceID string
	passID   int64
}

// InMemory keeps registrations in process memory. A single write lock makes
// Upsert atomic per key, mirroring the database unique constraint.
type InMemory struct {
	mu            sync.RWMutex
	nextID        int64
	registrations map[key]*models.Registration
}

func NewInMemory() *InMemory {
	return &InMemory{registrations: make(map[key]*models.Registration)}
}

func (s *InMemory) FindByPassAndDevice(_ context.Context, passID int64, deviceID string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[key{deviceID: deviceID, passID: passID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) FindAllByPassAndDevice(_ context.Context, passID int64, deviceID string, updatedSince *time.Time) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, 1)
	if r, ok := s.registrations[key{deviceID: deviceID, passID: passID}]; ok && r.UpdatedSince(updatedSince) {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) Upsert(_ context.Context, deviceID string, passID int64, pushToken string, now time.Time) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{deviceID: deviceID, passID: passID}
	r, ok := s.registrations[k]
	if ok {
		r.PushToken = pushToken
		r.UpdatedAt = now
	} else {
		s.nextID++
		r = &models.Registration{
			ID:                      s.nextID,
			DeviceLibraryIdentifier: deviceID,
			PassID:                  passID,
			PushToken:               pushToken,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		s.registrations[k] = r
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) Delete(_ context.Context, r *models.Registration) error {
	if r == nil {
		return fmt.Errorf("registration is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{deviceID: r.DeviceLibraryIdentifier, passID: r.PassID}
	stored, ok := s.registrations[k]
	if !ok || stored.ID != r.ID {
		return sentinel.ErrNotFound
	}
	delete(s.registrations, k)
	return nil
}

// Count returns the number of stored registrations.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registrations)
}
