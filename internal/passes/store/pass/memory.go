package pass

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
)

// InMemory keeps passes in process memory for tests and single-node demos.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	passes map[models.Identity]*models.Pass
}

func NewInMemory() *InMemory {
	return &InMemory{passes: make(map[models.Identity]*models.Pass)}
}

func (s *InMemory) Create(_ context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Identity()
	if _, exists := s.passes[key]; exists {
		return fmt.Errorf("pass %s already exists: %w", key, sentinel.ErrAlreadyUsed)
	}
	s.nextID++
	p.ID = s.nextID
	s.passes[key] = p.Clone()
	return nil
}

func (s *InMemory) FindByIdentity(_ context.Context, passType, serial string) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[models.Identity{PassTypeIdentifier: passType, SerialNumber: serial}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// FindByType returns every pass of the type ordered by serial number.
func (s *InMemory) FindByType(_ context.Context, passType string) ([]*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Pass, 0)
	for key, p := range s.passes {
		if key.PassTypeIdentifier == passType {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

// Touch stores p's payload and UpdatedAt.
func (s *InMemory) Touch(_ context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.passes[p.Identity()]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Data = append(stored.Data[:0:0], p.Data...)
	stored.UpdatedAt = p.UpdatedAt
	return nil
}
