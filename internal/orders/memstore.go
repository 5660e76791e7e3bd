package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store used by tests and local development.
// It honors the same version-CAS semantics as PGStore.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*Order
	byExt map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*Order),
		byExt: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.byID[o.ID] = &cp
	if o.ExternalID != "" {
		s.byExt[o.ExternalID] = o.ID
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetByExternalID(ctx context.Context, externalID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byExt[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, next Status, expectedVersion int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Version != expectedVersion {
		return nil, &ConflictError{OrderID: id, Version: expectedVersion}
	}
	o.Status = next
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) RecordPayment(ctx context.Context, id string, status PaymentStatus, intentID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Payment.Status = status
	o.Payment.IntentID = intentID
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ClaimLoyaltyAward(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.LoyaltyAwarded {
		return false, nil
	}
	o.LoyaltyAwarded = true
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}
