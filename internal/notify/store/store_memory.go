// Package store persists notification records. The (document, horizon)
// uniqueness is the de-duplication guard; both implementations surface a
// duplicate insert as sentinel.ErrAlreadyExists.
package store

import (
	"context"
	"sort"
	"sync"

	"paygate/internal/notify/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
)

type dedupeKey struct {
	documentID domain.DocumentID
	horizon    int
}

// InMemory keeps notification records in maps guarded by a single mutex.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[domain.NotificationID]*models.Notification
	byPair map[dedupeKey]domain.NotificationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[domain.NotificationID]*models.Notification),
		byPair: make(map[dedupeKey]domain.NotificationID),
	}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupeKey{documentID: n.DocumentID, horizon: n.HorizonDays}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *n
	s.byID[n.ID] = &cp
	s.byPair[key] = n.ID
	return nil
}

// FindByPair returns the record guarding one (document, horizon) pair.
func (s *InMemory) FindByPair(_ context.Context, documentID domain.DocumentID, horizonDays int) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[dedupeKey{documentID: documentID, horizon: horizonDays}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// ListForContractor returns a contractor's records, oldest first.
func (s *InMemory) ListForContractor(_ context.Context, contractorID domain.ContractorID) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.byID {
		if n.ContractorID == contractorID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListRetryable returns failed records below the retry ceiling.
func (s *InMemory) ListRetryable(_ context.Context) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.byID {
		if n.Retryable() {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Execute loads the record, runs validate, and if it passes applies mutate
// and persists the result.
func (s *InMemory) Execute(_ context.Context, id domain.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	work := *n
	if validate != nil {
		if err := validate(&work); err != nil {
			return nil, err
		}
	}
	mutate(&work)
	s.byID[id] = &work

	cp := work
	return &cp, nil
}
