// Package store persists contractors. The in-memory implementation backs
// unit tests and local development; the Postgres implementation is the
// production store. Both return sentinel errors only.
package store

import (
	"context"
	"sort"
	"sync"

	"paygate/internal/contractor/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
)

// InMemory keeps contractors in a map guarded by a single mutex.
type InMemory struct {
	mu          sync.RWMutex
	contractors map[domain.ContractorID]*models.Contractor
}

func NewInMemory() *InMemory {
	return &InMemory{contractors: make(map[domain.ContractorID]*models.Contractor)}
}

func (s *InMemory) Create(_ context.Context, c *models.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contractors[c.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *c
	s.contractors[c.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ContractorID) (*models.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contractors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListActive returns every active contractor, ordered by company name. The
// daily sweep iterates this list.
func (s *InMemory) ListActive(_ context.Context) ([]models.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Contractor, 0, len(s.contractors))
	for _, c := range s.contractors {
		if c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out, nil
}

// Execute loads the contractor, runs validate, and if it passes applies
// mutate and persists the result. The whole sequence holds the store lock,
// so reads the callbacks perform cannot interleave with another Execute on
// the same contractor.
func (s *InMemory) Execute(ctx context.Context, id domain.ContractorID, validate func(context.Context, *models.Contractor) error, mutate func(context.Context, *models.Contractor)) (*models.Contractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contractors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	work := *c
	if validate != nil {
		if err := validate(ctx, &work); err != nil {
			return nil, err
		}
	}
	mutate(ctx, &work)
	s.contractors[id] = &work

	cp := work
	return &cp, nil
}
