// Package store persists invoices. Both implementations return sentinel
// errors only; the service translates them.
package store

import (
	"context"
	"sort"
	"sync"

	"paygate/internal/invoice/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
)

// InMemory keeps invoices in a map guarded by a single mutex.
type InMemory struct {
	mu       sync.RWMutex
	invoices map[domain.InvoiceID]*models.Invoice
}

func NewInMemory() *InMemory {
	return &InMemory{invoices: make(map[domain.InvoiceID]*models.Invoice)}
}

func (s *InMemory) Create(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.InvoiceID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

// ListForContractor returns the contractor's invoices, oldest first.
func (s *InMemory) ListForContractor(_ context.Context, contractorID domain.ContractorID) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.ContractorID == contractorID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListGateable returns the contractor's pending and blocked invoices, the
// set the payment-run sweep re-evaluates.
func (s *InMemory) ListGateable(_ context.Context, contractorID domain.ContractorID) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.ContractorID == contractorID && inv.Status.Gateable() {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Execute loads the invoice, runs validate, and if it passes applies mutate
// and persists the result. The whole sequence holds the store lock.
func (s *InMemory) Execute(_ context.Context, id domain.InvoiceID, validate func(*models.Invoice) error, mutate func(*models.Invoice)) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	work := *inv
	if validate != nil {
		if err := validate(&work); err != nil {
			return nil, err
		}
	}
	mutate(&work)
	s.invoices[id] = &work

	cp := work
	return &cp, nil
}
