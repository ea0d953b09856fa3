// Package store persists compliance documents.
//
// Documents live in an append-only arena keyed by ID; which version is
// "current" for a (contractor, type) pair is a separate index updated in the
// same critical section that inserts a replacement. Downstream code never
// infers currency from a null back-pointer scan.
package store

import (
	"context"
	"sync"
	"time"

	"paygate/internal/document/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
)

type currentKey struct {
	contractor domain.ContractorID
	docType    domain.DocumentType
}

type hashKey struct {
	contractor domain.ContractorID
	hash       string
}

// InMemory is the in-memory document store used by unit tests and local
// development. Safe for concurrent use.
type InMemory struct {
	mu      sync.RWMutex
	docs    map[domain.DocumentID]*models.ComplianceDocument
	current map[currentKey]domain.DocumentID
	hashes  map[hashKey]domain.DocumentID
}

// NewInMemory creates an empty in-memory document store.
func NewInMemory() *InMemory {
	return &InMemory{
		docs:    make(map[domain.DocumentID]*models.ComplianceDocument),
		current: make(map[currentKey]domain.DocumentID),
		hashes:  make(map[hashKey]domain.DocumentID),
	}
}

// CreateAndSupersede inserts doc and, if a current document of the same type
// exists for the contractor, supersedes it in the same critical section.
// The inserted document's version continues the chain. Returns the ID of the
// superseded document, if any.
func (s *InMemory) CreateAndSupersede(_ context.Context, doc *models.ComplianceDocument) (*domain.DocumentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return nil, sentinel.ErrConflict
	}

	key := currentKey{contractor: doc.ContractorID, docType: doc.Type}
	var superseded *domain.DocumentID
	doc.Version = 1
	if oldID, ok := s.current[key]; ok {
		old := s.docs[oldID]
		old.ApplySupersession(doc.ID, doc.CreatedAt)
		doc.Version = old.Version + 1
		superseded = &oldID
	}

	cp := *doc
	s.docs[doc.ID] = &cp
	s.current[key] = doc.ID
	s.hashes[hashKey{contractor: doc.ContractorID, hash: doc.FileHash}] = doc.ID
	return superseded, nil
}

// FindByID returns the document with the given ID.
func (s *InMemory) FindByID(_ context.Context, id domain.DocumentID) (*models.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

// FindByHash looks up a contractor's document by content hash, for duplicate
// upload detection.
func (s *InMemory) FindByHash(_ context.Context, contractorID domain.ContractorID, hash string) (*models.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.hashes[hashKey{contractor: contractorID, hash: hash}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.docs[id]
	return &cp, nil
}

// CurrentForContractor returns every current document for the contractor.
func (s *InMemory) CurrentForContractor(_ context.Context, contractorID domain.ContractorID) ([]models.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []models.ComplianceDocument
	for key, id := range s.current {
		if key.contractor == contractorID {
			docs = append(docs, *s.docs[id])
		}
	}
	return docs, nil
}

// CurrentExpiringOn returns current documents whose expiry date equals the
// given UTC calendar date. Used by the notification scheduler.
func (s *InMemory) CurrentExpiringOn(_ context.Context, date time.Time) ([]models.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []models.ComplianceDocument
	for _, id := range s.current {
		doc := s.docs[id]
		if sameDate(doc.ExpiryDate, date) {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// ListForReview returns current documents waiting on a manual decision.
func (s *InMemory) ListForReview(_ context.Context) ([]models.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []models.ComplianceDocument
	for _, id := range s.current {
		doc := s.docs[id]
		if doc.Status == models.StatusPendingReview || doc.Status == models.StatusFraudSuspected {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// Execute atomically validates and mutates a document while holding the
// store lock, mirroring the FOR UPDATE discipline of the Postgres store.
func (s *InMemory) Execute(_ context.Context, id domain.DocumentID, validate func(*models.ComplianceDocument) error, mutate func(*models.ComplianceDocument)) (*models.ComplianceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)
	cp := *doc
	return &cp, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
