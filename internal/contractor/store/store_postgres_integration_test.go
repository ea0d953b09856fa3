//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"paygate/internal/contractor/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/testutil/containers"
)

type ContractorPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Postgres
	ctx      context.Context
	now      time.Time
}

func TestContractorPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ContractorPostgresSuite))
}

func (s *ContractorPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func (s *ContractorPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx))
}

func (s *ContractorPostgresSuite) newContractor(name string) *models.Contractor {
	c, err := models.NewContractor(
		domain.NewContractorID(), name, "12345678", "Sam Leach",
		"ops@"+name+".example", "+447700900001", true, s.now,
	)
	s.Require().NoError(err)
	return c
}

func (s *ContractorPostgresSuite) TestCreateAndFindRoundTrip() {
	c := s.newContractor("acme")
	s.Require().NoError(s.store.Create(s.ctx, c))

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.Equal("acme", found.CompanyName)
	s.Equal("12345678", found.CompanyNumber)
	s.Equal("ops@acme.example", found.ContactEmail)
	s.True(found.HasEmployees)
	s.Equal(models.VerificationUnverified, found.VerificationStatus)
	s.Equal(models.PaymentBlocked, found.PaymentStatus)
	s.Nil(found.Override)
	s.Nil(found.LastVerifiedAt)
	s.Nil(found.DeletedAt)
	s.True(found.Active)

	s.Run("duplicate id is rejected", func() {
		s.Require().ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrAlreadyExists)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, domain.NewContractorID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ContractorPostgresSuite) TestOverrideRoundTrip() {
	c := s.newContractor("acme")
	s.Require().NoError(s.store.Create(s.ctx, c))

	_, err := s.store.Execute(s.ctx, c.ID, nil, func(_ context.Context, c *models.Contractor) {
		c.ApplySuspension(models.VerificationSuspended, "documents under investigation", "admin", s.now)
	})
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.Override)
	s.Equal(models.VerificationSuspended, found.Override.Status)
	s.Equal("documents under investigation", found.Override.Reason)
	s.Equal("admin", found.Override.SetBy)
	s.True(found.Override.SetAt.Equal(s.now))
}

func (s *ContractorPostgresSuite) TestListActiveExcludesDeleted() {
	a := s.newContractor("acme")
	b := s.newContractor("birch")
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	_, err := s.store.Execute(s.ctx, b.ID, nil, func(_ context.Context, c *models.Contractor) {
		c.SoftDelete(s.now)
	})
	s.Require().NoError(err)

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(a.ID, active[0].ID)
}

func (s *ContractorPostgresSuite) TestExecuteRollsBackOnValidateFailure() {
	c := s.newContractor("acme")
	s.Require().NoError(s.store.Create(s.ctx, c))

	_, err := s.store.Execute(s.ctx, c.ID,
		func(_ context.Context, c *models.Contractor) error { return sentinel.ErrInvalidState },
		func(_ context.Context, c *models.Contractor) {
			c.ApplyAggregate(models.VerificationVerified, models.PaymentAllowed, 5, s.now)
		},
	)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.VerificationUnverified, found.VerificationStatus)
	s.Equal(models.PaymentBlocked, found.PaymentStatus)

	s.Run("unknown id is not found", func() {
		_, err := s.store.Execute(s.ctx, domain.NewContractorID(), nil, func(context.Context, *models.Contractor) {})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCallbackContextJoinsTransaction verifies that store calls made with
// the context handed to Execute's callbacks run inside the same transaction
// and roll back together with the surrounding update.
func (s *ContractorPostgresSuite) TestCallbackContextJoinsTransaction() {
	c := s.newContractor("acme")
	s.Require().NoError(s.store.Create(s.ctx, c))

	other := s.newContractor("birch")
	_, err := s.store.Execute(s.ctx, c.ID,
		func(txCtx context.Context, _ *models.Contractor) error {
			if err := s.store.Create(txCtx, other); err != nil {
				return err
			}
			return sentinel.ErrInvalidState
		},
		func(context.Context, *models.Contractor) {},
	)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.FindByID(s.ctx, other.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentExecuteSerializes verifies that the row lock serializes
// read-modify-write cycles so no update is lost.
func (s *ContractorPostgresSuite) TestConcurrentExecuteSerializes() {
	c := s.newContractor("acme")
	s.Require().NoError(s.store.Create(s.ctx, c))

	before, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)

	const goroutines = 20
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, c.ID, nil, func(_ context.Context, c *models.Contractor) {
				c.RiskScore++
				c.UpdatedAt = time.Now()
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())

	after, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(before.RiskScore+goroutines, after.RiskScore)
}
