package verifylink

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"paygate/internal/audit"
	"paygate/internal/contractor/aggregate"
	contractorservice "paygate/internal/contractor/service"
	contractorstore "paygate/internal/contractor/store"
	docstore "paygate/internal/document/store"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/testutil"
)

func newVerifyRouter(t *testing.T, ttl time.Duration) (chi.Router, *Signer, domain.ContractorID) {
	t.Helper()
	contractors := contractorservice.New(
		contractorstore.NewInMemory(),
		docstore.NewInMemory(),
		aggregate.DefaultPolicy(),
		nil,
		audit.NewPublisher(),
		nil,
		testutil.DiscardLogger(),
	)
	c, err := contractors.Onboard(context.Background(), contractorservice.OnboardInput{
		CompanyName:  "Acme Electrical",
		ContactEmail: "ops@acme.example",
	})
	require.NoError(t, err)

	signer := NewSigner("test-signing-key", ttl)
	r := chi.NewRouter()
	NewHandler(signer, contractors, testutil.DiscardLogger()).Register(r)
	return r, signer, c.ID
}

func TestIssueAndResolve(t *testing.T) {
	router, _, contractorID := newVerifyRouter(t, time.Hour)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/verify-links", map[string]any{
		"contractor_id": contractorID.String(),
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	issued := testutil.UnmarshalResponse[IssueResponse](t, rr)
	require.NotEmpty(t, issued.Token)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/"+issued.Token))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[VerificationResponse](t, rr)
	require.Equal(t, "Acme Electrical", resp.CompanyName)
	require.Equal(t, "unverified", resp.VerificationStatus)
	require.Equal(t, "blocked", resp.PaymentStatus)
}

func TestIssueValidation(t *testing.T) {
	router, _, _ := newVerifyRouter(t, time.Hour)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/verify-links", map[string]any{
		"contractor_id": "not-a-uuid",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))

	req = testutil.NewJSONRequest(t, http.MethodPost, "/verify-links", map[string]any{
		"contractor_id": domain.NewContractorID().String(),
	})
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func TestResolveRejectsBadTokens(t *testing.T) {
	router, _, contractorID := newVerifyRouter(t, time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/garbage"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewSigner("another-key", time.Hour)
		token, _, err := other.Issue(contractorID, time.Now())
		require.NoError(t, err)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/"+token))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		_, signer, contractorID := newVerifyRouter(t, time.Hour)
		token, _, err := signer.Issue(contractorID, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)

		_, err = signer.Resolve(token)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("round-trip-key", time.Hour)
	contractorID := domain.NewContractorID()

	token, expiresAt, err := signer.Issue(contractorID, time.Now())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	resolved, err := signer.Resolve(token)
	require.NoError(t, err)
	require.Equal(t, contractorID, resolved)
}
