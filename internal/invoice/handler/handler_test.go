package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"paygate/internal/audit"
	cmodels "paygate/internal/contractor/models"
	"paygate/internal/invoice/service"
	"paygate/internal/invoice/store"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/testutil"
)

type fixedCompliance struct {
	payment map[domain.ContractorID]cmodels.PaymentStatus
	defects map[domain.ContractorID][]string
}

func (f *fixedCompliance) PaymentState(_ context.Context, id domain.ContractorID) (cmodels.PaymentStatus, []string, error) {
	p, ok := f.payment[id]
	if !ok {
		return "", nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
	}
	return p, f.defects[id], nil
}

func newInvoiceRouter(t *testing.T) (chi.Router, domain.ContractorID, domain.ContractorID) {
	t.Helper()
	allowed := domain.NewContractorID()
	blocked := domain.NewContractorID()
	compliance := &fixedCompliance{
		payment: map[domain.ContractorID]cmodels.PaymentStatus{
			allowed: cmodels.PaymentAllowed,
			blocked: cmodels.PaymentBlocked,
		},
		defects: map[domain.ContractorID][]string{
			blocked: {"employers_liability document missing"},
		},
	}
	svc := service.New(store.NewInMemory(), compliance, audit.NewPublisher(), nil, testutil.DiscardLogger())
	r := chi.NewRouter()
	New(svc, testutil.DiscardLogger()).Register(r)
	return r, allowed, blocked
}

func invoicePayload(contractorID domain.ContractorID) map[string]any {
	return map[string]any{
		"contractor_id": contractorID.String(),
		"amount":        "4200.00",
		"due_date":      time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339),
	}
}

func createInvoice(t *testing.T, router chi.Router, contractorID domain.ContractorID) *InvoiceResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/invoices", invoicePayload(contractorID))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[InvoiceResponse](t, rr)
}

func TestCreateInvoice(t *testing.T) {
	router, allowed, _ := newInvoiceRouter(t)

	resp := createInvoice(t, router, allowed)
	require.Equal(t, "pending", resp.Status)
	require.Equal(t, "4200", resp.Amount.String())
	require.NotNil(t, resp.ComplianceCheckedAt)
	require.Empty(t, resp.BlockReason)
}

func TestCreateInvoiceValidation(t *testing.T) {
	router, allowed, _ := newInvoiceRouter(t)

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		errCode string
	}{
		{
			name:    "missing contractor id",
			mutate:  func(p map[string]any) { delete(p, "contractor_id") },
			errCode: string(dErrors.CodeValidation),
		},
		{
			name:    "zero amount",
			mutate:  func(p map[string]any) { p["amount"] = "0" },
			errCode: string(dErrors.CodeValidation),
		},
		{
			name:    "missing due date",
			mutate:  func(p map[string]any) { delete(p, "due_date") },
			errCode: string(dErrors.CodeValidation),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := invoicePayload(allowed)
			tc.mutate(payload)
			req := testutil.NewJSONRequest(t, http.MethodPost, "/invoices", payload)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, tc.errCode)
		})
	}
}

func TestGateEndpoint(t *testing.T) {
	router, allowed, blocked := newInvoiceRouter(t)

	open := createInvoice(t, router, allowed)
	req := testutil.NewRequest(t, http.MethodGet, "/invoices/"+open.ID+"/gate")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	decision := testutil.UnmarshalResponse[GateResponse](t, rr)
	require.True(t, decision.CanPay)

	shut := createInvoice(t, router, blocked)
	req = testutil.NewRequest(t, http.MethodGet, "/invoices/"+shut.ID+"/gate")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	decision = testutil.UnmarshalResponse[GateResponse](t, rr)
	require.False(t, decision.CanPay)
	require.Equal(t, "employers_liability document missing", decision.BlockReason)
}

func TestPayInvoice(t *testing.T) {
	router, allowed, blocked := newInvoiceRouter(t)

	t.Run("allowed contractor", func(t *testing.T) {
		inv := createInvoice(t, router, allowed)
		req := testutil.NewRequest(t, http.MethodPost, "/invoices/"+inv.ID+"/pay")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		paid := testutil.UnmarshalResponse[InvoiceResponse](t, rr)
		require.Equal(t, "paid", paid.Status)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/invoices/"+inv.ID+"/pay"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	t.Run("blocked contractor", func(t *testing.T) {
		inv := createInvoice(t, router, blocked)
		req := testutil.NewRequest(t, http.MethodPost, "/invoices/"+inv.ID+"/pay")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeInvariantViolation))
	})
}

func TestCancelInvoice(t *testing.T) {
	router, allowed, _ := newInvoiceRouter(t)

	inv := createInvoice(t, router, allowed)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/invoices/"+inv.ID+"/cancel"))
	testutil.AssertStatusOK(t, rr)
	cancelled := testutil.UnmarshalResponse[InvoiceResponse](t, rr)
	require.Equal(t, "cancelled", cancelled.Status)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/invoices/"+inv.ID+"/cancel"))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
}

func TestListInvoices(t *testing.T) {
	router, allowed, blocked := newInvoiceRouter(t)

	createInvoice(t, router, allowed)
	createInvoice(t, router, allowed)
	createInvoice(t, router, blocked)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/contractors/"+allowed.String()+"/invoices"))
	testutil.AssertStatusOK(t, rr)
	list := testutil.UnmarshalResponse[InvoiceListResponse](t, rr)
	require.Len(t, list.Invoices, 2)
}

func TestInvoiceNotFound(t *testing.T) {
	router, _, _ := newInvoiceRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/invoices/"+domain.NewInvoiceID().String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/invoices/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}
