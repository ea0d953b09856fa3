// Package handler exposes invoice and payment-gate endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/invoice/gate"
	"paygate/internal/invoice/models"
	"paygate/internal/invoice/service"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// Service defines the invoice operations the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Invoice, error)
	Get(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error)
	ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error)
	GateDecision(ctx context.Context, id domain.InvoiceID) (gate.Decision, error)
	MarkPaid(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error)
	Cancel(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error)
}

// Handler wires invoice endpoints to the invoice service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an invoice handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts invoice endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/invoices", h.HandleCreate)
	r.Get("/invoices/{id}", h.HandleGet)
	r.Get("/invoices/{id}/gate", h.HandleGate)
	r.Post("/invoices/{id}/pay", h.HandlePay)
	r.Post("/invoices/{id}/cancel", h.HandleCancel)
	r.Get("/contractors/{contractorID}/invoices", h.HandleList)
}

// HandleCreate handles POST /invoices.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inv, err := h.service.Create(ctx, service.CreateInput{
		ContractorID: req.ParsedContractorID(),
		Amount:       req.Amount,
		DueDate:      *req.DueDate,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "invoice creation failed",
			"request_id", requestID,
			"contractor_id", req.ContractorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromInvoice(inv))
}

// HandleGet handles GET /invoices/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInvoice(inv))
}

// HandleGate handles GET /invoices/{id}/gate. The decision reflects the
// contractor's compliance at the moment of the call and persists nothing.
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	decision, err := h.service.GateDecision(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandlePay handles POST /invoices/{id}/pay.
func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.MarkPaid(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "invoice payment failed",
			"request_id", requestID,
			"invoice_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "invoice paid",
		"request_id", requestID,
		"invoice_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, FromInvoice(inv))
}

// HandleCancel handles POST /invoices/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Cancel(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInvoice(inv))
}

// HandleList handles GET /contractors/{contractorID}/invoices.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractorID, err := domain.ParseContractorID(chi.URLParam(r, "contractorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid contractor id"))
		return
	}

	list, err := h.service.ListForContractor(ctx, contractorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &InvoiceListResponse{Invoices: FromInvoices(list)})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (domain.InvoiceID, bool) {
	id, err := domain.ParseInvoiceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid invoice id"))
		return domain.InvoiceID{}, false
	}
	return id, true
}
