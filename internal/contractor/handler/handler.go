package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/contractor/aggregate"
	"paygate/internal/contractor/models"
	"paygate/internal/contractor/service"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// Service defines the contractor operations the handler needs.
type Service interface {
	Onboard(ctx context.Context, in service.OnboardInput) (*models.Contractor, error)
	Get(ctx context.Context, id domain.ContractorID) (*models.Contractor, error)
	ComplianceSummary(ctx context.Context, id domain.ContractorID) (*service.ComplianceSummary, error)
	Suspend(ctx context.Context, id domain.ContractorID, status models.VerificationStatus, reason string) (*models.Contractor, error)
	Reinstate(ctx context.Context, id domain.ContractorID) (*models.Contractor, error)
	Recompute(ctx context.Context, id domain.ContractorID) (aggregate.Result, error)
	Delete(ctx context.Context, id domain.ContractorID) error
}

// Handler wires contractor endpoints to the contractor service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contractor handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts contractor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contractors", h.HandleOnboard)
	r.Get("/contractors/{id}", h.HandleGet)
	r.Delete("/contractors/{id}", h.HandleDelete)
	r.Post("/contractors/{id}/suspend", h.HandleSuspend)
	r.Post("/contractors/{id}/reinstate", h.HandleReinstate)
	r.Post("/contractors/{id}/recompute", h.HandleRecompute)
}

// HandleOnboard handles POST /contractors.
func (h *Handler) HandleOnboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[OnboardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Onboard(ctx, service.OnboardInput{
		CompanyName:   req.CompanyName,
		CompanyNumber: req.CompanyNumber,
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		HasEmployees:  req.HasEmployees,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "contractor onboarding failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromContractor(c))
}

// HandleGet handles GET /contractors/{id}. The response includes the
// compliance summary so callers get the payment gate and its reasons in
// one round trip.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractorID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.ComplianceSummary(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ContractorDetailResponse{
		ContractorResponse: *FromContractor(c),
		Compliance:         summary,
	})
}

// HandleDelete handles DELETE /contractors/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractorID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSuspend handles POST /contractors/{id}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.contractorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Suspend(ctx, id, req.ParsedStatus(), req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "contractor suspension failed",
			"request_id", requestID,
			"contractor_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contractor suspended",
		"request_id", requestID,
		"contractor_id", id,
		"status", c.VerificationStatus,
	)
	httputil.WriteJSON(w, http.StatusOK, FromContractor(c))
}

// HandleReinstate handles POST /contractors/{id}/reinstate.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractorID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Reinstate(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContractor(c))
}

// HandleRecompute handles POST /contractors/{id}/recompute. It forces a
// derivation outside the usual triggers, mainly for support tooling.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.contractorID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Recompute(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContractor(c))
}

func (h *Handler) contractorID(w http.ResponseWriter, r *http.Request) (domain.ContractorID, bool) {
	id, err := domain.ParseContractorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid contractor id"))
		return domain.ContractorID{}, false
	}
	return id, true
}
