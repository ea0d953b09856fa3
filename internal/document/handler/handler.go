package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/document/models"
	"paygate/internal/document/service"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// Service defines the document operations the handler needs.
type Service interface {
	Upload(ctx context.Context, in service.UploadInput) (*models.ComplianceDocument, error)
	Get(ctx context.Context, id domain.DocumentID) (*models.ComplianceDocument, error)
	ReviewQueue(ctx context.Context) ([]models.ComplianceDocument, error)
	Review(ctx context.Context, id domain.DocumentID, approve bool, reason string) (*models.ComplianceDocument, error)
}

// Handler wires document endpoints to the document service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a document handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.HandleUpload)
	r.Get("/documents/review", h.HandleReviewQueue)
	r.Get("/documents/{id}", h.HandleGet)
	r.Post("/documents/{id}/review", h.HandleReview)
}

// HandleUpload handles POST /documents. The response is the classification
// result for the stored document.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.Upload(ctx, service.UploadInput{
		ContractorID:   req.ParsedContractorID(),
		Type:           req.ParsedType(),
		ProviderName:   req.ProviderName,
		PolicyNumber:   req.PolicyNumber,
		CoverageAmount: req.CoverageAmount,
		StartDate:      req.StartDate,
		ExpiryDate:     *req.ExpiryDate,
		FileHash:       req.FileHash,
		Analysis:       req.ParsedAnalysis(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "document upload failed",
			"request_id", requestID,
			"contractor_id", req.ContractorID,
			"document_type", req.DocumentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleGet handles GET /documents/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleReviewQueue handles GET /documents/review.
func (h *Handler) HandleReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.service.ReviewQueue(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ReviewQueueResponse{Documents: FromDocuments(docs)})
}

// HandleReview handles POST /documents/{id}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.Review(ctx, id, req.Approved(), req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "document review failed",
			"request_id", requestID,
			"document_id", id,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document reviewed",
		"request_id", requestID,
		"document_id", id,
		"decision", req.Decision,
		"status", doc.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (domain.DocumentID, bool) {
	id, err := domain.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid document id"))
		return domain.DocumentID{}, false
	}
	return id, true
}
