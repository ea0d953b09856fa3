package verifylink

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	contractorservice "paygate/internal/contractor/service"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// SummarySource resolves the aggregate a share link exposes.
type SummarySource interface {
	ComplianceSummary(ctx context.Context, id domain.ContractorID) (*contractorservice.ComplianceSummary, error)
}

// Handler exposes share link issuance and the public lookup.
type Handler struct {
	signer    *Signer
	summaries SummarySource
	logger    *slog.Logger
}

func NewHandler(signer *Signer, summaries SummarySource, logger *slog.Logger) *Handler {
	return &Handler{signer: signer, summaries: summaries, logger: logger}
}

// Register mounts the share link endpoints. GET /verify/{token} is public
// by design; the token is the authorization.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify-links", h.HandleIssue)
	r.Get("/verify/{token}", h.HandleResolve)
}

// IssueRequest asks for a share link to one contractor.
type IssueRequest struct {
	ContractorID string `json:"contractor_id"`

	parsedContractorID domain.ContractorID
}

func (r *IssueRequest) Validate() error {
	r.ContractorID = strings.TrimSpace(r.ContractorID)
	contractorID, err := domain.ParseContractorID(r.ContractorID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "contractor_id must be a valid UUID")
	}
	r.parsedContractorID = contractorID
	return nil
}

// IssueResponse carries the signed token and its expiry.
type IssueResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationResponse is the public view of a contractor's compliance.
// Document details stay internal; only type-level standing is shared.
type VerificationResponse struct {
	CompanyName        string     `json:"company_name"`
	VerificationStatus string     `json:"verification_status"`
	PaymentStatus      string     `json:"payment_status"`
	RiskScore          int        `json:"risk_score"`
	LastVerifiedAt     *time.Time `json:"last_verified_at,omitempty"`
	CheckedAt          time.Time  `json:"checked_at"`
}

// HandleIssue handles POST /verify-links.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// Issuing for an unknown contractor would mint a token that can never
	// resolve; reject it up front.
	if _, err := h.summaries.ComplianceSummary(ctx, req.parsedContractorID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.signer.Issue(req.parsedContractorID, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "share link issue failed",
			"request_id", requestID,
			"contractor_id", req.ContractorID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sign share link"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &IssueResponse{Token: token, ExpiresAt: expiresAt})
}

// HandleResolve handles GET /verify/{token}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractorID, err := h.signer.Resolve(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.summaries.ComplianceSummary(ctx, contractorID)
	if err != nil {
		// The contractor may have been deleted since issuance.
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &VerificationResponse{
		CompanyName:        summary.CompanyName,
		VerificationStatus: summary.VerificationStatus,
		PaymentStatus:      summary.PaymentStatus,
		RiskScore:          summary.RiskScore,
		LastVerifiedAt:     summary.LastVerifiedAt,
		CheckedAt:          summary.ComputedAt,
	})
}
