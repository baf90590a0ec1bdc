package collection

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mandala-erp/mandala-erp/internal/observability"
	"github.com/mandala-erp/mandala-erp/internal/platform/httpx"
	"github.com/mandala-erp/mandala-erp/internal/shared"
)

// Handler exposes the collection wizard as a JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// MountRoutes registers collection wizard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.startSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Post("/invoices/{invoiceID}/toggle", h.toggleInvoice)
		r.Put("/invoices/{invoiceID}/allocation", h.setAllocation)
		r.Put("/payment-method", h.setPaymentMethod)
		r.Put("/evidence", h.setEvidence)
		r.Post("/submit", h.submit)
	})
}

type startSessionRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	view, err := h.service.StartSession(r.Context(), req.CustomerID)
	if err != nil {
		h.logger.Error("start collection session", slog.Any("error", err), slog.String("customer_id", req.CustomerID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) toggleInvoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	invoiceID := chi.URLParam(r, "invoiceID")

	view, err := h.service.ToggleInvoice(r.Context(), sessionID, invoiceID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type allocationRequest struct {
	Field string          `json:"field" validate:"required,oneof=amount discount"`
	Value decimal.Decimal `json:"value"`
}

func (h *Handler) setAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	invoiceID := chi.URLParam(r, "invoiceID")

	view, err := h.service.SetAllocation(r.Context(), sessionID, invoiceID, AllocationField(req.Field), req.Value)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type paymentMethodRequest struct {
	Method        string `json:"method" validate:"required,oneof=CASH TRANSFER GIRO"`
	BankAccountID string `json:"bank_account_id"`
	GiroNumber    string `json:"giro_number"`
	GiroDueDate   string `json:"giro_due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) setPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	view, err := h.service.SetPaymentMethod(r.Context(), chi.URLParam(r, "sessionID"), PaymentMethodInfo{
		Method:        PaymentMethod(req.Method),
		BankAccountID: req.BankAccountID,
		GiroNumber:    req.GiroNumber,
		GiroDueDate:   req.GiroDueDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type evidenceRequest struct {
	PhotoCount int    `json:"photo_count" validate:"gte=0"`
	ArchiveRef string `json:"archive_ref"`
}

func (h *Handler) setEvidence(w http.ResponseWriter, r *http.Request) {
	var req evidenceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	view, err := h.service.SetEvidence(r.Context(), chi.URLParam(r, "sessionID"), req.PhotoCount, req.ArchiveRef)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type submitRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	result, err := h.service.Submit(r.Context(), sessionID, BatchStatus(req.Status))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.metrics.RecordBatchRejected(string(verr.Rule))
		} else {
			h.logger.Error("submit payment batch", slog.Any("error", err), slog.String("session_id", sessionID))
		}
		h.respondError(w, err)
		return
	}

	h.metrics.RecordBatchSubmitted(string(result.Batch.Status))
	httpx.JSON(w, http.StatusCreated, result)
}

// respondError translates collection errors into problem responses. A batch
// validation failure carries its rule code in the problem type so clients can
// surface the matching message.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ProblemDetail{
			Type:   string(verr.Rule),
			Title:  "Batch Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: verr.Message(),
		})
	case errors.Is(err, ErrSessionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "collection session not found or expired")
	case errors.Is(err, ErrInvalidInvoiceReference):
		httpx.Problem(w, http.StatusConflict, "Invalid Invoice Reference", "invoice is not available or not selected in this session")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrUnknownField):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Submit", "this session is already being submitted")
	default:
		httpx.RespondError(w, err)
	}
}
