package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mandala-erp/mandala-erp/internal/platform/httpx"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{customerID}/outstanding", h.listOutstanding)
	r.Get("/aging", h.showAging)
}

func (h *Handler) listOutstanding(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer ID")
		return
	}

	out, err := h.service.ListOutstanding(r.Context(), customerID, time.Now())
	if err != nil {
		h.logger.Error("list outstanding invoices", slog.Any("error", err), slog.Int64("customer_id", customerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) showAging(w http.ResponseWriter, r *http.Request) {
	bucket, err := h.service.CalculateAging(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("calculate aging", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"aging": bucket,
		"total": bucket.TotalOutstanding(),
	})
}
