package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mandala-erp/mandala-erp/internal/jobs"
	"github.com/mandala-erp/mandala-erp/jobs"
)

// dispatchEnvelope is the JSON body posted to the upstream finance endpoint.
type dispatchEnvelope struct {
	Receipt *Receipt      `json:"receipt"`
	Lines   []ReceiptLine `json:"lines"`
}

// Dispatcher forwards stored receipts to the upstream endpoint. Runs inside
// the Asynq worker; transient upstream failures surface as task errors so
// Asynq retries them.
type Dispatcher struct {
	logger      *slog.Logger
	repo        RepositoryPort
	enqueuer    Enqueuer
	httpClient  *http.Client
	upstreamURL string
	sweepAge    time.Duration
	metrics     *jobmetrics.Metrics
}

// NewDispatcher builds a Dispatcher instance. Metrics may be nil.
func NewDispatcher(logger *slog.Logger, repo RepositoryPort, enqueuer Enqueuer, upstreamURL string, sweepAge time.Duration, metrics *jobmetrics.Metrics) *Dispatcher {
	if sweepAge <= 0 {
		sweepAge = 10 * time.Minute
	}
	return &Dispatcher{
		logger:      logger,
		repo:        repo,
		enqueuer:    enqueuer,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		upstreamURL: upstreamURL,
		sweepAge:    sweepAge,
		metrics:     metrics,
	}
}

// HandleDispatch processes TaskTypeReceiptDispatch tasks.
func (d *Dispatcher) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	tracker := d.metrics.Track("ppi_receipt_dispatch")
	return tracker.End(d.handleDispatch(ctx, t))
}

func (d *Dispatcher) handleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ReceiptDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	receipt, lines, err := d.repo.GetReceiptWithLines(ctx, payload.ReceiptID)
	if errors.Is(err, ErrNotFound) {
		d.logger.Warn("dispatch for missing receipt", slog.Int64("receipt_id", payload.ReceiptID))
		return asynq.SkipRetry
	}
	if err != nil {
		return err
	}
	if receipt.Status != ReceiptStatusSubmitted {
		// Already dispatched (duplicate delivery) or still a draft.
		return nil
	}

	if err := d.forward(ctx, receipt, lines); err != nil {
		return err
	}

	if err := d.repo.MarkDispatched(ctx, receipt.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	d.logger.Info("ppi receipt dispatched",
		slog.String("number", receipt.Number),
		slog.Int64("receipt_id", receipt.ID))
	return nil
}

// HandleSweep processes TaskTypeReceiptSweep tasks, re-enqueueing submitted
// receipts that never reached the upstream.
func (d *Dispatcher) HandleSweep(ctx context.Context, t *asynq.Task) error {
	tracker := d.metrics.Track("ppi_receipt_sweep")
	return tracker.End(d.handleSweep(ctx))
}

func (d *Dispatcher) handleSweep(ctx context.Context) error {
	ids, err := d.repo.ListUndispatched(ctx, d.sweepAge)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := d.enqueuer.EnqueueReceiptDispatch(ctx, jobs.ReceiptDispatchPayload{ReceiptID: id}); err != nil {
			d.logger.Warn("sweep re-enqueue", slog.Any("error", err), slog.Int64("receipt_id", id))
		}
	}
	if len(ids) > 0 {
		d.logger.Info("receipt sweep re-enqueued", slog.Int("count", len(ids)))
	}
	return nil
}

func (d *Dispatcher) forward(ctx context.Context, receipt *Receipt, lines []ReceiptLine) error {
	body, err := json.Marshal(dispatchEnvelope{Receipt: receipt, Lines: lines})
	if err != nil {
		return fmt.Errorf("submission: encode dispatch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.upstreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submission: build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", receipt.Number)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submission: dispatch %s: %w", receipt.Number, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submission: dispatch %s: upstream status %d: %s", receipt.Number, resp.StatusCode, snippet)
	}
	return nil
}
