package submission

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mandala-erp/mandala-erp/internal/collection"
	"github.com/mandala-erp/mandala-erp/jobs"
)

// RepositoryPort defines data access methods for receipts.
type RepositoryPort interface {
	CreateReceipt(ctx context.Context, input CreateReceiptInput) (*Receipt, error)
	GetReceiptWithLines(ctx context.Context, id int64) (*Receipt, []ReceiptLine, error)
	MarkDispatched(ctx context.Context, id int64) error
	ListUndispatched(ctx context.Context, olderThan time.Duration) ([]int64, error)
}

// Enqueuer hands dispatch tasks to the job queue.
type Enqueuer interface {
	EnqueueReceiptDispatch(ctx context.Context, payload jobs.ReceiptDispatchPayload) (*asynq.TaskInfo, error)
}

// Service persists payment batches as PPI receipts and schedules their
// upstream dispatch.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	enqueuer Enqueuer
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, enqueuer Enqueuer) *Service {
	return &Service{logger: logger, repo: repo, enqueuer: enqueuer}
}

// SubmitBatch stores a validated payment batch and, for submitted batches,
// enqueues its upstream dispatch. Draft batches are stored only.
//
// A failed enqueue does not fail the submit: the receipt is durable and the
// periodic sweep re-enqueues it.
func (s *Service) SubmitBatch(ctx context.Context, batch *collection.PaymentBatch, archiveRef string) (string, error) {
	input, err := receiptInputFromBatch(batch, archiveRef)
	if err != nil {
		return "", err
	}

	receipt, err := s.repo.CreateReceipt(ctx, input)
	if err != nil {
		return "", err
	}

	if receipt.Status == ReceiptStatusSubmitted {
		if _, err := s.enqueuer.EnqueueReceiptDispatch(ctx, jobs.ReceiptDispatchPayload{ReceiptID: receipt.ID}); err != nil {
			s.logger.Warn("enqueue receipt dispatch",
				slog.Any("error", err),
				slog.Int64("receipt_id", receipt.ID),
				slog.String("number", receipt.Number))
		}
	}

	s.logger.Info("ppi receipt stored",
		slog.String("number", receipt.Number),
		slog.Int64("customer_id", receipt.CustomerID),
		slog.String("grand_total", receipt.GrandTotal.String()),
		slog.String("status", string(receipt.Status)))

	return receipt.Number, nil
}

func receiptInputFromBatch(batch *collection.PaymentBatch, archiveRef string) (CreateReceiptInput, error) {
	customerID, err := strconv.ParseInt(batch.CustomerID, 10, 64)
	if err != nil {
		return CreateReceiptInput{}, fmt.Errorf("submission: customer id %q: %w", batch.CustomerID, err)
	}

	status := ReceiptStatusSubmitted
	if batch.Status == collection.BatchStatusDraft {
		status = ReceiptStatusDraft
	}

	input := CreateReceiptInput{
		CustomerID:    customerID,
		CustomerName:  batch.CustomerName,
		Method:        string(batch.PaymentMethod.Method),
		GiroNumber:    batch.PaymentMethod.GiroNumber,
		TotalAmount:   batch.TotalAllocatedAmount,
		TotalDiscount: batch.TotalAllocatedDiscount,
		GrandTotal:    batch.GrandTotal,
		PhotoCount:    batch.EvidencePhotoCount,
		ArchiveRef:    archiveRef,
		Status:        status,
	}

	if batch.PaymentMethod.BankAccountID != "" {
		bankAccountID, err := strconv.ParseInt(batch.PaymentMethod.BankAccountID, 10, 64)
		if err != nil {
			return CreateReceiptInput{}, fmt.Errorf("submission: bank account id %q: %w", batch.PaymentMethod.BankAccountID, err)
		}
		input.BankAccountID = &bankAccountID
	}
	if batch.PaymentMethod.GiroDueDate != "" {
		dueDate, err := time.Parse("2006-01-02", batch.PaymentMethod.GiroDueDate)
		if err != nil {
			return CreateReceiptInput{}, fmt.Errorf("submission: giro due date %q: %w", batch.PaymentMethod.GiroDueDate, err)
		}
		input.GiroDueDate = &dueDate
	}

	for _, item := range batch.LineItems {
		invoiceID, err := strconv.ParseInt(item.InvoiceID, 10, 64)
		if err != nil {
			return CreateReceiptInput{}, fmt.Errorf("submission: invoice id %q: %w", item.InvoiceID, err)
		}
		input.Lines = append(input.Lines, CreateReceiptLineInput{
			InvoiceID:         invoiceID,
			InvoiceNumber:     item.InvoiceNumber,
			InvoiceDate:       item.InvoiceDate,
			AllocatedAmount:   item.AllocatedAmount,
			AllocatedDiscount: item.AllocatedDiscount,
		})
	}

	return input, nil
}
