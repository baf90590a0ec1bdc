package collection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// InvoiceSource supplies a customer's outstanding invoices.
type InvoiceSource interface {
	ListOutstanding(ctx context.Context, customerID string) ([]OutstandingInvoice, error)
}

// CustomerDirectory resolves customer identities.
type CustomerDirectory interface {
	LookupCustomer(ctx context.Context, customerID string) (Customer, error)
}

// BatchSubmitter accepts a validated payment batch for persistence and
// onward dispatch. The returned receipt number is echoed back to the rep.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, batch *PaymentBatch, archiveRef string) (receiptNumber string, err error)
}

// SubmitGuard fences a session against concurrent or repeated submits.
type SubmitGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SubmitResult reports a successful batch hand-off.
type SubmitResult struct {
	ReceiptNumber string        `json:"receipt_number"`
	Batch         *PaymentBatch `json:"batch"`
}

// Service coordinates wizard sessions: one ledger per session, edited from
// wizard actions, culminating in a payment batch handed to the submitter.
type Service struct {
	logger    *slog.Logger
	store     *SessionStore
	invoices  InvoiceSource
	customers CustomerDirectory
	submitter BatchSubmitter
	guard     SubmitGuard
}

// NewService builds a Service instance. The guard may be nil, in which case
// duplicate submits are only caught by the session disappearing on success.
func NewService(logger *slog.Logger, store *SessionStore, invoices InvoiceSource, customers CustomerDirectory, submitter BatchSubmitter, guard SubmitGuard) *Service {
	return &Service{logger: logger, store: store, invoices: invoices, customers: customers, submitter: submitter, guard: guard}
}

// StartSession opens a wizard session for a customer, fetching the customer
// record and their outstanding invoices concurrently and loading the ledger.
func (s *Service) StartSession(ctx context.Context, customerID string) (*SessionView, error) {
	var (
		customer Customer
		invoices []OutstandingInvoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customer, err = s.customers.LookupCustomer(gctx, customerID)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.invoices.ListOutstanding(gctx, customerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collection: start session: %w", err)
	}

	ledger := NewLedger()
	ledger.LoadAvailableInvoices(invoices)

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		Customer:  customer,
		Stage:     StageSelectingPaymentMethod,
		Ledger:    ledger.State(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("collection session started",
		slog.String("session_id", sess.ID),
		slog.String("customer_id", customer.ID),
		slog.Int("outstanding_invoices", len(invoices)))

	return NewSessionView(sess), nil
}

// GetSession returns the current wizard snapshot.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewSessionView(sess), nil
}

// ToggleInvoice selects or deselects an invoice in the session's ledger.
func (s *Service) ToggleInvoice(ctx context.Context, sessionID, invoiceID string) (*SessionView, error) {
	return s.mutateLedger(ctx, sessionID, func(ledger *Ledger) error {
		return ledger.ToggleInvoice(invoiceID)
	})
}

// SetAllocation updates one allocation field on a selected invoice.
func (s *Service) SetAllocation(ctx context.Context, sessionID, invoiceID string, field AllocationField, value decimal.Decimal) (*SessionView, error) {
	return s.mutateLedger(ctx, sessionID, func(ledger *Ledger) error {
		return ledger.SetAllocationField(invoiceID, field, value)
	})
}

// SetPaymentMethod records the settlement instrument for the session.
func (s *Service) SetPaymentMethod(ctx context.Context, sessionID string, method PaymentMethodInfo) (*SessionView, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Method = method
	sess.Stage = StageSelectingInvoices
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return NewSessionView(sess), nil
}

// SetEvidence records the evidence photo count and optional archive reference
// produced by the photo pipeline.
func (s *Service) SetEvidence(ctx context.Context, sessionID string, photoCount int, archiveRef string) (*SessionView, error) {
	if photoCount < 0 {
		return nil, ErrInvalidAmount
	}
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.PhotoCount = photoCount
	sess.ArchiveRef = archiveRef
	sess.Stage = StageAttachingEvidence
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return NewSessionView(sess), nil
}

// Submit builds the payment batch from the session and hands it to the
// submitter. On success the session is discarded; a validation failure leaves
// it untouched so the rep can correct and retry.
func (s *Service) Submit(ctx context.Context, sessionID string, status BatchStatus) (*SubmitResult, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = BatchStatusSubmitted
	}

	ledger := LedgerFromState(sess.Ledger)
	batch, err := BuildPaymentBatch(ledger, sess.Method, sess.PhotoCount, sess.Customer, status)
	if err != nil {
		return nil, err
	}

	if s.guard != nil {
		if err := s.guard.CheckAndInsert(ctx, sessionID, "collection"); err != nil {
			return nil, err
		}
	}

	number, err := s.submitter.SubmitBatch(ctx, batch, sess.ArchiveRef)
	if err != nil {
		if s.guard != nil {
			// Release the key so the rep can retry once the fault clears.
			_ = s.guard.Delete(ctx, sessionID)
		}
		return nil, fmt.Errorf("collection: submit batch: %w", err)
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("discard submitted session", slog.String("session_id", sessionID), slog.Any("error", err))
	}

	s.logger.Info("payment batch submitted",
		slog.String("session_id", sessionID),
		slog.String("receipt_number", number),
		slog.String("customer_id", batch.CustomerID),
		slog.String("grand_total", batch.GrandTotal.String()),
		slog.String("status", string(batch.Status)))

	return &SubmitResult{ReceiptNumber: number, Batch: batch}, nil
}

func (s *Service) mutateLedger(ctx context.Context, sessionID string, fn func(*Ledger) error) (*SessionView, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ledger := LedgerFromState(sess.Ledger)
	if err := fn(ledger); err != nil {
		return nil, err
	}
	sess.Ledger = ledger.State()
	sess.Stage = StageSelectingInvoices
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return NewSessionView(sess), nil
}
