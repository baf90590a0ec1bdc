package collection

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mandala-erp/mandala-erp/internal/shared"
)

type stubInvoiceSource struct {
	invoices []OutstandingInvoice
	err      error
}

func (s *stubInvoiceSource) ListOutstanding(ctx context.Context, customerID string) ([]OutstandingInvoice, error) {
	return s.invoices, s.err
}

type stubCustomerDirectory struct {
	customer Customer
	err      error
}

func (s *stubCustomerDirectory) LookupCustomer(ctx context.Context, customerID string) (Customer, error) {
	return s.customer, s.err
}

type stubSubmitter struct {
	batches []*PaymentBatch
	refs    []string
	number  string
	err     error
}

func (s *stubSubmitter) SubmitBatch(ctx context.Context, batch *PaymentBatch, archiveRef string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.batches = append(s.batches, batch)
	s.refs = append(s.refs, archiveRef)
	return s.number, nil
}

func newTestService(t *testing.T, invoices []OutstandingInvoice, submitter *stubSubmitter) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Hour)

	if submitter == nil {
		submitter = &stubSubmitter{number: "PPI-202608-0001"}
	}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewService(logger,
		store,
		&stubInvoiceSource{invoices: invoices},
		&stubCustomerDirectory{customer: Customer{ID: "42", Name: "Toko Sumber Rejeki"}},
		submitter,
		nil,
	)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestStartSessionLoadsLedger(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testInvoices(), nil)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	require.Equal(t, "42", view.Customer.ID)
	require.Equal(t, StageSelectingPaymentMethod, view.Stage)
	require.Len(t, view.Lines, 3)
	require.True(t, view.GrandTotal.IsZero())

	// The session is retrievable afterwards.
	again, err := svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, view.ID, again.ID)
}

func TestStartSessionCustomerLookupFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		NewSessionStore(client, time.Hour),
		&stubInvoiceSource{invoices: testInvoices()},
		&stubCustomerDirectory{err: errors.New("customer missing")},
		&stubSubmitter{},
		nil,
	)

	_, err := svc.StartSession(context.Background(), "42")
	require.Error(t, err)
	require.Contains(t, err.Error(), "customer missing")
}

func TestGetSessionUnknownID(t *testing.T) {
	svc := newTestService(t, testInvoices(), nil)

	_, err := svc.GetSession(context.Background(), "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWizardFlowAcrossRequests(t *testing.T) {
	ctx := context.Background()
	submitter := &stubSubmitter{number: "PPI-202608-0007"}
	svc := newTestService(t, testInvoices(), submitter)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	id := view.ID

	_, err = svc.SetPaymentMethod(ctx, id, PaymentMethodInfo{Method: MethodTransfer, BankAccountID: "7"})
	require.NoError(t, err)

	view, err = svc.ToggleInvoice(ctx, id, "102")
	require.NoError(t, err)
	require.Equal(t, StageSelectingInvoices, view.Stage)

	view, err = svc.SetAllocation(ctx, id, "102", FieldAmount, dec("150000"))
	require.NoError(t, err)
	require.True(t, dec("150000").Equal(view.GrandTotal))

	view, err = svc.SetEvidence(ctx, id, 2, "collections/42/photos.zip")
	require.NoError(t, err)
	require.Equal(t, StageAttachingEvidence, view.Stage)
	require.Equal(t, 2, view.PhotoCount)

	result, err := svc.Submit(ctx, id, BatchStatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, "PPI-202608-0007", result.ReceiptNumber)
	require.Len(t, submitter.batches, 1)
	require.Equal(t, "collections/42/photos.zip", submitter.refs[0])
	require.True(t, dec("150000").Equal(submitter.batches[0].GrandTotal))

	// Ledger is discarded after a successful hand-off.
	_, err = svc.GetSession(ctx, id)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitValidationFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testInvoices(), nil)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, view.ID, BatchStatusSubmitted)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, RuleNoInvoiceSelected, verr.Rule)

	// The rep can correct and retry against the same session.
	_, err = svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
}

func TestSubmitOverAllocationRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testInvoices(), nil)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	id := view.ID

	_, err = svc.ToggleInvoice(ctx, id, "101")
	require.NoError(t, err)
	_, err = svc.SetAllocation(ctx, id, "101", FieldAmount, dec("150000"))
	require.NoError(t, err)
	_, err = svc.SetEvidence(ctx, id, 1, "")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, id, BatchStatusSubmitted)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, RuleOverAllocation, verr.Rule)
	require.Equal(t, "101", verr.InvoiceID)
}

func TestSubmitterFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	submitter := &stubSubmitter{err: errors.New("upstream down")}
	svc := newTestService(t, testInvoices(), submitter)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	id := view.ID

	_, err = svc.ToggleInvoice(ctx, id, "101")
	require.NoError(t, err)
	_, err = svc.SetAllocation(ctx, id, "101", FieldAmount, dec("50000"))
	require.NoError(t, err)
	_, err = svc.SetEvidence(ctx, id, 1, "")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, id, BatchStatusSubmitted)
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream down")

	_, err = svc.GetSession(ctx, id)
	require.NoError(t, err)
}

func TestSetAllocationUnselectedInvoice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testInvoices(), nil)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)

	_, err = svc.SetAllocation(ctx, view.ID, "101", FieldAmount, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrInvalidInvoiceReference)
}

func TestSessionViewRemainingAfter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testInvoices(), nil)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	id := view.ID

	_, err = svc.ToggleInvoice(ctx, id, "101")
	require.NoError(t, err)
	view, err = svc.SetAllocation(ctx, id, "101", FieldAmount, dec("60000"))
	require.NoError(t, err)

	var line *InvoiceLine
	for i := range view.Lines {
		if view.Lines[i].Invoice.InvoiceID == "101" {
			line = &view.Lines[i]
		}
	}
	require.NotNil(t, line)
	require.True(t, line.Selected)
	require.NotNil(t, line.RemainingAfter)
	require.True(t, dec("40000").Equal(*line.RemainingAfter))
}

type fakeGuard struct {
	keys     map[string]bool
	released []string
}

func (g *fakeGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if g.keys == nil {
		g.keys = make(map[string]bool)
	}
	if g.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	g.keys[key] = true
	return nil
}

func (g *fakeGuard) Delete(ctx context.Context, key string) error {
	delete(g.keys, key)
	g.released = append(g.released, key)
	return nil
}

func TestSubmitGuardBlocksDuplicate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := &fakeGuard{}
	submitter := &stubSubmitter{err: errors.New("upstream down")}
	svc := NewService(slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		NewSessionStore(client, time.Hour),
		&stubInvoiceSource{invoices: testInvoices()},
		&stubCustomerDirectory{customer: Customer{ID: "42", Name: "Toko Sumber Rejeki"}},
		submitter,
		guard,
	)

	view, err := svc.StartSession(ctx, "42")
	require.NoError(t, err)
	id := view.ID

	_, err = svc.ToggleInvoice(ctx, id, "101")
	require.NoError(t, err)
	_, err = svc.SetAllocation(ctx, id, "101", FieldAmount, dec("50000"))
	require.NoError(t, err)
	_, err = svc.SetEvidence(ctx, id, 1, "")
	require.NoError(t, err)

	// A failed hand-off releases the key so the rep can retry.
	_, err = svc.Submit(ctx, id, BatchStatusSubmitted)
	require.Error(t, err)
	require.Equal(t, []string{id}, guard.released)

	// A racing duplicate holding the key is refused without touching the
	// submitter or the session.
	guard.keys[id] = true
	_, err = svc.Submit(ctx, id, BatchStatusSubmitted)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	_, err = svc.GetSession(ctx, id)
	require.NoError(t, err)

	// Once the key clears the submit goes through.
	delete(guard.keys, id)
	submitter.err = nil
	submitter.number = "PPI-202608-0009"
	result, err := svc.Submit(ctx, id, BatchStatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, "PPI-202608-0009", result.ReceiptNumber)
}
