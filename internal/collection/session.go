package collection

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage tracks where the collection wizard currently is. Transitions are
// driven by explicit rep actions; the stage is informational and does not
// gate ledger edits.
type Stage string

const (
	StageSelectingCustomer      Stage = "SELECTING_CUSTOMER"
	StageSelectingPaymentMethod Stage = "SELECTING_PAYMENT_METHOD"
	StageSelectingInvoices      Stage = "SELECTING_INVOICES"
	StageAttachingEvidence      Stage = "ATTACHING_EVIDENCE"
	StageSubmitting             Stage = "SUBMITTING"
)

// Session is one rep's in-progress collection wizard for one customer. It is
// discarded once a payment batch is successfully handed off; nothing here
// survives past the visit.
type Session struct {
	ID         string            `json:"id"`
	Customer   Customer          `json:"customer"`
	Stage      Stage             `json:"stage"`
	Ledger     LedgerState       `json:"ledger"`
	Method     PaymentMethodInfo `json:"method"`
	PhotoCount int               `json:"photo_count"`
	ArchiveRef string            `json:"archive_ref,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// InvoiceLine is one available invoice as presented to the wizard, with the
// current allocation (if selected) and the derived remaining balance.
type InvoiceLine struct {
	Invoice        OutstandingInvoice `json:"invoice"`
	Selected       bool               `json:"selected"`
	Entry          *AllocationEntry   `json:"entry,omitempty"`
	RemainingAfter *decimal.Decimal   `json:"remaining_after,omitempty"`
}

// SessionView is the full wizard snapshot returned to clients: session state
// plus recomputed totals.
type SessionView struct {
	Session
	Lines                  []InvoiceLine   `json:"lines"`
	TotalAllocatedAmount   decimal.Decimal `json:"total_allocated_amount"`
	TotalAllocatedDiscount decimal.Decimal `json:"total_allocated_discount"`
	GrandTotal             decimal.Decimal `json:"grand_total"`
}

// NewSessionView derives the client snapshot from a session.
func NewSessionView(sess *Session) *SessionView {
	ledger := LedgerFromState(sess.Ledger)
	entries := ledger.SelectedEntries()

	byID := make(map[string]AllocationEntry, len(entries))
	for _, e := range entries {
		byID[e.InvoiceID] = e
	}

	lines := make([]InvoiceLine, 0, len(sess.Ledger.Available))
	for _, inv := range ledger.AvailableInvoices() {
		line := InvoiceLine{Invoice: inv, Selected: ledger.IsSelected(inv.InvoiceID)}
		if entry, ok := byID[inv.InvoiceID]; ok {
			remaining := RemainingAfterAllocation(inv, entry)
			line.Entry = &entry
			line.RemainingAfter = &remaining
		}
		lines = append(lines, line)
	}

	return &SessionView{
		Session:                *sess,
		Lines:                  lines,
		TotalAllocatedAmount:   TotalAllocatedAmount(entries),
		TotalAllocatedDiscount: TotalAllocatedDiscount(entries),
		GrandTotal:             GrandTotal(entries),
	}
}
