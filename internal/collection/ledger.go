package collection

import (
	"github.com/shopspring/decimal"
)

// Ledger tracks which outstanding invoices are selected for payment and the
// raw allocation values entered against them. It owns no money math beyond
// storing entered values; see calculator.go for derived figures.
//
// A ledger belongs to exactly one collection session and is never shared.
type Ledger struct {
	available []OutstandingInvoice
	byID      map[string]int
	entries   []AllocationEntry
	selected  map[string]int
}

// LedgerState is the serializable snapshot of a Ledger, stored with the
// session between requests.
type LedgerState struct {
	Available []OutstandingInvoice `json:"available"`
	Entries   []AllocationEntry    `json:"entries"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	l := &Ledger{}
	l.reindex()
	return l
}

// LedgerFromState rebuilds a ledger from a stored snapshot. Entries that no
// longer reference an available invoice are dropped rather than resurrected.
func LedgerFromState(state LedgerState) *Ledger {
	l := &Ledger{available: state.Available}
	l.reindex()
	for _, e := range state.Entries {
		if _, ok := l.byID[e.InvoiceID]; !ok {
			continue
		}
		l.selected[e.InvoiceID] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	return l
}

// State returns the snapshot used for persistence.
func (l *Ledger) State() LedgerState {
	return LedgerState{
		Available: append([]OutstandingInvoice(nil), l.available...),
		Entries:   append([]AllocationEntry(nil), l.entries...),
	}
}

// LoadAvailableInvoices replaces the available invoice set and clears the
// selection in the same step: a fresh customer means a fresh selection, and
// no edit may observe a mixed state.
func (l *Ledger) LoadAvailableInvoices(invoices []OutstandingInvoice) {
	l.available = append([]OutstandingInvoice(nil), invoices...)
	l.entries = nil
	l.reindex()
}

// ToggleInvoice selects the invoice with a zero allocation, or deselects it,
// discarding any entered values. Re-selecting always starts from zero.
func (l *Ledger) ToggleInvoice(invoiceID string) error {
	if _, ok := l.byID[invoiceID]; !ok {
		return ErrInvalidInvoiceReference
	}
	pos, picked := l.selected[invoiceID]
	if !picked {
		l.selected[invoiceID] = len(l.entries)
		l.entries = append(l.entries, AllocationEntry{
			InvoiceID:         invoiceID,
			AllocatedAmount:   decimal.Zero,
			AllocatedDiscount: decimal.Zero,
		})
		return nil
	}
	l.entries = append(l.entries[:pos], l.entries[pos+1:]...)
	delete(l.selected, invoiceID)
	for id, p := range l.selected {
		if p > pos {
			l.selected[id] = p - 1
		}
	}
	return nil
}

// SetAllocationField updates one raw field of a selected invoice's entry.
// Negative values are rejected; an allocation exceeding the invoice's
// remaining balance is allowed here and caught at submission time, so the
// user can type intermediate values freely.
func (l *Ledger) SetAllocationField(invoiceID string, field AllocationField, value decimal.Decimal) error {
	pos, ok := l.selected[invoiceID]
	if !ok {
		return ErrInvalidInvoiceReference
	}
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	switch field {
	case FieldAmount:
		l.entries[pos].AllocatedAmount = value
	case FieldDiscount:
		l.entries[pos].AllocatedDiscount = value
	default:
		return ErrUnknownField
	}
	return nil
}

// SelectedEntries returns the current selection in toggle order.
func (l *Ledger) SelectedEntries() []AllocationEntry {
	return append([]AllocationEntry(nil), l.entries...)
}

// AvailableInvoices returns the invoices loaded for the session.
func (l *Ledger) AvailableInvoices() []OutstandingInvoice {
	return append([]OutstandingInvoice(nil), l.available...)
}

// Invoice looks up an available invoice by ID.
func (l *Ledger) Invoice(invoiceID string) (OutstandingInvoice, bool) {
	pos, ok := l.byID[invoiceID]
	if !ok {
		return OutstandingInvoice{}, false
	}
	return l.available[pos], true
}

// IsSelected reports whether the invoice is currently selected.
func (l *Ledger) IsSelected(invoiceID string) bool {
	_, ok := l.selected[invoiceID]
	return ok
}

func (l *Ledger) reindex() {
	l.byID = make(map[string]int, len(l.available))
	for i, inv := range l.available {
		l.byID[inv.InvoiceID] = i
	}
	l.selected = make(map[string]int)
}
