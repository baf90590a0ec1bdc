// Package collection implements receivable collection (PPI) sessions: the
// invoice allocation ledger a sales rep edits during a visit, the money math
// over it, and assembly of the final payment batch.
package collection

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a collection is settled.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodGiro     PaymentMethod = "GIRO"
)

// BatchStatus marks a payment batch as draft or final. It is chosen by the
// caller, never derived.
type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "DRAFT"
	BatchStatusSubmitted BatchStatus = "SUBMITTED"
)

// AllocationField names an editable field on an allocation entry.
type AllocationField string

const (
	FieldAmount   AllocationField = "amount"
	FieldDiscount AllocationField = "discount"
)

// OutstandingInvoice is an open invoice supplied by the invoice source.
// Read-only to this package.
type OutstandingInvoice struct {
	InvoiceID        string          `json:"invoice_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceDate      time.Time       `json:"invoice_date"`
	DueDate          time.Time       `json:"due_date"`
	TotalInvoice     decimal.Decimal `json:"total_invoice"`
	AlreadyPaid      decimal.Decimal `json:"already_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	IsOverdue        bool            `json:"is_overdue"`
	OverdueDays      int             `json:"overdue_days"`
}

// AllocationEntry holds the raw amounts entered against one selected invoice.
type AllocationEntry struct {
	InvoiceID         string          `json:"invoice_id"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	AllocatedDiscount decimal.Decimal `json:"allocated_discount"`
}

// PaymentMethodInfo describes the settlement instrument for one session.
type PaymentMethodInfo struct {
	Method        PaymentMethod `json:"method"`
	BankAccountID string        `json:"bank_account_id,omitempty"`
	GiroNumber    string        `json:"giro_number,omitempty"`
	GiroDueDate   string        `json:"giro_due_date,omitempty"`
}

// Customer identifies the customer a batch is collected from.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BatchLineItem is one allocated invoice inside a payment batch.
type BatchLineItem struct {
	InvoiceID         string          `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	AllocatedDiscount decimal.Decimal `json:"allocated_discount"`
}

// PaymentBatch is the validated output of BuildPaymentBatch. Immutable once
// constructed; line items preserve selection order.
//
// GrandTotal deliberately includes the discount portion: the figure recorded
// as "amount paid" is cash plus discount, not cash alone.
type PaymentBatch struct {
	CustomerID             string            `json:"customer_id"`
	CustomerName           string            `json:"customer_name"`
	LineItems              []BatchLineItem   `json:"line_items"`
	TotalAllocatedAmount   decimal.Decimal   `json:"total_allocated_amount"`
	TotalAllocatedDiscount decimal.Decimal   `json:"total_allocated_discount"`
	GrandTotal             decimal.Decimal   `json:"grand_total"`
	PaymentMethod          PaymentMethodInfo `json:"payment_method"`
	EvidencePhotoCount     int               `json:"evidence_photo_count"`
	Status                 BatchStatus       `json:"status"`
}
