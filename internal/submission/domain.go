// Package submission persists validated payment batches as PPI receipts and
// forwards them to the upstream finance system.
package submission

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus enumerates PPI receipt states.
type ReceiptStatus string

const (
	// ReceiptStatusDraft is a saved batch the rep has not committed yet.
	ReceiptStatusDraft ReceiptStatus = "DRAFT"
	// ReceiptStatusSubmitted is committed locally, awaiting upstream dispatch.
	ReceiptStatusSubmitted ReceiptStatus = "SUBMITTED"
	// ReceiptStatusDispatched has been accepted by the upstream endpoint.
	ReceiptStatusDispatched ReceiptStatus = "DISPATCHED"
)

// Receipt is a persisted PPI (penerimaan piutang) record.
type Receipt struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Method        string          `json:"method"`
	BankAccountID *int64          `json:"bank_account_id,omitempty"`
	GiroNumber    string          `json:"giro_number,omitempty"`
	GiroDueDate   *time.Time      `json:"giro_due_date,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PhotoCount    int             `json:"photo_count"`
	ArchiveRef    string          `json:"archive_ref,omitempty"`
	Status        ReceiptStatus   `json:"status"`
	DispatchedAt  *time.Time      `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReceiptLine allocates part of a receipt to one invoice.
type ReceiptLine struct {
	ID                int64           `json:"id"`
	ReceiptID         int64           `json:"receipt_id"`
	InvoiceID         int64           `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	AllocatedDiscount decimal.Decimal `json:"allocated_discount"`
}

// CreateReceiptInput carries everything needed to persist one receipt.
type CreateReceiptInput struct {
	CustomerID    int64
	CustomerName  string
	Method        string
	BankAccountID *int64
	GiroNumber    string
	GiroDueDate   *time.Time
	TotalAmount   decimal.Decimal
	TotalDiscount decimal.Decimal
	GrandTotal    decimal.Decimal
	PhotoCount    int
	ArchiveRef    string
	Status        ReceiptStatus
	Lines         []CreateReceiptLineInput
}

// CreateReceiptLineInput is one allocation line of a new receipt.
type CreateReceiptLineInput struct {
	InvoiceID         int64
	InvoiceNumber     string
	InvoiceDate       time.Time
	AllocatedAmount   decimal.Decimal
	AllocatedDiscount decimal.Decimal
}
