// Package invoices serves a customer's outstanding (faktur) balances: the
// invoice set a collection session allocates payments against.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft  InvoiceStatus = "DRAFT"
	StatusPosted InvoiceStatus = "POSTED"
	StatusPaid   InvoiceStatus = "PAID"
	StatusVoid   InvoiceStatus = "VOID"
)

// OutstandingInvoice is a posted invoice with a nonzero remaining balance.
type OutstandingInvoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	CustomerID  int64           `json:"customer_id"`
	IssuedAt    time.Time       `json:"issued_at"`
	DueAt       time.Time       `json:"due_at"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
	IsOverdue   bool            `json:"is_overdue"`
	OverdueDays int             `json:"overdue_days"`
}

// AgingBucket summarises outstanding balances by days overdue.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// TotalOutstanding sums all buckets.
func (b AgingBucket) TotalOutstanding() decimal.Decimal {
	return b.Current.Add(b.Bucket30).Add(b.Bucket60).Add(b.Bucket90).Add(b.Bucket120)
}
