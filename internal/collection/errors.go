package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInvoiceReference indicates an operation referenced an invoice
	// that is not available (or, for edits, not selected). Points at a UI/state
	// desync and must be reported, never swallowed.
	ErrInvalidInvoiceReference = errors.New("collection: invalid invoice reference")
	// ErrInvalidAmount indicates a negative value supplied to an allocation field.
	ErrInvalidAmount = errors.New("collection: amount must not be negative")
	// ErrUnknownField indicates an unrecognised allocation field name.
	ErrUnknownField = errors.New("collection: unknown allocation field")
	// ErrSessionNotFound indicates the collection session does not exist or expired.
	ErrSessionNotFound = errors.New("collection: session not found")
)

// ValidationRule identifies the single precondition a batch build violated.
type ValidationRule string

const (
	RuleMissingCustomer      ValidationRule = "MISSING_CUSTOMER"
	RuleNoInvoiceSelected    ValidationRule = "NO_INVOICE_SELECTED"
	RuleZeroPaymentAmount    ValidationRule = "ZERO_PAYMENT_AMOUNT"
	RuleMissingGiroDetails   ValidationRule = "MISSING_GIRO_DETAILS"
	RuleMissingBankAccount   ValidationRule = "MISSING_BANK_ACCOUNT"
	RuleMissingEvidencePhoto ValidationRule = "MISSING_EVIDENCE_PHOTO"
	RuleOverAllocation       ValidationRule = "OVER_ALLOCATION"
)

// ValidationError reports the first violated rule of a batch build. InvoiceID
// is set only for RuleOverAllocation, naming the offending invoice.
type ValidationError struct {
	Rule      ValidationRule
	InvoiceID string
}

func (e *ValidationError) Error() string {
	if e.InvoiceID != "" {
		return fmt.Sprintf("collection: validation failed: %s (invoice %s)", e.Rule, e.InvoiceID)
	}
	return fmt.Sprintf("collection: validation failed: %s", e.Rule)
}

func (e *ValidationError) Message() string {
	switch e.Rule {
	case RuleMissingCustomer:
		return "A customer must be chosen before submitting"
	case RuleNoInvoiceSelected:
		return "Select at least one invoice to pay"
	case RuleZeroPaymentAmount:
		return "Total payment amount must be greater than zero"
	case RuleMissingGiroDetails:
		return "Giro number and giro due date are required for giro payments"
	case RuleMissingBankAccount:
		return "A bank account is required for transfer and giro payments"
	case RuleMissingEvidencePhoto:
		return "At least one evidence photo is required"
	case RuleOverAllocation:
		return fmt.Sprintf("Allocation for invoice %s exceeds its remaining balance", e.InvoiceID)
	default:
		return "Payment batch validation failed"
	}
}
