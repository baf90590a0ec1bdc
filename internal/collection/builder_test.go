package collection

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ledgerWithAllocation(t *testing.T, invoiceID, amount, discount string) *Ledger {
	t.Helper()
	l := NewLedger()
	l.LoadAvailableInvoices(testInvoices())
	require.NoError(t, l.ToggleInvoice(invoiceID))
	require.NoError(t, l.SetAllocationField(invoiceID, FieldAmount, dec(amount)))
	require.NoError(t, l.SetAllocationField(invoiceID, FieldDiscount, dec(discount)))
	return l
}

func validCustomer() Customer {
	return Customer{ID: "42", Name: "Toko Sumber Rejeki"}
}

func requireRule(t *testing.T, err error, rule ValidationRule) *ValidationError {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	require.Equal(t, rule, verr.Rule)
	return verr
}

func TestBuildPaymentBatch(t *testing.T) {
	l := NewLedger()
	l.LoadAvailableInvoices(testInvoices())
	require.NoError(t, l.ToggleInvoice("102"))
	require.NoError(t, l.ToggleInvoice("101"))
	require.NoError(t, l.SetAllocationField("102", FieldAmount, dec("50000")))
	require.NoError(t, l.SetAllocationField("101", FieldAmount, dec("30000")))
	require.NoError(t, l.SetAllocationField("101", FieldDiscount, dec("5000")))

	batch, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 2, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)
	require.NotNil(t, batch)

	require.Equal(t, "42", batch.CustomerID)
	require.Equal(t, "Toko Sumber Rejeki", batch.CustomerName)
	require.Equal(t, BatchStatusSubmitted, batch.Status)
	require.Equal(t, 2, batch.EvidencePhotoCount)

	// Line items preserve selection order, not invoice list order.
	require.Len(t, batch.LineItems, 2)
	require.Equal(t, "102", batch.LineItems[0].InvoiceID)
	require.Equal(t, "INV-102", batch.LineItems[0].InvoiceNumber)
	require.Equal(t, "101", batch.LineItems[1].InvoiceID)

	require.True(t, dec("80000").Equal(batch.TotalAllocatedAmount))
	require.True(t, dec("5000").Equal(batch.TotalAllocatedDiscount))
	require.True(t, dec("85000").Equal(batch.GrandTotal))
}

func TestBuildPaymentBatchIdempotent(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "60000", "0")
	method := PaymentMethodInfo{Method: MethodCash}

	first, err := BuildPaymentBatch(l, method, 1, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)
	second, err := BuildPaymentBatch(l, method, 1, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestBuildMissingCustomer(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "60000", "0")

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, Customer{}, BatchStatusSubmitted)
	requireRule(t, err, RuleMissingCustomer)
}

func TestBuildNoInvoiceSelected(t *testing.T) {
	l := NewLedger()
	l.LoadAvailableInvoices(testInvoices())

	// Checked before the zero-amount rule, which would also hold here.
	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleNoInvoiceSelected)
}

func TestBuildZeroPaymentAmount(t *testing.T) {
	l := NewLedger()
	l.LoadAvailableInvoices(testInvoices())
	require.NoError(t, l.ToggleInvoice("101"))

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleZeroPaymentAmount)
}

func TestBuildGiroRequiresGiroDetails(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "60000", "0")

	// Everything else valid: still fails on the missing giro number.
	method := PaymentMethodInfo{Method: MethodGiro, BankAccountID: "7"}
	_, err := BuildPaymentBatch(l, method, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleMissingGiroDetails)

	method.GiroNumber = "GR-0099"
	_, err = BuildPaymentBatch(l, method, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleMissingGiroDetails)

	method.GiroDueDate = "2026-09-30"
	batch, err := BuildPaymentBatch(l, method, 1, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, "GR-0099", batch.PaymentMethod.GiroNumber)
}

func TestBuildTransferRequiresBankAccount(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "60000", "0")

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodTransfer}, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleMissingBankAccount)
}

func TestBuildRequiresEvidencePhoto(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "60000", "0")

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 0, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleMissingEvidencePhoto)
}

func TestBuildOverAllocationNamesInvoice(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "150000", "0")

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	verr := requireRule(t, err, RuleOverAllocation)
	require.Equal(t, "101", verr.InvoiceID)
}

func TestBuildOverAllocationCountsDiscount(t *testing.T) {
	// Amount alone fits, amount+discount does not.
	l := ledgerWithAllocation(t, "101", "90000", "20000")

	_, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	requireRule(t, err, RuleOverAllocation)
}

func TestBuildExactAllocationIsAllowed(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "90000", "10000")

	batch, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)
	require.True(t, dec("100000").Equal(batch.GrandTotal))
}

func TestBuildDraftStatusComesFromCaller(t *testing.T) {
	l := ledgerWithAllocation(t, "101", "1000", "0")

	batch, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusDraft)
	require.NoError(t, err)
	require.Equal(t, BatchStatusDraft, batch.Status)
}

func TestBuildDiscountOnlyBatch(t *testing.T) {
	l := NewLedger()
	l.LoadAvailableInvoices(testInvoices())
	require.NoError(t, l.ToggleInvoice("103"))
	require.NoError(t, l.SetAllocationField("103", FieldDiscount, dec("75000")))

	batch, err := BuildPaymentBatch(l, PaymentMethodInfo{Method: MethodCash}, 1, validCustomer(), BatchStatusSubmitted)
	require.NoError(t, err)
	require.True(t, batch.TotalAllocatedAmount.Equal(decimal.Zero))
	require.True(t, dec("75000").Equal(batch.GrandTotal))
}
