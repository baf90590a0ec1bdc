package collection

// BuildPaymentBatch validates the ledger, payment method and evidence count
// as a whole and, only when valid, assembles an immutable PaymentBatch.
//
// Checks run in a fixed order and stop at the first violation, so the caller
// can surface one correction at a time. The builder performs no I/O;
// submission and photo upload belong to the caller.
func BuildPaymentBatch(ledger *Ledger, method PaymentMethodInfo, photoCount int, customer Customer, status BatchStatus) (*PaymentBatch, error) {
	if customer.ID == "" {
		return nil, &ValidationError{Rule: RuleMissingCustomer}
	}

	entries := ledger.SelectedEntries()
	if len(entries) == 0 {
		return nil, &ValidationError{Rule: RuleNoInvoiceSelected}
	}
	if !GrandTotal(entries).IsPositive() {
		return nil, &ValidationError{Rule: RuleZeroPaymentAmount}
	}
	if method.Method == MethodGiro && (method.GiroNumber == "" || method.GiroDueDate == "") {
		return nil, &ValidationError{Rule: RuleMissingGiroDetails}
	}
	if (method.Method == MethodTransfer || method.Method == MethodGiro) && method.BankAccountID == "" {
		return nil, &ValidationError{Rule: RuleMissingBankAccount}
	}
	if photoCount < 1 {
		return nil, &ValidationError{Rule: RuleMissingEvidencePhoto}
	}
	for _, entry := range entries {
		inv, ok := ledger.Invoice(entry.InvoiceID)
		if !ok {
			return nil, ErrInvalidInvoiceReference
		}
		if RemainingAfterAllocation(inv, entry).IsNegative() {
			return nil, &ValidationError{Rule: RuleOverAllocation, InvoiceID: entry.InvoiceID}
		}
	}

	lines := make([]BatchLineItem, 0, len(entries))
	for _, entry := range entries {
		inv, _ := ledger.Invoice(entry.InvoiceID)
		lines = append(lines, BatchLineItem{
			InvoiceID:         entry.InvoiceID,
			InvoiceNumber:     inv.InvoiceNumber,
			InvoiceDate:       inv.InvoiceDate,
			AllocatedAmount:   entry.AllocatedAmount,
			AllocatedDiscount: entry.AllocatedDiscount,
		})
	}

	return &PaymentBatch{
		CustomerID:             customer.ID,
		CustomerName:           customer.Name,
		LineItems:              lines,
		TotalAllocatedAmount:   TotalAllocatedAmount(entries),
		TotalAllocatedDiscount: TotalAllocatedDiscount(entries),
		GrandTotal:             GrandTotal(entries),
		PaymentMethod:          method,
		EvidencePhotoCount:     photoCount,
		Status:                 status,
	}, nil
}
