package collection

import "github.com/shopspring/decimal"

// Pure calculations over ledger entries. Safe to call on every keystroke;
// same inputs always give the same outputs.

// RemainingAfterAllocation is the invoice balance left once the entry's
// amount and discount are applied. Not clamped: a negative result is a
// legitimate intermediate state surfaced to the caller as a warning, and
// only rejected when the batch is built.
func RemainingAfterAllocation(inv OutstandingInvoice, entry AllocationEntry) decimal.Decimal {
	return inv.RemainingBalance.Sub(entry.AllocatedAmount).Sub(entry.AllocatedDiscount)
}

// TotalAllocatedAmount sums the cash/transfer portion over all entries.
func TotalAllocatedAmount(entries []AllocationEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.AllocatedAmount)
	}
	return total
}

// TotalAllocatedDiscount sums the discount portion over all entries.
func TotalAllocatedDiscount(entries []AllocationEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.AllocatedDiscount)
	}
	return total
}

// GrandTotal is the batch's declared payment amount: allocated amount plus
// allocated discount. The discount counts toward the amount considered paid
// even though no cash changes hands for it; do not reimplement this as
// "cash collectible".
func GrandTotal(entries []AllocationEntry) decimal.Decimal {
	return TotalAllocatedAmount(entries).Add(TotalAllocatedDiscount(entries))
}
