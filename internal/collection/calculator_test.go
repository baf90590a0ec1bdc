package collection

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRemainingAfterAllocation(t *testing.T) {
	inv := OutstandingInvoice{InvoiceID: "INV-1", RemainingBalance: dec("100000")}
	entry := AllocationEntry{InvoiceID: "INV-1", AllocatedAmount: dec("60000"), AllocatedDiscount: decimal.Zero}

	require.True(t, dec("40000").Equal(RemainingAfterAllocation(inv, entry)))
}

func TestRemainingAfterAllocationGoesNegative(t *testing.T) {
	inv := OutstandingInvoice{InvoiceID: "INV-1", RemainingBalance: dec("100000")}
	entry := AllocationEntry{InvoiceID: "INV-1", AllocatedAmount: dec("150000")}

	// No clamping: the negative intermediate value is surfaced as-is.
	require.True(t, dec("-50000").Equal(RemainingAfterAllocation(inv, entry)))
}

func TestTotalsAcrossEntries(t *testing.T) {
	entries := []AllocationEntry{
		{InvoiceID: "INV-1", AllocatedAmount: dec("50000"), AllocatedDiscount: decimal.Zero},
		{InvoiceID: "INV-2", AllocatedAmount: dec("30000"), AllocatedDiscount: dec("5000")},
	}

	require.True(t, dec("80000").Equal(TotalAllocatedAmount(entries)))
	require.True(t, dec("5000").Equal(TotalAllocatedDiscount(entries)))
	require.True(t, dec("85000").Equal(GrandTotal(entries)))
}

func TestTotalsAreOrderIndependent(t *testing.T) {
	forward := []AllocationEntry{
		{InvoiceID: "INV-1", AllocatedAmount: dec("123.45"), AllocatedDiscount: dec("1.05")},
		{InvoiceID: "INV-2", AllocatedAmount: dec("0.55"), AllocatedDiscount: dec("98.95")},
		{InvoiceID: "INV-3", AllocatedAmount: dec("7600"), AllocatedDiscount: decimal.Zero},
	}
	reversed := []AllocationEntry{forward[2], forward[1], forward[0]}

	require.True(t, TotalAllocatedAmount(forward).Equal(TotalAllocatedAmount(reversed)))
	require.True(t, TotalAllocatedDiscount(forward).Equal(TotalAllocatedDiscount(reversed)))
	require.True(t, GrandTotal(forward).Equal(GrandTotal(reversed)))
}

func TestGrandTotalEmptyLedger(t *testing.T) {
	require.True(t, GrandTotal(nil).IsZero())
	require.True(t, GrandTotal([]AllocationEntry{}).IsZero())
}

func TestGrandTotalIncludesDiscount(t *testing.T) {
	entries := []AllocationEntry{
		{InvoiceID: "INV-1", AllocatedAmount: decimal.Zero, AllocatedDiscount: dec("2500")},
	}

	// The discount portion counts toward the declared payment amount.
	require.True(t, dec("2500").Equal(GrandTotal(entries)))
	require.True(t, GrandTotal(entries).Equal(TotalAllocatedAmount(entries).Add(TotalAllocatedDiscount(entries))))
}
