package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryInvoiceRepo struct {
	invoices []OutstandingInvoice
}

func (r *memoryInvoiceRepo) ListOutstandingByCustomer(ctx context.Context, customerID int64) ([]OutstandingInvoice, error) {
	var out []OutstandingInvoice
	for _, inv := range r.invoices {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memoryInvoiceRepo) ListOutstanding(ctx context.Context) ([]OutstandingInvoice, error) {
	return append([]OutstandingInvoice(nil), r.invoices...), nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestListOutstandingComputesOverdue(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := &memoryInvoiceRepo{invoices: []OutstandingInvoice{
		{ID: 1, Number: "INV-1", CustomerID: 42, DueAt: now.AddDate(0, 0, 10), Total: d("100"), Remaining: d("100")},
		{ID: 2, Number: "INV-2", CustomerID: 42, DueAt: now.AddDate(0, 0, -12), Total: d("200"), Remaining: d("150")},
		{ID: 3, Number: "INV-3", CustomerID: 7, DueAt: now.AddDate(0, 0, -5), Total: d("50"), Remaining: d("50")},
	}}
	svc := NewService(repo)

	out, err := svc.ListOutstanding(context.Background(), 42, now)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.False(t, out[0].IsOverdue)
	require.Equal(t, 0, out[0].OverdueDays)

	require.True(t, out[1].IsOverdue)
	require.Equal(t, 12, out[1].OverdueDays)
}

func TestListOutstandingDueTodayNotOverdue(t *testing.T) {
	now := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	repo := &memoryInvoiceRepo{invoices: []OutstandingInvoice{
		{ID: 1, Number: "INV-1", CustomerID: 42, DueAt: now.Add(10 * time.Hour), Remaining: d("100")},
	}}
	svc := NewService(repo)

	out, err := svc.ListOutstanding(context.Background(), 42, now)
	require.NoError(t, err)
	require.False(t, out[0].IsOverdue)
}

func TestCalculateAging(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	repo := &memoryInvoiceRepo{invoices: []OutstandingInvoice{
		{ID: 1, DueAt: now.AddDate(0, 0, 5), Remaining: d("100")},
		{ID: 2, DueAt: now.AddDate(0, 0, -20), Remaining: d("200")},
		{ID: 3, DueAt: now.AddDate(0, 0, -50), Remaining: d("300")},
		{ID: 4, DueAt: now.AddDate(0, 0, -80), Remaining: d("400")},
		{ID: 5, DueAt: now.AddDate(0, 0, -200), Remaining: d("500")},
	}}
	svc := NewService(repo)

	bucket, err := svc.CalculateAging(context.Background(), now)
	require.NoError(t, err)
	require.True(t, d("100").Equal(bucket.Current))
	require.True(t, d("200").Equal(bucket.Bucket30))
	require.True(t, d("300").Equal(bucket.Bucket60))
	require.True(t, d("400").Equal(bucket.Bucket90))
	require.True(t, d("500").Equal(bucket.Bucket120))
	require.True(t, d("1500").Equal(bucket.TotalOutstanding()))
}
