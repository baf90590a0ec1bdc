package invoices

import (
	"context"
	"time"
)

// RepositoryPort defines data access methods for invoice balances.
type RepositoryPort interface {
	ListOutstandingByCustomer(ctx context.Context, customerID int64) ([]OutstandingInvoice, error)
	ListOutstanding(ctx context.Context) ([]OutstandingInvoice, error)
}

// Service handles outstanding-invoice business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListOutstanding returns a customer's open invoices with overdue flags
// computed against asOf.
func (s *Service) ListOutstanding(ctx context.Context, customerID int64, asOf time.Time) ([]OutstandingInvoice, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	out, err := s.repo.ListOutstandingByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsOverdue, out[i].OverdueDays = overdue(out[i].DueAt, asOf)
	}
	return out, nil
}

// CalculateAging groups outstanding balances by days overdue.
func (s *Service) CalculateAging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	invoices, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return AgingBucket{}, err
	}
	var bucket AgingBucket
	for _, inv := range invoices {
		days := int(asOf.Sub(inv.DueAt).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(inv.Remaining)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(inv.Remaining)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(inv.Remaining)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(inv.Remaining)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(inv.Remaining)
		}
	}
	return bucket, nil
}

func overdue(dueAt, asOf time.Time) (bool, int) {
	days := int(asOf.Sub(dueAt).Hours() / 24)
	if days <= 0 {
		return false, 0
	}
	return true, days
}
