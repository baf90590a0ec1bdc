package invoices

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed access to invoice balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOutstandingByCustomer returns posted invoices with a remaining balance
// for one customer, oldest due date first. Paid sums exclude draft receipts:
// a draft batch must not reduce what other sessions see as collectible.
func (r *Repository) ListOutstandingByCustomer(ctx context.Context, customerID int64) ([]OutstandingInvoice, error) {
	query := `
		SELECT i.id, i.number, i.customer_id, i.issued_at, i.due_at,
		       i.total::text,
		       COALESCE(p.paid, 0)::text
		FROM invoices i
		LEFT JOIN (
			SELECT rl.invoice_id,
			       SUM(rl.allocated_amount + rl.allocated_discount) AS paid
			FROM ppi_receipt_lines rl
			JOIN ppi_receipts rc ON rc.id = rl.receipt_id AND rc.status <> 'DRAFT'
			GROUP BY rl.invoice_id
		) p ON p.invoice_id = i.id
		WHERE i.customer_id = $1
		  AND i.status = 'POSTED'
		  AND i.total > COALESCE(p.paid, 0)
		ORDER BY i.due_at, i.id`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list outstanding: %w", err)
	}
	defer rows.Close()

	var out []OutstandingInvoice
	for rows.Next() {
		var (
			inv   OutstandingInvoice
			total string
			paid  string
		)
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssuedAt, &inv.DueAt, &total, &paid); err != nil {
			return nil, fmt.Errorf("invoices: scan outstanding: %w", err)
		}
		if inv.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invoices: parse total for %s: %w", inv.Number, err)
		}
		if inv.Paid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("invoices: parse paid for %s: %w", inv.Number, err)
		}
		inv.Remaining = inv.Total.Sub(inv.Paid)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListOutstanding returns all posted invoices with a remaining balance,
// used by the aging report.
func (r *Repository) ListOutstanding(ctx context.Context) ([]OutstandingInvoice, error) {
	query := `
		SELECT i.id, i.number, i.customer_id, i.issued_at, i.due_at,
		       i.total::text,
		       COALESCE(p.paid, 0)::text
		FROM invoices i
		LEFT JOIN (
			SELECT rl.invoice_id,
			       SUM(rl.allocated_amount + rl.allocated_discount) AS paid
			FROM ppi_receipt_lines rl
			JOIN ppi_receipts rc ON rc.id = rl.receipt_id AND rc.status <> 'DRAFT'
			GROUP BY rl.invoice_id
		) p ON p.invoice_id = i.id
		WHERE i.status = 'POSTED'
		  AND i.total > COALESCE(p.paid, 0)
		ORDER BY i.due_at, i.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("invoices: list all outstanding: %w", err)
	}
	defer rows.Close()

	var out []OutstandingInvoice
	for rows.Next() {
		var (
			inv   OutstandingInvoice
			total string
			paid  string
		)
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssuedAt, &inv.DueAt, &total, &paid); err != nil {
			return nil, fmt.Errorf("invoices: scan outstanding: %w", err)
		}
		if inv.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invoices: parse total for %s: %w", inv.Number, err)
		}
		if inv.Paid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("invoices: parse paid for %s: %w", inv.Number, err)
		}
		inv.Remaining = inv.Total.Sub(inv.Paid)
		out = append(out, inv)
	}
	return out, rows.Err()
}
