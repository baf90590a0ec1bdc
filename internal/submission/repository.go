package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mandala-erp/mandala-erp/internal/platform/db"
)

var (
	// ErrNotFound indicates the receipt does not exist.
	ErrNotFound = errors.New("submission: receipt not found")
	// ErrDuplicate indicates a receipt number collision.
	ErrDuplicate = errors.New("submission: duplicate receipt")
)

// Repository provides PostgreSQL backed persistence for PPI receipts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateReceipt inserts the receipt header and its lines in one transaction.
func (r *Repository) CreateReceipt(ctx context.Context, input CreateReceiptInput) (*Receipt, error) {
	number, err := r.GenerateReceiptNumber(ctx)
	if err != nil {
		return nil, err
	}

	var bankAccountID pgtype.Int8
	if input.BankAccountID != nil {
		bankAccountID = pgtype.Int8{Int64: *input.BankAccountID, Valid: true}
	}

	receipt := &Receipt{
		Number:        number,
		CustomerID:    input.CustomerID,
		CustomerName:  input.CustomerName,
		Method:        input.Method,
		BankAccountID: input.BankAccountID,
		GiroNumber:    input.GiroNumber,
		GiroDueDate:   input.GiroDueDate,
		TotalAmount:   input.TotalAmount,
		TotalDiscount: input.TotalDiscount,
		GrandTotal:    input.GrandTotal,
		PhotoCount:    input.PhotoCount,
		ArchiveRef:    input.ArchiveRef,
		Status:        input.Status,
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const headerQuery = `
			INSERT INTO ppi_receipts (
				number, customer_id, customer_name, method, bank_account_id,
				giro_number, giro_due_date, total_amount, total_discount, grand_total,
				photo_count, archive_ref, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
			RETURNING id, created_at`

		if err := tx.QueryRow(ctx, headerQuery,
			number,
			input.CustomerID,
			input.CustomerName,
			input.Method,
			bankAccountID,
			input.GiroNumber,
			input.GiroDueDate,
			input.TotalAmount.String(),
			input.TotalDiscount.String(),
			input.GrandTotal.String(),
			input.PhotoCount,
			input.ArchiveRef,
			string(input.Status),
		).Scan(&receipt.ID, &receipt.CreatedAt); err != nil {
			return err
		}

		const lineQuery = `
			INSERT INTO ppi_receipt_lines (
				receipt_id, invoice_id, invoice_number, invoice_date,
				allocated_amount, allocated_discount
			) VALUES ($1, $2, $3, $4, $5, $6)`

		for _, line := range input.Lines {
			if _, err := tx.Exec(ctx, lineQuery,
				receipt.ID,
				line.InvoiceID,
				line.InvoiceNumber,
				line.InvoiceDate,
				line.AllocatedAmount.String(),
				line.AllocatedDiscount.String(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("submission: create receipt: %w", err)
	}

	return receipt, nil
}

// GetReceiptWithLines loads a receipt and its allocation lines.
func (r *Repository) GetReceiptWithLines(ctx context.Context, id int64) (*Receipt, []ReceiptLine, error) {
	const headerQuery = `
		SELECT id, number, customer_id, customer_name, method, bank_account_id,
		       giro_number, giro_due_date, total_amount::text, total_discount::text,
		       grand_total::text, photo_count, archive_ref, status, dispatched_at, created_at
		FROM ppi_receipts WHERE id = $1`

	var (
		receipt       Receipt
		bankAccountID pgtype.Int8
		totalAmount   string
		totalDiscount string
		grandTotal    string
	)
	err := r.pool.QueryRow(ctx, headerQuery, id).Scan(
		&receipt.ID, &receipt.Number, &receipt.CustomerID, &receipt.CustomerName,
		&receipt.Method, &bankAccountID, &receipt.GiroNumber, &receipt.GiroDueDate,
		&totalAmount, &totalDiscount, &grandTotal,
		&receipt.PhotoCount, &receipt.ArchiveRef, &receipt.Status,
		&receipt.DispatchedAt, &receipt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("submission: get receipt: %w", err)
	}
	if bankAccountID.Valid {
		receipt.BankAccountID = &bankAccountID.Int64
	}
	if receipt.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, nil, fmt.Errorf("submission: parse total amount: %w", err)
	}
	if receipt.TotalDiscount, err = decimal.NewFromString(totalDiscount); err != nil {
		return nil, nil, fmt.Errorf("submission: parse total discount: %w", err)
	}
	if receipt.GrandTotal, err = decimal.NewFromString(grandTotal); err != nil {
		return nil, nil, fmt.Errorf("submission: parse grand total: %w", err)
	}

	const linesQuery = `
		SELECT id, receipt_id, invoice_id, invoice_number, invoice_date,
		       allocated_amount::text, allocated_discount::text
		FROM ppi_receipt_lines WHERE receipt_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, linesQuery, id)
	if err != nil {
		return nil, nil, fmt.Errorf("submission: list receipt lines: %w", err)
	}
	defer rows.Close()

	var lines []ReceiptLine
	for rows.Next() {
		var (
			line     ReceiptLine
			amount   string
			discount string
		)
		if err := rows.Scan(&line.ID, &line.ReceiptID, &line.InvoiceID, &line.InvoiceNumber, &line.InvoiceDate, &amount, &discount); err != nil {
			return nil, nil, fmt.Errorf("submission: scan receipt line: %w", err)
		}
		if line.AllocatedAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, nil, fmt.Errorf("submission: parse line amount: %w", err)
		}
		if line.AllocatedDiscount, err = decimal.NewFromString(discount); err != nil {
			return nil, nil, fmt.Errorf("submission: parse line discount: %w", err)
		}
		lines = append(lines, line)
	}
	return &receipt, lines, rows.Err()
}

// MarkDispatched records upstream acceptance of a receipt.
func (r *Repository) MarkDispatched(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ppi_receipts SET status = 'DISPATCHED', dispatched_at = NOW() WHERE id = $1 AND status = 'SUBMITTED'`, id)
	if err != nil {
		return fmt.Errorf("submission: mark dispatched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUndispatched returns submitted receipts older than the cutoff that
// still await upstream dispatch, for the periodic sweep.
func (r *Repository) ListUndispatched(ctx context.Context, olderThan time.Duration) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM ppi_receipts WHERE status = 'SUBMITTED' AND created_at < NOW() - $1::interval ORDER BY id`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("submission: list undispatched: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("submission: scan receipt id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GenerateReceiptNumber generates a unique receipt number.
func (r *Repository) GenerateReceiptNumber(ctx context.Context) (string, error) {
	var number string
	err := r.pool.QueryRow(ctx,
		`SELECT 'PPI-' || to_char(NOW(), 'YYYYMM') || '-' || lpad(nextval('ppi_receipt_number_seq')::text, 4, '0')`,
	).Scan(&number)
	return number, err
}
