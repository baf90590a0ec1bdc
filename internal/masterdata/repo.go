package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the record does not exist.
var ErrNotFound = errors.New("masterdata: not found")

// Repository defines data access for master data.
type Repository interface {
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	ListBankAccounts(ctx context.Context) ([]BankAccount, error)
}

// repo implements Repository interface
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func (r *repo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	query := `SELECT id, code, name, address, phone, is_active, created_at, updated_at FROM customers WHERE id = $1`
	var c Customer
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("masterdata: get customer: %w", err)
	}
	return c, nil
}

func (r *repo) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	search := "%" + filters.Search + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM customers WHERE is_active AND (name ILIKE $1 OR code ILIKE $1)`
	if err := r.db.QueryRow(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count customers: %w", err)
	}

	query := `
		SELECT id, code, name, address, phone, is_active, created_at, updated_at
		FROM customers
		WHERE is_active AND (name ILIKE $1 OR code ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("masterdata: scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repo) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	query := `SELECT id, bank_name, account_number, account_name, is_active, created_at FROM bank_accounts WHERE is_active ORDER BY bank_name, account_number`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(&a.ID, &a.BankName, &a.AccountNumber, &a.AccountName, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("masterdata: scan bank account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
