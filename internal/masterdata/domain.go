// Package masterdata holds the reference records the collection wizard picks
// from: customers and company bank accounts.
package masterdata

import (
	"time"
)

// Customer represents a customer entity
type Customer struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BankAccount represents a company bank account offered for transfer and
// giro settlements
type BankAccount struct {
	ID            int64     `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFilters represents standard list page filters
type ListFilters struct {
	Page   int
	Limit  int
	Search string
}
