package bank

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("bank: account not found")
	// ErrPaymentNotFound is returned when no pending payment matches the reference.
	ErrPaymentNotFound = errors.New("bank: payment not found")
	// ErrInsufficientFunds rejects a transfer that would take a balance below zero.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrSelfTransfer rejects a transfer whose recipient is the sender's own
	// account. Debiting and crediting the same row through two copies would
	// let the credit overwrite the debit.
	ErrSelfTransfer = errors.New("bank: cannot transfer to own account")
)

// AccountStore provides ledger access to accounts.
type AccountStore interface {
	FindByPhone(ctx context.Context, phone string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByAccountNo(ctx context.Context, accountNo string) (*Account, error)
	Create(ctx context.Context, name, phone string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// PaymentStore provides ledger access to pending payments.
type PaymentStore interface {
	Create(ctx context.Context, amount Amount, accountID int64) (*Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles ledger access with transactional scope. WithinTx runs fn
// against a store bound to one atomic unit of work; if fn returns an error
// nothing inside the unit is retained.
type Store interface {
	Accounts() AccountStore
	Payments() PaymentStore
	WithinTx(ctx context.Context, fn func(Store) error) error
}
