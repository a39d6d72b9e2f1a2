package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// SQLStore is the Postgres-backed ledger store. The zero value is not usable;
// construct with NewSQLStore.
type SQLStore struct {
	ext sqlx.ExtContext
	db  *sqlx.DB // nil when bound to a transaction
}

// NewSQLStore wraps an open sqlx database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{ext: db, db: db}
}

// Accounts returns account access bound to the store's current scope. Inside
// a transaction the row is locked on read so concurrent units cannot both
// base an absolute balance write on the same committed value.
func (s *SQLStore) Accounts() AccountStore { return &sqlAccounts{ext: s.ext, forUpdate: s.db == nil} }

// Payments returns payment access bound to the store's current scope.
func (s *SQLStore) Payments() PaymentStore { return &sqlPayments{ext: s.ext, forUpdate: s.db == nil} }

// WithinTx runs fn inside a database transaction. A nested call reuses the
// enclosing transaction instead of opening a new one.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(&SQLStore{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlAccounts struct {
	ext       sqlx.ExtContext
	forUpdate bool
}

// lockSuffix appends FOR UPDATE to transaction-scoped reads.
func lockSuffix(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (a *sqlAccounts) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	var acc Account
	err := sqlx.GetContext(ctx, a.ext, &acc,
		`SELECT id, name, phone, account_no, balance, created_at FROM accounts WHERE phone = $1`+lockSuffix(a.forUpdate), phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by phone: %w", err)
	}
	return &acc, nil
}

func (a *sqlAccounts) FindByID(ctx context.Context, id int64) (*Account, error) {
	var acc Account
	err := sqlx.GetContext(ctx, a.ext, &acc,
		`SELECT id, name, phone, account_no, balance, created_at FROM accounts WHERE id = $1`+lockSuffix(a.forUpdate), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &acc, nil
}

func (a *sqlAccounts) FindByAccountNo(ctx context.Context, accountNo string) (*Account, error) {
	var acc Account
	err := sqlx.GetContext(ctx, a.ext, &acc,
		`SELECT id, name, phone, account_no, balance, created_at FROM accounts WHERE account_no = $1`+lockSuffix(a.forUpdate), accountNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by number: %w", err)
	}
	return &acc, nil
}

func (a *sqlAccounts) Create(ctx context.Context, name, phone string) (*Account, error) {
	// Retry on the unlikely account number collision.
	for attempt := 0; attempt < 5; attempt++ {
		var acc Account
		err := sqlx.GetContext(ctx, a.ext, &acc,
			`INSERT INTO accounts (name, phone, account_no, balance)
			 VALUES ($1, $2, $3, 0)
			 RETURNING id, name, phone, account_no, balance, created_at`,
			name, phone, newAccountNo())
		if err == nil {
			return &acc, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			continue
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return nil, fmt.Errorf("create account: could not allocate a unique account number")
}

func (a *sqlAccounts) Save(ctx context.Context, account *Account) error {
	res, err := a.ext.ExecContext(ctx,
		`UPDATE accounts SET name = $2, phone = $3, balance = $4 WHERE id = $1`,
		account.ID, account.Name, account.Phone, account.Balance)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

type sqlPayments struct {
	ext       sqlx.ExtContext
	forUpdate bool
}

func (p *sqlPayments) Create(ctx context.Context, amount Amount, accountID int64) (*Payment, error) {
	var payment Payment
	err := sqlx.GetContext(ctx, p.ext, &payment,
		`INSERT INTO payments (id, amount, account_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, amount, account_id, created_at`,
		uuid.New(), amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &payment, nil
}

func (p *sqlPayments) FindByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := sqlx.GetContext(ctx, p.ext, &payment,
		`SELECT id, amount, account_id, created_at FROM payments WHERE id = $1`+lockSuffix(p.forUpdate), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

func (p *sqlPayments) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := p.ext.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
