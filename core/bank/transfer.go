package bank

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/notify"
)

// Transfers executes peer-to-peer transfers. Debit and credit happen inside
// one atomic unit; the recipient notification runs after commit and is
// best-effort only.
type Transfers struct {
	store    Store
	notifier notify.Notifier
}

// NewTransfers wires the transfer service.
func NewTransfers(store Store, notifier notify.Notifier) *Transfers {
	return &Transfers{store: store, notifier: notifier}
}

// Execute moves amount from the sender (looked up by phone) to the recipient
// account. It returns the committed sender account. ErrInsufficientFunds is
// returned, with no balance touched, when the sender cannot cover the amount.
func (t *Transfers) Execute(ctx context.Context, senderPhone string, recipientID int64, amount Amount) (*Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var sender, recipient *Account
	err := t.store.WithinTx(ctx, func(tx Store) error {
		var err error
		sender, err = tx.Accounts().FindByPhone(ctx, senderPhone)
		if err != nil {
			return err
		}
		recipient, err = tx.Accounts().FindByID(ctx, recipientID)
		if err != nil {
			return err
		}
		if recipient.ID == sender.ID {
			return ErrSelfTransfer
		}
		if sender.Balance < amount {
			return ErrInsufficientFunds
		}

		sender.Balance -= amount
		recipient.Balance += amount
		if err := tx.Accounts().Save(ctx, sender); err != nil {
			return err
		}
		return tx.Accounts().Save(ctx, recipient)
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	logger.Info(ctx, "bank", "transfer.done",
		slog.Int64("account_id", sender.ID),
		slog.String("amount", amount.String()),
		slog.String("balance", sender.Balance.String()),
	)

	text := fmt.Sprintf("You have received %s from %s. Your new balance is %s",
		amount, sender.Name, recipient.Balance)
	if err := t.notifier.Send(ctx, recipient.Phone, text); err != nil {
		logger.Warn(ctx, "bank", "transfer.notify.fail",
			slog.String("phone", recipient.Phone),
			slog.String("err", err.Error()),
		)
	}

	return sender, nil
}
