// Package settlement reconciles the payment gateway's asynchronous "paid"
// callback with the ledger: the account credit and the pending-payment
// deletion happen as one atomic unit, exactly once per reference.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/google/uuid"
	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/notify"
)

// Outcome classifies how a callback was handled.
type Outcome string

const (
	// OutcomeAccepted means the credit was applied.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored means the callback carried a non-paid status.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means the proof was bad or the reference unknown.
	OutcomeRejected Outcome = "rejected"
)

var (
	// ErrInvalidHash marks a callback whose authenticity proof is missing or wrong.
	ErrInvalidHash = errors.New("settlement: invalid hash")
	// ErrUnknownReference marks a callback for a reference with no pending
	// payment: either unknown or already settled (a replay).
	ErrUnknownReference = errors.New("settlement: unknown payment reference")
)

// Verifier checks the authenticity proof on a raw callback body. It is
// supplied by the payment-gateway client.
type Verifier interface {
	VerifyHash(rawBody string) bool
}

// Callback is one parsed gateway result notification.
type Callback struct {
	Status    string
	Hash      string
	Reference string
	// Raw is the unparsed urlencoded body; hash verification depends on
	// the original field order.
	Raw string
}

// Protocol handles settlement callbacks.
type Protocol struct {
	store    bank.Store
	verifier Verifier
	notifier notify.Notifier
}

// NewProtocol wires the settlement protocol.
func NewProtocol(store bank.Store, verifier Verifier, notifier notify.Notifier) *Protocol {
	return &Protocol{store: store, verifier: verifier, notifier: notifier}
}

// HandleCallback validates and settles one gateway callback. Non-paid
// statuses are ignored without touching the ledger; bad proofs and unknown
// references are rejected. A valid paid callback credits the owning account
// and deletes the pending payment in one transaction, then notifies the
// account holder best-effort.
func (p *Protocol) HandleCallback(ctx context.Context, cb Callback) (Outcome, error) {
	if !strings.EqualFold(strings.TrimSpace(cb.Status), "paid") {
		logger.Debug(ctx, "pay", "settlement.ignored",
			slog.String("reference", cb.Reference),
			slog.String("status", cb.Status),
		)
		return OutcomeIgnored, nil
	}

	if cb.Hash == "" || !p.verifier.VerifyHash(cb.Raw) {
		logger.Warn(ctx, "pay", "settlement.rejected",
			slog.String("reference", cb.Reference),
			slog.String("cause", "invalid hash"),
		)
		return OutcomeRejected, ErrInvalidHash
	}

	reference, err := uuid.Parse(cb.Reference)
	if err != nil {
		logger.Warn(ctx, "pay", "settlement.rejected",
			slog.String("reference", cb.Reference),
			slog.String("cause", "malformed reference"),
		)
		return OutcomeRejected, ErrUnknownReference
	}

	var account *bank.Account
	var amount bank.Amount
	err = p.store.WithinTx(ctx, func(tx bank.Store) error {
		payment, err := tx.Payments().FindByID(ctx, reference)
		if err != nil {
			return err
		}
		account, err = tx.Accounts().FindByID(ctx, payment.AccountID)
		if err != nil {
			return err
		}
		amount = payment.Amount
		account.Balance += amount
		if err := tx.Accounts().Save(ctx, account); err != nil {
			return err
		}
		return tx.Payments().Delete(ctx, payment.ID)
	})
	if errors.Is(err, bank.ErrPaymentNotFound) {
		// No pending row: most likely a duplicate delivery of an already
		// settled callback. Must not credit again.
		logger.Warn(ctx, "pay", "settlement.rejected",
			slog.String("reference", cb.Reference),
			slog.String("cause", "unknown or replayed reference"),
		)
		return OutcomeRejected, ErrUnknownReference
	}
	if err != nil {
		return "", fmt.Errorf("settle payment %s: %w", cb.Reference, err)
	}

	logger.Info(ctx, "pay", "settlement.accepted",
		slog.String("reference", cb.Reference),
		slog.Int64("account_id", account.ID),
		slog.String("amount", amount.String()),
		slog.String("balance", account.Balance.String()),
	)

	text := fmt.Sprintf("Your payment was successful. Your new balance is %s", account.Balance)
	if err := p.notifier.Send(ctx, account.Phone, text); err != nil {
		logger.Warn(ctx, "pay", "settlement.notify.fail",
			slog.String("phone", account.Phone),
			slog.String("err", err.Error()),
		)
	}

	return OutcomeAccepted, nil
}
