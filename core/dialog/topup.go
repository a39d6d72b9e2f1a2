package dialog

import (
	"context"
	"strings"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/session"
)

// Accepted mobile-money prefixes for Ecocash wallets.
var ecocashPrefixes = [...]string{"077", "078"}

const walletLength = 10

func (e *Engine) topupAmount(msg string) (session.Result, error) {
	amount, err := bank.ParseAmount(msg)
	if err != nil {
		return session.Result{Next: StateAwaitingTopupAmount, Reply: textAmountInvalid}, nil
	}
	return session.Result{
		Next:  StateAwaitingTopupWallet,
		Reply: textTopupWallet,
		Patch: session.Data{dataAmount: int64(amount)},
	}, nil
}

func (e *Engine) topupWallet(ctx context.Context, phone, msg string, data session.Data) (session.Result, error) {
	wallet := normalizeWallet(msg, phone)
	if !validWallet(wallet) {
		return session.Result{Next: StateAwaitingTopupWallet, Reply: invalidWalletText(wallet)}, nil
	}

	amount, ok := amountFromData(data)
	if !ok {
		// Amount was lost (expired or cleared session); restart the flow.
		return session.Result{Next: StateAwaitingTopupAmount, Reply: textTopupAmount}, nil
	}

	acc, err := e.store.Accounts().FindByPhone(ctx, phone)
	if err != nil {
		return session.Result{}, err
	}

	payment, err := e.store.Payments().Create(ctx, amount, acc.ID)
	if err != nil {
		return session.Result{}, err
	}

	if err := e.charger.ChargeMobile(ctx, payment.ID.String(), amount, wallet); err != nil {
		return session.Result{}, err
	}

	logger.Info(ctx, "dialog", "topup.initiated",
		slog.String("phone", phone),
		slog.String("wallet", wallet),
		slog.String("reference", payment.ID.String()),
		slog.String("amount", amount.String()),
	)
	return session.Result{
		Next:  StateAwaitingContinueConfirmation,
		Reply: withContinue(textWaitForPin),
		Patch: clearFlowData(),
	}, nil
}

// normalizeWallet resolves the "use my own number" shortcut and rewrites the
// international 263 form to the local 0 form before validation.
func normalizeWallet(wallet, ownPhone string) string {
	wallet = strings.TrimSpace(wallet)
	if wallet == "0" {
		wallet = ownPhone
	}
	if strings.HasPrefix(wallet, "263") && len(wallet) == 12 {
		wallet = "0" + wallet[3:]
	}
	return wallet
}

func validWallet(wallet string) bool {
	if len(wallet) != walletLength {
		return false
	}
	for _, r := range wallet {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, prefix := range ecocashPrefixes {
		if strings.HasPrefix(wallet, prefix) {
			return true
		}
	}
	return false
}

// amountFromData reads the stored amount. Values round-trip as int64 in the
// memory store and float64 after JSON externalization.
func amountFromData(data session.Data) (bank.Amount, bool) {
	switch v := data[dataAmount].(type) {
	case int64:
		return bank.Amount(v), v > 0
	case float64:
		return bank.Amount(v), v > 0
	case int:
		return bank.Amount(v), v > 0
	default:
		return 0, false
	}
}

func recipientFromData(data session.Data) (int64, bool) {
	switch v := data[dataRecipientID].(type) {
	case int64:
		return v, v > 0
	case float64:
		return int64(v), v > 0
	case int:
		return int64(v), v > 0
	default:
		return 0, false
	}
}
