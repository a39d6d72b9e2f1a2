package dialog

import (
	"context"
	"errors"
	"strings"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/session"
)

func (e *Engine) pickRecipient(ctx context.Context, phone, msg string) (session.Result, error) {
	input := strings.TrimSpace(msg)

	var recipient *bank.Account
	var err error
	if len(input) == bank.AccountNoLength && digitsOnly(input) {
		recipient, err = e.store.Accounts().FindByAccountNo(ctx, input)
	} else {
		recipient, err = e.store.Accounts().FindByPhone(ctx, normalizePhone(input))
	}
	if errors.Is(err, bank.ErrAccountNotFound) {
		return session.Result{Next: StateAwaitingRecipient, Reply: unknownRecipientText(input)}, nil
	}
	if err != nil {
		return session.Result{}, err
	}
	if recipient.Phone == phone {
		return session.Result{Next: StateAwaitingRecipient, Reply: textSelfTransfer}, nil
	}

	return session.Result{
		Next:  StateAwaitingTransferAmount,
		Reply: transferAmountPrompt(recipient.Name),
		Patch: session.Data{dataRecipientID: recipient.ID},
	}, nil
}

func (e *Engine) transferAmount(ctx context.Context, phone, msg string, data session.Data) (session.Result, error) {
	amount, err := bank.ParseAmount(msg)
	if err != nil {
		return session.Result{Next: StateAwaitingTransferAmount, Reply: textAmountInvalid}, nil
	}

	sender, err := e.store.Accounts().FindByPhone(ctx, phone)
	if err != nil {
		return session.Result{}, err
	}
	if sender.Balance < amount {
		return session.Result{Next: StateAwaitingTransferAmount, Reply: transferMaxText(sender.Balance)}, nil
	}

	recipientID, ok := recipientFromData(data)
	if !ok {
		return session.Result{Next: StateAwaitingRecipient, Reply: textRecipientPrompt}, nil
	}
	recipient, err := e.store.Accounts().FindByID(ctx, recipientID)
	if err != nil {
		return session.Result{}, err
	}

	return session.Result{
		Next:  StateAwaitingTransferConfirmation,
		Reply: transferConfirmPrompt(recipient.Name, amount),
		Patch: session.Data{dataAmount: int64(amount)},
	}, nil
}

func (e *Engine) transferConfirm(ctx context.Context, phone, msg string, data session.Data) (session.Result, error) {
	if msg != "1" {
		return e.cancelFlow(textTransferCancel), nil
	}

	amount, okAmount := amountFromData(data)
	recipientID, okRecipient := recipientFromData(data)
	if !okAmount || !okRecipient {
		return e.cancelFlow(textTransferCancel), nil
	}

	sender, err := e.transfers.Execute(ctx, phone, recipientID, amount)
	if errors.Is(err, bank.ErrInsufficientFunds) {
		return e.cancelFlow(textTransferFailed), nil
	}
	if errors.Is(err, bank.ErrSelfTransfer) {
		return e.cancelFlow(textTransferCancel), nil
	}
	if err != nil {
		return session.Result{}, err
	}

	return session.Result{
		Next:  StateAwaitingContinueConfirmation,
		Reply: withContinue(transferDoneText(sender.Balance)),
		Patch: clearFlowData(),
	}, nil
}

// normalizePhone rewrites the local 0 form to the international 263 form used
// as the account phone identifier.
func normalizePhone(phone string) string {
	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		return "263" + phone[1:]
	}
	return phone
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
