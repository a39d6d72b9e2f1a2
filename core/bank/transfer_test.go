package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufaro-dev/wabank/core/notify"
)

type sentMessage struct {
	phone string
	text  string
}

func collectNotifier(sent *[]sentMessage) notify.Notifier {
	return notify.Func(func(_ context.Context, phone, text string) error {
		*sent = append(*sent, sentMessage{phone: phone, text: text})
		return nil
	})
}

func TestTransferMovesFundsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sender, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	sender.Balance = 5000
	require.NoError(t, store.Accounts().Save(ctx, sender))

	recipient, err := store.Accounts().Create(ctx, "jane roe", "263771111111")
	require.NoError(t, err)

	var sent []sentMessage
	transfers := NewTransfers(store, collectNotifier(&sent))

	got, err := transfers.Execute(ctx, sender.Phone, recipient.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, Amount(3000), got.Balance)

	recipientAfter, err := store.Accounts().FindByID(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, Amount(2000), recipientAfter.Balance)

	require.Len(t, sent, 1)
	assert.Equal(t, recipient.Phone, sent[0].phone)
	assert.Contains(t, sent[0].text, "20.00")
}

func TestTransferInsufficientFundsLeavesBalancesUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sender, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	sender.Balance = 1000
	require.NoError(t, store.Accounts().Save(ctx, sender))

	recipient, err := store.Accounts().Create(ctx, "jane roe", "263771111111")
	require.NoError(t, err)

	var sent []sentMessage
	transfers := NewTransfers(store, collectNotifier(&sent))

	_, err = transfers.Execute(ctx, sender.Phone, recipient.ID, 2000)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	senderAfter, err := store.Accounts().FindByPhone(ctx, sender.Phone)
	require.NoError(t, err)
	assert.Equal(t, Amount(1000), senderAfter.Balance)

	recipientAfter, err := store.Accounts().FindByID(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, Amount(0), recipientAfter.Balance)
	assert.Empty(t, sent)
}

func TestTransferUnknownRecipientRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sender, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	sender.Balance = 5000
	require.NoError(t, store.Accounts().Save(ctx, sender))

	var sent []sentMessage
	transfers := NewTransfers(store, collectNotifier(&sent))

	_, err = transfers.Execute(ctx, sender.Phone, 404, 2000)
	require.ErrorIs(t, err, ErrAccountNotFound)

	senderAfter, err := store.Accounts().FindByPhone(ctx, sender.Phone)
	require.NoError(t, err)
	assert.Equal(t, Amount(5000), senderAfter.Balance)
	assert.Empty(t, sent)
}

func TestTransferNotifyFailureDoesNotFailTransfer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sender, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	sender.Balance = 5000
	require.NoError(t, store.Accounts().Save(ctx, sender))

	recipient, err := store.Accounts().Create(ctx, "jane roe", "263771111111")
	require.NoError(t, err)

	transfers := NewTransfers(store, notify.Func(func(context.Context, string, string) error {
		return errors.New("transport down")
	}))

	got, err := transfers.Execute(ctx, sender.Phone, recipient.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, Amount(3000), got.Balance)
}

func TestTransferToOwnAccountRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	acc, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	acc.Balance = 5000
	require.NoError(t, store.Accounts().Save(ctx, acc))

	var sent []sentMessage
	transfers := NewTransfers(store, collectNotifier(&sent))

	_, err = transfers.Execute(ctx, acc.Phone, acc.ID, 2000)
	require.ErrorIs(t, err, ErrSelfTransfer)

	// Debiting and crediting the same account must not change its balance.
	after, err := store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, Amount(5000), after.Balance)
	assert.Empty(t, sent)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	store := NewMemoryStore()
	transfers := NewTransfers(store, collectNotifier(&[]sentMessage{}))

	_, err := transfers.Execute(context.Background(), "263770000001", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
