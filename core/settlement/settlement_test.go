package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/notify"
)

type staticVerifier bool

func (v staticVerifier) VerifyHash(string) bool { return bool(v) }

func seedPendingPayment(t *testing.T, store bank.Store, amount bank.Amount) (*bank.Account, *bank.Payment) {
	t.Helper()
	ctx := context.Background()
	acc, err := store.Accounts().Create(ctx, "john doe", "263770000001")
	require.NoError(t, err)
	payment, err := store.Payments().Create(ctx, amount, acc.ID)
	require.NoError(t, err)
	return acc, payment
}

func paidCallback(reference string) Callback {
	return Callback{
		Status:    "Paid",
		Hash:      "ABCDEF",
		Reference: reference,
		Raw:       "reference=" + reference + "&status=Paid&hash=ABCDEF",
	}
}

func TestHandleCallbackCreditsOnce(t *testing.T) {
	ctx := context.Background()
	store := bank.NewMemoryStore()
	acc, payment := seedPendingPayment(t, store, 1500)

	var sent []string
	p := NewProtocol(store, staticVerifier(true), notify.Func(func(_ context.Context, _, text string) error {
		sent = append(sent, text)
		return nil
	}))

	outcome, err := p.HandleCallback(ctx, paidCallback(payment.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	after, err := store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(1500), after.Balance)

	_, err = store.Payments().FindByID(ctx, payment.ID)
	assert.ErrorIs(t, err, bank.ErrPaymentNotFound)

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "15.00")

	// A replay of the same callback must not credit again.
	outcome, err = p.HandleCallback(ctx, paidCallback(payment.ID.String()))
	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, ErrUnknownReference)

	after, err = store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(1500), after.Balance)
}

func TestHandleCallbackIgnoresNonPaidStatus(t *testing.T) {
	ctx := context.Background()
	store := bank.NewMemoryStore()
	acc, payment := seedPendingPayment(t, store, 1500)

	p := NewProtocol(store, staticVerifier(true), notify.Func(func(context.Context, string, string) error {
		t.Fatal("nothing should be sent")
		return nil
	}))

	cb := paidCallback(payment.ID.String())
	cb.Status = "Cancelled"
	outcome, err := p.HandleCallback(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	after, err := store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(0), after.Balance)

	// The pending payment stays for a later paid callback.
	_, err = store.Payments().FindByID(ctx, payment.ID)
	require.NoError(t, err)
}

func TestHandleCallbackRejectsBadHash(t *testing.T) {
	ctx := context.Background()
	store := bank.NewMemoryStore()
	acc, payment := seedPendingPayment(t, store, 1500)

	p := NewProtocol(store, staticVerifier(false), notify.Func(func(context.Context, string, string) error {
		t.Fatal("nothing should be sent")
		return nil
	}))

	outcome, err := p.HandleCallback(ctx, paidCallback(payment.ID.String()))
	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, ErrInvalidHash)

	after, err := store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(0), after.Balance)
}

func TestHandleCallbackRejectsMissingHash(t *testing.T) {
	store := bank.NewMemoryStore()
	_, payment := seedPendingPayment(t, store, 1500)

	p := NewProtocol(store, staticVerifier(true), notify.Func(func(context.Context, string, string) error {
		return nil
	}))

	cb := paidCallback(payment.ID.String())
	cb.Hash = ""
	outcome, err := p.HandleCallback(context.Background(), cb)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestHandleCallbackRejectsMalformedReference(t *testing.T) {
	store := bank.NewMemoryStore()
	p := NewProtocol(store, staticVerifier(true), notify.Func(func(context.Context, string, string) error {
		return nil
	}))

	outcome, err := p.HandleCallback(context.Background(), paidCallback("not-a-reference"))
	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestHandleCallbackRejectsUnknownReference(t *testing.T) {
	store := bank.NewMemoryStore()
	p := NewProtocol(store, staticVerifier(true), notify.Func(func(context.Context, string, string) error {
		return nil
	}))

	outcome, err := p.HandleCallback(context.Background(), paidCallback(uuid.NewString()))
	assert.Equal(t, OutcomeRejected, outcome)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestHandleCallbackSwallowsNotifyFailure(t *testing.T) {
	ctx := context.Background()
	store := bank.NewMemoryStore()
	acc, payment := seedPendingPayment(t, store, 1500)

	p := NewProtocol(store, staticVerifier(true), notify.Func(func(context.Context, string, string) error {
		return errors.New("transport down")
	}))

	outcome, err := p.HandleCallback(ctx, paidCallback(payment.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	after, err := store.Accounts().FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(1500), after.Balance)
}
