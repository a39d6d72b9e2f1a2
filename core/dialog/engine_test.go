package dialog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/notify"
	"github.com/mufaro-dev/wabank/core/session"
)

type charge struct {
	reference string
	amount    bank.Amount
	wallet    string
}

type fakeCharger struct {
	charges []charge
	err     error
}

func (f *fakeCharger) ChargeMobile(_ context.Context, reference string, amount bank.Amount, wallet string) error {
	if f.err != nil {
		return f.err
	}
	f.charges = append(f.charges, charge{reference: reference, amount: amount, wallet: wallet})
	return nil
}

type fixture struct {
	store       *bank.MemoryStore
	charger     *fakeCharger
	coordinator *session.Coordinator
	sent        []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   bank.NewMemoryStore(),
		charger: &fakeCharger{},
	}
	notifier := notify.Func(func(_ context.Context, _, text string) error {
		f.sent = append(f.sent, text)
		return nil
	})
	transfers := bank.NewTransfers(f.store, notifier)
	engine := NewEngine(f.store, f.charger, transfers, "support@bank.example")
	f.coordinator = session.NewCoordinator(session.NewMemoryStore(), engine)
	return f
}

func (f *fixture) say(t *testing.T, phone, msg string) string {
	t.Helper()
	reply, err := f.coordinator.HandleMessage(context.Background(), "bot", phone,
		session.Payload{Message: msg, ProfileName: "John"})
	require.NoError(t, err)
	return reply
}

func (f *fixture) seedAccount(t *testing.T, name, phone string, balance bank.Amount) *bank.Account {
	t.Helper()
	acc, err := f.store.Accounts().Create(context.Background(), name, phone)
	require.NoError(t, err)
	acc.Balance = balance
	require.NoError(t, f.store.Accounts().Save(context.Background(), acc))
	return acc
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"

	reply := f.say(t, phone, "Hi")
	assert.Contains(t, reply, "John")
	assert.Contains(t, reply, "full legal name")

	reply = f.say(t, phone, "John")
	assert.Equal(t, textNameInvalid, reply)

	reply = f.say(t, phone, "john doe")
	assert.Contains(t, reply, "John Doe")
	assert.Contains(t, reply, "*Balance*: 0")
	assert.Contains(t, reply, continueSuffix)

	acc, err := f.store.Accounts().FindByPhone(context.Background(), phone)
	require.NoError(t, err)
	assert.Len(t, acc.AccountNo, bank.AccountNoLength)

	// "1" continues into the menu now that the account exists.
	reply = f.say(t, phone, "1")
	assert.Contains(t, reply, "What do you want to do today?")

	reply = f.say(t, phone, "1")
	assert.Contains(t, reply, "*Balance*: 0.00")

	reply = f.say(t, phone, "2")
	assert.Equal(t, textGoodbye, reply)
}

func TestTopupFlow(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"
	f.seedAccount(t, "john doe", phone, 0)

	f.say(t, phone, "Hi")
	reply := f.say(t, phone, "2")
	assert.Equal(t, textTopupAmount, reply)

	reply = f.say(t, phone, "ten")
	assert.Equal(t, textAmountInvalid, reply)

	reply = f.say(t, phone, "10")
	assert.Equal(t, textTopupWallet, reply)

	// "0" falls back to the party's own number, normalized to local form.
	reply = f.say(t, phone, "0")
	assert.Contains(t, reply, textWaitForPin)
	assert.Contains(t, reply, continueSuffix)

	require.Len(t, f.charger.charges, 1)
	assert.Equal(t, bank.Amount(1000), f.charger.charges[0].amount)
	assert.Equal(t, "0770000001", f.charger.charges[0].wallet)

	payment, err := f.store.Payments().FindByID(context.Background(), mustUUID(t, f.charger.charges[0].reference))
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(1000), payment.Amount)
}

func TestTopupRejectsForeignWallet(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"
	f.seedAccount(t, "john doe", phone, 0)

	f.say(t, phone, "Hi")
	f.say(t, phone, "2")
	f.say(t, phone, "10")

	reply := f.say(t, phone, "0712345678")
	assert.Contains(t, reply, "not a valid Ecocash wallet")
	assert.Empty(t, f.charger.charges)

	// The flow stays in the wallet step until a valid wallet arrives.
	reply = f.say(t, phone, "0781234567")
	assert.Contains(t, reply, textWaitForPin)
	require.Len(t, f.charger.charges, 1)
}

func TestTransferFlow(t *testing.T) {
	f := newFixture(t)
	sender := f.seedAccount(t, "john doe", "263770000001", 5000)
	recipient := f.seedAccount(t, "jane roe", "263771111111", 0)

	f.say(t, sender.Phone, "Hi")
	reply := f.say(t, sender.Phone, "3")
	assert.Equal(t, textRecipientPrompt, reply)

	// Local-form phone input resolves against the international identifier.
	reply = f.say(t, sender.Phone, "0771111111")
	assert.Contains(t, reply, "Jane Roe")

	reply = f.say(t, sender.Phone, "100")
	assert.Contains(t, reply, "at most 50.00")

	reply = f.say(t, sender.Phone, "20")
	assert.Contains(t, reply, "Send 20.00 to *Jane Roe*?")

	reply = f.say(t, sender.Phone, "1")
	assert.Contains(t, reply, "Your new balance is 30.00")

	senderAfter, err := f.store.Accounts().FindByPhone(context.Background(), sender.Phone)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(3000), senderAfter.Balance)

	recipientAfter, err := f.store.Accounts().FindByID(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(2000), recipientAfter.Balance)

	require.Len(t, f.sent, 1)
	assert.Contains(t, f.sent[0], "received 20.00")
}

func TestTransferByAccountNo(t *testing.T) {
	f := newFixture(t)
	sender := f.seedAccount(t, "john doe", "263770000001", 5000)
	recipient := f.seedAccount(t, "jane roe", "263771111111", 0)

	f.say(t, sender.Phone, "Hi")
	f.say(t, sender.Phone, "3")
	reply := f.say(t, sender.Phone, recipient.AccountNo)
	assert.Contains(t, reply, "Jane Roe")
}

func TestTransferToOwnAccountReprompts(t *testing.T) {
	f := newFixture(t)
	sender := f.seedAccount(t, "john doe", "263770000001", 5000)

	f.say(t, sender.Phone, "Hi")
	f.say(t, sender.Phone, "3")

	// Neither the sender's own phone nor their own account number may pass
	// the recipient step.
	reply := f.say(t, sender.Phone, "0770000001")
	assert.Equal(t, textSelfTransfer, reply)

	reply = f.say(t, sender.Phone, sender.AccountNo)
	assert.Equal(t, textSelfTransfer, reply)

	after, err := f.store.Accounts().FindByPhone(context.Background(), sender.Phone)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(5000), after.Balance)
}

func TestTransferUnknownRecipientReprompts(t *testing.T) {
	f := newFixture(t)
	sender := f.seedAccount(t, "john doe", "263770000001", 5000)

	f.say(t, sender.Phone, "Hi")
	f.say(t, sender.Phone, "3")
	reply := f.say(t, sender.Phone, "0779999999")
	assert.Contains(t, reply, "No account matches")
}

func TestTransferDeclineDiscardsFlow(t *testing.T) {
	f := newFixture(t)
	sender := f.seedAccount(t, "john doe", "263770000001", 5000)
	recipient := f.seedAccount(t, "jane roe", "263771111111", 0)

	f.say(t, sender.Phone, "Hi")
	f.say(t, sender.Phone, "3")
	f.say(t, sender.Phone, "0771111111")
	f.say(t, sender.Phone, "20")

	reply := f.say(t, sender.Phone, "2")
	assert.Contains(t, reply, textTransferCancel)

	senderAfter, err := f.store.Accounts().FindByPhone(context.Background(), sender.Phone)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(5000), senderAfter.Balance)

	recipientAfter, err := f.store.Accounts().FindByID(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(0), recipientAfter.Balance)
}

func TestCancelKeywordAbortsAnyFlow(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"
	f.seedAccount(t, "john doe", phone, 0)

	f.say(t, phone, "Hi")
	f.say(t, phone, "2")
	f.say(t, phone, "10")

	reply := f.say(t, phone, "CANCEL")
	assert.Contains(t, reply, textCancelled)
	assert.Contains(t, reply, continueSuffix)
	assert.Empty(t, f.charger.charges)

	// Starting over must not reuse the discarded amount.
	f.say(t, phone, "1")
	reply = f.say(t, phone, "2")
	assert.Equal(t, textTopupAmount, reply)
}

func TestMenuSupportOption(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"
	f.seedAccount(t, "john doe", phone, 0)

	f.say(t, phone, "Hi")
	reply := f.say(t, phone, "4")
	assert.Contains(t, reply, "support@bank.example")
	assert.Contains(t, reply, continueSuffix)
}

func TestUnrecognizedMenuInputFallsBack(t *testing.T) {
	f := newFixture(t)
	phone := "263770000001"
	f.seedAccount(t, "john doe", phone, 0)

	f.say(t, phone, "Hi")
	reply := f.say(t, phone, "9")
	assert.Contains(t, reply, "What do you want to do today?")
}

func TestWalletNormalization(t *testing.T) {
	assert.Equal(t, "0770000001", normalizeWallet("263770000001", ""))
	assert.Equal(t, "0770000001", normalizeWallet("0", "263770000001"))
	assert.Equal(t, "0781234567", normalizeWallet(" 0781234567 ", ""))

	assert.True(t, validWallet("0771234567"))
	assert.True(t, validWallet("0781234567"))
	assert.False(t, validWallet("0711234567"))
	assert.False(t, validWallet("077123456"))
	assert.False(t, validWallet("07712345678"))
	assert.False(t, validWallet("077123456a"))
}

func TestPhoneNormalization(t *testing.T) {
	assert.Equal(t, "263771111111", normalizePhone("0771111111"))
	assert.Equal(t, "263771111111", normalizePhone("263771111111"))
	assert.Equal(t, "12345", normalizePhone("12345"))
}
