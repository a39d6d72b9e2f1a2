package dialog

import "github.com/mufaro-dev/wabank/core/session"

// Dialogue states. A message is interpreted according to the state the
// conversation was left in by the previous turn; the terminal state is
// session.StateNone.
const (
	StateMenu                         session.State = "menu"
	StateAwaitingRegistrationName     session.State = "awaiting-registration-name"
	StateAwaitingTopupAmount          session.State = "awaiting-topup-amount"
	StateAwaitingTopupWallet          session.State = "awaiting-topup-wallet"
	StateAwaitingRecipient            session.State = "awaiting-recipient"
	StateAwaitingTransferAmount       session.State = "awaiting-transfer-amount"
	StateAwaitingTransferConfirmation session.State = "awaiting-transfer-confirmation"
	StateAwaitingContinueConfirmation session.State = "awaiting-continue-confirmation"
)

// CancelKeyword aborts any in-flight flow when sent as the message text.
// The comparison is case-insensitive and runs against the extracted message,
// not the raw envelope.
const CancelKeyword = "cancel"

// Session data keys. Only these keys are ever written, and each flow clears
// its own keys when it completes or is cancelled so values cannot leak into
// an unrelated flow.
const (
	dataAmount      = "amount"
	dataRecipientID = "recipientAccountId"
)
