// Package dialog implements the conversation engine: a transition function
// that maps the current dialogue state and one inbound message to the next
// state, a reply, and a session-data patch.
package dialog

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/session"
)

// Charger dispatches a mobile-money charge request to the payment gateway.
// The reference must match the pending payment so the settlement callback can
// find it.
type Charger interface {
	ChargeMobile(ctx context.Context, reference string, amount bank.Amount, wallet string) error
}

// Engine drives the banking dialogue. It implements session.Processor.
type Engine struct {
	store          bank.Store
	charger        Charger
	transfers      *bank.Transfers
	supportContact string
}

// NewEngine wires the conversation engine.
func NewEngine(store bank.Store, charger Charger, transfers *bank.Transfers, supportContact string) *Engine {
	return &Engine{
		store:          store,
		charger:        charger,
		transfers:      transfers,
		supportContact: supportContact,
	}
}

// Process handles one turn. The consumer id of the conversation key is the
// party's phone identifier.
func (e *Engine) Process(ctx context.Context, key session.Key, state session.State, payload session.Payload, data session.Data) (session.Result, error) {
	msg := strings.TrimSpace(payload.Message)
	phone := key.ConsumerID

	if strings.EqualFold(msg, CancelKeyword) {
		return e.cancelFlow(textCancelled), nil
	}

	res, err := e.dispatch(ctx, state, phone, msg, payload.ProfileName, data)
	if err != nil {
		return session.Result{}, err
	}

	logger.Debug(ctx, "dialog", "transition",
		slog.String("phone", phone),
		slog.String("state", string(state)),
		slog.String("next_state", string(res.Next)),
	)
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, state session.State, phone, msg, profileName string, data session.Data) (session.Result, error) {
	switch state {
	case StateMenu:
		return e.menuSelection(ctx, phone, msg, profileName)
	case StateAwaitingRegistrationName:
		return e.registerName(ctx, phone, msg)
	case StateAwaitingTopupAmount:
		return e.topupAmount(msg)
	case StateAwaitingTopupWallet:
		return e.topupWallet(ctx, phone, msg, data)
	case StateAwaitingRecipient:
		return e.pickRecipient(ctx, phone, msg)
	case StateAwaitingTransferAmount:
		return e.transferAmount(ctx, phone, msg, data)
	case StateAwaitingTransferConfirmation:
		return e.transferConfirm(ctx, phone, msg, data)
	case StateAwaitingContinueConfirmation:
		return e.continueConfirm(ctx, phone, msg, profileName)
	default:
		return e.initial(ctx, phone, profileName)
	}
}

// initial resolves the entry point: known phones get the menu, unknown phones
// are asked to register. It doubles as the named fallback for unrecognized
// menu selections.
func (e *Engine) initial(ctx context.Context, phone, profileName string) (session.Result, error) {
	acc, err := e.store.Accounts().FindByPhone(ctx, phone)
	if errors.Is(err, bank.ErrAccountNotFound) {
		return session.Result{
			Next:  StateAwaitingRegistrationName,
			Reply: greetingPrompt(profileName),
		}, nil
	}
	if err != nil {
		return session.Result{}, err
	}

	name := profileName
	if name == "" {
		name = capitalizeWords(acc.Name)
	}
	return session.Result{Next: StateMenu, Reply: menuText(name)}, nil
}

func (e *Engine) menuSelection(ctx context.Context, phone, selection, profileName string) (session.Result, error) {
	switch selection {
	case "1":
		return e.balance(ctx, phone)
	case "2":
		return session.Result{Next: StateAwaitingTopupAmount, Reply: textTopupAmount}, nil
	case "3":
		return session.Result{Next: StateAwaitingRecipient, Reply: textRecipientPrompt}, nil
	case "4":
		return session.Result{
			Next:  StateAwaitingContinueConfirmation,
			Reply: withContinue(supportText(e.supportContact)),
		}, nil
	default:
		return e.initial(ctx, phone, profileName)
	}
}

func (e *Engine) balance(ctx context.Context, phone string) (session.Result, error) {
	acc, err := e.store.Accounts().FindByPhone(ctx, phone)
	if err != nil {
		return session.Result{}, err
	}
	return session.Result{
		Next:  StateAwaitingContinueConfirmation,
		Reply: withContinue(balanceText(acc)),
	}, nil
}

func (e *Engine) registerName(ctx context.Context, phone, name string) (session.Result, error) {
	if len(strings.Fields(name)) < 2 {
		return session.Result{Next: StateAwaitingRegistrationName, Reply: textNameInvalid}, nil
	}

	acc, err := e.store.Accounts().Create(ctx, name, phone)
	if err != nil {
		return session.Result{}, err
	}
	logger.Info(ctx, "dialog", "account.created",
		slog.String("phone", phone),
		slog.String("account_no", acc.AccountNo),
	)
	return session.Result{
		Next:  StateAwaitingContinueConfirmation,
		Reply: withContinue(registrationText(acc)),
	}, nil
}

func (e *Engine) continueConfirm(ctx context.Context, phone, selection, profileName string) (session.Result, error) {
	if selection == "1" {
		return e.initial(ctx, phone, profileName)
	}
	return session.Result{Next: session.StateNone, Reply: textGoodbye}, nil
}

// cancelFlow acknowledges the cancellation keyword and discards any
// in-flight flow data.
func (e *Engine) cancelFlow(ack string) session.Result {
	return session.Result{
		Next:  StateAwaitingContinueConfirmation,
		Reply: withContinue(ack),
		Patch: clearFlowData(),
	}
}

func clearFlowData() session.Data {
	return session.Data{dataAmount: nil, dataRecipientID: nil}
}
