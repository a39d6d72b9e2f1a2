// Package session tracks one mutable conversation per (provider, consumer)
// key and drives each inbound message through a registered processor.
package session

import "context"

// Key identifies one ongoing conversation.
type Key struct {
	ProviderID string
	ConsumerID string
}

// String renders the composite registry key.
func (k Key) String() string {
	return k.ProviderID + "__" + k.ConsumerID
}

// State identifies a dialogue step. The zero value is terminal: a session
// whose next state is StateNone is torn down after the turn.
type State string

// StateNone is the terminal state.
const StateNone State = ""

// Data carries scratch values accumulated across the turns of one conversation.
type Data map[string]any

// Session is the mutable per-conversation record owned by a Store.
type Session struct {
	State State
	Data  Data
}

// Payload is one parsed inbound message.
type Payload struct {
	Message     string
	ProfileName string
}

// Result is the outcome of one processed turn. Patch is shallow-merged into
// the session data; later keys overwrite earlier ones, other keys survive.
// A nil patch value deletes the key, which is how a flow discards its
// in-flight scratch data.
type Result struct {
	Next  State
	Reply string
	Patch Data
}

// Processor turns the current dialogue state and an inbound message into the
// next state, a reply, and a session-data patch.
type Processor interface {
	Process(ctx context.Context, key Key, state State, payload Payload, data Data) (Result, error)
}
