// Package notify delivers outbound WhatsApp messages on a best-effort basis.
// Delivery failures are logged and never propagated to the flows that
// triggered them.
package notify

import "context"

// Notifier sends a text message to the given phone identifier.
type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}

// Func adapts a bare function to the Notifier interface.
type Func func(ctx context.Context, phone, text string) error

// Send executes the underlying function.
func (f Func) Send(ctx context.Context, phone, text string) error {
	return f(ctx, phone, text)
}
