package smsapi

import "context"

// Messenger defines the outbound messaging capability used by the
// broadcaster and the reply handlers. This allows using both the real
// Twilio-backed client and mocks.
type Messenger interface {
	// Send delivers one text message to the phone number and returns
	// the provider's message id. At most one attempt is made; callers
	// decide whether a failure aborts or is skipped.
	Send(ctx context.Context, to, body string) (string, error)
}
