// Package notify carries out-of-band messages (welcome, password reset,
// confirmation) away from the request path. The auth service only enqueues;
// delivery happens in a separate worker process.
package notify

import "context"

// Message is a single out-of-band notification to a user.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier enqueues a message for delivery. Implementations must not block
// on the actual delivery; callers never depend on the outcome.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
