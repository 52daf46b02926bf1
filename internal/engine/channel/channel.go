// internal/engine/channel/channel.go
package channel

import "context"

// Message is one rendered notification ready for transport. Subject is empty
// for sms messages.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Adapter delivers a rendered message over one transport. Implementations
// must honor the context deadline; the dispatcher bounds every call so one
// slow transport cannot stall a bulk batch.
type Adapter interface {
	Send(ctx context.Context, msg Message) error
}
