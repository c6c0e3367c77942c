// internal/domain/mail/mail.go
package mail

import (
	"context"
	"fmt"
)

// ErrDelivery is returned when the mail transport did not accept a message.
var ErrDelivery = fmt.Errorf("mail delivery failed")

// Message is what crosses the mail transport boundary.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Receipt is the transport's verdict on a message.
type Receipt struct {
	Success bool
	Error   string
}

// Transport hands messages to the mail system.
// A non-nil error means the transport itself failed; a rejected message
// comes back as a Receipt with Success set to false.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (Receipt, error)
}
