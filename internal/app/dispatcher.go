package app

import (
	"context"
	"fmt"

	"procurement_digest_bot/internal/domain/mail"
)

// Dispatcher hands composed digests to the mail transport and interprets its verdict.
type Dispatcher struct {
	transport mail.Transport
}

func NewDispatcher(transport mail.Transport) *Dispatcher {
	return &Dispatcher{transport: transport}
}

// Send delivers one message. Both a transport failure and a rejected
// receipt are reported as mail.ErrDelivery carrying the upstream message.
func (d *Dispatcher) Send(ctx context.Context, to []string, subject, html string) error {
	receipt, err := d.transport.Deliver(ctx, mail.Message{To: to, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("%w: %v", mail.ErrDelivery, err)
	}
	if !receipt.Success {
		upstream := receipt.Error
		if upstream == "" {
			upstream = "transport reported failure without a reason"
		}
		return fmt.Errorf("%w: %s", mail.ErrDelivery, upstream)
	}
	return nil
}
