// Package mail delivers outgoing account emails. Dispatcher implementations
// send over SMTP, queue for background delivery, or only log.
package mail

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophid/internal/logging"
)

var (
	ErrOutboxFull   = errors.New("mail outbox is full")
	ErrOutboxClosed = errors.New("mail outbox is closed")
)

// Message is one outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// LogDispatcher writes messages to the log instead of sending them.
type LogDispatcher struct {
	log logging.Logger
}

func NewLogDispatcher(log logging.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With("module", "mail")}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	d.log.Info(ctx, "mail not sent, no SMTP host configured",
		"to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	return nil
}
