package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPDispatcher sends each message over a fresh SMTP connection.
type SMTPDispatcher struct {
	cfg  SMTPConfig
	send func(ctx context.Context, c *gomail.Client, m *gomail.Msg) error
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{
		cfg: cfg,
		send: func(ctx context.Context, c *gomail.Client, m *gomail.Msg) error {
			return c.DialAndSendWithContext(ctx, m)
		},
	}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	m, err := d.buildMessage(msg)
	if err != nil {
		return err
	}

	c, err := d.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	if err := d.send(ctx, c, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	return nil
}

func (d *SMTPDispatcher) buildMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", d.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}

func (d *SMTPDispatcher) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(d.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(d.cfg.Username),
			gomail.WithPassword(d.cfg.Password),
		)
	}
	if d.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(d.cfg.Timeout))
	}
	return gomail.NewClient(d.cfg.Host, opts...)
}
