package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/surokacs/petertrain-bot/core/logger"
)

// SMTPOptions configures the mail relay.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Enabled reports whether enough settings are present to send mail.
func (o SMTPOptions) Enabled() bool {
	return strings.TrimSpace(o.Host) != "" && strings.TrimSpace(o.From) != ""
}

// SMTPDispatcher sends mail through an authenticated SMTP relay. Port 465
// uses implicit TLS, every other port requires STARTTLS.
type SMTPDispatcher struct {
	opts SMTPOptions
}

// NewSMTPDispatcher validates opts and fills defaults.
func NewSMTPDispatcher(opts SMTPOptions) (*SMTPDispatcher, error) {
	if !opts.Enabled() {
		return nil, errors.New("notify: smtp host and from address are required")
	}
	if opts.Port <= 0 {
		opts.Port = 465
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if _, err := newMessage(opts.From, opts.From, "", ""); err != nil {
		return nil, fmt.Errorf("notify: invalid from address: %w", err)
	}
	return &SMTPDispatcher{opts: opts}, nil
}

func newMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (d *SMTPDispatcher) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(d.opts.Port),
		mail.WithTimeout(d.opts.Timeout),
	}
	if d.opts.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if d.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.opts.Username),
			mail.WithPassword(d.opts.Password),
		)
	}
	return mail.NewClient(d.opts.Host, opts...)
}

// Send implements Dispatcher. Each call opens its own connection.
func (d *SMTPDispatcher) Send(ctx context.Context, to, subject, body string) error {
	msg, err := newMessage(d.opts.From, to, subject, body)
	if err != nil {
		return permanent{fmt.Errorf("notify: build message: %w", err)}
	}
	c, err := d.client()
	if err != nil {
		return permanent{fmt.Errorf("notify: smtp client: %w", err)}
	}
	start := time.Now()
	err = c.DialAndSendWithContext(ctx, msg)
	logger.Debug(ctx, component, "smtp.send",
		slog.String("to", logger.MaskEmail(to)),
		slog.String("host", d.opts.Host),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && sendErr.IsTemp() {
			return transient{fmt.Errorf("notify: smtp send: %w", err)}
		}
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

// permanent marks errors that a retry cannot fix.
type permanent struct{ err error }

func (p permanent) Error() string   { return p.err.Error() }
func (p permanent) Unwrap() error   { return p.err }
func (p permanent) Retryable() bool { return false }

// transient marks 4xx replies and other temporary relay failures.
type transient struct{ err error }

func (t transient) Error() string   { return t.err.Error() }
func (t transient) Unwrap() error   { return t.err }
func (t transient) Retryable() bool { return true }
