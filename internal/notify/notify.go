// Package notify composes the delivery notification email and submits it
// through the SMTP relay.
package notify

import (
	"bytes"
	"context"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is a plain-text notification.
type Message struct {
	Subject string
	From    string
	To      []string
	Cc      []string
	Body    string
	Date    time.Time // Zero uses the send time
}

// Gateway submits messages. Send returns the serialized message as it was
// handed to the relay.
type Gateway interface {
	Send(ctx context.Context, msg Message) ([]byte, error)
}

// TLS policies accepted by SMTPOptions.
const (
	TLSNone          = "none"
	TLSOpportunistic = "opportunistic"
	TLSMandatory     = "mandatory"
)

// SMTPOptions configures the relay connection.
type SMTPOptions struct {
	Host      string
	Port      int
	TLSPolicy string
	Username  string
	Password  string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// SMTPMailer implements Gateway with go-mail.
type SMTPMailer struct {
	opts   SMTPOptions
	logger *zap.Logger
}

var _ Gateway = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer. Connections are opened per Send.
func NewSMTPMailer(opts SMTPOptions) *SMTPMailer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{opts: opts, logger: logger}
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithTLSPolicy(tlsPolicy(m.opts.TLSPolicy))}
	if m.opts.Port > 0 {
		opts = append(opts, mail.WithPort(m.opts.Port))
	}
	if m.opts.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.opts.Timeout))
	}
	if m.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password))
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case TLSNone:
		return mail.NoTLS
	case TLSMandatory:
		return mail.TLSMandatory
	default:
		return mail.TLSOpportunistic
	}
}

// Send implements Gateway.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) ([]byte, error) {
	mm, err := Compose(msg)
	if err != nil {
		return nil, err
	}

	client, err := mail.NewClient(m.opts.Host, m.clientOptions()...)
	if err != nil {
		return nil, &SubmissionError{Relay: m.opts.Host, Message: "invalid relay settings", Cause: err}
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return nil, &SubmissionError{Relay: m.opts.Host, Message: "relay rejected message", Cause: err}
	}

	m.logger.Info("notification submitted",
		zap.String("relay", m.opts.Host),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))

	return Serialize(mm)
}

// Compose builds the MIME message for msg.
func Compose(msg Message) (*mail.Msg, error) {
	mm := mail.NewMsg()
	if err := mm.From(msg.From); err != nil {
		return nil, &AddressError{Field: "From", Cause: err}
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, &AddressError{Field: "To", Cause: err}
	}
	if len(msg.Cc) > 0 {
		if err := mm.Cc(msg.Cc...); err != nil {
			return nil, &AddressError{Field: "Cc", Cause: err}
		}
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.Date.IsZero() {
		mm.SetDate()
	} else {
		mm.SetDateWithValue(msg.Date)
	}
	mm.SetMessageID()
	return mm, nil
}

// Serialize renders the message exactly as it is written to the relay.
func Serialize(mm *mail.Msg) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := mm.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
