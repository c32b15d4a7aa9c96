package notifications

import (
	"context"
	"io"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"gopkg.in/gomail.v2"
)

type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpTransport struct {
	dialer    smtpDialer
	fromEmail string
	fromName  string
}

func newSMTPTransport(cfg config.MailConfig) *smtpTransport {
	return &smtpTransport{
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (t *smtpTransport) Kind() enums.TransportKind {
	return enums.TransportSMTP
}

// Send composes a multipart message. SMTP reports no provider message id,
// and gomail dials synchronously without context support, so the ctx is
// only honored up front.
func (t *smtpTransport) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.fromEmail, t.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if msg.Attachment != nil {
		data := msg.Attachment.Data
		m.Attach(msg.Attachment.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {msg.Attachment.ContentType},
			}),
		)
	}

	if err := t.dialer.DialAndSend(m); err != nil {
		return "", err
	}
	return "", nil
}
