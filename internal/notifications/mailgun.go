package notifications

import (
	"context"
	"fmt"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, message *mailgun.Message) (string, string, error)
}

type mailgunTransport struct {
	client   mailgunSender
	from     string
	template string
}

func newMailgunTransport(cfg config.MailConfig) *mailgunTransport {
	return &mailgunTransport{
		client:   mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
		from:     fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		template: cfg.MailgunTemplate,
	}
}

func (t *mailgunTransport) Kind() enums.TransportKind {
	return enums.TransportMailgun
}

func (t *mailgunTransport) Send(ctx context.Context, msg Message) (string, error) {
	m := t.client.NewMessage(t.from, msg.Subject, msg.Text, msg.To)

	if msg.UseTemplate() {
		m.SetTemplate(t.template)
		for key, value := range msg.TemplateData {
			if err := m.AddTemplateVariable(key, value); err != nil {
				return "", fmt.Errorf("add template variable %q: %w", key, err)
			}
		}
	} else if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	if msg.Attachment != nil {
		m.AddBufferAttachment(msg.Attachment.Filename, msg.Attachment.Data)
	}

	_, id, err := t.client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
