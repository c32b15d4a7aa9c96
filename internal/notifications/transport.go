package notifications

import (
	"context"
	"fmt"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
)

// Attachment is a validated deliverable included with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email, transport-agnostic. TemplateData is used by
// template-hosted providers for the confirmation channel; HTML and Text back
// the composed fallback for every other case.
type Message struct {
	Channel      enums.NotificationChannel
	To           string
	ToName       string
	Subject      string
	HTML         string
	Text         string
	TemplateData map[string]string
	Attachment   *Attachment
}

// UseTemplate reports whether a template-hosted provider should render this
// message from its hosted template instead of the composed body.
func (m Message) UseTemplate() bool {
	return m.Channel == enums.ChannelCustomerConfirmation && len(m.TemplateData) > 0
}

// Transport delivers messages through one provider. Implementations return
// the provider message id when the provider reports one.
type Transport interface {
	Kind() enums.TransportKind
	Send(ctx context.Context, msg Message) (string, error)
}

// ResolveTransport picks the process-wide transport once from configuration,
// in fixed priority order: SendGrid with a hosted template, then Mailgun with
// a hosted template, then plain SMTP. The choice is never re-evaluated per
// call.
func ResolveTransport(cfg config.MailConfig) (Transport, error) {
	if cfg.SendgridAPIKey != "" && cfg.SendgridTemplateID != "" {
		return newSendgridTransport(cfg), nil
	}
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" && cfg.MailgunTemplate != "" {
		return newMailgunTransport(cfg), nil
	}
	if cfg.SMTPHost != "" {
		return newSMTPTransport(cfg), nil
	}
	return nil, fmt.Errorf("no mail transport configured")
}
