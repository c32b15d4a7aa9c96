package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendgridTransport struct {
	client     sendgridSender
	fromEmail  string
	fromName   string
	templateID string
}

func newSendgridTransport(cfg config.MailConfig) *sendgridTransport {
	return &sendgridTransport{
		client:     sendgrid.NewSendClient(cfg.SendgridAPIKey),
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		templateID: cfg.SendgridTemplateID,
	}
}

func (t *sendgridTransport) Kind() enums.TransportKind {
	return enums.TransportSendgrid
}

func (t *sendgridTransport) Send(ctx context.Context, msg Message) (string, error) {
	from := mail.NewEmail(t.fromName, t.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	var email *mail.SGMailV3
	if msg.UseTemplate() {
		email = mail.NewV3Mail()
		email.SetFrom(from)
		email.SetTemplateID(t.templateID)
		p := mail.NewPersonalization()
		p.AddTos(to)
		for key, value := range msg.TemplateData {
			p.SetDynamicTemplateData(key, value)
		}
		email.AddPersonalizations(p)
	} else {
		email = mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	}

	if msg.Attachment != nil {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(msg.Attachment.Data))
		a.SetType(msg.Attachment.ContentType)
		a.SetFilename(msg.Attachment.Filename)
		a.SetDisposition("attachment")
		email.AddAttachment(a)
	}

	resp, err := t.client.SendWithContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return messageIDFromHeaders(resp.Headers), nil
}

func messageIDFromHeaders(headers map[string][]string) string {
	for _, key := range []string{"X-Message-Id", "X-Message-ID"} {
		if values, ok := headers[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
