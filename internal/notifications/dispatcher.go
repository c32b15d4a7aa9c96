package notifications

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/internal/assets"
	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
	"github.com/google/uuid"
)

const fallbackCustomerName = "Valued Customer"

var attachmentNameRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// AttemptDTO reports the outcome of a single send.
type AttemptDTO struct {
	ID                uuid.UUID                 `json:"id"`
	OrderID           string                    `json:"order_id"`
	Channel           enums.NotificationChannel `json:"channel"`
	Transport         enums.TransportKind       `json:"transport"`
	Recipient         string                    `json:"recipient"`
	Outcome           enums.NotificationOutcome `json:"outcome"`
	ProviderMessageID *string                   `json:"provider_message_id,omitempty"`
	ErrorDetail       *string                   `json:"error_detail,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// Service sends the three notification channels and logs every attempt.
// Send failures are recorded, never propagated as pipeline errors; the
// remedial path for a lost confirmation is an administrative resend.
type Service interface {
	SendCustomerConfirmation(ctx context.Context, order orders.OrderDTO, asset *assets.Asset) AttemptDTO
	SendCustomerFailure(ctx context.Context, order orders.OrderDTO) AttemptDTO
	SendOperatorNotice(ctx context.Context, order orders.OrderDTO) AttemptDTO
	ListByOrder(ctx context.Context, orderID string) ([]AttemptDTO, error)
	TransportKind() enums.TransportKind
}

// ServiceParams wires the dispatcher dependencies.
type ServiceParams struct {
	Transport Transport
	Repo      Repository
	Mail      config.MailConfig
	Links     config.LinkConfig
	Logger    *logger.Logger
	Pipeline  *metrics.PipelineMetrics
}

type service struct {
	transport Transport
	repo      Repository
	mail      config.MailConfig
	links     config.LinkConfig
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
}

// NewService constructs the notification dispatcher. The transport is fixed
// for the process lifetime.
func NewService(params ServiceParams) (Service, error) {
	if params.Transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("attempt repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		transport: params.Transport,
		repo:      params.Repo,
		mail:      params.Mail,
		links:     params.Links,
		logg:      params.Logger,
		pipeline:  params.Pipeline,
	}, nil
}

func (s *service) TransportKind() enums.TransportKind {
	return s.transport.Kind()
}

// SendCustomerConfirmation delivers the purchase confirmation. A validated
// asset is attached; otherwise the message carries a download or support
// link so the customer always has a path to the deliverable.
func (s *service) SendCustomerConfirmation(ctx context.Context, order orders.OrderDTO, asset *assets.Asset) AttemptDTO {
	link := s.deliveryLink(order)
	msg := Message{
		Channel:      enums.ChannelCustomerConfirmation,
		To:           order.CustomerEmail,
		ToName:       order.CustomerName,
		Subject:      fmt.Sprintf("Thank you for your purchase - %s", order.Title),
		TemplateData: s.confirmationTemplateData(order, link),
	}
	msg.HTML, msg.Text = confirmationBody(order, link)

	if asset != nil && asset.Validated {
		msg.Attachment = &Attachment{
			Filename:    attachmentFilename(order.Title),
			ContentType: "application/zip",
			Data:        asset.Bytes,
		}
	}

	return s.deliver(ctx, order.OrderID, msg)
}

// SendCustomerFailure tells the customer their payment did not go through.
func (s *service) SendCustomerFailure(ctx context.Context, order orders.OrderDTO) AttemptDTO {
	reason := "Payment failed"
	if order.FailureReason != nil && *order.FailureReason != "" {
		reason = *order.FailureReason
	}

	msg := Message{
		Channel: enums.ChannelCustomerFailure,
		To:      order.CustomerEmail,
		ToName:  order.CustomerName,
		Subject: fmt.Sprintf("Payment failed - %s", order.Title),
	}
	msg.HTML, msg.Text = failureBody(order, reason, s.supportLink())

	return s.deliver(ctx, order.OrderID, msg)
}

// SendOperatorNotice tells the operator about a new purchase or failure.
// The recipient falls back to the from address when no operator address is
// configured.
func (s *service) SendOperatorNotice(ctx context.Context, order orders.OrderDTO) AttemptDTO {
	recipient := s.mail.OperatorEmail
	if recipient == "" {
		recipient = s.mail.FromEmail
	}

	subject := fmt.Sprintf("New purchase: %s", order.Title)
	if order.Status == enums.OrderStatusFailed {
		subject = fmt.Sprintf("Payment failed: %s", order.Title)
	}

	msg := Message{
		Channel: enums.ChannelOperatorNotice,
		To:      recipient,
		Subject: subject,
	}
	msg.HTML, msg.Text = operatorBody(order, s.adminLink(order.OrderID))

	return s.deliver(ctx, order.OrderID, msg)
}

func (s *service) ListByOrder(ctx context.Context, orderID string) ([]AttemptDTO, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]AttemptDTO, 0, len(rows))
	for i := range rows {
		out = append(out, attemptToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) deliver(ctx context.Context, orderID string, msg Message) AttemptDTO {
	sendCtx := ctx
	if s.mail.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.mail.SendTimeout)
		defer cancel()
	}

	attempt := &models.NotificationAttempt{
		ID:        uuid.New(),
		OrderID:   orderID,
		Channel:   msg.Channel,
		Transport: s.transport.Kind(),
		Recipient: msg.To,
	}

	messageID, err := s.transport.Send(sendCtx, msg)
	if err != nil {
		detail := err.Error()
		attempt.Outcome = enums.NotificationFailed
		attempt.ErrorDetail = &detail
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID,
			"channel":  string(msg.Channel),
		}), "notification send failed: "+detail)
	} else {
		attempt.Outcome = enums.NotificationSent
		if messageID != "" {
			attempt.ProviderMessageID = &messageID
		}
	}

	s.pipeline.IncNotification(string(msg.Channel), string(attempt.Transport), string(attempt.Outcome))

	if _, repoErr := s.repo.Create(ctx, attempt); repoErr != nil {
		// the attempt log is advisory, losing a row must not fail the send
		s.logg.Error(ctx, "record notification attempt", repoErr)
	}

	return attemptToDTO(attempt)
}

func (s *service) confirmationTemplateData(order orders.OrderDTO, link string) map[string]string {
	name := order.CustomerName
	if name == "" {
		name = fallbackCustomerName
	}
	return map[string]string{
		"customer_name": name,
		"item_title":    order.Title,
		"order_id":      order.OrderID,
		"purchase_date": order.CreatedAt.Format("January 2, 2006"),
		"price":         fmt.Sprintf("%s %s", order.Amount.StringFixed(2), order.Currency),
		"download_link": link,
		"support_email": s.supportEmail(),
	}
}

// deliveryLink prefers the hosted download page, then the raw asset
// reference, then the support page.
func (s *service) deliveryLink(order orders.OrderDTO) string {
	if s.links.WebsiteURL != "" {
		return s.links.DownloadLink(order.OrderID)
	}
	if order.AssetReference != nil && *order.AssetReference != "" {
		return *order.AssetReference
	}
	return s.supportLink()
}

func (s *service) supportLink() string {
	if s.links.SupportURL != "" {
		return s.links.SupportURL
	}
	return s.links.WebsiteURL
}

func (s *service) adminLink(orderID string) string {
	if s.links.AdminOrders == "" {
		return ""
	}
	return strings.TrimRight(s.links.AdminOrders, "/") + "/" + orderID
}

func (s *service) supportEmail() string {
	if s.mail.SupportEmail != "" {
		return s.mail.SupportEmail
	}
	return s.mail.FromEmail
}

func attachmentFilename(title string) string {
	base := strings.Trim(attachmentNameRe.ReplaceAllString(title, "_"), "_")
	if base == "" {
		base = "purchase"
	}
	return base + ".zip"
}

func attemptToDTO(attempt *models.NotificationAttempt) AttemptDTO {
	return AttemptDTO{
		ID:                attempt.ID,
		OrderID:           attempt.OrderID,
		Channel:           attempt.Channel,
		Transport:         attempt.Transport,
		Recipient:         attempt.Recipient,
		Outcome:           attempt.Outcome,
		ProviderMessageID: attempt.ProviderMessageID,
		ErrorDetail:       attempt.ErrorDetail,
		CreatedAt:         attempt.CreatedAt,
	}
}
