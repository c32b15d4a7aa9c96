package enums

import "fmt"

// NotificationChannel identifies one of the outbound message flows.
type NotificationChannel string

const (
	ChannelCustomerConfirmation NotificationChannel = "customer_confirmation"
	ChannelCustomerFailure      NotificationChannel = "customer_failure"
	ChannelOperatorNotice       NotificationChannel = "operator_notice"
)

var validNotificationChannels = []NotificationChannel{
	ChannelCustomerConfirmation,
	ChannelCustomerFailure,
	ChannelOperatorNotice,
}

// String implements fmt.Stringer.
func (c NotificationChannel) String() string {
	return string(c)
}

// IsValid reports whether the channel is recognized.
func (c NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// NotificationOutcome records whether a transport accepted a message.
type NotificationOutcome string

const (
	NotificationSent   NotificationOutcome = "sent"
	NotificationFailed NotificationOutcome = "failed"
)

// String implements fmt.Stringer.
func (o NotificationOutcome) String() string {
	return string(o)
}

// TransportKind identifies the mail transport that carried a message.
type TransportKind string

const (
	TransportMailgun  TransportKind = "mailgun"
	TransportSendgrid TransportKind = "sendgrid"
	TransportSMTP     TransportKind = "smtp"
)

var validTransportKinds = []TransportKind{
	TransportMailgun,
	TransportSendgrid,
	TransportSMTP,
}

// String implements fmt.Stringer.
func (k TransportKind) String() string {
	return string(k)
}

// ParseTransportKind converts raw input into a TransportKind.
func ParseTransportKind(value string) (TransportKind, error) {
	for _, candidate := range validTransportKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transport kind %q", value)
}
