// internal/models/notification.go
package models

import "time"

// NotificationType is the closed set of events the engine knows how to announce.
type NotificationType string

const (
	TypeLowAttendance   NotificationType = "low_attendance"
	TypePoorPerformance NotificationType = "poor_performance"
	TypeFeeDue          NotificationType = "fee_due"
	TypeExamSchedule    NotificationType = "exam_schedule"
	TypeResultPublished NotificationType = "result_published"
)

// KnownTypes lists every notification type in evaluation order.
var KnownTypes = []NotificationType{
	TypeLowAttendance,
	TypePoorPerformance,
	TypeFeeDue,
	TypeExamSchedule,
	TypeResultPublished,
}

func (t NotificationType) Valid() bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Channel is a delivery transport. ChannelBoth is a dispatch-request value only;
// ledger rows always carry a concrete channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
)

// Concrete returns true for channels a message can actually travel on.
func (c Channel) Concrete() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// FanOut lists the concrete channels a request expands to, email first.
func (c Channel) FanOut() []Channel {
	if c == ChannelBoth {
		return []Channel{ChannelEmail, ChannelSMS}
	}
	return []Channel{c}
}

// RecipientKind is the closed set of directory populations a dispatch can target.
type RecipientKind string

const (
	KindGuardian RecipientKind = "guardian"
	KindStudent  RecipientKind = "student"
	KindStaff    RecipientKind = "staff"
)

func (k RecipientKind) Valid() bool {
	switch k {
	case KindGuardian, KindStudent, KindStaff:
		return true
	}
	return false
}

// Status is the delivery state of a ledger row. Rows start queued and move to
// sent or failed exactly once; there is no way back.
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// ContactInfo is the directory snapshot taken at dispatch time. Either field
// may be empty when the recipient has no address on file for that transport.
type ContactInfo struct {
	Email string
	Phone string
}

// Notification is one ledger row: a single dispatch attempt on a single channel.
// Subject is nil for sms rows. Once the row leaves queued the rendered content
// and the contact snapshot are immutable; only Status, FailureReason and
// UpdatedAt move.
type Notification struct {
	ID             string                 `json:"id"`
	Type           NotificationType       `json:"type"`
	Channel        Channel                `json:"channel"`
	RecipientID    string                 `json:"recipientId"`
	RecipientKind  RecipientKind          `json:"recipientKind"`
	RecipientEmail *string                `json:"recipientEmail,omitempty"`
	RecipientPhone *string                `json:"recipientPhone,omitempty"`
	Subject        *string                `json:"subject,omitempty"`
	Body           string                 `json:"body"`
	Context        map[string]interface{} `json:"context,omitempty"`
	Status         Status                 `json:"status"`
	FailureReason  *string                `json:"failureReason,omitempty"`
	TriggeredBy    *string                `json:"triggeredBy,omitempty"` // nil = system
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}
