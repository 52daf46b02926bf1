// internal/models/template.go
package models

// NotificationTemplate is admin-managed renderable content for one
// (type, channel) pair. SubjectPattern is nil for sms templates. Variables
// declares the placeholder names the patterns expect; the trigger evaluator
// builds its context map from exactly this list. Several inactive versions may
// exist per pair but at most one active one resolves.
type NotificationTemplate struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	Channel        Channel          `json:"channel"`
	Name           string           `json:"name"`
	SubjectPattern *string          `json:"subjectPattern,omitempty"`
	BodyPattern    string           `json:"bodyPattern"`
	Variables      []string         `json:"variables"`
	Active         bool             `json:"active"`
}

// NotificationPreference is a guardian's opt-out record for one notification
// type. Absence of a row means both channels are enabled: silence is consent.
type NotificationPreference struct {
	GuardianID   string           `json:"guardianId"`
	Type         NotificationType `json:"type"`
	EmailEnabled bool             `json:"emailEnabled"`
	SMSEnabled   bool             `json:"smsEnabled"`
}
