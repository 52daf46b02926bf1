// internal/models/trigger.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frequency controls how often a trigger rule is evaluated.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// TriggerCondition is one typed condition variant. The concrete shape is
// selected by the owning trigger's notification type.
type TriggerCondition interface {
	// AppliesTo reports the notification type this condition shape belongs to.
	AppliesTo() NotificationType
}

// AttendanceCondition fires when a student's attendance rate over the lookback
// window falls below Threshold (a 0..100 percentage).
type AttendanceCondition struct {
	Threshold  float64 `json:"threshold"`
	WindowDays int     `json:"windowDays"`
}

func (AttendanceCondition) AppliesTo() NotificationType { return TypeLowAttendance }

// GPACondition fires when a student's grade point average falls below Threshold.
type GPACondition struct {
	Threshold float64 `json:"threshold"`
}

func (GPACondition) AppliesTo() NotificationType { return TypePoorPerformance }

// DueDateCondition fires DaysBefore days ahead of a due date or an exam start.
// It is shared by the fee_due and exam_schedule trigger types.
type DueDateCondition struct {
	Type       NotificationType `json:"-"`
	DaysBefore int              `json:"daysBefore"`
}

func (c DueDateCondition) AppliesTo() NotificationType { return c.Type }

// ResultCondition fires as soon as a result set is published. It carries no
// parameters.
type ResultCondition struct{}

func (ResultCondition) AppliesTo() NotificationType { return TypeResultPublished }

// NotificationTrigger is one admin-managed rule: a typed condition plus a run
// frequency. The evaluator treats these rows as read-only.
type NotificationTrigger struct {
	Type      NotificationType `json:"type"`
	Enabled   bool             `json:"enabled"`
	Condition TriggerCondition `json:"condition"`
	Frequency Frequency        `json:"frequency"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// DecodeCondition unmarshals a raw condition payload into the typed variant
// for the given trigger type.
func DecodeCondition(t NotificationType, raw []byte) (TriggerCondition, error) {
	switch t {
	case TypeLowAttendance:
		var c AttendanceCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode attendance condition: %w", err)
		}
		return c, nil
	case TypePoorPerformance:
		var c GPACondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode gpa condition: %w", err)
		}
		return c, nil
	case TypeFeeDue, TypeExamSchedule:
		var c DueDateCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode due-date condition: %w", err)
		}
		c.Type = t
		return c, nil
	case TypeResultPublished:
		return ResultCondition{}, nil
	default:
		return nil, fmt.Errorf("no condition shape for trigger type %q", t)
	}
}
