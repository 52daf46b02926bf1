package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/models"
)

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.NotificationType
		payload string
		valid   bool
	}{
		{"attendance valid", models.TypeLowAttendance, `{"threshold": 75, "windowDays": 30}`, true},
		{"attendance missing window", models.TypeLowAttendance, `{"threshold": 75}`, false},
		{"attendance threshold over 100", models.TypeLowAttendance, `{"threshold": 150, "windowDays": 30}`, false},
		{"attendance extra field", models.TypeLowAttendance, `{"threshold": 75, "windowDays": 30, "x": 1}`, false},
		{"gpa valid", models.TypePoorPerformance, `{"threshold": 2.0}`, true},
		{"gpa negative", models.TypePoorPerformance, `{"threshold": -1}`, false},
		{"fee valid", models.TypeFeeDue, `{"daysBefore": 3}`, true},
		{"fee fractional days", models.TypeFeeDue, `{"daysBefore": 2.5}`, false},
		{"exam valid", models.TypeExamSchedule, `{"daysBefore": 7}`, true},
		{"result empty object", models.TypeResultPublished, `{}`, true},
		{"result rejects parameters", models.TypeResultPublished, `{"since": "now"}`, false},
		{"malformed json", models.TypeFeeDue, `{daysBefore: 3}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCondition(tt.typ, []byte(tt.payload))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateCondition_EmptyPayloadMeansEmptyObject(t *testing.T) {
	assert.NoError(t, ValidateCondition(models.TypeResultPublished, nil))
	assert.Error(t, ValidateCondition(models.TypeFeeDue, nil), "fee_due requires daysBefore")
}

func TestValidateCondition_UnknownType(t *testing.T) {
	err := ValidateCondition(models.NotificationType("newsletter"), []byte(`{}`))
	assert.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeTriggerConditionInvalid, stderrors.CodeOf(err))
}
