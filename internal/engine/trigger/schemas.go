// internal/engine/trigger/schemas.go
package trigger

import (
	"fmt"
	"strings"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Condition payload schemas, one per trigger type. Admin tooling writes the
// payloads; the store refuses to evaluate a trigger whose payload does not
// match its type's shape.
var conditionSchemas = map[models.NotificationType]string{
	models.TypeLowAttendance: `{
		"type": "object",
		"required": ["threshold", "windowDays"],
		"properties": {
			"threshold":  {"type": "number", "minimum": 0, "maximum": 100},
			"windowDays": {"type": "integer", "minimum": 1, "maximum": 365}
		},
		"additionalProperties": false
	}`,
	models.TypePoorPerformance: `{
		"type": "object",
		"required": ["threshold"],
		"properties": {
			"threshold": {"type": "number", "minimum": 0, "maximum": 5}
		},
		"additionalProperties": false
	}`,
	models.TypeFeeDue: `{
		"type": "object",
		"required": ["daysBefore"],
		"properties": {
			"daysBefore": {"type": "integer", "minimum": 0, "maximum": 90}
		},
		"additionalProperties": false
	}`,
	models.TypeExamSchedule: `{
		"type": "object",
		"required": ["daysBefore"],
		"properties": {
			"daysBefore": {"type": "integer", "minimum": 0, "maximum": 90}
		},
		"additionalProperties": false
	}`,
	models.TypeResultPublished: `{
		"type": "object",
		"additionalProperties": false
	}`,
}

// ValidateCondition checks a raw condition payload against the schema for the
// trigger type.
func ValidateCondition(t models.NotificationType, raw []byte) error {
	schema, ok := conditionSchemas[t]
	if !ok {
		return stderrors.NewTriggerConditionInvalidError(string(t), "no condition schema for type")
	}

	payload := raw
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return stderrors.NewTriggerConditionInvalidError(string(t), fmt.Sprintf("schema validation error: %v", err))
	}

	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return stderrors.NewTriggerConditionInvalidError(string(t), strings.Join(details, "; "))
	}

	return nil
}
