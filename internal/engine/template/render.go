// internal/engine/template/render.go
package template

import (
	"fmt"
	"strings"
)

// Render substitutes {{name}} placeholders in a pattern with values from the
// context map. Placeholders with no matching value are stripped so a missing
// variable never leaks template syntax into a message.
func Render(pattern string, data map[string]interface{}) string {
	result := pattern

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
