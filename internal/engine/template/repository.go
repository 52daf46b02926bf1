// internal/engine/template/repository.go
package template

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"school-notify/internal/common/logger"
	"school-notify/internal/common/metrics"
	"school-notify/internal/models"

	"github.com/lib/pq"
)

// Resolution is a tagged resolve result. Fallback is true when no active
// template was configured for the pair and the built-in default was
// substituted; callers can surface that as a configuration warning.
type Resolution struct {
	Template models.NotificationTemplate
	Fallback bool
}

type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "template-repository"}),
	}
}

const resolveQuery = `
	SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active
	FROM notification_templates
	WHERE type = $1 AND channel = $2 AND active = TRUE
	LIMIT 1`

// Resolve looks up the unique active template for (type, channel). When none
// is configured it returns the generic fallback so a dispatch never fails
// purely due to missing setup; the substitution is counted and logged.
func (r *Repository) Resolve(ctx context.Context, t models.NotificationType, ch models.Channel) (Resolution, error) {
	var (
		tmpl    models.NotificationTemplate
		subject sql.NullString
		vars    pq.StringArray
	)

	err := r.db.QueryRowContext(ctx, resolveQuery, string(t), string(ch)).Scan(
		&tmpl.ID, &tmpl.Type, &tmpl.Channel, &tmpl.Name,
		&subject, &tmpl.BodyPattern, &vars, &tmpl.Active,
	)
	switch {
	case err == sql.ErrNoRows:
		r.logger.Warn("no active template configured, using fallback", map[string]interface{}{
			"type":    t,
			"channel": ch,
		})
		metrics.TemplateFallbacks.WithLabelValues(string(t), string(ch)).Inc()
		return Resolution{Template: fallbackTemplate(t, ch), Fallback: true}, nil
	case err != nil:
		return Resolution{}, fmt.Errorf("resolve template (%s, %s): %w", t, ch, err)
	}

	if subject.Valid {
		tmpl.SubjectPattern = &subject.String
	}
	tmpl.Variables = []string(vars)

	return Resolution{Template: tmpl}, nil
}

// fallbackTemplate builds the non-persisted default used when configuration
// is incomplete. Its content renders sensibly with any context data.
func fallbackTemplate(t models.NotificationType, ch models.Channel) models.NotificationTemplate {
	tmpl := models.NotificationTemplate{
		Type:        t,
		Channel:     ch,
		Name:        fmt.Sprintf("fallback-%s-%s", t, ch),
		BodyPattern: fmt.Sprintf("You have a new %s notification from the school. Please contact the school office for details.", HumanName(t)),
		Active:      true,
	}
	if ch == models.ChannelEmail {
		subject := fmt.Sprintf("Notification: %s", HumanName(t))
		tmpl.SubjectPattern = &subject
	}
	return tmpl
}

// HumanName turns a notification type tag into display text,
// e.g. "low_attendance" becomes "Low Attendance".
func HumanName(t models.NotificationType) string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
