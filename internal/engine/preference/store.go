// internal/engine/preference/store.go
package preference

import (
	"context"
	"database/sql"
	"fmt"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

// Store answers whether a guardian accepts a given (type, channel) pair.
// The model is opt-out: no stored row means both channels are enabled.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "preference-store"}),
	}
}

const preferenceQuery = `
	SELECT email_enabled, sms_enabled
	FROM notification_preferences
	WHERE guardian_id = $1 AND type = $2`

// IsEnabled reports whether the guardian accepts the notification type on the
// given concrete channel. Absence of a preference row means enabled.
func (s *Store) IsEnabled(ctx context.Context, guardianID string, t models.NotificationType, ch models.Channel) (bool, error) {
	if !ch.Concrete() {
		return false, fmt.Errorf("preference check requires a concrete channel, got %q", ch)
	}

	var emailEnabled, smsEnabled bool
	err := s.db.QueryRowContext(ctx, preferenceQuery, guardianID, string(t)).Scan(&emailEnabled, &smsEnabled)
	switch {
	case err == sql.ErrNoRows:
		return true, nil
	case err != nil:
		return false, fmt.Errorf("load preference (%s, %s): %w", guardianID, t, err)
	}

	if ch == models.ChannelEmail {
		return emailEnabled, nil
	}
	return smsEnabled, nil
}

// Get returns the stored preference row, or sql.ErrNoRows when none exists.
// Guardian-facing settings screens read through this.
func (s *Store) Get(ctx context.Context, guardianID string, t models.NotificationType) (models.NotificationPreference, error) {
	pref := models.NotificationPreference{GuardianID: guardianID, Type: t}
	err := s.db.QueryRowContext(ctx, preferenceQuery, guardianID, string(t)).Scan(&pref.EmailEnabled, &pref.SMSEnabled)
	if err != nil {
		return models.NotificationPreference{}, err
	}
	return pref, nil
}

const upsertPreference = `
	INSERT INTO notification_preferences (guardian_id, type, email_enabled, sms_enabled)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (guardian_id, type)
	DO UPDATE SET email_enabled = EXCLUDED.email_enabled, sms_enabled = EXCLUDED.sms_enabled`

// Upsert stores a guardian's opt-out choices for one notification type.
// Edited independently of any dispatch; the dispatcher only ever reads.
func (s *Store) Upsert(ctx context.Context, pref models.NotificationPreference) error {
	_, err := s.db.ExecContext(ctx, upsertPreference,
		pref.GuardianID, string(pref.Type), pref.EmailEnabled, pref.SMSEnabled)
	if err != nil {
		return fmt.Errorf("upsert preference (%s, %s): %w", pref.GuardianID, pref.Type, err)
	}
	return nil
}
