// internal/engine/trigger/store.go
package trigger

import (
	"context"
	"database/sql"
	"fmt"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

// Store reads trigger rules. Administrators edit the rows out of band; the
// evaluator only ever reads.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "trigger-store"}),
	}
}

const listEnabledQuery = `
	SELECT type, enabled, condition, frequency, updated_at
	FROM notification_triggers
	WHERE enabled = TRUE
	ORDER BY type`

// ListEnabled loads every enabled trigger with a valid condition payload.
// A trigger whose payload fails validation or decoding is skipped and logged;
// one broken rule must not take down the whole evaluation run.
func (s *Store) ListEnabled(ctx context.Context) ([]models.NotificationTrigger, error) {
	rows, err := s.db.QueryContext(ctx, listEnabledQuery)
	if err != nil {
		return nil, fmt.Errorf("list enabled triggers: %w", err)
	}
	defer rows.Close()

	var triggers []models.NotificationTrigger
	for rows.Next() {
		var (
			trg     models.NotificationTrigger
			rawCond []byte
		)
		if err := rows.Scan(&trg.Type, &trg.Enabled, &rawCond, &trg.Frequency, &trg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}

		if err := ValidateCondition(trg.Type, rawCond); err != nil {
			s.logger.WithError(err).Error("skipping trigger with invalid condition", map[string]interface{}{
				"trigger": trg.Type,
			})
			continue
		}

		cond, err := models.DecodeCondition(trg.Type, rawCond)
		if err != nil {
			s.logger.WithError(err).Error("skipping trigger with undecodable condition", map[string]interface{}{
				"trigger": trg.Type,
			})
			continue
		}
		trg.Condition = cond

		triggers = append(triggers, trg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}

	return triggers, nil
}
