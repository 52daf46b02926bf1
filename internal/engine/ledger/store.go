// internal/engine/ledger/store.go
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

// Store persists one row per dispatch attempt. Rows are append-mostly: after
// creation only the rendered content (while still queued) and the final status
// transition are written. Nothing ever moves a row back to queued.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "notification-ledger"}),
	}
}

const insertNotification = `
	INSERT INTO notifications
		(id, type, channel, recipient_id, recipient_kind, recipient_email, recipient_phone,
		 subject, body, context, status, failure_reason, triggered_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`

// Create inserts a fresh ledger row. The caller supplies the id, the contact
// snapshot and the context data; status must be queued.
func (s *Store) Create(ctx context.Context, n *models.Notification) error {
	if n.Status != models.StatusQueued {
		return fmt.Errorf("new ledger rows must be queued, got %q", n.Status)
	}

	contextJSON, err := json.Marshal(n.Context)
	if err != nil {
		return fmt.Errorf("marshal context data: %w", err)
	}

	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, insertNotification,
		n.ID, string(n.Type), string(n.Channel), n.RecipientID, string(n.RecipientKind),
		n.RecipientEmail, n.RecipientPhone, n.Subject, n.Body, contextJSON,
		string(n.Status), n.FailureReason, n.TriggeredBy, now,
	)
	if err != nil {
		return fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return nil
}

const updateContent = `
	UPDATE notifications
	SET subject = $2, body = $3, updated_at = $4
	WHERE id = $1 AND status = 'queued'`

// SetContent writes the rendered subject and body onto a still-queued row.
// Once a row has left queued its content is immutable and the update is a
// no-op reported as an error.
func (s *Store) SetContent(ctx context.Context, id string, subject *string, body string) error {
	res, err := s.db.ExecContext(ctx, updateContent, id, subject, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set content for %s: %w", id, err)
	}
	return requireOneRow(res, id, "set content")
}

const markSent = `
	UPDATE notifications
	SET status = 'sent', updated_at = $2
	WHERE id = $1 AND status = 'queued'`

// MarkSent finalizes a queued row as delivered.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, markSent, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark sent %s: %w", id, err)
	}
	return requireOneRow(res, id, "mark sent")
}

const markFailed = `
	UPDATE notifications
	SET status = 'failed', failure_reason = $2, updated_at = $3
	WHERE id = $1 AND status = 'queued'`

// MarkFailed finalizes a queued row as failed. A reason is mandatory: failed
// rows always carry one.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	if reason == "" {
		return fmt.Errorf("mark failed %s: reason is required", id)
	}
	res, err := s.db.ExecContext(ctx, markFailed, id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", id, err)
	}
	return requireOneRow(res, id, "mark failed")
}

func requireOneRow(res sql.Result, id, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: row missing or no longer queued", op, id)
	}
	return nil
}

// Get loads a single ledger row by id.
func (s *Store) Get(ctx context.Context, id string) (models.Notification, error) {
	const query = selectColumns + ` FROM notifications WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, id)
	n, err := scanNotification(row)
	if err != nil {
		return models.Notification{}, fmt.Errorf("get notification %s: %w", id, err)
	}
	return n, nil
}

const selectColumns = `
	SELECT id, type, channel, recipient_id, recipient_kind, recipient_email, recipient_phone,
	       subject, body, context, status, failure_reason, triggered_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(r rowScanner) (models.Notification, error) {
	var (
		n           models.Notification
		email       sql.NullString
		phone       sql.NullString
		subject     sql.NullString
		contextJSON []byte
		reason      sql.NullString
		triggeredBy sql.NullString
	)

	err := r.Scan(
		&n.ID, &n.Type, &n.Channel, &n.RecipientID, &n.RecipientKind, &email, &phone,
		&subject, &n.Body, &contextJSON, &n.Status, &reason, &triggeredBy,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return models.Notification{}, err
	}

	if email.Valid {
		n.RecipientEmail = &email.String
	}
	if phone.Valid {
		n.RecipientPhone = &phone.String
	}
	if subject.Valid {
		n.Subject = &subject.String
	}
	if reason.Valid {
		n.FailureReason = &reason.String
	}
	if triggeredBy.Valid {
		n.TriggeredBy = &triggeredBy.String
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &n.Context); err != nil {
			return models.Notification{}, fmt.Errorf("decode context for %s: %w", n.ID, err)
		}
	}

	return n, nil
}
