package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func strPtr(s string) *string { return &s }

func TestStore_Create(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &models.Notification{
		ID:            "11111111-1111-1111-1111-111111111111",
		Type:          models.TypeFeeDue,
		Channel:       models.ChannelEmail,
		RecipientID:   "guardian-1",
		RecipientKind: models.KindGuardian,
		RecipientEmail: strPtr("guardian@example.com"),
		Body:          "",
		Context:       map[string]interface{}{"amount": "1500.00"},
		Status:        models.StatusQueued,
	}

	err := store.Create(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create_RejectsNonQueued(t *testing.T) {
	store, _ := setupStore(t)

	err := store.Create(context.Background(), &models.Notification{
		ID:     "n-1",
		Status: models.StatusSent,
	})
	assert.Error(t, err)
}

func TestStore_SetContent(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs("n-1", "Fee reminder", "body text", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetContent(context.Background(), "n-1", strPtr("Fee reminder"), "body text")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetContent_RowNoLongerQueued(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetContent(context.Background(), "n-1", nil, "body")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no longer queued")
}

func TestStore_MarkSent(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs("n-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkSent(context.Background(), "n-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkSent_AlreadyFinal(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkSent(context.Background(), "n-1")
	assert.Error(t, err)
}

func TestStore_MarkFailed(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs("n-1", "sms transport not configured", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkFailed(context.Background(), "n-1", "sms transport not configured"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkFailed_RequiresReason(t *testing.T) {
	store, _ := setupStore(t)

	err := store.MarkFailed(context.Background(), "n-1", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reason is required")
}

func TestStore_Get(t *testing.T) {
	store, mock := setupStore(t)

	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "type", "channel", "recipient_id", "recipient_kind", "recipient_email", "recipient_phone",
		"subject", "body", "context", "status", "failure_reason", "triggered_by", "created_at", "updated_at",
	}).AddRow(
		"n-1", "exam_schedule", "sms", "guardian-2", "guardian", nil, "+919900112233",
		nil, "exam tomorrow", []byte(`{"examName":"Midterm"}`), "sent", nil, "admin-7",
		created, created,
	)
	mock.ExpectQuery(`SELECT id, type, channel`).
		WithArgs("n-1").
		WillReturnRows(rows)

	n, err := store.Get(context.Background(), "n-1")
	require.NoError(t, err)

	assert.Equal(t, models.TypeExamSchedule, n.Type)
	assert.Equal(t, models.StatusSent, n.Status)
	assert.Nil(t, n.RecipientEmail)
	require.NotNil(t, n.RecipientPhone)
	assert.Equal(t, "+919900112233", *n.RecipientPhone)
	require.NotNil(t, n.TriggeredBy)
	assert.Equal(t, "admin-7", *n.TriggeredBy)
	assert.Equal(t, "Midterm", n.Context["examName"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
