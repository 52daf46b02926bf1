package preference

import (
	"context"
	"errors"
	"testing"

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

func TestStore_IsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		channel models.Channel
		rows    *sqlmock.Rows
		enabled bool
	}{
		{
			name:    "no row means enabled",
			channel: models.ChannelEmail,
			rows:    sqlmock.NewRows([]string{"email_enabled", "sms_enabled"}),
			enabled: true,
		},
		{
			name:    "email disabled",
			channel: models.ChannelEmail,
			rows:    sqlmock.NewRows([]string{"email_enabled", "sms_enabled"}).AddRow(false, true),
			enabled: false,
		},
		{
			name:    "sms enabled while email disabled",
			channel: models.ChannelSMS,
			rows:    sqlmock.NewRows([]string{"email_enabled", "sms_enabled"}).AddRow(false, true),
			enabled: true,
		},
		{
			name:    "sms disabled",
			channel: models.ChannelSMS,
			rows:    sqlmock.NewRows([]string{"email_enabled", "sms_enabled"}).AddRow(true, false),
			enabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := setupStore(t)
			mock.ExpectQuery(`SELECT email_enabled, sms_enabled`).
				WithArgs("guardian-1", "fee_due").
				WillReturnRows(tt.rows)

			enabled, err := store.IsEnabled(context.Background(), "guardian-1", models.TypeFeeDue, tt.channel)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, enabled)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_IsEnabled_RejectsBothChannel(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.IsEnabled(context.Background(), "guardian-1", models.TypeFeeDue, models.ChannelBoth)
	assert.Error(t, err)
}

func TestStore_IsEnabled_QueryError(t *testing.T) {
	store, mock := setupStore(t)
	mock.ExpectQuery(`SELECT email_enabled, sms_enabled`).
		WithArgs("guardian-1", "fee_due").
		WillReturnError(errors.New("connection refused"))

	_, err := store.IsEnabled(context.Background(), "guardian-1", models.TypeFeeDue, models.ChannelEmail)
	assert.Error(t, err)
}

func TestStore_Upsert(t *testing.T) {
	store, mock := setupStore(t)
	mock.ExpectExec(`INSERT INTO notification_preferences`).
		WithArgs("guardian-1", "low_attendance", true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Upsert(context.Background(), models.NotificationPreference{
		GuardianID:   "guardian-1",
		Type:         models.TypeLowAttendance,
		EmailEnabled: true,
		SMSEnabled:   false,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
