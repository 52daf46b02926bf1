package template

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, logger.NewTestLogger(t)), mock
}

func TestRepository_Resolve_ActiveTemplate(t *testing.T) {
	repo, mock := setupRepository(t)

	rows := sqlmock.NewRows([]string{
		"id", "type", "channel", "name", "subject_pattern", "body_pattern", "variables", "active",
	}).AddRow(
		"tmpl-1", "fee_due", "email", "fee-reminder",
		"Fee reminder for {{studentName}}",
		"Dear guardian, a fee of {{amount}} is due on {{dueDate}}.",
		pq.StringArray{"studentName", "amount", "dueDate"},
		true,
	)
	mock.ExpectQuery(`SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active`).
		WithArgs("fee_due", "email").
		WillReturnRows(rows)

	res, err := repo.Resolve(context.Background(), models.TypeFeeDue, models.ChannelEmail)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, "fee-reminder", res.Template.Name)
	require.NotNil(t, res.Template.SubjectPattern)
	assert.Equal(t, "Fee reminder for {{studentName}}", *res.Template.SubjectPattern)
	assert.Equal(t, []string{"studentName", "amount", "dueDate"}, res.Template.Variables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Resolve_SMSTemplateWithoutSubject(t *testing.T) {
	repo, mock := setupRepository(t)

	rows := sqlmock.NewRows([]string{
		"id", "type", "channel", "name", "subject_pattern", "body_pattern", "variables", "active",
	}).AddRow(
		"tmpl-2", "exam_schedule", "sms", "exam-sms",
		nil,
		"{{studentName}}: exam {{examName}} on {{examDate}}.",
		pq.StringArray{"studentName", "examName", "examDate"},
		true,
	)
	mock.ExpectQuery(`SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active`).
		WithArgs("exam_schedule", "sms").
		WillReturnRows(rows)

	res, err := repo.Resolve(context.Background(), models.TypeExamSchedule, models.ChannelSMS)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Nil(t, res.Template.SubjectPattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Resolve_FallbackWhenMissing(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active`).
		WithArgs("low_attendance", "email").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "channel", "name", "subject_pattern", "body_pattern", "variables", "active",
		}))

	res, err := repo.Resolve(context.Background(), models.TypeLowAttendance, models.ChannelEmail)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.NotNil(t, res.Template.SubjectPattern)
	assert.Equal(t, "Notification: Low Attendance", *res.Template.SubjectPattern)
	assert.Contains(t, res.Template.BodyPattern, "Low Attendance")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Resolve_FallbackSMSHasNoSubject(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active`).
		WithArgs("result_published", "sms").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "channel", "name", "subject_pattern", "body_pattern", "variables", "active",
		}))

	res, err := repo.Resolve(context.Background(), models.TypeResultPublished, models.ChannelSMS)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Nil(t, res.Template.SubjectPattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Resolve_QueryError(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`SELECT id, type, channel, name, subject_pattern, body_pattern, variables, active`).
		WithArgs("fee_due", "email").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Resolve(context.Background(), models.TypeFeeDue, models.ChannelEmail)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHumanName(t *testing.T) {
	assert.Equal(t, "Low Attendance", HumanName(models.TypeLowAttendance))
	assert.Equal(t, "Result Published", HumanName(models.TypeResultPublished))
	assert.Equal(t, "Fee Due", HumanName(models.TypeFeeDue))
}
