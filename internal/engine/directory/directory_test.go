package directory

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

func setupDirectory(t *testing.T) (*SQLDirectory, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLDirectory(db, logger.NewTestLogger(t)), mock
}

func TestSQLDirectory_ContactInfo(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.RecipientKind
		table string
	}{
		{"guardian", models.KindGuardian, "guardians"},
		{"student", models.KindStudent, "students"},
		{"staff", models.KindStaff, "staff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, mock := setupDirectory(t)
			mock.ExpectQuery(`FROM ` + tt.table + ` WHERE id = \$1`).
				WithArgs("r-1").
				WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).
					AddRow("person@example.com", "+911234567890"))

			info, err := dir.ContactInfo(context.Background(), "r-1", tt.kind)
			require.NoError(t, err)
			assert.Equal(t, "person@example.com", info.Email)
			assert.Equal(t, "+911234567890", info.Phone)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLDirectory_ContactInfo_NotFound(t *testing.T) {
	dir, mock := setupDirectory(t)
	mock.ExpectQuery(`FROM guardians`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}))

	_, err := dir.ContactInfo(context.Background(), "missing", models.KindGuardian)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestSQLDirectory_ContactInfo_UnknownKind(t *testing.T) {
	dir, _ := setupDirectory(t)

	_, err := dir.ContactInfo(context.Background(), "r-1", models.RecipientKind("vendor"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientNotFound)
}

func TestSQLDirectory_ContactInfo_PartialContact(t *testing.T) {
	dir, mock := setupDirectory(t)
	mock.ExpectQuery(`FROM guardians`).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow("g@example.com", ""))

	info, err := dir.ContactInfo(context.Background(), "g-1", models.KindGuardian)
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", info.Email)
	assert.Empty(t, info.Phone)
}
