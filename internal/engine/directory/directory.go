// internal/engine/directory/directory.go
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

// ErrRecipientNotFound reports a recipient id with no directory entry.
var ErrRecipientNotFound = errors.New("recipient not found")

// Directory resolves a recipient's contact information at dispatch time.
type Directory interface {
	ContactInfo(ctx context.Context, id string, kind models.RecipientKind) (models.ContactInfo, error)
}

// SQLDirectory reads contact details from the school database. Each recipient
// kind maps to its own table; the kind set is closed so an unknown kind is an
// input error, not a lookup miss.
type SQLDirectory struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLDirectory(db *sql.DB, log logger.Logger) *SQLDirectory {
	return &SQLDirectory{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "recipient-directory"}),
	}
}

func (d *SQLDirectory) ContactInfo(ctx context.Context, id string, kind models.RecipientKind) (models.ContactInfo, error) {
	var query string
	switch kind {
	case models.KindGuardian:
		query = `SELECT COALESCE(email, ''), COALESCE(phone, '') FROM guardians WHERE id = $1`
	case models.KindStudent:
		query = `SELECT COALESCE(email, ''), COALESCE(phone, '') FROM students WHERE id = $1`
	case models.KindStaff:
		query = `SELECT COALESCE(email, ''), COALESCE(phone, '') FROM staff WHERE id = $1`
	default:
		return models.ContactInfo{}, fmt.Errorf("invalid recipient kind: %q", kind)
	}

	var info models.ContactInfo
	err := d.db.QueryRowContext(ctx, query, id).Scan(&info.Email, &info.Phone)
	switch {
	case err == sql.ErrNoRows:
		return models.ContactInfo{}, fmt.Errorf("%w: %s (%s)", ErrRecipientNotFound, id, kind)
	case err != nil:
		return models.ContactInfo{}, fmt.Errorf("lookup %s %s: %w", kind, id, err)
	}

	return info, nil
}
