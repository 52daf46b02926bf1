// internal/engine/ledger/query.go
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"school-notify/internal/models"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// Filter narrows a history query. Zero values mean "no constraint".
// DateFrom and DateTo bound created_at inclusively.
type Filter struct {
	Type        models.NotificationType
	Status      models.Status
	RecipientID string
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Page is one page of history results, newest first.
type Page struct {
	Items      []models.Notification `json:"items"`
	Total      int                   `json:"total"`
	PageNumber int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
}

// List returns the filtered dispatch history, ordered by created_at
// descending, newest first. Page numbering starts at 1.
func (s *Store) List(ctx context.Context, filter Filter, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	where, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf(
		"%s FROM notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		selectColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]models.Notification, 0, pageSize)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate notifications: %w", err)
	}

	return Page{
		Items:      items,
		Total:      total,
		PageNumber: page,
		PageSize:   pageSize,
	}, nil
}

func buildWhere(filter Filter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.RecipientID != "" {
		add("recipient_id = $%d", filter.RecipientID)
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
