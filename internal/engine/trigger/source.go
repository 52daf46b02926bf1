// internal/engine/trigger/source.go
package trigger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"school-notify/internal/common/logger"
)

// Match is one student/guardian pair a trigger condition selected, plus the
// variables the notification templates for that trigger type can render.
type Match struct {
	StudentID  string
	GuardianID string
	Variables  map[string]interface{}
}

// MetricsSource reads the live school metrics trigger conditions are
// evaluated against.
type MetricsSource interface {
	LowAttendance(ctx context.Context, threshold float64, windowDays int) ([]Match, error)
	LowGPA(ctx context.Context, threshold float64) ([]Match, error)
	UpcomingFees(ctx context.Context, daysBefore int) ([]Match, error)
	UpcomingExams(ctx context.Context, daysBefore int) ([]Match, error)
	FreshResults(ctx context.Context, since time.Time) ([]Match, error)
}

// SQLMetricsSource evaluates conditions with SQL over the school database.
type SQLMetricsSource struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLMetricsSource(db *sql.DB, log logger.Logger) *SQLMetricsSource {
	return &SQLMetricsSource{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "metrics-source"}),
	}
}

const lowAttendanceQuery = `
	SELECT s.id, s.guardian_id, s.full_name,
	       ROUND(100.0 * COUNT(*) FILTER (WHERE a.present) / COUNT(*), 1) AS rate
	FROM students s
	JOIN attendance_records a ON a.student_id = s.id
	WHERE a.record_date >= CURRENT_DATE - $2::int
	GROUP BY s.id, s.guardian_id, s.full_name
	HAVING 100.0 * COUNT(*) FILTER (WHERE a.present) / COUNT(*) < $1`

func (s *SQLMetricsSource) LowAttendance(ctx context.Context, threshold float64, windowDays int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, lowAttendanceQuery, threshold, windowDays)
	if err != nil {
		return nil, fmt.Errorf("query low attendance: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			name string
			rate float64
		)
		if err := rows.Scan(&m.StudentID, &m.GuardianID, &name, &rate); err != nil {
			return nil, fmt.Errorf("scan low attendance row: %w", err)
		}
		m.Variables = map[string]interface{}{
			"studentName":    name,
			"attendanceRate": fmt.Sprintf("%.1f", rate),
			"windowDays":     windowDays,
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const lowGPAQuery = `
	SELECT s.id, s.guardian_id, s.full_name, g.gpa
	FROM students s
	JOIN grade_reports g ON g.student_id = s.id AND g.is_latest
	WHERE g.gpa < $1`

func (s *SQLMetricsSource) LowGPA(ctx context.Context, threshold float64) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, lowGPAQuery, threshold)
	if err != nil {
		return nil, fmt.Errorf("query low gpa: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			name string
			gpa  float64
		)
		if err := rows.Scan(&m.StudentID, &m.GuardianID, &name, &gpa); err != nil {
			return nil, fmt.Errorf("scan low gpa row: %w", err)
		}
		m.Variables = map[string]interface{}{
			"studentName": name,
			"gpa":         fmt.Sprintf("%.2f", gpa),
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const upcomingFeesQuery = `
	SELECT s.id, s.guardian_id, s.full_name, f.amount, f.due_date
	FROM students s
	JOIN fee_invoices f ON f.student_id = s.id
	WHERE f.paid_at IS NULL AND f.due_date = CURRENT_DATE + $1::int`

func (s *SQLMetricsSource) UpcomingFees(ctx context.Context, daysBefore int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, upcomingFeesQuery, daysBefore)
	if err != nil {
		return nil, fmt.Errorf("query upcoming fees: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m       Match
			name    string
			amount  float64
			dueDate time.Time
		)
		if err := rows.Scan(&m.StudentID, &m.GuardianID, &name, &amount, &dueDate); err != nil {
			return nil, fmt.Errorf("scan fee row: %w", err)
		}
		m.Variables = map[string]interface{}{
			"studentName": name,
			"amount":      fmt.Sprintf("%.2f", amount),
			"dueDate":     dueDate.Format("2006-01-02"),
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const upcomingExamsQuery = `
	SELECT s.id, s.guardian_id, s.full_name, e.exam_name, e.starts_on
	FROM students s
	JOIN exam_schedules e ON e.class_id = s.class_id
	WHERE e.starts_on = CURRENT_DATE + $1::int`

func (s *SQLMetricsSource) UpcomingExams(ctx context.Context, daysBefore int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, upcomingExamsQuery, daysBefore)
	if err != nil {
		return nil, fmt.Errorf("query upcoming exams: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			name     string
			examName string
			startsOn time.Time
		)
		if err := rows.Scan(&m.StudentID, &m.GuardianID, &name, &examName, &startsOn); err != nil {
			return nil, fmt.Errorf("scan exam row: %w", err)
		}
		m.Variables = map[string]interface{}{
			"studentName": name,
			"examName":    examName,
			"examDate":    startsOn.Format("2006-01-02"),
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

const freshResultsQuery = `
	SELECT s.id, s.guardian_id, s.full_name, r.exam_name
	FROM students s
	JOIN exam_results r ON r.student_id = s.id
	WHERE r.published_at >= $1`

func (s *SQLMetricsSource) FreshResults(ctx context.Context, since time.Time) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, freshResultsQuery, since)
	if err != nil {
		return nil, fmt.Errorf("query fresh results: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			name     string
			examName string
		)
		if err := rows.Scan(&m.StudentID, &m.GuardianID, &name, &examName); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		m.Variables = map[string]interface{}{
			"studentName": name,
			"examName":    examName,
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
