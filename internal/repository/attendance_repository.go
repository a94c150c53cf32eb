package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

// AttendanceRepository persists the daily class register.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records a register entry, overwriting any earlier mark for
// the same student and day.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, student_id, class_id, date, status, entered_by, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :date, :status, :entered_by, :created_at, :updated_at)
        ON CONFLICT (student_id, date) DO UPDATE SET
            status = EXCLUDED.status,
            entered_by = EXCLUDED.entered_by,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// List returns register entries matching the filter, newest day first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_id, class_id, date, status, entered_by, created_at, updated_at FROM attendance_records WHERE 1=1`
	var args []interface{}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	query += " ORDER BY date DESC, student_id"
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Summary counts register entries per status for one student in a
// date range, feeding the report card attendance block.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID string, from, to time.Time) (map[models.AttendanceStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS n FROM attendance_records
        WHERE student_id = $1 AND date >= $2 AND date <= $3 GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[models.AttendanceStatus]int)
	for rows.Next() {
		var status models.AttendanceStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("attendance summary scan: %w", err)
		}
		summary[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attendance summary rows: %w", err)
	}
	return summary, nil
}
