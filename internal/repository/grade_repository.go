package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

// ErrStatusMismatch signals that a conditional status update matched no
// row: either the record is gone or a concurrent writer moved it first.
var ErrStatusMismatch = fmt.Errorf("grade status mismatch")

// GradeRepository handles subject grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns subject grades matching the filter.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.SubjectGrade, error) {
	query := `SELECT id, student_id, subject_id, class_id, term_id, ca_score, exam_score, total_score, letter_grade, remark, status, entered_by, approved_by, created_at, updated_at
        FROM subject_grades WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY updated_at DESC"
	var grades []models.SubjectGrade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// FindByID loads a single grade record.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.SubjectGrade, error) {
	const query = `SELECT id, student_id, subject_id, class_id, term_id, ca_score, exam_score, total_score, letter_grade, remark, status, entered_by, approved_by, created_at, updated_at
        FROM subject_grades WHERE id = $1`
	var grade models.SubjectGrade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// FindByScope loads the grade for a (student, subject, class, term) tuple.
func (r *GradeRepository) FindByScope(ctx context.Context, studentID, subjectID, classID, termID string) (*models.SubjectGrade, error) {
	const query = `SELECT id, student_id, subject_id, class_id, term_id, ca_score, exam_score, total_score, letter_grade, remark, status, entered_by, approved_by, created_at, updated_at
        FROM subject_grades WHERE student_id = $1 AND subject_id = $2 AND class_id = $3 AND term_id = $4`
	var grade models.SubjectGrade
	if err := r.db.GetContext(ctx, &grade, query, studentID, subjectID, classID, termID); err != nil {
		return nil, fmt.Errorf("find grade by scope: %w", err)
	}
	return &grade, nil
}

// UpsertDraft inserts or re-enters a grade. The conflict update is
// conditioned on draft status so approved or locked rows are never
// silently overwritten; zero affected rows surfaces ErrStatusMismatch.
func (r *GradeRepository) UpsertDraft(ctx context.Context, grade *models.SubjectGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	grade.Status = models.GradeStatusDraft
	const query = `INSERT INTO subject_grades (id, student_id, subject_id, class_id, term_id, ca_score, exam_score, total_score, letter_grade, remark, status, entered_by, created_at, updated_at)
        VALUES (:id, :student_id, :subject_id, :class_id, :term_id, :ca_score, :exam_score, :total_score, :letter_grade, :remark, :status, :entered_by, :created_at, :updated_at)
        ON CONFLICT (student_id, subject_id, class_id, term_id)
        DO UPDATE SET ca_score = EXCLUDED.ca_score, exam_score = EXCLUDED.exam_score, total_score = EXCLUDED.total_score,
            letter_grade = EXCLUDED.letter_grade, remark = EXCLUDED.remark, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at
        WHERE subject_grades.status = 'draft'`
	result, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert grade rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

// TransitionStatus moves a grade from one status to another with a
// compare-and-swap on the current status, rejecting concurrent writers.
func (r *GradeRepository) TransitionStatus(ctx context.Context, id string, from, to models.GradeStatus, actorID string) error {
	query := `UPDATE subject_grades SET status = $1, updated_at = $2`
	args := []interface{}{to, time.Now().UTC()}
	if to == models.GradeStatusApproved {
		query += fmt.Sprintf(", approved_by = $%d", len(args)+1)
		args = append(args, actorID)
	}
	if to == models.GradeStatusDraft {
		query += ", approved_by = NULL"
	}
	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
	args = append(args, id, from)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition grade rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

// SubmitScope promotes every complete draft in a (class, subject, term)
// scope to submitted in one statement. Drafts without an exam score
// stay behind.
func (r *GradeRepository) SubmitScope(ctx context.Context, classID, subjectID, termID string) (int64, error) {
	const query = `UPDATE subject_grades SET status = $1, updated_at = $2
        WHERE class_id = $3 AND subject_id = $4 AND term_id = $5 AND status = $6 AND exam_score IS NOT NULL`
	result, err := r.db.ExecContext(ctx, query, models.GradeStatusSubmitted, time.Now().UTC(), classID, subjectID, termID, models.GradeStatusDraft)
	if err != nil {
		return 0, fmt.Errorf("submit grades: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("submit grades rows: %w", err)
	}
	return affected, nil
}

// ListApprovedByClassTerm returns the approved and locked grades the
// aggregator consumes; any other status is filtered defensively here.
func (r *GradeRepository) ListApprovedByClassTerm(ctx context.Context, classID, termID string) ([]models.SubjectGradeDetail, error) {
	const query = `SELECT g.id, g.student_id, g.subject_id, g.class_id, g.term_id, g.ca_score, g.exam_score, g.total_score, g.letter_grade, g.remark, g.status, g.entered_by, g.approved_by, g.created_at, g.updated_at,
        s.name AS subject_name, st.first_name || ' ' || st.last_name AS student_name, st.student_no
        FROM subject_grades g
        JOIN subjects s ON s.id = g.subject_id
        JOIN students st ON st.id = g.student_id
        WHERE g.class_id = $1 AND g.term_id = $2 AND g.status IN ($3, $4)
        ORDER BY st.student_no, s.name`
	var grades []models.SubjectGradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, classID, termID, models.GradeStatusApproved, models.GradeStatusLocked); err != nil {
		return nil, fmt.Errorf("list approved grades: %w", err)
	}
	return grades, nil
}

// ListDetailsByStudentTerm returns a student's grades with subject
// names for report rendering.
func (r *GradeRepository) ListDetailsByStudentTerm(ctx context.Context, studentID, termID string, statuses ...models.GradeStatus) ([]models.SubjectGradeDetail, error) {
	if len(statuses) == 0 {
		statuses = []models.GradeStatus{models.GradeStatusApproved, models.GradeStatusLocked}
	}
	placeholders := make([]string, len(statuses))
	args := []interface{}{studentID, termID}
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, status)
	}
	query := fmt.Sprintf(`SELECT g.id, g.student_id, g.subject_id, g.class_id, g.term_id, g.ca_score, g.exam_score, g.total_score, g.letter_grade, g.remark, g.status, g.entered_by, g.approved_by, g.created_at, g.updated_at,
        s.name AS subject_name, st.first_name || ' ' || st.last_name AS student_name, st.student_no
        FROM subject_grades g
        JOIN subjects s ON s.id = g.subject_id
        JOIN students st ON st.id = g.student_id
        WHERE g.student_id = $1 AND g.term_id = $2 AND g.status IN (%s)
        ORDER BY s.name`, strings.Join(placeholders, ","))
	var grades []models.SubjectGradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}
