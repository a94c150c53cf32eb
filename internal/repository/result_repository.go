package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

// ResultRepository manages term result persistence.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// ReplaceForClassTerm swaps the full TermResult set for a class/term in
// one transaction so readers never observe a partially ranked class.
// Staff comments survive the recompute; rank and GPA are replaced.
func (r *ResultRepository) ReplaceForClassTerm(ctx context.Context, classID, termID string, results []models.TermResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	type comments struct {
		StudentID        string  `db:"student_id"`
		TeacherComment   *string `db:"teacher_comment"`
		PrincipalComment *string `db:"principal_comment"`
	}
	var existing []comments
	const commentQuery = `SELECT student_id, teacher_comment, principal_comment FROM term_results WHERE class_id = $1 AND term_id = $2`
	if err := tx.SelectContext(ctx, &existing, commentQuery, classID, termID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("load result comments: %w", err)
	}
	kept := make(map[string]comments, len(existing))
	for _, c := range existing {
		kept[c.StudentID] = c
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM term_results WHERE class_id = $1 AND term_id = $2", classID, termID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear term results: %w", err)
	}

	const insertQuery = `INSERT INTO term_results (id, student_id, term_id, class_id, gpa, class_position, class_size, teacher_comment, principal_comment, is_published, computed_at)
        VALUES (:id, :student_id, :term_id, :class_id, :gpa, :class_position, :class_size, :teacher_comment, :principal_comment, :is_published, :computed_at)`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		results[i].ComputedAt = now
		if c, ok := kept[results[i].StudentID]; ok {
			results[i].TeacherComment = c.TeacherComment
			results[i].PrincipalComment = c.PrincipalComment
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert term result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit term results: %w", err)
	}
	return nil
}

// ListByClassTerm returns results for a class and term, ranked order.
func (r *ResultRepository) ListByClassTerm(ctx context.Context, classID, termID string) ([]models.TermResultDetail, error) {
	const query = `SELECT tr.id, tr.student_id, tr.term_id, tr.class_id, tr.gpa, tr.class_position, tr.class_size, tr.teacher_comment, tr.principal_comment, tr.is_published, tr.computed_at,
        st.first_name || ' ' || st.last_name AS student_name, st.student_no
        FROM term_results tr
        JOIN students st ON st.id = tr.student_id
        WHERE tr.class_id = $1 AND tr.term_id = $2
        ORDER BY tr.class_position`
	var results []models.TermResultDetail
	if err := r.db.SelectContext(ctx, &results, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list term results: %w", err)
	}
	return results, nil
}

// FindByStudentTerm returns one student's result for a term.
func (r *ResultRepository) FindByStudentTerm(ctx context.Context, studentID, termID string) (*models.TermResult, error) {
	const query = `SELECT id, student_id, term_id, class_id, gpa, class_position, class_size, teacher_comment, principal_comment, is_published, computed_at
        FROM term_results WHERE student_id = $1 AND term_id = $2`
	var result models.TermResult
	if err := r.db.GetContext(ctx, &result, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("find term result: %w", err)
	}
	return &result, nil
}

// ListPublishedByStudent returns every published result for a student,
// oldest term first, for transcript assembly.
func (r *ResultRepository) ListPublishedByStudent(ctx context.Context, studentID string) ([]models.TermResult, error) {
	const query = `SELECT tr.id, tr.student_id, tr.term_id, tr.class_id, tr.gpa, tr.class_position, tr.class_size, tr.teacher_comment, tr.principal_comment, tr.is_published, tr.computed_at
        FROM term_results tr
        JOIN terms t ON t.id = tr.term_id
        WHERE tr.student_id = $1 AND tr.is_published = TRUE
        ORDER BY t.start_date`
	var results []models.TermResult
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list published results: %w", err)
	}
	return results, nil
}

// Publish flips the published flag for a class/term and freezes the
// underlying approved grades in the same transaction.
func (r *ResultRepository) Publish(ctx context.Context, classID, termID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE term_results SET is_published = TRUE WHERE class_id = $1 AND term_id = $2", classID, termID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("publish results: %w", err)
	}

	const lockQuery = `UPDATE subject_grades SET status = $1, updated_at = $2 WHERE class_id = $3 AND term_id = $4 AND status = $5`
	if _, err := tx.ExecContext(ctx, lockQuery, models.GradeStatusLocked, time.Now().UTC(), classID, termID, models.GradeStatusApproved); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("lock grades: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}

// UpdateComments sets staff commentary on a result row.
func (r *ResultRepository) UpdateComments(ctx context.Context, id string, teacherComment, principalComment *string) error {
	const query = `UPDATE term_results SET teacher_comment = COALESCE($1, teacher_comment), principal_comment = COALESCE($2, principal_comment) WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, teacherComment, principalComment, id)
	if err != nil {
		return fmt.Errorf("update result comments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update result comments rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusMismatch
	}
	return nil
}
