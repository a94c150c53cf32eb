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

// ErrAlreadyDecided signals that an application left the pending state
// before this decision could land.
var ErrAlreadyDecided = fmt.Errorf("application already decided")

// ApplicationRepository manages admission application persistence.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create stores a new pending application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = models.ApplicationStatusPending
	app.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO applications (id, first_name, last_name, email, phone, gender, birth_date, grade_applied_for, programme, guardian_name, guardian_relation, guardian_phone, guardian_email, status, created_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :gender, :birth_date, :grade_applied_for, :programme, :guardian_name, :guardian_relation, :guardian_phone, :guardian_email, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// List returns applications matching the filter, newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	base := "FROM applications"
	var args []interface{}
	conditions := []string{"1=1"}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(first_name || ' ' || last_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" {
		order = "DESC"
	}

	query := fmt.Sprintf(`SELECT id, first_name, last_name, email, phone, gender, birth_date, grade_applied_for, programme, guardian_name, guardian_relation, guardian_phone, guardian_email, status, generated_student_id, rejection_reason, reviewed_by, reviewed_at, created_at
        %s ORDER BY created_at %s LIMIT %d OFFSET %d`, base, order, size, (page-1)*size)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(id) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// FindByID loads one application.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, first_name, last_name, email, phone, gender, birth_date, grade_applied_for, programme, guardian_name, guardian_relation, guardian_phone, guardian_email, status, generated_student_id, rejection_reason, reviewed_by, reviewed_at, created_at
        FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// Accept decides an application and creates the admitted student in one
// transaction. The status update is conditioned on pending, so a second
// decision (or a concurrent one) matches no row and the whole
// transaction aborts; exactly one student row can ever result.
func (r *ApplicationRepository) Accept(ctx context.Context, app *models.Application, reviewerID string, year int) (*models.Student, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	studentNo, err := allocateStudentNo(ctx, tx, year)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	now := time.Now().UTC()
	const decideQuery = `UPDATE applications SET status = $1, generated_student_id = $2, reviewed_by = $3, reviewed_at = $4
        WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, decideQuery, models.ApplicationStatusAccepted, studentNo, reviewerID, now, app.ID, models.ApplicationStatusPending)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("accept application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("accept application rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return nil, ErrAlreadyDecided
	}

	student := &models.Student{
		StudentNo:     studentNo,
		FirstName:     app.FirstName,
		LastName:      app.LastName,
		Email:         app.Email,
		Phone:         app.Phone,
		Gender:        app.Gender,
		BirthDate:     app.BirthDate,
		GuardianName:  &app.GuardianName,
		GuardianPhone: &app.GuardianPhone,
		Active:        true,
	}
	if err := insertStudent(ctx, tx, student); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}
	return student, nil
}

// Reject records a terminal rejection. Conditioned on pending so the
// decision is write-once.
func (r *ApplicationRepository) Reject(ctx context.Context, id, reviewerID, reason string) error {
	const query = `UPDATE applications SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4
        WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, models.ApplicationStatusRejected, reason, reviewerID, time.Now().UTC(), id, models.ApplicationStatusPending)
	if err != nil {
		return fmt.Errorf("reject application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject application rows: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyDecided
	}
	return nil
}
