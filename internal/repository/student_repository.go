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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// allocateStudentNo issues the next public student number for a year
// from a per-year counter row. The upsert-and-return is atomic, so
// concurrent allocations never collide; random suffixes are not used.
func allocateStudentNo(ctx context.Context, tx *sqlx.Tx, year int) (string, error) {
	const query = `INSERT INTO student_no_counters (year, last_seq) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET last_seq = student_no_counters.last_seq + 1
        RETURNING last_seq`
	var seq int
	if err := tx.GetContext(ctx, &seq, query, year); err != nil {
		return "", fmt.Errorf("allocate student number: %w", err)
	}
	return fmt.Sprintf("%d%04d", year, seq), nil
}

// insertStudent writes a student row inside the caller's transaction.
// Admissions acceptance and bulk import share this single creation path.
func insertStudent(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_no, first_name, last_name, email, phone, gender, birth_date, guardian_name, guardian_phone, class_id, active, created_at, updated_at)
        VALUES (:id, :student_no, :first_name, :last_name, :email, :phone, :gender, :birth_date, :guardian_name, :guardian_phone, :class_id, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// CreateWithAllocatedNo allocates a student number and inserts the
// student in one transaction.
func (r *StudentRepository) CreateWithAllocatedNo(ctx context.Context, student *models.Student, year int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	number, err := allocateStudentNo(ctx, tx, year)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	student.StudentNo = number
	if err := insertStudent(ctx, tx, student); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student: %w", err)
	}
	return nil
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN classes c ON c.id = s.class_id"
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%d OR LOWER(s.student_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":  "s.last_name",
		"student_no": "s.student_no",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.student_no, s.first_name, s.last_name, s.email, s.phone, s.gender, s.birth_date, s.guardian_name, s.guardian_phone, s.class_id, s.active, s.created_at, s.updated_at,
        c.name AS class_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID returns a single student with class context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.student_no, s.first_name, s.last_name, s.email, s.phone, s.gender, s.birth_date, s.guardian_name, s.guardian_phone, s.class_id, s.active, s.created_at, s.updated_at,
        c.name AS class_name
        FROM students s LEFT JOIN classes c ON c.id = s.class_id
        WHERE s.id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByUserEmail resolves the student row linked to a portal login.
func (r *StudentRepository) FindByUserEmail(ctx context.Context, email string) (*models.Student, error) {
	const query = `SELECT id, student_no, first_name, last_name, email, phone, gender, birth_date, guardian_name, guardian_phone, class_id, active, created_at, updated_at
        FROM students WHERE email = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return &student, nil
}

// Update modifies mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
        gender = :gender, birth_date = :birth_date, guardian_name = :guardian_name, guardian_phone = :guardian_phone,
        class_id = :class_id, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a student.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = FALSE, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// ListByClass returns active students in a class for roster passes.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT id, student_no, first_name, last_name, email, phone, gender, birth_date, guardian_name, guardian_phone, class_id, active, created_at, updated_at
        FROM students WHERE class_id = $1 AND active = TRUE ORDER BY student_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}
