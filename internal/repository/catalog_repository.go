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

// CatalogRepository manages the reference data the grading pipeline
// hangs off: terms, classes and subjects.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListTerms returns terms matching the filter, newest first.
func (r *CatalogRepository) ListTerms(ctx context.Context, filter models.TermFilter) ([]models.Term, error) {
	query := `SELECT id, name, academic_year, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE 1=1`
	var args []interface{}
	if filter.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", len(args)+1)
		args = append(args, *filter.IsActive)
	}
	query += " ORDER BY start_date DESC"
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindTerm loads one term.
func (r *CatalogRepository) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, academic_year, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, fmt.Errorf("find term: %w", err)
	}
	return &term, nil
}

// CreateTerm inserts a term.
func (r *CatalogRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now
	const query = `INSERT INTO terms (id, name, academic_year, start_date, end_date, is_active, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// ListClasses returns all classes ordered by name.
func (r *CatalogRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, level, teacher_id, created_at, updated_at FROM classes ORDER BY name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindClassByName resolves a class by case-insensitive name, used by
// the bulk importer to map the class_name column.
func (r *CatalogRepository) FindClassByName(ctx context.Context, name string) (*models.Class, error) {
	const query = `SELECT id, name, level, teacher_id, created_at, updated_at FROM classes WHERE LOWER(name) = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, strings.ToLower(name)); err != nil {
		return nil, fmt.Errorf("find class by name: %w", err)
	}
	return &class, nil
}

// CreateClass inserts a class.
func (r *CatalogRepository) CreateClass(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, level, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :level, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// ListSubjects returns all subjects ordered by name.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM subjects ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// CreateSubject inserts a subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, code, name, created_at, updated_at)
        VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}
