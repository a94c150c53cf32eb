package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type catalogRepository interface {
	ListTerms(ctx context.Context, filter models.TermFilter) ([]models.Term, error)
	FindTerm(ctx context.Context, id string) (*models.Term, error)
	CreateTerm(ctx context.Context, term *models.Term) error
	ListClasses(ctx context.Context) ([]models.Class, error)
	FindClassByName(ctx context.Context, name string) (*models.Class, error)
	CreateClass(ctx context.Context, class *models.Class) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
}

// CreateTermRequest defines a new academic period.
type CreateTermRequest struct {
	Name         string    `json:"name" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive     bool      `json:"is_active"`
}

// CreateClassRequest defines a new homeroom group.
type CreateClassRequest struct {
	Name      string  `json:"name" validate:"required"`
	Level     string  `json:"level" validate:"required"`
	TeacherID *string `json:"teacher_id"`
}

// CreateSubjectRequest defines a new taught discipline.
type CreateSubjectRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CatalogService manages terms, classes and subjects.
type CatalogService struct {
	repo      catalogRepository
	authz     authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo catalogRepository, authz authorizer, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, authz: authz, validator: validate, logger: logger}
}

// ListTerms returns terms matching the filter.
func (s *CatalogService) ListTerms(ctx context.Context, filter models.TermFilter) ([]models.Term, error) {
	terms, err := s.repo.ListTerms(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// GetTerm loads one term.
func (s *CatalogService) GetTerm(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.repo.FindTerm(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// CreateTerm defines a new academic period.
func (s *CatalogService) CreateTerm(ctx context.Context, actor models.Actor, req CreateTermRequest) (*models.Term, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageStudents); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	term := &models.Term{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsActive:     req.IsActive,
	}
	if err := s.repo.CreateTerm(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// ListClasses returns all classes.
func (s *CatalogService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// CreateClass defines a new homeroom group.
func (s *CatalogService) CreateClass(ctx context.Context, actor models.Actor, req CreateClassRequest) (*models.Class, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageStudents); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{Name: req.Name, Level: req.Level, TeacherID: req.TeacherID}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// ListSubjects returns all subjects.
func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// CreateSubject defines a new taught discipline.
func (s *CatalogService) CreateSubject(ctx context.Context, actor models.Actor, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageStudents); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{Code: req.Code, Name: req.Name}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}
