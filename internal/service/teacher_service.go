package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// CreateTeacherRequest registers teaching staff.
type CreateTeacherRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	FullName       string  `json:"full_name" validate:"required"`
	Phone          *string `json:"phone"`
	Specialization *string `json:"specialization"`
	UserID         *string `json:"user_id"`
}

// UpdateTeacherRequest patches mutable teacher fields.
type UpdateTeacherRequest struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	Specialization *string `json:"specialization"`
}

// TeacherService manages teaching staff records.
type TeacherService struct {
	repo      teacherRepository
	authz     authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, authz authorizer, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{repo: repo, authz: authz, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher.
func (s *TeacherService) Create(ctx context.Context, actor models.Actor, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageTeachers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher := &models.Teacher{
		UserID:         req.UserID,
		Email:          req.Email,
		FullName:       req.FullName,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Active:         true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update patches a teacher record.
func (s *TeacherService) Update(ctx context.Context, actor models.Actor, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageTeachers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		teacher.Email = *req.Email
	}
	if req.FullName != nil {
		teacher.FullName = *req.FullName
	}
	if req.Phone != nil {
		teacher.Phone = req.Phone
	}
	if req.Specialization != nil {
		teacher.Specialization = req.Specialization
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Deactivate retires a teacher.
func (s *TeacherService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if err := s.authz.Authorize(ctx, actor, ActionManageTeachers); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}
