package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	FindPermissions(ctx context.Context, userID string) (*models.AdminPermission, error)
	UpsertPermissions(ctx context.Context, perms *models.AdminPermission) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest provisions a portal login.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT"`
}

// SetPermissionsRequest replaces an admin's capability flags.
type SetPermissionsRequest struct {
	CanAddAdmins      bool `json:"can_add_admins"`
	CanManageStudents bool `json:"can_manage_students"`
	CanUploadBulkData bool `json:"can_upload_bulk_data"`
	CanApproveGrades  bool `json:"can_approve_grades"`
	CanManageTeachers bool `json:"can_manage_teachers"`
}

// UserService manages portal accounts and admin capability flags.
type UserService struct {
	repo      userRepository
	authz     authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, authz authorizer, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, authz: authz, validator: validate, logger: logger}
}

// List returns accounts with pagination metadata.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageAdmins); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create provisions a login. Only admins holding the add-admins flag
// may create accounts, whatever the target role.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req CreateUserRequest) (*models.User, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageAdmins); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// GetPermissions returns the capability flags of an admin account. A
// missing row reads as all-false rather than an error.
func (s *UserService) GetPermissions(ctx context.Context, actor models.Actor, userID string) (*models.AdminPermission, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageAdmins); err != nil {
		return nil, err
	}
	perms, err := s.repo.FindPermissions(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AdminPermission{UserID: userID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
	}
	return perms, nil
}

// SetPermissions replaces the capability flags for an admin account.
// The target must hold the ADMIN role; flags on other roles would be
// dead weight the authorizer ignores anyway.
func (s *UserService) SetPermissions(ctx context.Context, actor models.Actor, userID string, req SetPermissionsRequest) (*models.AdminPermission, error) {
	if err := s.authz.Authorize(ctx, actor, ActionManageAdmins); err != nil {
		return nil, err
	}

	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if target.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "permissions apply only to admin accounts")
	}

	perms := &models.AdminPermission{
		UserID:            userID,
		CanAddAdmins:      req.CanAddAdmins,
		CanManageStudents: req.CanManageStudents,
		CanUploadBulkData: req.CanUploadBulkData,
		CanApproveGrades:  req.CanApproveGrades,
		CanManageTeachers: req.CanManageTeachers,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := s.repo.UpsertPermissions(ctx, perms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save permissions")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionPermissionChange,
		Resource:   "admin_permissions",
		ResourceID: &userID,
	}); err != nil {
		s.logger.Warn("failed to record permission audit log", zap.Error(err))
	}
	return perms, nil
}
