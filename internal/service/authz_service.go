package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

// Action names a guarded portal operation. Every workflow entry point
// asks the authorizer about exactly one of these.
type Action string

const (
	ActionEnterGrades     Action = "grades:enter"
	ActionSubmitGrades    Action = "grades:submit"
	ActionApproveGrades   Action = "grades:approve"
	ActionRevertGrades    Action = "grades:revert"
	ActionUnlockGrades    Action = "grades:unlock"
	ActionPublishResults  Action = "results:publish"
	ActionCommentResults  Action = "results:comment"
	ActionDecideAdmission Action = "admissions:decide"
	ActionManageStudents  Action = "students:manage"
	ActionManageTeachers  Action = "teachers:manage"
	ActionUploadBulkData  Action = "imports:upload"
	ActionManageAdmins    Action = "admins:manage"
)

type permissionRepository interface {
	FindPermissions(ctx context.Context, userID string) (*models.AdminPermission, error)
}

type studentDirectory interface {
	FindByUserEmail(ctx context.Context, email string) (*models.Student, error)
}

// AuthzService decides whether an actor may perform a guarded action.
// Admin capabilities are double-gated: the ADMIN role and the matching
// permission flag are both required, and an unknown action is denied.
type AuthzService struct {
	repo     permissionRepository
	students studentDirectory
	logger   *zap.Logger
}

// NewAuthzService constructs the authorizer. The student directory
// links a student login to its student record for self-read checks.
func NewAuthzService(repo permissionRepository, students studentDirectory, logger *zap.Logger) *AuthzService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthzService{repo: repo, students: students, logger: logger}
}

// flagFor maps a flag-gated action to its permission flag. Actions not
// listed here are open to any admin, or role-gated elsewhere.
func flagFor(action Action, perms *models.AdminPermission) (bool, bool) {
	if perms == nil {
		perms = &models.AdminPermission{}
	}
	switch action {
	case ActionApproveGrades, ActionRevertGrades, ActionUnlockGrades, ActionPublishResults:
		return perms.CanApproveGrades, true
	case ActionManageStudents, ActionDecideAdmission:
		return perms.CanManageStudents, true
	case ActionManageTeachers:
		return perms.CanManageTeachers, true
	case ActionUploadBulkData:
		return perms.CanUploadBulkData, true
	case ActionManageAdmins:
		return perms.CanAddAdmins, true
	}
	return false, false
}

// Authorize returns nil when the actor may perform the action and a
// FORBIDDEN error otherwise. A permission row held by a non-admin
// grants nothing; an admin without the flag is equally denied.
func (s *AuthzService) Authorize(ctx context.Context, actor models.Actor, action Action) error {
	switch action {
	case ActionEnterGrades, ActionSubmitGrades, ActionCommentResults:
		if actor.Role == models.RoleTeacher || actor.Role == models.RoleAdmin {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "role may not record grades")
	}

	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}

	perms := actor.Permissions
	if perms == nil {
		loaded, err := s.repo.FindPermissions(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
		}
		perms = loaded
	}

	allowed, known := flagFor(action, perms)
	if !known {
		s.logger.Warn("unknown action denied", zap.String("action", string(action)), zap.String("user_id", actor.UserID))
		return appErrors.Clone(appErrors.ErrForbidden, "action not permitted")
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "missing permission for action")
	}
	return nil
}

// AuthorizeStudentRead returns nil when the actor may read the records
// of the given student. Staff read any student; a student actor is
// matched to its own student record through the login email.
func (s *AuthzService) AuthorizeStudentRead(ctx context.Context, actor models.Actor, studentID string) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return nil
	case models.RoleStudent:
		if actor.Email == "" || s.students == nil {
			return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
		}
		student, err := s.students.FindByUserEmail(ctx, actor.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student record")
		}
		if student.ID != studentID {
			return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
}
