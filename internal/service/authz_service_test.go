package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockPermissionRepo struct {
	perms map[string]*models.AdminPermission
}

func (m *mockPermissionRepo) FindPermissions(_ context.Context, userID string) (*models.AdminPermission, error) {
	if p, ok := m.perms[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

// mockRoster maps login emails to student records.
type mockRoster struct {
	students map[string]*models.Student
}

func (m *mockRoster) FindByUserEmail(_ context.Context, email string) (*models.Student, error) {
	if s, ok := m.students[email]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func TestAuthorizeTeacherMayEnterGrades(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)
	actor := models.Actor{UserID: "t-1", Role: models.RoleTeacher}

	require.NoError(t, svc.Authorize(context.Background(), actor, ActionEnterGrades))
	require.NoError(t, svc.Authorize(context.Background(), actor, ActionSubmitGrades))
}

func TestAuthorizeTeacherDeniedApprovalDespitePermissionRow(t *testing.T) {
	repo := &mockPermissionRepo{perms: map[string]*models.AdminPermission{
		"t-1": {UserID: "t-1", CanApproveGrades: true},
	}}
	svc := NewAuthzService(repo, &mockRoster{}, nil)
	actor := models.Actor{UserID: "t-1", Role: models.RoleTeacher}

	err := svc.Authorize(context.Background(), actor, ActionApproveGrades)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthorizeAdminNeedsMatchingFlag(t *testing.T) {
	repo := &mockPermissionRepo{perms: map[string]*models.AdminPermission{
		"a-1": {UserID: "a-1", CanManageStudents: true},
	}}
	svc := NewAuthzService(repo, &mockRoster{}, nil)
	actor := models.Actor{UserID: "a-1", Role: models.RoleAdmin}

	require.NoError(t, svc.Authorize(context.Background(), actor, ActionDecideAdmission))

	err := svc.Authorize(context.Background(), actor, ActionApproveGrades)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthorizeAdminWithoutPermissionRowDenied(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)
	actor := models.Actor{UserID: "a-2", Role: models.RoleAdmin}

	err := svc.Authorize(context.Background(), actor, ActionUploadBulkData)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthorizeUnknownActionDenied(t *testing.T) {
	repo := &mockPermissionRepo{perms: map[string]*models.AdminPermission{
		"a-1": {UserID: "a-1", CanAddAdmins: true, CanManageStudents: true, CanUploadBulkData: true, CanApproveGrades: true, CanManageTeachers: true},
	}}
	svc := NewAuthzService(repo, &mockRoster{}, nil)
	actor := models.Actor{UserID: "a-1", Role: models.RoleAdmin}

	err := svc.Authorize(context.Background(), actor, Action("reports:nuke"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthorizeStudentDeniedEverywhere(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)
	actor := models.Actor{UserID: "s-1", Role: models.RoleStudent}

	for _, action := range []Action{ActionEnterGrades, ActionApproveGrades, ActionPublishResults, ActionManageAdmins} {
		err := svc.Authorize(context.Background(), actor, action)
		require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden), "action %s", action)
	}
}

func TestAuthorizeTeacherMayCommentResults(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)
	actor := models.Actor{UserID: "t-1", Role: models.RoleTeacher}

	require.NoError(t, svc.Authorize(context.Background(), actor, ActionCommentResults))
}

func TestAuthorizeStudentReadStaffAllowed(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher} {
		actor := models.Actor{UserID: "u-1", Role: role}
		require.NoError(t, svc.AuthorizeStudentRead(context.Background(), actor, "stu-9"), "role %s", role)
	}
}

func TestAuthorizeStudentReadOwnRecord(t *testing.T) {
	roster := &mockRoster{students: map[string]*models.Student{
		"ada@school.test": {ID: "stu-1", StudentNo: "BBC/2026/0001"},
	}}
	svc := NewAuthzService(&mockPermissionRepo{}, roster, nil)
	actor := models.Actor{UserID: "u-1", Email: "ada@school.test", Role: models.RoleStudent}

	require.NoError(t, svc.AuthorizeStudentRead(context.Background(), actor, "stu-1"))
}

func TestAuthorizeStudentReadOtherRecordDenied(t *testing.T) {
	roster := &mockRoster{students: map[string]*models.Student{
		"ada@school.test": {ID: "stu-1", StudentNo: "BBC/2026/0001"},
	}}
	svc := NewAuthzService(&mockPermissionRepo{}, roster, nil)
	actor := models.Actor{UserID: "u-1", Email: "ada@school.test", Role: models.RoleStudent}

	err := svc.AuthorizeStudentRead(context.Background(), actor, "stu-2")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthorizeStudentReadUnlinkedLoginDenied(t *testing.T) {
	svc := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)

	err := svc.AuthorizeStudentRead(context.Background(), models.Actor{UserID: "u-1", Email: "ghost@school.test", Role: models.RoleStudent}, "stu-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	err = svc.AuthorizeStudentRead(context.Background(), models.Actor{UserID: "u-2", Role: models.RoleStudent}, "stu-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}
