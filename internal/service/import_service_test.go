package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockStudentCreator struct {
	created []models.Student
}

func (m *mockStudentCreator) CreateWithAllocatedNo(_ context.Context, student *models.Student, year int) error {
	student.StudentNo = fmt.Sprintf("%d%04d", year, len(m.created)+1)
	m.created = append(m.created, *student)
	return nil
}

type mockClassResolver struct {
	classes map[string]string
}

func (m *mockClassResolver) FindClassByName(_ context.Context, name string) (*models.Class, error) {
	if id, ok := m.classes[strings.ToLower(name)]; ok {
		return &models.Class{ID: id, Name: name}, nil
	}
	return nil, sql.ErrNoRows
}

func newImportService(students *mockStudentCreator, classes *mockClassResolver) *ImportService {
	return NewImportService(students, classes, allowAllAuthz{}, nil, nil, ImportConfig{Enabled: true, MaxRows: 100})
}

func TestImportStudentsHappyPath(t *testing.T) {
	students := &mockStudentCreator{}
	classes := &mockClassResolver{classes: map[string]string{"jhs 1": "class-1"}}
	svc := newImportService(students, classes)

	payload := strings.Join([]string{
		"first_name,last_name,email,gender,date_of_birth,guardian_name,guardian_phone,class",
		"Ama,Mensah,ama@example.com,female,2012-03-14,Akosua Mensah,0200000001,JHS 1",
		"Kofi,Owusu,,male,2011-11-02,Yaw Owusu,0200000002,JHS 1",
	}, "\n")

	report, err := svc.ImportStudents(context.Background(), adminActor(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, students.created, 2)
	assert.Equal(t, "Ama", students.created[0].FirstName)
	require.NotNil(t, students.created[0].ClassID)
	assert.Equal(t, "class-1", *students.created[0].ClassID)
	assert.NotEqual(t, students.created[0].StudentNo, students.created[1].StudentNo)
}

func TestImportStudentsReportsBadRows(t *testing.T) {
	students := &mockStudentCreator{}
	classes := &mockClassResolver{classes: map[string]string{}}
	svc := newImportService(students, classes)

	payload := strings.Join([]string{
		"first_name,last_name,gender,class",
		"Ama,Mensah,female,",
		",Owusu,male,",
		"Efua,Asante,other,",
		"Kojo,Boateng,male,Unknown Class",
	}, "\n")

	report, err := svc.ImportStudents(context.Background(), adminActor(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 3, report.Failed)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, 3, report.Errors[0].Line)
}

func TestImportStudentsRequiresNameColumns(t *testing.T) {
	svc := newImportService(&mockStudentCreator{}, &mockClassResolver{})

	_, err := svc.ImportStudents(context.Background(), adminActor(), strings.NewReader("email,phone\na@b.c,1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestImportStudentsDeniedWithoutPermission(t *testing.T) {
	svc := NewImportService(&mockStudentCreator{}, &mockClassResolver{}, denyAllAuthz{}, nil, nil, ImportConfig{Enabled: true})

	_, err := svc.ImportStudents(context.Background(), models.Actor{Role: models.RoleTeacher}, strings.NewReader("first_name,last_name\nA,B"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestImportStudentsEnforcesRowLimit(t *testing.T) {
	students := &mockStudentCreator{}
	svc := NewImportService(students, &mockClassResolver{}, allowAllAuthz{}, nil, nil, ImportConfig{Enabled: true, MaxRows: 1})

	payload := "first_name,last_name\nAma,Mensah\nKofi,Owusu"
	_, err := svc.ImportStudents(context.Background(), adminActor(), strings.NewReader(payload))
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
