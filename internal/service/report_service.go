package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
	"github.com/baobab-labs/school-portal-api/pkg/export"
)

type resultReader interface {
	FindByStudentTerm(ctx context.Context, studentID, termID string) (*models.TermResult, error)
	ListByClassTerm(ctx context.Context, classID, termID string) ([]models.TermResultDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// ReportConfig tunes rendered documents.
type ReportConfig struct {
	Enabled    bool
	SchoolName string
}

// ReportService renders report cards as PDF and class result sheets as
// CSV. Only published results are renderable; a draft ranking never
// leaves the building.
type ReportService struct {
	results  resultReader
	grades   approvedGradeReader
	students studentReader
	terms    termReader
	authz    authorizer
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
	config   ReportConfig
}

// NewReportService constructs a ReportService.
func NewReportService(results resultReader, grades approvedGradeReader, students studentReader, terms termReader, authz authorizer, logger *zap.Logger, config ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		results:  results,
		grades:   grades,
		students: students,
		terms:    terms,
		authz:    authz,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
		config:   config,
	}
}

func formatScore(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', 1, 64)
}

func formatText(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}

// ReportCard renders a student's published term result as a PDF. A
// student actor may only render their own card.
func (s *ReportService) ReportCard(ctx context.Context, actor models.Actor, studentID, termID string) ([]byte, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report rendering is disabled")
	}
	if err := s.authz.AuthorizeStudentRead(ctx, actor, studentID); err != nil {
		return nil, err
	}

	result, err := s.results.FindByStudentTerm(ctx, studentID, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no result for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if !result.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "results are not published yet")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	term, err := s.terms.FindTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	subjects, err := s.grades.ListDetailsByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject grades")
	}

	data := export.Dataset{Headers: []string{"Subject", "CA", "Exam", "Total", "Grade", "Remark"}}
	for _, subject := range subjects {
		data.Rows = append(data.Rows, map[string]string{
			"Subject": subject.SubjectName,
			"CA":      formatScore(subject.CA),
			"Exam":    formatScore(subject.Exam),
			"Total":   formatScore(subject.Total),
			"Grade":   formatText(subject.Letter),
			"Remark":  formatText(subject.Remark),
		})
	}

	summary := []string{
		fmt.Sprintf("Student: %s %s (%s)", student.FirstName, student.LastName, student.StudentNo),
		fmt.Sprintf("GPA: %.2f", result.GPA),
		fmt.Sprintf("Class Position: %d of %d", result.ClassPosition, result.ClassSize),
	}
	if result.TeacherComment != nil {
		summary = append(summary, "Teacher's Comment: "+*result.TeacherComment)
	}
	if result.PrincipalComment != nil {
		summary = append(summary, "Principal's Comment: "+*result.PrincipalComment)
	}

	title := fmt.Sprintf("%s - %s Report Card", s.config.SchoolName, term.Name)
	payload, err := s.pdf.RenderWithSummary(data, title, summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return payload, nil
}

// ClassResultSheet renders the ranked class results as CSV for office
// use. Unpublished rankings are included here; this export is an
// internal document, not the student-facing report card.
func (s *ReportService) ClassResultSheet(ctx context.Context, actor models.Actor, classID, termID string) ([]byte, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report rendering is disabled")
	}
	if err := s.authz.Authorize(ctx, actor, ActionApproveGrades); err != nil {
		return nil, err
	}

	results, err := s.results.ListByClassTerm(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	data := export.Dataset{Headers: []string{"Position", "Student No", "Student", "GPA", "Published"}}
	for _, result := range results {
		data.Rows = append(data.Rows, map[string]string{
			"Position":   strconv.Itoa(result.ClassPosition),
			"Student No": result.StudentNo,
			"Student":    result.StudentName,
			"GPA":        strconv.FormatFloat(result.GPA, 'f', 2, 64),
			"Published":  strconv.FormatBool(result.IsPublished),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render result sheet")
	}
	return payload, nil
}
