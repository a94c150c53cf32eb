package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type classResolver interface {
	FindClassByName(ctx context.Context, name string) (*models.Class, error)
}

type studentCreator interface {
	CreateWithAllocatedNo(ctx context.Context, student *models.Student, year int) error
}

// ImportConfig tunes bulk student import.
type ImportConfig struct {
	Enabled bool
	MaxRows int
}

// ImportReport summarizes one bulk import run. Failed rows are reported
// with their line number; accepted rows are committed independently.
type ImportReport struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError describes one rejected CSV row.
type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportService ingests student rosters from CSV. Every created
// student goes through the same allocator-backed creation path as
// admissions, so imported numbers never collide with admitted ones.
type ImportService struct {
	students studentCreator
	classes  classResolver
	audit    auditWriter
	authz    authorizer
	metrics  *MetricsService
	logger   *zap.Logger
	config   ImportConfig
	now      func() time.Time
}

// NewImportService constructs an ImportService.
func NewImportService(students studentCreator, classes classResolver, authz authorizer, audit auditWriter, logger *zap.Logger, config ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 1000
	}
	return &ImportService{
		students: students,
		classes:  classes,
		audit:    audit,
		authz:    authz,
		logger:   logger,
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AttachMetrics wires the metrics service; all recorders tolerate nil.
func (s *ImportService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// expected CSV columns; class and dob columns accept aliases.
var importColumns = map[string]string{
	"first_name":     "first_name",
	"last_name":      "last_name",
	"email":          "email",
	"gender":         "gender",
	"date_of_birth":  "birth_date",
	"dob":            "birth_date",
	"guardian_name":  "guardian_name",
	"guardian_phone": "guardian_phone",
	"class":          "class",
	"class_name":     "class",
}

// ImportStudents parses the CSV stream and registers each valid row.
func (s *ImportService) ImportStudents(ctx context.Context, actor models.Actor, r io.Reader) (*ImportReport, error) {
	if err := s.authz.Authorize(ctx, actor, ActionUploadBulkData); err != nil {
		return nil, err
	}
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "bulk import is disabled")
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is empty or unreadable")
	}
	fields := make(map[string]int)
	for i, column := range header {
		name := strings.ToLower(strings.TrimSpace(column))
		if canonical, ok := importColumns[name]; ok {
			fields[canonical] = i
		}
	}
	for _, required := range []string{"first_name", "last_name"} {
		if _, ok := fields[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv is missing the %s column", required))
		}
	}

	report := &ImportReport{}
	classIDs := make(map[string]*string)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ImportError{Line: line, Message: "malformed csv row"})
			continue
		}
		if line-1 > s.config.MaxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d row limit", s.config.MaxRows))
		}

		student, importErr := s.buildStudent(ctx, record, fields, classIDs)
		if importErr != "" {
			report.Failed++
			report.Errors = append(report.Errors, ImportError{Line: line, Message: importErr})
			continue
		}

		if err := s.students.CreateWithAllocatedNo(ctx, student, s.now().Year()); err != nil {
			s.logger.Warn("import row failed", zap.Int("line", line), zap.Error(err))
			report.Failed++
			report.Errors = append(report.Errors, ImportError{Line: line, Message: "failed to save student"})
			continue
		}
		report.Imported++
	}

	s.metrics.RecordImportRows("imported", report.Imported)
	s.metrics.RecordImportRows("failed", report.Failed)

	if s.audit != nil {
		detail := fmt.Sprintf(`{"imported":%d,"failed":%d}`, report.Imported, report.Failed)
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    &actor.UserID,
			Action:    models.AuditActionBulkImport,
			Resource:  "students",
			NewValues: []byte(detail),
		}); err != nil {
			s.logger.Warn("failed to record import audit log", zap.Error(err))
		}
	}
	return report, nil
}

func (s *ImportService) buildStudent(ctx context.Context, record []string, fields map[string]int, classIDs map[string]*string) (*models.Student, string) {
	value := func(name string) string {
		idx, ok := fields[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	firstName := value("first_name")
	lastName := value("last_name")
	if firstName == "" || lastName == "" {
		return nil, "first_name and last_name are required"
	}

	student := &models.Student{FirstName: firstName, LastName: lastName, Active: true}
	if email := value("email"); email != "" {
		student.Email = &email
	}
	if gender := strings.ToLower(value("gender")); gender != "" {
		if gender != "male" && gender != "female" {
			return nil, "gender must be male or female"
		}
		student.Gender = &gender
	}
	if raw := value("birth_date"); raw != "" {
		birthDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, "date_of_birth must be YYYY-MM-DD"
		}
		student.BirthDate = &birthDate
	}
	if name := value("guardian_name"); name != "" {
		student.GuardianName = &name
	}
	if phone := value("guardian_phone"); phone != "" {
		student.GuardianPhone = &phone
	}

	if className := value("class"); className != "" {
		key := strings.ToLower(className)
		classID, ok := classIDs[key]
		if !ok {
			class, err := s.classes.FindClassByName(ctx, className)
			if err != nil {
				classIDs[key] = nil
				return nil, fmt.Sprintf("unknown class %q", className)
			}
			classID = &class.ID
			classIDs[key] = classID
		}
		if classID == nil {
			return nil, fmt.Sprintf("unknown class %q", className)
		}
		student.ClassID = classID
	}

	return student, ""
}
