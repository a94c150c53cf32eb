package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	Accept(ctx context.Context, app *models.Application, reviewerID string, year int) (*models.Student, error)
	Reject(ctx context.Context, id, reviewerID, reason string) error
}

// SubmitApplicationRequest is the public admission form payload.
type SubmitApplicationRequest struct {
	FirstName        string     `json:"first_name" validate:"required"`
	LastName         string     `json:"last_name" validate:"required"`
	Email            *string    `json:"email" validate:"omitempty,email"`
	Phone            *string    `json:"phone"`
	Gender           *string    `json:"gender" validate:"omitempty,oneof=male female"`
	BirthDate        *time.Time `json:"birth_date"`
	GradeAppliedFor  string     `json:"grade_applied_for" validate:"required"`
	Programme        string     `json:"programme" validate:"required"`
	GuardianName     string     `json:"guardian_name" validate:"required"`
	GuardianRelation *string    `json:"guardian_relation"`
	GuardianPhone    string     `json:"guardian_phone" validate:"required"`
	GuardianEmail    *string    `json:"guardian_email" validate:"omitempty,email"`
}

// RejectApplicationRequest carries an optional rejection reason; the
// configured default applies when it is empty.
type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// AdmissionConfig tunes the admission workflow.
type AdmissionConfig struct {
	OpenForSubmissions bool
	DefaultRejection   string
}

// AdmissionService runs the admission decision workflow. Decisions are
// terminal: the repository refuses a second decision, and acceptance
// creates the student record in the same transaction as the decision.
type AdmissionService struct {
	repo      applicationRepository
	authz     authorizer
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AdmissionConfig
	now       func() time.Time
}

// NewAdmissionService constructs an AdmissionService.
func NewAdmissionService(repo applicationRepository, authz authorizer, audit auditWriter, validate *validator.Validate, logger *zap.Logger, config AdmissionConfig) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultRejection == "" {
		config.DefaultRejection = "Does not meet requirements"
	}
	return &AdmissionService{
		repo:      repo,
		authz:     authz,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachMetrics wires the metrics service; all recorders tolerate nil.
func (s *AdmissionService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Submit files a new pending application. This is the one unauthenticated
// write path in the portal.
func (s *AdmissionService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.Application, error) {
	if !s.config.OpenForSubmissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admissions are closed")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	app := &models.Application{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		Gender:           req.Gender,
		BirthDate:        req.BirthDate,
		GradeAppliedFor:  req.GradeAppliedFor,
		Programme:        req.Programme,
		GuardianName:     req.GuardianName,
		GuardianRelation: req.GuardianRelation,
		GuardianPhone:    req.GuardianPhone,
		GuardianEmail:    req.GuardianEmail,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save application")
	}
	return app, nil
}

// List returns applications for review.
func (s *AdmissionService) List(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.Application, int, error) {
	if err := s.authz.Authorize(ctx, actor, ActionDecideAdmission); err != nil {
		return nil, 0, err
	}
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, total, nil
}

// Get loads one application.
func (s *AdmissionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	if err := s.authz.Authorize(ctx, actor, ActionDecideAdmission); err != nil {
		return nil, err
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

// Accept admits an applicant. The student number is allocated and the
// student row created atomically with the accepted decision, so an
// acceptance that reaches the caller always has exactly one student.
func (s *AdmissionService) Accept(ctx context.Context, actor models.Actor, applicationID string) (*models.Student, error) {
	if err := s.authz.Authorize(ctx, actor, ActionDecideAdmission); err != nil {
		return nil, err
	}
	app, err := s.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application has already been decided")
	}

	student, err := s.repo.Accept(ctx, app, actor.UserID, s.now().Year())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "failed to accept application")
	}

	s.metrics.RecordAdmissionDecision("accepted")
	s.writeAudit(ctx, actor, applicationID, `{"decision":"accepted"}`)
	s.logger.Info("application accepted",
		zap.String("application_id", applicationID), zap.String("student_no", student.StudentNo))
	return student, nil
}

// Reject declines an applicant with a reason, defaulting when none is
// provided.
func (s *AdmissionService) Reject(ctx context.Context, actor models.Actor, applicationID string, req RejectApplicationRequest) error {
	if err := s.authz.Authorize(ctx, actor, ActionDecideAdmission); err != nil {
		return err
	}
	reason := req.Reason
	if reason == "" {
		reason = s.config.DefaultRejection
	}
	if err := s.repo.Reject(ctx, applicationID, actor.UserID, reason); err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return appErrors.Clone(appErrors.ErrInvalidState, "application has already been decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	s.metrics.RecordAdmissionDecision("rejected")
	s.writeAudit(ctx, actor, applicationID, `{"decision":"rejected"}`)
	return nil
}

func (s *AdmissionService) writeAudit(ctx context.Context, actor models.Actor, applicationID, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionApplicationDecide,
		Resource:   "application",
		ResourceID: &applicationID,
		NewValues:  []byte(detail),
	}); err != nil {
		s.logger.Warn("failed to record admission audit log", zap.Error(err))
	}
}
