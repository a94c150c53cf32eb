package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/grading"
	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.SubjectGrade, error)
	FindByID(ctx context.Context, id string) (*models.SubjectGrade, error)
	FindByScope(ctx context.Context, studentID, subjectID, classID, termID string) (*models.SubjectGrade, error)
	UpsertDraft(ctx context.Context, grade *models.SubjectGrade) error
	TransitionStatus(ctx context.Context, id string, from, to models.GradeStatus, actorID string) error
	SubmitScope(ctx context.Context, classID, subjectID, termID string) (int64, error)
}

type authorizer interface {
	Authorize(ctx context.Context, actor models.Actor, action Action) error
	AuthorizeStudentRead(ctx context.Context, actor models.Actor, studentID string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UpsertGradeRequest carries raw score entry for one student/subject.
type UpsertGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	SubjectID string   `json:"subject_id" validate:"required"`
	ClassID   string   `json:"class_id" validate:"required"`
	TermID    string   `json:"term_id" validate:"required"`
	CA        *float64 `json:"ca_score"`
	Exam      *float64 `json:"exam_score"`
}

// SubmitScopeRequest promotes a whole class/subject/term batch.
type SubmitScopeRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TermID    string `json:"term_id" validate:"required"`
}

// GradeService drives the grade lifecycle. Derived fields are always
// recomputed from raw scores on write, and every status move goes
// through a compare-and-swap so concurrent actors cannot race a grade
// into an inconsistent state.
type GradeService struct {
	repo      gradeRepository
	authz     authorizer
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(repo gradeRepository, authz authorizer, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{repo: repo, authz: authz, audit: audit, validator: validate, logger: logger}
}

// AttachMetrics wires the metrics service; all recorders tolerate nil.
func (s *GradeService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// List returns grades matching the filter.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.SubjectGrade, error) {
	grades, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Get loads one grade.
func (s *GradeService) Get(ctx context.Context, id string) (*models.SubjectGrade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Upsert records raw scores for a student and recomputes the derived
// total, letter and remark. Only draft grades accept writes; re-entry
// of the same scope overwrites the draft in place.
func (s *GradeService) Upsert(ctx context.Context, actor models.Actor, req UpsertGradeRequest) (*models.SubjectGrade, error) {
	if err := s.authz.Authorize(ctx, actor, ActionEnterGrades); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	scored, err := grading.Score(req.CA, req.Exam)
	if err != nil {
		return nil, err
	}

	grade := &models.SubjectGrade{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TermID:    req.TermID,
		CA:        req.CA,
		Exam:      req.Exam,
		EnteredBy: actor.UserID,
	}
	if scored.Complete() {
		grade.Total = scored.Total
		letter, remark := scored.Letter, scored.Remark
		grade.Letter = &letter
		grade.Remark = &remark
	}

	if err := s.repo.UpsertDraft(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, s.resolveScopeConflict(ctx, req)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}

	return grade, nil
}

// resolveScopeConflict distinguishes "row left draft" from a genuine
// write race after a zero-row upsert.
func (s *GradeService) resolveScopeConflict(ctx context.Context, req UpsertGradeRequest) error {
	current, err := s.repo.FindByScope(ctx, req.StudentID, req.SubjectID, req.ClassID, req.TermID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrConflict, "grade changed concurrently")
	}
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("grade is %s and no longer accepts score entry", current.Status))
}

// Submit moves one complete draft grade to submitted.
func (s *GradeService) Submit(ctx context.Context, actor models.Actor, gradeID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionSubmitGrades); err != nil {
		return err
	}
	grade, err := s.Get(ctx, gradeID)
	if err != nil {
		return err
	}
	if grade.Total == nil {
		return appErrors.Clone(appErrors.ErrValidation, "grade is missing an exam score and cannot be submitted")
	}
	return s.transition(ctx, actor, grade, models.GradeStatusDraft, models.GradeStatusSubmitted, models.AuditActionGradeSubmit)
}

// SubmitScope promotes every complete draft in a class/subject/term
// batch, returning how many grades moved.
func (s *GradeService) SubmitScope(ctx context.Context, actor models.Actor, req SubmitScopeRequest) (int64, error) {
	if err := s.authz.Authorize(ctx, actor, ActionSubmitGrades); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	affected, err := s.repo.SubmitScope(ctx, req.ClassID, req.SubjectID, req.TermID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit grades")
	}
	s.writeAudit(ctx, actor, models.AuditActionGradeSubmit, "grades", req.ClassID)
	return affected, nil
}

// Approve moves a submitted grade to approved.
func (s *GradeService) Approve(ctx context.Context, actor models.Actor, gradeID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionApproveGrades); err != nil {
		return err
	}
	grade, err := s.Get(ctx, gradeID)
	if err != nil {
		return err
	}
	return s.transition(ctx, actor, grade, models.GradeStatusSubmitted, models.GradeStatusApproved, models.AuditActionGradeApprove)
}

// Revert returns a submitted grade to draft so the entering teacher
// can correct it before approval.
func (s *GradeService) Revert(ctx context.Context, actor models.Actor, gradeID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionRevertGrades); err != nil {
		return err
	}
	grade, err := s.Get(ctx, gradeID)
	if err != nil {
		return err
	}
	return s.transition(ctx, actor, grade, models.GradeStatusSubmitted, models.GradeStatusDraft, models.AuditActionGradeRevert)
}

// Unlock reopens a locked grade as draft. This is the single backwards
// path out of the terminal state and is reserved for admins holding
// the approval flag.
func (s *GradeService) Unlock(ctx context.Context, actor models.Actor, gradeID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionUnlockGrades); err != nil {
		return err
	}
	grade, err := s.Get(ctx, gradeID)
	if err != nil {
		return err
	}
	return s.transition(ctx, actor, grade, models.GradeStatusLocked, models.GradeStatusDraft, models.AuditActionGradeUnlock)
}

func (s *GradeService) transition(ctx context.Context, actor models.Actor, grade *models.SubjectGrade, from, to models.GradeStatus, auditAction string) error {
	if grade.Status != from {
		return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("grade is %s, expected %s", grade.Status, from))
	}
	if err := s.repo.TransitionStatus(ctx, grade.ID, from, to, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return appErrors.Clone(appErrors.ErrConflict, "grade status changed concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade status")
	}
	s.metrics.RecordGradeTransition(string(to))
	s.writeAudit(ctx, actor, auditAction, "grade", grade.ID)
	return nil
}

func (s *GradeService) writeAudit(ctx context.Context, actor models.Actor, action, resource, resourceID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record grade audit log", zap.Error(err))
	}
}
