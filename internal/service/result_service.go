package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baobab-labs/school-portal-api/internal/grading"
	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
	"github.com/baobab-labs/school-portal-api/pkg/jobs"
)

// JobTypeAggregate names the background aggregation job.
const JobTypeAggregate = "results.aggregate"

type resultRepository interface {
	ReplaceForClassTerm(ctx context.Context, classID, termID string, results []models.TermResult) error
	ListByClassTerm(ctx context.Context, classID, termID string) ([]models.TermResultDetail, error)
	FindByStudentTerm(ctx context.Context, studentID, termID string) (*models.TermResult, error)
	ListPublishedByStudent(ctx context.Context, studentID string) ([]models.TermResult, error)
	Publish(ctx context.Context, classID, termID string) error
	UpdateComments(ctx context.Context, id string, teacherComment, principalComment *string) error
}

type approvedGradeReader interface {
	ListApprovedByClassTerm(ctx context.Context, classID, termID string) ([]models.SubjectGradeDetail, error)
	ListDetailsByStudentTerm(ctx context.Context, studentID, termID string, statuses ...models.GradeStatus) ([]models.SubjectGradeDetail, error)
}

type termReader interface {
	FindTerm(ctx context.Context, id string) (*models.Term, error)
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AggregatePayload is the job payload for queued recomputes.
type AggregatePayload struct {
	ClassID string `json:"class_id"`
	TermID  string `json:"term_id"`
}

// ResultService computes and publishes term results. Aggregation reads
// only approved or locked grades, replaces the whole class ranking in
// one transaction, and leaves staff commentary untouched.
type ResultService struct {
	results  resultRepository
	grades   approvedGradeReader
	terms    termReader
	cache    resultCache
	queue    *jobs.Queue
	audit    auditWriter
	authz    authorizer
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewResultService constructs a ResultService. The queue is optional;
// without it Enqueue falls back to synchronous aggregation.
func NewResultService(results resultRepository, grades approvedGradeReader, terms termReader, cache resultCache, authz authorizer, audit auditWriter, logger *zap.Logger, cacheTTL time.Duration) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &ResultService{
		results:  results,
		grades:   grades,
		terms:    terms,
		cache:    cache,
		authz:    authz,
		audit:    audit,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// AttachQueue wires the background queue used for async recomputes.
func (s *ResultService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// AttachMetrics wires the metrics service; all recorders tolerate nil.
func (s *ResultService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// HandleJob processes a queued aggregation request.
func (s *ResultService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(AggregatePayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}
	_, err := s.aggregate(ctx, payload.ClassID, payload.TermID)
	return err
}

// Aggregate recomputes GPA and class ranking for a class/term.
func (s *ResultService) Aggregate(ctx context.Context, actor models.Actor, classID, termID string) ([]models.TermResult, error) {
	if err := s.authz.Authorize(ctx, actor, ActionApproveGrades); err != nil {
		return nil, err
	}
	return s.aggregate(ctx, classID, termID)
}

// EnqueueAggregate schedules an async recompute, falling back to a
// synchronous pass when no queue is attached.
func (s *ResultService) EnqueueAggregate(ctx context.Context, actor models.Actor, classID, termID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionApproveGrades); err != nil {
		return err
	}
	if s.queue == nil {
		_, err := s.aggregate(ctx, classID, termID)
		return err
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeAggregate,
		Payload: AggregatePayload{ClassID: classID, TermID: termID},
	})
}

func (s *ResultService) aggregate(ctx context.Context, classID, termID string) ([]models.TermResult, error) {
	grades, err := s.grades.ListApprovedByClassTerm(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved grades")
	}

	type bucket struct {
		studentNo string
		points    float64
		count     int
	}
	buckets := make(map[string]*bucket)
	for _, grade := range grades {
		if grade.Letter == nil {
			s.logger.Warn("approved grade missing letter, skipped",
				zap.String("grade_id", grade.ID), zap.String("student_id", grade.StudentID))
			continue
		}
		b, ok := buckets[grade.StudentID]
		if !ok {
			b = &bucket{studentNo: grade.StudentNo}
			buckets[grade.StudentID] = b
		}
		b.points += grading.GradePoint(*grade.Letter)
		b.count++
	}

	// Students with no gradeable subjects are excluded rather than
	// ranked at zero.
	results := make([]models.TermResult, 0, len(buckets))
	for studentID, b := range buckets {
		if b.count == 0 {
			continue
		}
		gpa := math.Round(b.points/float64(b.count)*100) / 100
		results = append(results, models.TermResult{
			StudentID: studentID,
			TermID:    termID,
			ClassID:   classID,
			GPA:       gpa,
		})
	}

	numbers := make(map[string]string, len(buckets))
	for studentID, b := range buckets {
		numbers[studentID] = b.studentNo
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].GPA != results[j].GPA {
			return results[i].GPA > results[j].GPA
		}
		return numbers[results[i].StudentID] < numbers[results[j].StudentID]
	})
	for i := range results {
		results[i].ClassPosition = i + 1
		results[i].ClassSize = len(results)
	}

	if err := s.results.ReplaceForClassTerm(ctx, classID, termID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "failed to store term results")
	}
	s.invalidate(ctx, classID, termID)
	return results, nil
}

// ListByClassTerm returns the ranked results for a class/term.
func (s *ResultService) ListByClassTerm(ctx context.Context, classID, termID string) ([]models.TermResultDetail, error) {
	results, err := s.results.ListByClassTerm(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list term results")
	}
	return results, nil
}

// Publish releases a class/term to students and locks the underlying
// approved grades in the same transaction.
func (s *ResultService) Publish(ctx context.Context, actor models.Actor, classID, termID string) error {
	if err := s.authz.Authorize(ctx, actor, ActionPublishResults); err != nil {
		return err
	}
	if err := s.results.Publish(ctx, classID, termID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "failed to publish results")
	}
	s.invalidate(ctx, classID, termID)
	s.metrics.RecordPublish()
	if s.audit != nil {
		resource := classID
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionResultsPublish,
			Resource:   "term_results",
			ResourceID: &resource,
		}); err != nil {
			s.logger.Warn("failed to record publish audit log", zap.Error(err))
		}
	}
	return nil
}

// StudentTermView is the published result a student sees for one term.
type StudentTermView struct {
	Result   models.TermResult          `json:"result"`
	Subjects []models.SubjectGradeDetail `json:"subjects"`
}

// StudentResult returns a student's published result with subject
// breakdown. Unpublished results are invisible to this path, and a
// student actor may only read their own row.
func (s *ResultService) StudentResult(ctx context.Context, actor models.Actor, studentID, termID string) (*StudentTermView, error) {
	if err := s.authz.AuthorizeStudentRead(ctx, actor, studentID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("results:%s:%s", termID, studentID)
	if s.cache != nil {
		var cached StudentTermView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !appErrors.HasCode(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("result cache read failed", zap.Error(err))
		} else {
			s.metrics.RecordCacheLookup(false)
		}
	}

	result, err := s.results.FindByStudentTerm(ctx, studentID, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no result for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if !result.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "results are not published yet")
	}

	subjects, err := s.grades.ListDetailsByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject grades")
	}

	view := &StudentTermView{Result: *result, Subjects: subjects}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("result cache write failed", zap.Error(err))
		}
	}
	return view, nil
}

// Transcript assembles the full published history of a student with a
// cumulative GPA across terms.
func (s *ResultService) Transcript(ctx context.Context, actor models.Actor, studentID string) (*models.Transcript, error) {
	if err := s.authz.AuthorizeStudentRead(ctx, actor, studentID); err != nil {
		return nil, err
	}
	results, err := s.results.ListPublishedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published results")
	}

	transcript := &models.Transcript{StudentID: studentID}
	var sum float64
	for _, result := range results {
		term, err := s.terms.FindTerm(ctx, result.TermID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
		}
		subjects, err := s.grades.ListDetailsByStudentTerm(ctx, studentID, result.TermID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject grades")
		}
		transcript.Terms = append(transcript.Terms, models.TranscriptTerm{
			TermID:   result.TermID,
			TermName: term.Name,
			GPA:      result.GPA,
			Subjects: subjects,
		})
		sum += result.GPA
	}
	if len(results) > 0 {
		transcript.CGPA = math.Round(sum/float64(len(results))*100) / 100
	}
	return transcript, nil
}

// UpdateComments applies staff commentary to a result row. Any teacher
// may write commentary; no approval flag is required.
func (s *ResultService) UpdateComments(ctx context.Context, actor models.Actor, resultID string, teacherComment, principalComment *string) error {
	if err := s.authz.Authorize(ctx, actor, ActionCommentResults); err != nil {
		return err
	}
	if err := s.results.UpdateComments(ctx, resultID, teacherComment, principalComment); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comments")
	}
	return nil
}

func (s *ResultService) invalidate(ctx context.Context, classID, termID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("results:%s:*", termID)); err != nil {
		s.logger.Warn("result cache invalidation failed",
			zap.String("class_id", classID), zap.String("term_id", termID), zap.Error(err))
	}
}
