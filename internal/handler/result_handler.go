package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baobab-labs/school-portal-api/internal/service"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
	"github.com/baobab-labs/school-portal-api/pkg/response"
)

// ResultHandler exposes term result endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

type aggregateRequest struct {
	ClassID string `json:"class_id" binding:"required"`
	TermID  string `json:"term_id" binding:"required"`
	Async   bool   `json:"async"`
}

// Aggregate godoc
// @Summary Aggregate approved grades into term results
// @Description Recomputes GPA and class ranking for a class/term. Set async to queue the run.
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Scope payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /results/aggregate [post]
func (h *ResultHandler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)

	if req.Async {
		if err := h.results.EnqueueAggregate(c.Request.Context(), actor, req.ClassID, req.TermID); err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"}, nil)
		return
	}

	results, err := h.results.Aggregate(c.Request.Context(), actor, req.ClassID, req.TermID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// ListByClassTerm godoc
// @Summary List term results for a class
// @Tags Results
// @Produce json
// @Param classId query string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) ListByClassTerm(c *gin.Context) {
	classID, termID := c.Query("classId"), c.Query("termId")
	if classID == "" || termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId and termId are required"))
		return
	}
	results, err := h.results.ListByClassTerm(c.Request.Context(), classID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

type publishRequest struct {
	ClassID string `json:"class_id" binding:"required"`
	TermID  string `json:"term_id" binding:"required"`
}

// Publish godoc
// @Summary Publish term results for a class
// @Description Makes results visible to students and locks the underlying grades.
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Scope payload"
// @Success 200 {object} response.Envelope
// @Router /results/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.results.Publish(c.Request.Context(), actorFromContext(c), req.ClassID, req.TermID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "published"}, nil)
}

// StudentResult godoc
// @Summary Get a student's published result for a term
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/students/{studentId}/terms/{termId} [get]
func (h *ResultHandler) StudentResult(c *gin.Context) {
	view, err := h.results.StudentResult(c.Request.Context(), actorFromContext(c), c.Param("studentId"), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Transcript godoc
// @Summary Get a student's transcript across published terms
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /results/students/{studentId}/transcript [get]
func (h *ResultHandler) Transcript(c *gin.Context) {
	transcript, err := h.results.Transcript(c.Request.Context(), actorFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

type commentsRequest struct {
	TeacherComment   *string `json:"teacher_comment"`
	PrincipalComment *string `json:"principal_comment"`
}

// UpdateComments godoc
// @Summary Update report card comments on a term result
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body map[string]string true "Comments payload"
// @Success 204 {object} response.Envelope
// @Router /results/{id}/comments [patch]
func (h *ResultHandler) UpdateComments(c *gin.Context) {
	var req commentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.results.UpdateComments(c.Request.Context(), actorFromContext(c), c.Param("id"), req.TeacherComment, req.PrincipalComment); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
