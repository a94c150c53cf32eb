package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/service"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
	"github.com/baobab-labs/school-portal-api/pkg/response"
)

// AdmissionHandler exposes admission application endpoints.
type AdmissionHandler struct {
	admissions *service.AdmissionService
}

// NewAdmissionHandler constructs handler.
func NewAdmissionHandler(admissions *service.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions}
}

// Submit godoc
// @Summary Submit an admission application
// @Description Public endpoint for prospective students. No authentication required.
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /applications [post]
func (h *AdmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}
	app, err := h.admissions.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List admission applications
// @Tags Admissions
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by applicant name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.ApplicationFilter{
		Status:    models.ApplicationStatus(c.Query("status")),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortOrder: c.Query("sortOrder"),
	}
	apps, total, err := h.admissions.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Get godoc
// @Summary Get an admission application
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	app, err := h.admissions.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Accept godoc
// @Summary Accept a pending application
// @Description Creates the student record and allocates a student number.
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/accept [post]
func (h *AdmissionHandler) Accept(c *gin.Context) {
	student, err := h.admissions.Accept(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Reject godoc
// @Summary Reject a pending application
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.RejectApplicationRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *AdmissionHandler) Reject(c *gin.Context) {
	var req service.RejectApplicationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}
	if err := h.admissions.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "rejected"}, nil)
}
