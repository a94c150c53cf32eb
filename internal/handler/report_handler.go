package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/baobab-labs/school-portal-api/internal/service"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
	"github.com/baobab-labs/school-portal-api/pkg/response"
)

// ReportHandler exposes report card and result sheet downloads.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// ReportCard godoc
// @Summary Download a student's report card as PDF
// @Description Available only after the class results are published.
// @Tags Reports
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/students/{studentId}/card [get]
func (h *ReportHandler) ReportCard(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId required"))
		return
	}
	studentID := c.Param("studentId")
	payload, err := h.reports.ReportCard(c.Request.Context(), actorFromContext(c), studentID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, "application/pdf", fmt.Sprintf("report-card-%s-%s.pdf", studentID, termID), payload)
}

// ClassResultSheet godoc
// @Summary Download a class result sheet as CSV
// @Tags Reports
// @Produce text/csv
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {file} binary
// @Router /reports/classes/{classId}/sheet [get]
func (h *ReportHandler) ClassResultSheet(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId required"))
		return
	}
	classID := c.Param("classId")
	payload, err := h.reports.ClassResultSheet(c.Request.Context(), actorFromContext(c), classID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, "text/csv", fmt.Sprintf("result-sheet-%s-%s.csv", classID, termID), payload)
}
