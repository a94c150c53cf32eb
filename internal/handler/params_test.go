package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, rec
}

func TestReportCardRequiresTerm(t *testing.T) {
	h := NewReportHandler(nil)

	c, rec := testContext(t, http.MethodGet, "/reports/students/stu-1/card")
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}

	h.ReportCard(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListResultsRequiresScope(t *testing.T) {
	h := NewResultHandler(nil)

	c, rec := testContext(t, http.MethodGet, "/results?classId=class-1")

	h.ListByClassTerm(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportStudentsRequiresFile(t *testing.T) {
	h := NewImportHandler(nil)

	c, rec := testContext(t, http.MethodPost, "/imports/students")

	h.Students(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoolQueryParsing(t *testing.T) {
	c, _ := testContext(t, http.MethodGet, "/students?active=true&broken=maybe")

	parsed := boolQuery(c, "active")
	if assert.NotNil(t, parsed) {
		assert.True(t, *parsed)
	}
	assert.Nil(t, boolQuery(c, "broken"))
	assert.Nil(t, boolQuery(c, "missing"))
}

func TestDateQueryParsing(t *testing.T) {
	c, _ := testContext(t, http.MethodGet, "/attendance?from=2026-02-01&to=bogus")

	parsed := dateQuery(c, "from")
	if assert.NotNil(t, parsed) {
		assert.Equal(t, 2026, parsed.Year())
	}
	assert.Nil(t, dateQuery(c, "to"))
}
