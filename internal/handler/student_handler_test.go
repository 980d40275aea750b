package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
	"github.com/edustack/sis-api/internal/service"
	"github.com/edustack/sis-api/pkg/response"
)

type stubStudentRepo struct {
	students []models.Student
}

func (s *stubStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return s.students, len(s.students), nil
}

func (s *stubStudentRepo) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	for _, st := range s.students {
		if st.ID == id {
			return &models.StudentDetail{Student: st}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubStudentRepo) ExistsByUniqueID(_ context.Context, uniqueID, excludeID string) (bool, error) {
	for _, st := range s.students {
		if st.StudentUniqueID == uniqueID && st.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "stu-new"
	s.students = append(s.students, *student)
	return nil
}

func (s *stubStudentRepo) Update(_ context.Context, _ *models.Student) error { return nil }

func (s *stubStudentRepo) Deactivate(_ context.Context, _ string) error { return nil }

func newStudentTestRouter(repo *stubStudentRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(service.NewStudentService(repo, nil, nil))
	router := gin.New()
	router.GET("/students", h.List)
	router.GET("/students/:id", h.Get)
	router.POST("/students", h.Create)
	return router
}

func TestStudentListReturnsEnvelope(t *testing.T) {
	repo := &stubStudentRepo{students: []models.Student{
		{ID: "stu-1", StudentUniqueID: "S-1", FirstName: "Ana", LastSurname: "Reyes"},
	}}
	router := newStudentTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?page=1&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
	assert.Nil(t, envelope.Error)
}

func TestStudentGetUnknownReturnsNotFound(t *testing.T) {
	router := newStudentTestRouter(&stubStudentRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestStudentCreateReturnsCreated(t *testing.T) {
	repo := &stubStudentRepo{}
	router := newStudentTestRouter(repo)

	payload := map[string]interface{}{
		"student_unique_id": "S-9",
		"first_name":        "Leo",
		"last_surname":      "Okafor",
		"birth_date":        time.Date(2012, time.March, 4, 0, 0, 0, 0, time.UTC),
		"sex":               "Male",
		"grade_level":       "8",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.students, 1)
	assert.Equal(t, "S-9", repo.students[0].StudentUniqueID)
}

func TestStudentCreateDuplicateUniqueID(t *testing.T) {
	repo := &stubStudentRepo{students: []models.Student{{ID: "stu-1", StudentUniqueID: "S-1"}}}
	router := newStudentTestRouter(repo)

	payload := `{"student_unique_id":"S-1","first_name":"Ana","last_surname":"Reyes","birth_date":"2012-03-04T00:00:00Z","sex":"Female","grade_level":"8"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}
