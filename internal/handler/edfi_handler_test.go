package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/edfi"
	"github.com/edustack/sis-api/internal/models"
	"github.com/edustack/sis-api/internal/service"
	"github.com/edustack/sis-api/pkg/config"
)

// schoolOnlyStore feeds the sync engine a single school and nothing else.
type schoolOnlyStore struct{}

func (schoolOnlyStore) GetSchool(context.Context, string) (*models.School, error) {
	return nil, sql.ErrNoRows
}

func (schoolOnlyStore) ListSchools(context.Context) ([]models.School, error) {
	return []models.School{{ID: "sch-1", SchoolNumber: 255901, Name: "Lincoln", Type: models.SchoolTypeHigh}}, nil
}

func (schoolOnlyStore) GetStudent(context.Context, string) (*models.StudentDetail, error) {
	return nil, sql.ErrNoRows
}

func (schoolOnlyStore) ListStudents(context.Context) ([]models.StudentDetail, error) {
	return nil, nil
}

func (schoolOnlyStore) GetCourse(context.Context, string) (*models.CourseDetail, error) {
	return nil, sql.ErrNoRows
}

func (schoolOnlyStore) ListCourses(context.Context) ([]models.CourseDetail, error) {
	return nil, nil
}

func (schoolOnlyStore) GetSection(context.Context, string) (*models.SectionDetail, error) {
	return nil, sql.ErrNoRows
}

func (schoolOnlyStore) ListSections(context.Context) ([]models.SectionDetail, error) {
	return nil, nil
}

func (schoolOnlyStore) GetGrade(context.Context, string) (*models.GradeDetail, error) {
	return nil, sql.ErrNoRows
}

func (schoolOnlyStore) ListGrades(context.Context) ([]models.GradeDetail, error) {
	return nil, nil
}

func newEdFiTestRouter(t *testing.T, store edfi.Store, ods http.HandlerFunc) (*gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	odsSrv := httptest.NewServer(ods)

	cfg := config.EdFiConfig{
		BaseURL:      odsSrv.URL,
		OAuthURL:     tokenSrv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	}
	tokens := edfi.NewTokenSource(cfg, tokenSrv.Client(), nil, nil)
	client := edfi.NewClient(cfg, tokens, nil, nil)
	engine := edfi.NewService(store, client, 0, nil, nil, nil)

	h := NewEdFiHandler(service.NewSyncService(engine, nil, nil, nil))
	router := gin.New()
	router.GET("/edfi/test-connection", h.TestConnection)
	router.POST("/edfi/sync-all", h.SyncAll)

	cleanup := func() {
		tokenSrv.Close()
		odsSrv.Close()
	}
	return router, cleanup
}

func TestTestConnectionReportsReachable(t *testing.T) {
	router, cleanup := newEdFiTestRouter(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/edfi/test-connection", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["status"])
	assert.NotEmpty(t, body["message"])
}

func TestTestConnectionReportsUnavailable(t *testing.T) {
	router, cleanup := newEdFiTestRouter(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/edfi/test-connection", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "disconnected", body["status"])
}

func TestSyncAllSurvivesClientDisconnect(t *testing.T) {
	router, cleanup := newEdFiTestRouter(t, schoolOnlyStore{}, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/edfi/sync-all", nil).WithContext(ctx)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message string          `json:"message"`
		Report  edfi.SyncReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "full sync completed", body.Message)
	require.Len(t, body.Report.Schools, 1)
	assert.Equal(t, edfi.OutcomeCreated, body.Report.Schools[0].Outcome)
	assert.Empty(t, body.Report.Schools[0].Error)
}
