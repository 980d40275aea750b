package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/sis-api/internal/edfi"
	"github.com/edustack/sis-api/internal/service"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

// EdFiHandler exposes the ODS synchronization endpoints. These routes use a
// flat message/error contract rather than the envelope the CRUD API uses,
// so operators and scripts can scrape them directly.
type EdFiHandler struct {
	sync *service.SyncService
}

// NewEdFiHandler constructs EdFiHandler.
func NewEdFiHandler(sync *service.SyncService) *EdFiHandler {
	return &EdFiHandler{sync: sync}
}

// TestConnection godoc
// @Summary Check ODS connectivity
// @Tags EdFi
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /edfi/test-connection [get]
func (h *EdFiHandler) TestConnection(c *gin.Context) {
	if h.sync.TestConnection(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"status": "connected", "message": "ed-fi ods is reachable"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "disconnected", "message": "ed-fi ods is not reachable"})
}

// SyncAll runs the full sync. With ?async=true the work is queued and a job
// id is returned immediately.
func (h *EdFiHandler) SyncAll(c *gin.Context) {
	userID := userIDFromContext(c)
	ip := c.ClientIP()
	agent := c.GetHeader("User-Agent")

	if c.Query("async") == "true" {
		jobID, err := h.sync.SyncAllAsync(c.Request.Context(), userID, ip, agent)
		if err != nil {
			c.JSON(appErrors.FromError(err).Status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "full sync queued", "job_id": jobID})
		return
	}

	report, err := h.sync.SyncAll(detachedContext(c), userID, ip, agent)
	if err != nil {
		c.JSON(appErrors.FromError(err).Status, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "full sync completed", "report": report})
}

// SyncSchools pushes all active schools.
func (h *EdFiHandler) SyncSchools(c *gin.Context) {
	h.bulk(c, "schools", h.sync.SyncSchools)
}

// SyncStudents pushes all active students.
func (h *EdFiHandler) SyncStudents(c *gin.Context) {
	h.bulk(c, "students", h.sync.SyncStudents)
}

// SyncCourses pushes all active courses.
func (h *EdFiHandler) SyncCourses(c *gin.Context) {
	h.bulk(c, "courses", h.sync.SyncCourses)
}

// SyncSections pushes all sections of the active term.
func (h *EdFiHandler) SyncSections(c *gin.Context) {
	h.bulk(c, "sections", h.sync.SyncSections)
}

// SyncGrades pushes all grades of the active term.
func (h *EdFiHandler) SyncGrades(c *gin.Context) {
	h.bulk(c, "grades", h.sync.SyncGrades)
}

// SyncSchool pushes one school by id.
func (h *EdFiHandler) SyncSchool(c *gin.Context) {
	h.single(c, "school", h.sync.SyncSchool)
}

// SyncStudent pushes one student by id.
func (h *EdFiHandler) SyncStudent(c *gin.Context) {
	h.single(c, "student", h.sync.SyncStudent)
}

// SyncCourse pushes one course by id.
func (h *EdFiHandler) SyncCourse(c *gin.Context) {
	h.single(c, "course", h.sync.SyncCourse)
}

// SyncSection pushes one section by id.
func (h *EdFiHandler) SyncSection(c *gin.Context) {
	h.single(c, "section", h.sync.SyncSection)
}

// SyncGrade pushes one grade by id.
func (h *EdFiHandler) SyncGrade(c *gin.Context) {
	h.single(c, "grade", h.sync.SyncGrade)
}

type bulkSyncFunc func(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error)

type singleSyncFunc func(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error)

// detachedContext returns the request context stripped of its cancellation.
// A client dropping the connection must not abort an in-flight sync.
func detachedContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *EdFiHandler) bulk(c *gin.Context, resource string, run bulkSyncFunc) {
	results, err := run(detachedContext(c), userIDFromContext(c), c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		c.JSON(appErrors.FromError(err).Status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": resource + " sync completed", "results": results})
}

func (h *EdFiHandler) single(c *gin.Context, resource string, run singleSyncFunc) {
	outcome, err := run(detachedContext(c), c.Param("id"), userIDFromContext(c), c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		c.JSON(appErrors.FromError(err).Status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": resource + " synced", "outcome": string(outcome)})
}
