package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/edfi"
	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
	"github.com/edustack/sis-api/pkg/jobs"
)

type syncQueue interface {
	Enqueue(job jobs.Job) error
}

// SyncService fronts the Ed-Fi sync engine for the API layer. Every manual
// trigger is written to the audit trail, and full syncs can run in the
// background through the job queue.
type SyncService struct {
	engine *edfi.Service
	audit  auditWriter
	queue  syncQueue
	logger *zap.Logger
}

// NewSyncService constructs the sync service. queue may be nil when async
// execution is disabled.
func NewSyncService(engine *edfi.Service, audit auditWriter, queue syncQueue, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{engine: engine, audit: audit, queue: queue, logger: logger}
}

// TestConnection reports whether the ODS is reachable with the configured
// credentials.
func (s *SyncService) TestConnection(ctx context.Context) bool {
	return s.engine.TestConnection(ctx)
}

// SyncAll runs the full fixed-order sync and audits the trigger.
func (s *SyncService) SyncAll(ctx context.Context, userID, ip, userAgent string) (*edfi.SyncReport, error) {
	s.writeAudit(ctx, userID, "edfi/sync-all", ip, userAgent)
	return s.engine.SyncAll(ctx)
}

// SyncAllAsync enqueues a full sync and returns the job id immediately.
func (s *SyncService) SyncAllAsync(ctx context.Context, userID, ip, userAgent string) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "background sync is not enabled")
	}
	s.writeAudit(ctx, userID, "edfi/sync-all", ip, userAgent)

	jobID := uuid.NewString()
	err := s.queue.Enqueue(jobs.Job{
		ID:       jobID,
		Type:     "edfi-sync-all",
		Enqueued: time.Now(),
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sync job")
	}
	return jobID, nil
}

// RunQueuedSync is the job queue handler for full syncs.
func (s *SyncService) RunQueuedSync(ctx context.Context, job jobs.Job) error {
	s.logger.Info("running queued full sync", zap.String("job_id", job.ID))
	report, err := s.engine.SyncAll(ctx)
	if err != nil {
		s.logger.Error("queued full sync failed", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	s.logger.Info("queued full sync finished",
		zap.String("job_id", job.ID),
		zap.Int("schools", len(report.Schools)),
		zap.Int("students", len(report.Students)),
		zap.Int("courses", len(report.Courses)),
		zap.Int("sections", len(report.Sections)),
		zap.Int("grades", len(report.Grades)))
	return nil
}

// SyncSchools pushes every active school.
func (s *SyncService) SyncSchools(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error) {
	s.writeAudit(ctx, userID, "edfi/schools", ip, userAgent)
	return s.engine.SyncAllSchools(ctx)
}

// SyncStudents pushes every active student.
func (s *SyncService) SyncStudents(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error) {
	s.writeAudit(ctx, userID, "edfi/students", ip, userAgent)
	return s.engine.SyncAllStudents(ctx)
}

// SyncCourses pushes every active course.
func (s *SyncService) SyncCourses(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error) {
	s.writeAudit(ctx, userID, "edfi/courses", ip, userAgent)
	return s.engine.SyncAllCourses(ctx)
}

// SyncSections pushes every section in the active term.
func (s *SyncService) SyncSections(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error) {
	s.writeAudit(ctx, userID, "edfi/sections", ip, userAgent)
	return s.engine.SyncAllSections(ctx)
}

// SyncGrades pushes every grade in the active term.
func (s *SyncService) SyncGrades(ctx context.Context, userID, ip, userAgent string) ([]edfi.SyncResult, error) {
	s.writeAudit(ctx, userID, "edfi/grades", ip, userAgent)
	return s.engine.SyncAllGrades(ctx)
}

// SyncSchool pushes one school by id.
func (s *SyncService) SyncSchool(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error) {
	s.writeAudit(ctx, userID, "edfi/schools/"+id, ip, userAgent)
	return s.engine.SyncSchoolByID(ctx, id)
}

// SyncStudent pushes one student by id.
func (s *SyncService) SyncStudent(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error) {
	s.writeAudit(ctx, userID, "edfi/students/"+id, ip, userAgent)
	return s.engine.SyncStudentByID(ctx, id)
}

// SyncCourse pushes one course by id.
func (s *SyncService) SyncCourse(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error) {
	s.writeAudit(ctx, userID, "edfi/courses/"+id, ip, userAgent)
	return s.engine.SyncCourseByID(ctx, id)
}

// SyncSection pushes one section by id.
func (s *SyncService) SyncSection(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error) {
	s.writeAudit(ctx, userID, "edfi/sections/"+id, ip, userAgent)
	return s.engine.SyncSectionByID(ctx, id)
}

// SyncGrade pushes one grade by id.
func (s *SyncService) SyncGrade(ctx context.Context, id, userID, ip, userAgent string) (edfi.Outcome, error) {
	s.writeAudit(ctx, userID, "edfi/grades/"+id, ip, userAgent)
	return s.engine.SyncGradeByID(ctx, id)
}

func (s *SyncService) writeAudit(ctx context.Context, userID, resource, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    models.AuditActionSyncTriggered,
		Resource:  resource,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to write sync audit entry", zap.String("resource", resource), zap.Error(err))
	}
}
