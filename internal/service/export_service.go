package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
	"github.com/edustack/sis-api/pkg/export"
	"github.com/edustack/sis-api/pkg/storage"
)

type exportGradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error)
}

type exportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// ReportCardExport describes a rendered report card and its signed download link.
type ReportCardExport struct {
	ExportID  string    `json:"export_id"`
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders report cards to PDF or CSV, stores them on local disk
// and hands out signed download tokens.
type ExportService struct {
	grades   exportGradeRepository
	students exportStudentRepository
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(grades exportGradeRepository, students exportStudentRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		grades:   grades,
		students: students,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		store:    store,
		signer:   signer,
		logger:   logger,
	}
}

var reportCardHeaders = []string{"Course", "Section", "Grading Period", "Type", "Numeric", "Letter"}

// ReportCard renders a student's grades in the requested format ("pdf" or
// "csv"), saves the file and returns a signed download token.
func (s *ExportService) ReportCard(ctx context.Context, studentID, format string) (*ReportCardExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "csv" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grades, _, err := s.grades.List(ctx, models.GradeFilter{StudentID: studentID, PageSize: 500})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	data := reportCardDataset(grades)
	var (
		content     []byte
		sessionName string
	)
	if len(grades) > 0 {
		sessionName = grades[0].SessionName
	}
	switch format {
	case "pdf":
		header := export.ReportCardHeader{
			StudentName: student.FirstName + " " + student.LastSurname,
			StudentID:   student.StudentUniqueID,
			SessionName: sessionName,
		}
		if enr := student.CurrentEnrollment(); enr != nil {
			header.SchoolName = fmt.Sprintf("School %d", enr.SchoolNumber)
		}
		content, err = s.pdf.RenderReportCard(header, data)
	case "csv":
		content, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("report-card-%s-%s.%s", student.StudentUniqueID, exportID[:8], format)
	if _, err := s.store.Save(fileName, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report card")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &ReportCardExport{
		ExportID:  exportID,
		FileName:  fileName,
		Format:    format,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a signed token and opens the stored export for streaming.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, relPath, nil
}

// CleanupExpired removes stored exports older than ttl.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("removed expired exports", zap.Int("count", len(removed)))
	}
}

func reportCardDataset(grades []models.GradeDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(grades))
	for _, g := range grades {
		row := map[string]string{
			"Course":         g.CourseCode,
			"Section":        g.SectionIdentifier,
			"Grading Period": g.GradingPeriodName,
			"Type":           string(g.Type),
		}
		if g.NumericGrade != nil {
			row["Numeric"] = fmt.Sprintf("%.1f", *g.NumericGrade)
		}
		if g.LetterGrade != nil {
			row["Letter"] = *g.LetterGrade
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: reportCardHeaders, Rows: rows}
}
