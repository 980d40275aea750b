package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/sis-api/internal/service"
	"github.com/edustack/sis-api/pkg/response"
)

// ReportHandler exposes report card exports.
type ReportHandler struct {
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(exports *service.ExportService) *ReportHandler {
	return &ReportHandler{exports: exports}
}

// ReportCard godoc
// @Summary Render a student's report card
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {object} response.Envelope
// @Router /reports/report-card/{studentId} [post]
func (h *ReportHandler) ReportCard(c *gin.Context) {
	result, err := h.exports.ReportCard(c.Request.Context(), c.Param("studentId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download streams a stored export addressed by its signed token.
func (h *ReportHandler) Download(c *gin.Context) {
	file, name, err := h.exports.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.FileAttachment(file.Name(), name)
}
