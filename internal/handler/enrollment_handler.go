package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/sis-api/internal/service"
	appErrors "github.com/edustack/sis-api/pkg/errors"
	"github.com/edustack/sis-api/pkg/response"
)

// EnrollmentHandler exposes school and section enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

type withdrawRequest struct {
	ExitDate time.Time `json:"exit_date" binding:"required"`
}

type dropRequest struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

// Enroll places a student in a school.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Withdraw ends a student's active school enrollment.
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.enrollments.Withdraw(c.Request.Context(), c.Param("studentId"), req.ExitDate); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddToSection enrolls a student into a section.
func (h *EnrollmentHandler) AddToSection(c *gin.Context) {
	var req service.SectionEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.AddToSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// DropFromSection withdraws a student from a section.
func (h *EnrollmentHandler) DropFromSection(c *gin.Context) {
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.enrollments.DropFromSection(c.Request.Context(), c.Param("id"), req.EndDate); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForStudent returns a student's section enrollments.
func (h *EnrollmentHandler) ListForStudent(c *gin.Context) {
	enrollments, err := h.enrollments.ListForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
