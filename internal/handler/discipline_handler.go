package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edustack/sis-api/internal/models"
	"github.com/edustack/sis-api/internal/service"
	appErrors "github.com/edustack/sis-api/pkg/errors"
	"github.com/edustack/sis-api/pkg/response"
)

// DisciplineHandler exposes behavior incident endpoints.
type DisciplineHandler struct {
	discipline *service.DisciplineService
}

// NewDisciplineHandler constructs DisciplineHandler.
func NewDisciplineHandler(discipline *service.DisciplineService) *DisciplineHandler {
	return &DisciplineHandler{discipline: discipline}
}

// List returns incidents with pagination.
func (h *DisciplineHandler) List(c *gin.Context) {
	var filter models.DisciplineFilter
	filter.StudentID = c.Query("studentId")
	filter.From = dateQuery(c, "from")
	filter.To = dateQuery(c, "to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	incidents, pagination, err := h.discipline.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incidents, pagination)
}

// Get returns one incident.
func (h *DisciplineHandler) Get(c *gin.Context) {
	incident, err := h.discipline.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Create records an incident.
func (h *DisciplineHandler) Create(c *gin.Context) {
	var req service.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	incident, err := h.discipline.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Update modifies an incident.
func (h *DisciplineHandler) Update(c *gin.Context) {
	var req service.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	incident, err := h.discipline.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Delete removes an incident.
func (h *DisciplineHandler) Delete(c *gin.Context) {
	if err := h.discipline.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
