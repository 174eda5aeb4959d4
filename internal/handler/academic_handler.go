package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

type academicService interface {
	ListMine(ctx context.Context, principal *models.User) ([]models.AcademicRecord, error)
	Create(ctx context.Context, principal *models.User, req dto.AcademicRecordRequest) (*models.AcademicRecord, error)
	ListStudents(ctx context.Context, faculty *models.User) ([]models.StudentSummary, error)
	CreateForStudent(ctx context.Context, studentID string, req dto.AcademicRecordRequest, faculty *models.User) (*models.AcademicRecord, error)
}

// AcademicHandler exposes academic record endpoints.
type AcademicHandler struct {
	service academicService
}

// NewAcademicHandler constructs the handler.
func NewAcademicHandler(svc academicService) *AcademicHandler {
	return &AcademicHandler{service: svc}
}

// ListMine godoc
// @Summary List own academic records
// @Tags Academic
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /academic/academic-records/ [get]
func (h *AcademicHandler) ListMine(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	records, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Create godoc
// @Summary Add an academic record for yourself
// @Tags Academic
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AcademicRecordRequest true "Semester result"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /academic/academic-records/ [post]
func (h *AcademicHandler) Create(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req dto.AcademicRecordRequest
	if !bindJSON(c, &req, "invalid academic record payload") {
		return
	}
	record, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListStudents godoc
// @Summary List students in your department
// @Tags Academic
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /academic/students/ [get]
func (h *AcademicHandler) ListStudents(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	students, err := h.service.ListStudents(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// CreateForStudent godoc
// @Summary Add an academic record for a student
// @Tags Academic
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body dto.AcademicRecordRequest true "Semester result"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic/student/{id}/record [post]
func (h *AcademicHandler) CreateForStudent(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req dto.AcademicRecordRequest
	if !bindJSON(c, &req, "invalid academic record payload") {
		return
	}
	record, err := h.service.CreateForStudent(c.Request.Context(), c.Param("id"), req, principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
