package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/service"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

// multipartOverhead leaves room for boundaries and part headers around the file itself.
const multipartOverhead = 64 << 10

type activityService interface {
	Submit(ctx context.Context, principal *models.User, req dto.CreateActivityRequest) (*models.Activity, error)
	ListMine(ctx context.Context, principal *models.User) ([]models.Activity, error)
	ListPendingForFaculty(ctx context.Context, faculty *models.User) ([]models.Activity, error)
	Decide(ctx context.Context, activityID string, decision models.Decision, faculty *models.User) (*models.Activity, error)
	AttachProof(ctx context.Context, principal *models.User, fileName string, r io.Reader) (*models.ProofReference, error)
	Portfolio(ctx context.Context, principal *models.User, format dto.PortfolioFormat) (*service.ExportFile, error)
}

// ActivityHandler exposes the activity workflow.
type ActivityHandler struct {
	service        activityService
	maxUploadBytes int64
}

// NewActivityHandler constructs the handler. maxUploadBytes <= 0 disables the request cap.
func NewActivityHandler(svc activityService, maxUploadBytes int64) *ActivityHandler {
	return &ActivityHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Submit godoc
// @Summary Submit an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateActivityRequest true "Activity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities/ [post]
func (h *ActivityHandler) Submit(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateActivityRequest
	if !bindJSON(c, &req, "invalid activity payload") {
		return
	}
	activity, err := h.service.Submit(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// ListMine godoc
// @Summary List own activities
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /activities/ [get]
func (h *ActivityHandler) ListMine(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// ListPending godoc
// @Summary Pending activities in your department
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activities/pending [get]
func (h *ActivityHandler) ListPending(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	items, err := h.service.ListPendingForFaculty(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Approve godoc
// @Summary Approve a pending activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activities/{id}/approve [put]
func (h *ActivityHandler) Approve(c *gin.Context) {
	h.decide(c, models.DecisionApprove, "Activity approved")
}

// Reject godoc
// @Summary Reject a pending activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activities/{id}/reject [put]
func (h *ActivityHandler) Reject(c *gin.Context) {
	h.decide(c, models.DecisionReject, "Activity rejected")
}

func (h *ActivityHandler) decide(c *gin.Context, decision models.Decision, message string) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	activity, err := h.service.Decide(c.Request.Context(), c.Param("id"), decision, principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": message, "activity": activity})
}

// UploadProof godoc
// @Summary Upload a proof document
// @Tags Activities
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Proof file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /activities/upload-proof [post]
func (h *ActivityHandler) UploadProof(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds size limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is required"))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	ref, err := h.service.AttachProof(c.Request.Context(), principal, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ref)
}

// Portfolio godoc
// @Summary Download approved activities as a portfolio
// @Tags Activities
// @Produce application/pdf
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /activities/portfolio [get]
func (h *ActivityHandler) Portfolio(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	format := dto.PortfolioFormat(strings.ToLower(c.DefaultQuery("format", string(dto.PortfolioPDF))))
	file, err := h.service.Portfolio(c.Request.Context(), principal, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
