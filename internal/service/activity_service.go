package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/repository"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
	"github.com/noah-isme/student-hub-api/pkg/export"
	"github.com/noah-isme/student-hub-api/pkg/storage"
)

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudents(ctx context.Context, scope models.StudentScope) ([]models.StudentSummary, error)
}

type proofStorage interface {
	SaveStream(filename string, r io.Reader, maxBytes int64) (string, error)
}

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ActivityConfig tunes the approval workflow.
type ActivityConfig struct {
	EnforceDecisionDepartment bool
	MaxProofBytes             int64
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ActivityService runs the submit and approve/reject workflow.
type ActivityService struct {
	store     ActivityStore
	users     studentDirectory
	storage   proofStorage
	cache     *CacheService
	metrics   *MetricsService
	renderers map[dto.PortfolioFormat]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
	config    ActivityConfig
	now       func() time.Time
}

// NewActivityService constructs the workflow service.
func NewActivityService(store ActivityStore, users studentDirectory, files proofStorage, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ActivityConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{
		store:   store,
		users:   users,
		storage: files,
		cache:   cache,
		metrics: metrics,
		renderers: map[dto.PortfolioFormat]datasetRenderer{
			dto.PortfolioCSV: export.NewCSVExporter(),
			dto.PortfolioPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Submit stores a new pending activity owned by principal.
func (s *ActivityService) Submit(ctx context.Context, principal *models.User, req dto.CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	skills := make([]string, 0, len(req.SkillsGained))
	for _, skill := range req.SkillsGained {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}

	activity := &models.Activity{
		UserID:       principal.ID,
		Category:     strings.TrimSpace(req.Category),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Duration:     strings.TrimSpace(req.Duration),
		SkillsGained: skills,
		ProofURL:     optionalString(req.ProofURL),
		Status:       models.ActivityPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store activity")
	}

	invalidateAnalytics(ctx, s.cache)
	s.logger.Info("activity submitted", zap.String("activity_id", activity.ID), zap.String("user_id", principal.ID))
	return activity, nil
}

// ListMine returns every activity owned by principal.
func (s *ActivityService) ListMine(ctx context.Context, principal *models.User) ([]models.Activity, error) {
	items, err := s.store.ListByOwner(ctx, principal.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return items, nil
}

// ListPendingForFaculty returns pending activities of students in the faculty's department
// and, when set, year. A faculty without a department sees nothing.
func (s *ActivityService) ListPendingForFaculty(ctx context.Context, faculty *models.User) ([]models.Activity, error) {
	if err := CheckRole(faculty, models.RoleFaculty); err != nil {
		return nil, err
	}
	scope, ok := faculty.FacultyScope()
	if !ok {
		return []models.Activity{}, nil
	}

	students, err := s.users.ListStudents(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve students")
	}
	if len(students) == 0 {
		return []models.Activity{}, nil
	}

	ids := make([]string, len(students))
	for i, student := range students {
		ids[i] = student.ID
	}
	items, err := s.store.ListPendingByOwners(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending activities")
	}
	return items, nil
}

// Decide approves or rejects a pending activity. Only the first decision wins; later ones
// fail with INVALID_TRANSITION.
func (s *ActivityService) Decide(ctx context.Context, activityID string, decision models.Decision, faculty *models.User) (*models.Activity, error) {
	if err := CheckRole(faculty, models.RoleFaculty); err != nil {
		return nil, err
	}
	target, ok := decision.TargetStatus()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown decision %q", decision))
	}

	activity, err := s.store.FindByID(ctx, activityID)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load activity")
	}

	if s.config.EnforceDecisionDepartment {
		if err := s.checkOwnerDepartment(ctx, activity.UserID, faculty); err != nil {
			return nil, err
		}
	}

	if activity.Status != models.ActivityPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("activity already %s", activity.Status))
	}

	updated, err := s.store.Transition(ctx, activityID, models.ActivityTransition{
		From:      models.ActivityPending,
		To:        target,
		FacultyID: faculty.ID,
		At:        s.now().UTC(),
	})
	if err != nil {
		return nil, s.mapStoreError(err, "failed to update activity")
	}

	s.metrics.RecordActivityDecision(target)
	invalidateAnalytics(ctx, s.cache)
	s.logger.Info("activity decided",
		zap.String("activity_id", activityID),
		zap.String("status", string(target)),
		zap.String("faculty_id", faculty.ID),
	)
	return updated, nil
}

// AttachProof stores an uploaded proof under <principalID>_<sanitised name>.
func (s *ActivityService) AttachProof(ctx context.Context, principal *models.User, fileName string, r io.Reader) (*models.ProofReference, error) {
	name, err := storage.SanitizeFilename(fileName)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid file name")
	}

	ref, err := s.storage.SaveStream(principal.ID+"_"+name, r, s.config.MaxProofBytes)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.config.MaxProofBytes))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof")
	}

	s.logger.Info("proof stored", zap.String("user_id", principal.ID), zap.String("path", ref))
	return &models.ProofReference{URL: ref}, nil
}

// Portfolio renders the principal's approved activities.
func (s *ActivityService) Portfolio(ctx context.Context, principal *models.User, format dto.PortfolioFormat) (*ExportFile, error) {
	if format == "" {
		format = dto.PortfolioPDF
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}

	items, err := s.ListMine(ctx, principal)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:    "Activity Portfolio",
		Subtitle: principal.FullName,
		Headers:  []string{"Title", "Category", "Duration", "Skills", "Approved"},
	}
	for _, item := range items {
		if item.Status != models.ActivityApproved {
			continue
		}
		approved := ""
		if item.ApprovedAt != nil {
			approved = item.ApprovedAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":    item.Title,
			"Category": item.Category,
			"Duration": item.Duration,
			"Skills":   strings.Join(item.SkillsGained, ", "),
			"Approved": approved,
		})
	}

	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render portfolio")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("portfolio_%s.%s", s.now().UTC().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ActivityService) checkOwnerDepartment(ctx context.Context, ownerID string, faculty *models.User) error {
	dept := faculty.DepartmentValue()
	if dept == "" {
		return nil
	}
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "activity owner is outside your department")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity owner")
	}
	if owner.DepartmentValue() != dept {
		return appErrors.Clone(appErrors.ErrForbidden, "activity owner is outside your department")
	}
	return nil
}

func (s *ActivityService) mapStoreError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrActivityNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	case errors.Is(err, repository.ErrActivityConflict):
		return appErrors.ErrInvalidTransition
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

