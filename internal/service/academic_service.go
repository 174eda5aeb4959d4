package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

type academicRecordRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.AcademicRecord, error)
	Create(ctx context.Context, record *models.AcademicRecord) error
}

type academicStudentRepository interface {
	FindStudentByID(ctx context.Context, id string) (*models.User, error)
	ListStudents(ctx context.Context, scope models.StudentScope) ([]models.StudentSummary, error)
}

// AcademicService manages semester records.
type AcademicService struct {
	records   academicRecordRepository
	students  academicStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService constructs the service.
func NewAcademicService(records academicRecordRepository, students academicStudentRepository, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AcademicService{records: records, students: students, validator: validate, logger: logger}
}

// ListMine returns the principal's records.
func (s *AcademicService) ListMine(ctx context.Context, principal *models.User) ([]models.AcademicRecord, error) {
	records, err := s.records.ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic records")
	}
	return records, nil
}

// Create stores a record for the principal. Any role may do this.
func (s *AcademicService) Create(ctx context.Context, principal *models.User, req dto.AcademicRecordRequest) (*models.AcademicRecord, error) {
	return s.create(ctx, principal.ID, req)
}

// ListStudents returns the students in the faculty's scope, or nothing without a department.
func (s *AcademicService) ListStudents(ctx context.Context, faculty *models.User) ([]models.StudentSummary, error) {
	if err := CheckRole(faculty, models.RoleFaculty); err != nil {
		return nil, err
	}
	scope, ok := faculty.FacultyScope()
	if !ok {
		return []models.StudentSummary{}, nil
	}
	students, err := s.students.ListStudents(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// CreateForStudent lets faculty add a record for a student in their own department.
// A faculty without a department may write for any student.
func (s *AcademicService) CreateForStudent(ctx context.Context, studentID string, req dto.AcademicRecordRequest, faculty *models.User) (*models.AcademicRecord, error) {
	if err := CheckRole(faculty, models.RoleFaculty); err != nil {
		return nil, err
	}

	student, err := s.students.FindStudentByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if dept := faculty.DepartmentValue(); dept != "" && dept != student.DepartmentValue() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your department")
	}

	record, err := s.create(ctx, student.ID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("academic record created for student",
		zap.String("student_id", student.ID),
		zap.String("faculty_id", faculty.ID),
		zap.String("record_id", record.ID),
	)
	return record, nil
}

func (s *AcademicService) create(ctx context.Context, ownerID string, req dto.AcademicRecordRequest) (*models.AcademicRecord, error) {
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic record payload")
	}

	record := &models.AcademicRecord{
		UserID:        ownerID,
		Semester:      req.Semester,
		GPA:           req.GPA,
		CreditsEarned: req.CreditsEarned,
		TotalCredits:  req.TotalCredits,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic record")
	}
	return record, nil
}
