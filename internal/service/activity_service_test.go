package service

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/repository"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
	"github.com/noah-isme/student-hub-api/pkg/storage"
)

type fakeDirectory struct {
	users map[string]*models.User
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]*models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (d *fakeDirectory) FindStudentByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := d.users[id]
	if !ok || u.Role != models.RoleStudent {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (d *fakeDirectory) ListStudents(ctx context.Context, scope models.StudentScope) ([]models.StudentSummary, error) {
	result := make([]models.StudentSummary, 0)
	for _, u := range d.users {
		if u.Role != models.RoleStudent || u.DepartmentValue() != scope.Department {
			continue
		}
		if scope.Year != "" && u.YearValue() != scope.Year {
			continue
		}
		result = append(result, models.StudentSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Department: u.Department, Year: u.Year})
	}
	return result, nil
}

func (d *fakeDirectory) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	total := 0
	for _, u := range d.users {
		if u.Role == role {
			total++
		}
	}
	return total, nil
}

func (d *fakeDirectory) DepartmentsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, id := range ids {
		if u, ok := d.users[id]; ok && u.DepartmentValue() != "" {
			result[id] = u.DepartmentValue()
		}
	}
	return result, nil
}

func newPrincipal(id string, role models.UserRole, dept, year string) *models.User {
	u := &models.User{ID: id, Email: id + "@example.edu", FullName: strings.ToUpper(id), Role: role, Active: true}
	if dept != "" {
		u.Department = models.StringPtr(dept)
	}
	if year != "" {
		u.Year = models.StringPtr(year)
	}
	return u
}

type activityFixture struct {
	svc     *ActivityService
	store   *repository.MemoryActivityRepository
	cache   *fakeCacheRepo
	student *models.User
	faculty *models.User
}

func newActivityFixture(t *testing.T, cfg ActivityConfig) *activityFixture {
	t.Helper()
	student := newPrincipal("s1", models.RoleStudent, "CS", "3")
	faculty := newPrincipal("f1", models.RoleFaculty, "CS", "3")
	dir := newFakeDirectory(
		student,
		faculty,
		newPrincipal("s2", models.RoleStudent, "CS", "2"),
		newPrincipal("s3", models.RoleStudent, "EE", "3"),
	)
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	store := repository.NewMemoryActivityRepository()
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	svc := NewActivityService(store, dir, files, cache, NewMetricsService(), nil, zap.NewNop(), cfg)
	return &activityFixture{svc: svc, store: store, cache: cacheRepo, student: student, faculty: faculty}
}

func sampleActivity(title string) dto.CreateActivityRequest {
	return dto.CreateActivityRequest{
		Category:     "conference",
		Title:        title,
		Description:  "Attended talks",
		Duration:     "2 days",
		SkillsGained: []string{"networking", " ml "},
	}
}

func TestSubmitCreatesPendingActivity(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{})

	activity, err := fx.svc.Submit(context.Background(), fx.student, sampleActivity("AI Conference"))
	require.NoError(t, err)
	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, "s1", activity.UserID)
	assert.Equal(t, models.ActivityPending, activity.Status)
	assert.Equal(t, []string{"networking", "ml"}, activity.SkillsGained)
	assert.Nil(t, activity.ApprovedAt)
	assert.Equal(t, []string{analyticsCachePattern}, fx.cache.invalidated)

	mine, err := fx.svc.ListMine(context.Background(), fx.student)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = fx.svc.Submit(context.Background(), fx.student, dto.CreateActivityRequest{Title: "missing fields"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestListPendingForFacultyScope(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{})
	ctx := context.Background()

	mine, err := fx.svc.Submit(ctx, fx.student, sampleActivity("AI Conference"))
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, newPrincipal("s2", models.RoleStudent, "CS", "2"), sampleActivity("Other year"))
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, newPrincipal("s3", models.RoleStudent, "EE", "3"), sampleActivity("Other dept"))
	require.NoError(t, err)

	pending, err := fx.svc.ListPendingForFaculty(ctx, fx.faculty)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	allYears := newPrincipal("f2", models.RoleFaculty, "CS", "")
	pending, err = fx.svc.ListPendingForFaculty(ctx, allYears)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	noDept := newPrincipal("f3", models.RoleFaculty, "", "")
	pending, err = fx.svc.ListPendingForFaculty(ctx, noDept)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)

	_, err = fx.svc.ListPendingForFaculty(ctx, fx.student)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDecideApprovesOnce(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{})
	ctx := context.Background()

	activity, err := fx.svc.Submit(ctx, fx.student, sampleActivity("AI Conference"))
	require.NoError(t, err)

	decided, err := fx.svc.Decide(ctx, activity.ID, models.DecisionApprove, fx.faculty)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityApproved, decided.Status)
	require.NotNil(t, decided.FacultyID)
	assert.Equal(t, "f1", *decided.FacultyID)
	assert.NotNil(t, decided.ApprovedAt)

	_, err = fx.svc.Decide(ctx, activity.ID, models.DecisionReject, fx.faculty)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)

	stored, err := fx.store.FindByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityApproved, stored.Status)
}

func TestDecideErrors(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{})
	ctx := context.Background()

	_, err := fx.svc.Decide(ctx, "missing", models.DecisionApprove, fx.faculty)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	activity, err := fx.svc.Submit(ctx, fx.student, sampleActivity("AI Conference"))
	require.NoError(t, err)

	_, err = fx.svc.Decide(ctx, activity.ID, models.Decision("maybe"), fx.faculty)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = fx.svc.Decide(ctx, activity.ID, models.DecisionApprove, fx.student)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDecideDepartmentEnforcementToggle(t *testing.T) {
	ctx := context.Background()
	outsider := newPrincipal("f9", models.RoleFaculty, "EE", "")

	relaxed := newActivityFixture(t, ActivityConfig{})
	activity, err := relaxed.svc.Submit(ctx, relaxed.student, sampleActivity("AI Conference"))
	require.NoError(t, err)
	_, err = relaxed.svc.Decide(ctx, activity.ID, models.DecisionReject, outsider)
	require.NoError(t, err)

	strict := newActivityFixture(t, ActivityConfig{EnforceDecisionDepartment: true})
	activity, err = strict.svc.Submit(ctx, strict.student, sampleActivity("AI Conference"))
	require.NoError(t, err)
	_, err = strict.svc.Decide(ctx, activity.ID, models.DecisionReject, outsider)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = strict.svc.Decide(ctx, activity.ID, models.DecisionApprove, strict.faculty)
	require.NoError(t, err)
}

func TestAttachProofSanitisesAndCaps(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{MaxProofBytes: 8})
	ctx := context.Background()

	ref, err := fx.svc.AttachProof(ctx, fx.student, "../../etc/cert ificate.pdf", bytes.NewBufferString("tiny"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref.URL, "/s1_cert_ificate.pdf"), ref.URL)

	_, err = fx.svc.AttachProof(ctx, fx.student, "big.pdf", bytes.NewBufferString("way more than eight bytes"))
	assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)

	_, err = fx.svc.AttachProof(ctx, fx.student, "...", bytes.NewBufferString("x"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPortfolioIncludesApprovedOnly(t *testing.T) {
	fx := newActivityFixture(t, ActivityConfig{})
	ctx := context.Background()

	approved, err := fx.svc.Submit(ctx, fx.student, sampleActivity("AI Conference"))
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, fx.student, sampleActivity("Still pending"))
	require.NoError(t, err)
	_, err = fx.svc.Decide(ctx, approved.ID, models.DecisionApprove, fx.faculty)
	require.NoError(t, err)

	file, err := fx.svc.Portfolio(ctx, fx.student, dto.PortfolioCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	body := string(file.Payload)
	assert.Contains(t, body, "AI Conference")
	assert.NotContains(t, body, "Still pending")

	pdf, err := fx.svc.Portfolio(ctx, fx.student, "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)

	_, err = fx.svc.Portfolio(ctx, fx.student, "docx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
