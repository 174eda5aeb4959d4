package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

const (
	analyticsSummaryKey   = "analytics:summary"
	analyticsCachePattern = "analytics:*"
)

// invalidateAnalytics drops cached aggregates after a write that changes them.
// Failures are logged by the cache and otherwise ignored.
func invalidateAnalytics(ctx context.Context, cache *CacheService) {
	_ = cache.Invalidate(ctx, analyticsCachePattern)
}

type analyticsUserRepository interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	DepartmentsByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type activityCounter interface {
	Count(ctx context.Context) (int, error)
	CountByOwner(ctx context.Context) (map[string]int, error)
}

// AnalyticsService computes admin aggregates, caching the summary until the next
// submission or decision.
type AnalyticsService struct {
	users      analyticsUserRepository
	activities activityCounter
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(users analyticsUserRepository, activities activityCounter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{users: users, activities: activities, cache: cache, metrics: metrics, logger: logger}
}

// Summary returns student and activity totals with a per-department activity count.
// Activities whose owner has no resolvable department are left out of the breakdown.
// The boolean reports a cache hit.
func (s *AnalyticsService) Summary(ctx context.Context, admin *models.User) (*models.AnalyticsSummary, bool, error) {
	if err := CheckRole(admin, models.RoleAdmin); err != nil {
		return nil, false, err
	}

	summary, hit, err := Remember(ctx, s.cache, analyticsSummaryKey, s.computeSummary)
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

func (s *AnalyticsService) computeSummary(ctx context.Context) (models.AnalyticsSummary, error) {
	students, err := s.users.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return models.AnalyticsSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	total, err := s.activities.Count(ctx)
	if err != nil {
		return models.AnalyticsSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count activities")
	}
	byOwner, err := s.activities.CountByOwner(ctx)
	if err != nil {
		return models.AnalyticsSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group activities")
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	departments, err := s.users.DepartmentsByIDs(ctx, owners)
	if err != nil {
		return models.AnalyticsSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve departments")
	}

	breakdown := make(map[string]int)
	skipped := 0
	for _, owner := range owners {
		dept, ok := departments[owner]
		if !ok {
			skipped += byOwner[owner]
			continue
		}
		breakdown[dept] += byOwner[owner]
	}
	if skipped > 0 {
		s.logger.Debug("activities without resolvable department", zap.Int("count", skipped))
	}

	return models.AnalyticsSummary{
		TotalStudents:   students,
		TotalActivities: total,
		DepartmentWise:  breakdown,
	}, nil
}

// System returns the process metrics snapshot.
func (s *AnalyticsService) System(_ context.Context, admin *models.User) (models.AnalyticsSystemMetrics, error) {
	if err := CheckRole(admin, models.RoleAdmin); err != nil {
		return models.AnalyticsSystemMetrics{}, err
	}
	return s.metrics.Snapshot(), nil
}
