package service

import (
	"context"
	"time"

	"github.com/noah-isme/student-hub-api/internal/models"
)

// ActivityStore is the document store contract shared by the Elasticsearch and in-memory
// implementations. Transition must be atomic with respect to t.From.
type ActivityStore interface {
	Insert(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Activity, error)
	ListPendingByOwners(ctx context.Context, ownerIDs []string) ([]models.Activity, error)
	Count(ctx context.Context) (int, error)
	CountByOwner(ctx context.Context) (map[string]int, error)
	Transition(ctx context.Context, id string, t models.ActivityTransition) (*models.Activity, error)
}

type instrumentedActivityStore struct {
	next    ActivityStore
	metrics *MetricsService
}

// InstrumentActivityStore records the latency of every store call.
func InstrumentActivityStore(store ActivityStore, metrics *MetricsService) ActivityStore {
	if metrics == nil {
		return store
	}
	return &instrumentedActivityStore{next: store, metrics: metrics}
}

func (s *instrumentedActivityStore) observe(op string, start time.Time, err error) {
	s.metrics.ObserveStoreQuery(op, err, time.Since(start))
}

func (s *instrumentedActivityStore) Insert(ctx context.Context, activity *models.Activity) error {
	start := time.Now()
	err := s.next.Insert(ctx, activity)
	s.observe("insert", start, err)
	return err
}

func (s *instrumentedActivityStore) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	start := time.Now()
	activity, err := s.next.FindByID(ctx, id)
	s.observe("find_by_id", start, err)
	return activity, err
}

func (s *instrumentedActivityStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Activity, error) {
	start := time.Now()
	items, err := s.next.ListByOwner(ctx, ownerID)
	s.observe("list_by_owner", start, err)
	return items, err
}

func (s *instrumentedActivityStore) ListPendingByOwners(ctx context.Context, ownerIDs []string) ([]models.Activity, error) {
	start := time.Now()
	items, err := s.next.ListPendingByOwners(ctx, ownerIDs)
	s.observe("list_pending", start, err)
	return items, err
}

func (s *instrumentedActivityStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	total, err := s.next.Count(ctx)
	s.observe("count", start, err)
	return total, err
}

func (s *instrumentedActivityStore) CountByOwner(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	counts, err := s.next.CountByOwner(ctx)
	s.observe("count_by_owner", start, err)
	return counts, err
}

func (s *instrumentedActivityStore) Transition(ctx context.Context, id string, t models.ActivityTransition) (*models.Activity, error) {
	start := time.Now()
	activity, err := s.next.Transition(ctx, id, t)
	s.observe("transition", start, err)
	return activity, err
}
