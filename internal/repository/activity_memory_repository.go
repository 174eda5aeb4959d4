package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/student-hub-api/internal/models"
)

// MemoryActivityRepository keeps activities in process memory. It is selected at startup when
// the document store cannot be reached; its contents are lost on restart.
type MemoryActivityRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Activity
	order []string
}

// NewMemoryActivityRepository constructs an empty store.
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{items: make(map[string]*models.Activity)}
}

// Insert stores activity and assigns its id.
func (r *MemoryActivityRepository) Insert(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity.ID = uuid.NewString()
	stored := cloneActivity(activity)
	r.items[activity.ID] = &stored
	r.order = append(r.order, activity.ID)
	return nil
}

// FindByID returns a copy of the activity.
func (r *MemoryActivityRepository) FindByID(_ context.Context, id string) (*models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrActivityNotFound
	}
	out := cloneActivity(item)
	return &out, nil
}

// ListByOwner returns the owner's activities in insertion order.
func (r *MemoryActivityRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Activity, error) {
	return r.filter(func(a *models.Activity) bool { return a.UserID == ownerID }), nil
}

// ListPendingByOwners returns pending activities owned by any of ownerIDs.
func (r *MemoryActivityRepository) ListPendingByOwners(_ context.Context, ownerIDs []string) ([]models.Activity, error) {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return r.filter(func(a *models.Activity) bool {
		_, ok := owners[a.UserID]
		return ok && a.Status == models.ActivityPending
	}), nil
}

// Count returns the number of stored activities.
func (r *MemoryActivityRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// CountByOwner returns activity counts keyed by owner id.
func (r *MemoryActivityRepository) CountByOwner(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, item := range r.items {
		counts[item.UserID]++
	}
	return counts, nil
}

// Transition moves the activity from t.From to t.To atomically.
func (r *MemoryActivityRepository) Transition(_ context.Context, id string, t models.ActivityTransition) (*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrActivityNotFound
	}
	if item.Status != t.From {
		return nil, ErrActivityConflict
	}
	applyTransition(item, t)
	out := cloneActivity(item)
	return &out, nil
}

func (r *MemoryActivityRepository) filter(keep func(*models.Activity) bool) []models.Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Activity, 0)
	for _, id := range r.order {
		item := r.items[id]
		if keep(item) {
			result = append(result, cloneActivity(item))
		}
	}
	return result
}
