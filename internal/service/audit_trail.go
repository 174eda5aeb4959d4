package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/pkg/jobs"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditTrail persists audit entries from a worker pool so a slow or flapping database
// does not hold up the request that produced them.
type AuditTrail struct {
	queue  *jobs.Queue[models.AuditLog]
	logger *zap.Logger
}

// NewAuditTrail builds the trail; Start must be called before entries are accepted.
func NewAuditTrail(repo auditWriter, logger *zap.Logger, cfg jobs.Config) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	write := func(ctx context.Context, entry models.AuditLog) error {
		return repo.CreateAuditLog(ctx, &entry)
	}
	return &AuditTrail{queue: jobs.New("audit", write, cfg), logger: logger}
}

// Start launches the writers.
func (a *AuditTrail) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes buffered entries.
func (a *AuditTrail) Stop() {
	a.queue.Stop()
}

// CreateAuditLog enqueues a copy of entry. It fails only when the trail is stopped or saturated.
func (a *AuditTrail) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	return a.queue.Enqueue(*entry)
}
