package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/pkg/jobs"
)

type auditPersister interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditTrail decouples audit writes from the request path. Records are
// queued and persisted by background workers; if the queue is unavailable
// the write falls back to a synchronous insert so no record is lost.
type AuditTrail struct {
	repo   auditPersister
	queue  *jobs.Queue[*models.AuditLog]
	logger *zap.Logger
}

// NewAuditTrail creates the trail with a small worker pool.
func NewAuditTrail(repo auditPersister, logger *zap.Logger) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}

	trail := &AuditTrail{repo: repo, logger: logger}
	trail.queue = jobs.NewQueue("audit-trail", trail.persist, jobs.QueueConfig{
		Workers:    2,
		BufferSize: 64,
		Logger:     logger,
	})
	return trail
}

// Start launches the background workers.
func (t *AuditTrail) Start(ctx context.Context) {
	t.queue.Start(ctx)
}

// Stop drains the workers.
func (t *AuditTrail) Stop() {
	t.queue.Stop()
}

// CreateAuditLog queues the record for persistence. The queue owns its own
// context, so records survive request cancellation.
func (t *AuditTrail) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := t.queue.Enqueue(log); err != nil {
		return t.repo.CreateAuditLog(ctx, log)
	}
	return nil
}

func (t *AuditTrail) persist(ctx context.Context, log *models.AuditLog) error {
	return t.repo.CreateAuditLog(ctx, log)
}
