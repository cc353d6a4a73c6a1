package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taskdesk/taskdesk/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord persists one audit record.
	TaskAuditRecord = "audit:record"
	// TaskAuditPrune removes audit records past retention.
	TaskAuditPrune = "audit:prune"
)

// NewAuditRecordTask constructs an Asynq task carrying log.
func NewAuditRecordTask(log shared.AuditLog) (*asynq.Task, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data, asynq.MaxRetry(10), asynq.TaskID(log.ID)), nil
}

// AuditPrunePayload configures a prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask constructs the periodic prune task.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("jobs: retention must be positive, got %d", retentionDays)
	}
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// AuditStore persists audit records.
type AuditStore interface {
	Record(ctx context.Context, log shared.AuditLog) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// AuditObserver counts handled audit jobs.
type AuditObserver interface {
	ObserveAuditJob(result string)
}

// AuditJob handles audit tasks on the worker.
type AuditJob struct {
	store   AuditStore
	logger  *slog.Logger
	metrics AuditObserver
	now     func() time.Time
}

// NewAuditJob builds an AuditJob. metrics may be nil.
func NewAuditJob(store AuditStore, logger *slog.Logger, metrics AuditObserver) *AuditJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditJob{store: store, logger: logger, metrics: metrics, now: time.Now}
}

func (j *AuditJob) observe(result string) {
	if j.metrics != nil {
		j.metrics.ObserveAuditJob(result)
	}
}

// HandleRecord processes TaskAuditRecord tasks.
func (j *AuditJob) HandleRecord(ctx context.Context, t *asynq.Task) error {
	var log shared.AuditLog
	if err := json.Unmarshal(t.Payload(), &log); err != nil {
		j.observe("invalid")
		return fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := log.Validate(); err != nil {
		j.observe("invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := j.store.Record(ctx, log); err != nil {
		j.observe("failed")
		return err
	}
	j.observe("stored")
	return nil
}

// HandlePrune processes TaskAuditPrune tasks.
func (j *AuditJob) HandlePrune(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RetentionDays <= 0 {
		return fmt.Errorf("invalid prune payload: %w", asynq.SkipRetry)
	}
	before := j.now().AddDate(0, 0, -payload.RetentionDays)
	removed, err := j.store.Prune(ctx, before)
	if err != nil {
		return err
	}
	j.logger.Info("audit prune", slog.Int64("removed", removed), slog.Time("before", before))
	return nil
}
