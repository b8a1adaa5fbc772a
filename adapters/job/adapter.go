package reportjob

import (
	"context"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-rights/report"
)

// Enqueuer delivers execution messages to go-job.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *job.ExecutionMessage) error
}

// EnqueuerFunc adapts a function to an Enqueuer.
type EnqueuerFunc func(ctx context.Context, msg *job.ExecutionMessage) error

func (f EnqueuerFunc) Enqueue(ctx context.Context, msg *job.ExecutionMessage) error {
	if f == nil {
		return report.NewError(report.KindInternal, "enqueuer is nil", nil)
	}
	return f(ctx, msg)
}

// Config configures the go-job report scheduler.
type Config struct {
	Service          report.Service
	Enqueuer         Enqueuer
	Tracker          report.ReportTracker
	IdempotencyStore IdempotencyStore
	IdempotencyTTL   time.Duration
	TaskID           string
	TaskPath         string
	Logger           report.Logger
}

// Scheduler enqueues report generation jobs.
type Scheduler struct {
	service          report.Service
	enqueuer         Enqueuer
	tracker          report.ReportTracker
	idempotencyStore IdempotencyStore
	idempotencyTTL   time.Duration
	taskID           string
	taskPath         string
	logger           report.Logger
}

// NewScheduler creates a new job scheduler adapter.
func NewScheduler(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	taskID := cfg.TaskID
	if taskID == "" {
		taskID = DefaultGenerateTaskID
	}
	taskPath := cfg.TaskPath
	if taskPath == "" {
		taskPath = DefaultGenerateTaskPath
	}

	return &Scheduler{
		service:          cfg.Service,
		enqueuer:         cfg.Enqueuer,
		tracker:          cfg.Tracker,
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyTTL:   cfg.IdempotencyTTL,
		taskID:           taskID,
		taskPath:         taskPath,
		logger:           logger,
	}
}

// RequestReport creates an async report record and enqueues job execution.
func (s *Scheduler) RequestReport(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error) {
	if s == nil {
		return report.ReportRecord{}, report.NewError(report.KindInternal, "scheduler is nil", nil)
	}
	if s.service == nil {
		return report.ReportRecord{}, report.NewError(report.KindNotImpl, "report service not configured", nil)
	}
	if s.enqueuer == nil {
		return report.ReportRecord{}, report.NewError(report.KindNotImpl, "job enqueuer not configured", nil)
	}
	if actor.ID == "" {
		return report.ReportRecord{}, report.NewError(report.KindValidation, "actor ID is required", nil)
	}

	asyncReq := req
	asyncReq.Delivery = report.DeliveryAsync
	asyncReq.Output = nil

	signature := ""
	if asyncReq.IdempotencyKey != "" && s.idempotencyStore != nil {
		signature = buildIdempotencyKey(asyncReq.IdempotencyKey, actor, asyncReq)
		reportID, ok, err := s.idempotencyStore.Get(ctx, signature)
		if err != nil {
			return report.ReportRecord{}, err
		}
		if ok {
			record, err := s.service.Status(ctx, actor, reportID)
			if err == nil && isReusableState(record.State) {
				return record, nil
			}
		}
	}

	record, err := s.service.RequestReport(ctx, actor, asyncReq)
	if err != nil {
		return report.ReportRecord{}, err
	}

	payload := Payload{
		ReportID: record.ID,
		Actor:    actor,
		Request:  asyncReq,
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		if s.tracker != nil {
			if ferr := s.tracker.Fail(ctx, record.ID, err, map[string]any{"stage": "payload"}); ferr != nil {
				s.logger.Errorf("payload failure tracking failed: %v", ferr)
			}
		}
		return record, err
	}

	msg := &job.ExecutionMessage{
		JobID:      s.taskID,
		ScriptPath: s.taskPath,
		Parameters: map[string]any{"payload": encoded},
	}

	if signature != "" {
		msg.IdempotencyKey = signature
		msg.DedupPolicy = job.DedupPolicyMerge
	}

	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		if s.tracker != nil {
			if ferr := s.tracker.Fail(ctx, record.ID, err, map[string]any{"stage": "enqueue"}); ferr != nil {
				s.logger.Errorf("enqueue failure tracking failed: %v", ferr)
			}
		}
		return record, err
	}

	if signature != "" && s.idempotencyStore != nil {
		ttl := s.idempotencyTTL
		if ttl == 0 {
			ttl = 24 * time.Hour
		}
		if err := s.idempotencyStore.Set(ctx, signature, record.ID, ttl); err != nil {
			s.logger.Errorf("idempotency store set failed: %v", err)
		}
	}

	return record, nil
}

func isReusableState(state report.ReportState) bool {
	switch state {
	case report.StateQueued, report.StateRunning, report.StatePublishing, report.StateCompleted:
		return true
	default:
		return false
	}
}
