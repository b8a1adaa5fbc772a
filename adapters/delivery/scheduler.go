package reportdelivery

import (
	"context"

	"github.com/goliatone/go-rights/report"
	job "github.com/goliatone/go-job"
)

const (
	DefaultDeliveryTaskID   = "report:deliver"
	DefaultDeliveryTaskPath = "report:deliver"
)

// Enqueuer delivers execution messages to go-job.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *job.ExecutionMessage) error
}

// SchedulerConfig configures the delivery scheduler.
type SchedulerConfig struct {
	Enqueuer        Enqueuer
	TaskID          string
	TaskPath        string
	ExecutionConfig job.Config
	Logger          report.Logger
}

// Scheduler enqueues scheduled delivery jobs.
type Scheduler struct {
	enqueuer Enqueuer
	taskID   string
	taskPath string
	config   job.Config
	logger   report.Logger
}

// NewScheduler creates a new delivery scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	taskID := cfg.TaskID
	if taskID == "" {
		taskID = DefaultDeliveryTaskID
	}
	taskPath := cfg.TaskPath
	if taskPath == "" {
		taskPath = DefaultDeliveryTaskPath
	}

	return &Scheduler{
		enqueuer: cfg.Enqueuer,
		taskID:   taskID,
		taskPath: taskPath,
		config:   cfg.ExecutionConfig,
		logger:   logger,
	}
}

// RequestDelivery enqueues a scheduled delivery.
func (s *Scheduler) RequestDelivery(ctx context.Context, req Request) error {
	if s == nil {
		return report.NewError(report.KindInternal, "scheduler is nil", nil)
	}
	if s.enqueuer == nil {
		return report.NewError(report.KindNotImpl, "job enqueuer not configured", nil)
	}

	msg, err := s.buildMessage(req)
	if err != nil {
		return err
	}
	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		return report.NewError(report.KindExternal, "enqueue delivery failed", err)
	}
	return nil
}

// buildMessage wraps the delivery request in a go-job execution
// message so the delivery task can decode it on the worker side.
func (s *Scheduler) buildMessage(req Request) (*job.ExecutionMessage, error) {
	encoded, err := encodePayload(Payload{Request: req})
	if err != nil {
		return nil, err
	}
	return &job.ExecutionMessage{
		JobID:      s.taskID,
		ScriptPath: s.taskPath,
		Config:     s.config,
		Parameters: map[string]any{"payload": encoded},
	}, nil
}
