package reportdelivery

import (
	"context"
	"reflect"
	"testing"

	"github.com/goliatone/go-rights/report"
	job "github.com/goliatone/go-job"
)

type enqueuerFunc func(ctx context.Context, msg *job.ExecutionMessage) error

func (f enqueuerFunc) Enqueue(ctx context.Context, msg *job.ExecutionMessage) error {
	if f == nil {
		return report.NewError(report.KindInternal, "enqueuer is nil", nil)
	}
	return f(ctx, msg)
}

func TestScheduler_RequestDelivery_DecodesPayload(t *testing.T) {
	handler := &captureDeliveryHandler{}
	task := NewTask(TaskConfig{Handler: handler})

	enqueuer := enqueuerFunc(func(ctx context.Context, msg *job.ExecutionMessage) error {
		if msg.JobID != DefaultDeliveryTaskID {
			t.Errorf("job ID = %q, want %q", msg.JobID, DefaultDeliveryTaskID)
		}
		return task.Execute(ctx, msg)
	})

	scheduler := NewScheduler(SchedulerConfig{Enqueuer: enqueuer})
	req := Request{
		Actor:  report.Actor{ID: "actor-1"},
		Report: report.ReportRequest{Dataset: "grants", Format: report.FormatPDF},
		Targets: []Target{{
			Kind:  TargetEmail,
			Email: EmailTarget{To: []string{"demo@example.com"}},
		}},
	}

	if err := scheduler.RequestDelivery(context.Background(), req); err != nil {
		t.Fatalf("request delivery: %v", err)
	}
	if len(handler.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(handler.requests))
	}
	if !reflect.DeepEqual(handler.requests[0], req) {
		t.Fatalf("unexpected request payload")
	}
}
