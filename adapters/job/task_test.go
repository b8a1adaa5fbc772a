package reportjob

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	job "github.com/goliatone/go-job"
	rightscmd "github.com/goliatone/go-rights/command"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

type deleteTrackingStore struct {
	deletes int
	mu      sync.Mutex
}

func (s *deleteTrackingStore) Put(ctx context.Context, key string, r io.Reader, meta report.ArtifactMeta) (report.ArtifactRef, error) {
	_ = ctx
	_ = key
	_ = r
	_ = meta
	return report.ArtifactRef{}, report.NewError(report.KindNotImpl, "put not implemented", nil)
}

func (s *deleteTrackingStore) Open(ctx context.Context, key string) (io.ReadCloser, report.ArtifactMeta, error) {
	_ = ctx
	_ = key
	return nil, report.ArtifactMeta{}, report.NewError(report.KindNotImpl, "open not implemented", nil)
}

func (s *deleteTrackingStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	_ = key
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return nil
}

func (s *deleteTrackingStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	_ = key
	_ = ttl
	return "", report.NewError(report.KindNotImpl, "signed url not implemented", nil)
}

func TestGenerateTask_GetHandler_BuildsMessageAndExecutes(t *testing.T) {
	runner := setupRunner(t, &stubSource{rows: []report.Row{{"Falcon Run", "StreamCo"}}})
	tracker := report.NewMemoryTracker()
	store := report.NewMemoryStore()

	svc := report.NewService(report.ServiceConfig{
		Runner:  runner,
		Tracker: tracker,
		Store:   store,
	})

	sub := dispatcher.SubscribeCommand(rightscmd.NewGenerateReportHandler(svc))
	defer sub.Unsubscribe()

	builder := NewMessageBuilder(MessageBuilderConfig{
		Service: svc,
		Tracker: tracker,
	})

	actor := report.Actor{ID: "actor-1"}
	req := report.ReportRequest{
		Dataset: "grants",
		Format:  report.FormatCSV,
	}

	var reportID string
	task := NewGenerateTask(TaskConfig{
		Store: store,
		MessageBuilder: func(ctx context.Context) (*job.ExecutionMessage, error) {
			result, err := builder.Build(ctx, actor, req)
			if err != nil {
				return nil, err
			}
			reportID = result.Record.ID
			return result.Message, nil
		},
	})

	if err := task.GetHandler()(); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if reportID == "" {
		t.Fatalf("expected report id to be set")
	}

	status, err := svc.Status(context.Background(), actor, reportID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != report.StateCompleted {
		t.Fatalf("expected completed state, got %s", status.State)
	}
}

type tempNetError struct{}

func (tempNetError) Error() string   { return "temporary" }
func (tempNetError) Timeout() bool   { return false }
func (tempNetError) Temporary() bool { return true }

func TestGenerateTask_RetriesRetryableErrors(t *testing.T) {
	var attempts int
	store := &deleteTrackingStore{}
	policy := RetryPolicy{
		MaxRetries: 2,
		Backoff: job.BackoffConfig{
			Strategy: job.BackoffNone,
		},
	}
	task := NewGenerateTask(TaskConfig{
		RetryPolicy: policy,
		Store:       store,
		Dispatch: func(ctx context.Context, msg rightscmd.GenerateReport) error {
			_ = ctx
			_ = msg
			attempts++
			if attempts < 3 {
				return tempNetError{}
			}
			return nil
		},
	})

	payload := Payload{
		ReportID: "rpt-1",
		Actor:    report.Actor{ID: "actor-1"},
		Request: report.ReportRequest{
			Dataset: "grants",
			Format:  report.FormatCSV,
		},
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	err = task.Execute(context.Background(), &job.ExecutionMessage{
		Parameters: map[string]any{"payload": encoded},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if store.deletes != 2 {
		t.Fatalf("expected 2 cleanup deletes, got %d", store.deletes)
	}
}

func TestIngestTask_ExecuteDispatchesPayload(t *testing.T) {
	var got rightscmd.IngestContract
	task := NewIngestTask(IngestTaskConfig{
		Dispatch: func(ctx context.Context, msg rightscmd.IngestContract) error {
			_ = ctx
			got = msg
			return nil
		},
	})

	encoded, err := EncodeIngestPayload(IngestPayload{
		Actor:   rights.Actor{ID: "actor-1"},
		Request: rights.IngestRequest{Filename: "deal.pdf", Content: []byte("%PDF-")},
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	err = task.Execute(context.Background(), &job.ExecutionMessage{
		Parameters: map[string]any{"payload": encoded},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Actor.ID != "actor-1" || got.Request.Filename != "deal.pdf" {
		t.Fatalf("unexpected dispatch message: %+v", got)
	}
	if string(got.Request.Content) != "%PDF-" {
		t.Fatalf("expected content round-trip, got %q", got.Request.Content)
	}
}

func TestDecodePayload_Variants(t *testing.T) {
	payload := Payload{ReportID: "rpt-1"}
	encoded, err := encodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	cases := map[string]any{
		"raw":     encoded,
		"bytes":   []byte(encoded),
		"string":  string(encoded),
		"typed":   payload,
		"pointer": &payload,
	}
	for name, value := range cases {
		got, err := decodePayload(&job.ExecutionMessage{Parameters: map[string]any{"payload": value}})
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if got.ReportID != "rpt-1" {
			t.Fatalf("%s: unexpected payload %+v", name, got)
		}
	}

	if _, err := decodePayload(nil); report.KindFromError(err) != report.KindValidation {
		t.Fatalf("expected validation error for nil message, got %v", err)
	}
	if _, err := decodePayload(&job.ExecutionMessage{Parameters: map[string]any{}}); report.KindFromError(err) != report.KindValidation {
		t.Fatalf("expected validation error for missing payload, got %v", err)
	}
}
