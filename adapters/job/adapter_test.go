package reportjob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-command/dispatcher"
	job "github.com/goliatone/go-job"
	rightscmd "github.com/goliatone/go-rights/command"
	"github.com/goliatone/go-rights/report"
)

type stubSource struct {
	rows []report.Row
}

func (s *stubSource) Open(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
	_ = ctx
	_ = spec
	return &stubIterator{rows: s.rows}, nil
}

type stubIterator struct {
	rows []report.Row
	idx  int
}

func (it *stubIterator) Next(ctx context.Context) (report.Row, error) {
	_ = ctx
	if it.idx >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.idx]
	it.idx++
	return row, nil
}

func (it *stubIterator) Close() error { return nil }

func setupRunner(t *testing.T, source report.RowSource) *report.Runner {
	t.Helper()
	runner := report.NewRunner()
	if err := runner.Datasets.Register(report.ReportDefinition{
		Name:         "grants",
		RowSourceKey: "stub",
		Schema: report.Schema{Columns: []report.Column{
			{Name: "work"},
			{Name: "licensee"},
		}},
	}); err != nil {
		t.Fatalf("register dataset: %v", err)
	}
	if err := runner.RowSources.Register("stub", func(req report.ReportRequest, def report.ResolvedDefinition) (report.RowSource, error) {
		_ = req
		_ = def
		return source, nil
	}); err != nil {
		t.Fatalf("register source: %v", err)
	}
	return runner
}

func TestScheduler_RequestReport_EnqueueAndDownload(t *testing.T) {
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

	task := NewGenerateTask(TaskConfig{Store: store})
	cmd := job.NewTaskCommander(task)
	enqueuer := EnqueuerFunc(func(ctx context.Context, msg *job.ExecutionMessage) error {
		return cmd.Execute(ctx, msg)
	})

	scheduler := NewScheduler(Config{
		Service:  svc,
		Enqueuer: enqueuer,
		Tracker:  tracker,
	})

	record, err := scheduler.RequestReport(context.Background(), report.Actor{ID: "actor-1"}, report.ReportRequest{
		Dataset:  "grants",
		Format:   report.FormatCSV,
		Delivery: report.DeliveryAsync,
	})
	if err != nil {
		t.Fatalf("request report: %v", err)
	}
	if record.ID == "" {
		t.Fatalf("expected report id")
	}

	status, err := svc.Status(context.Background(), report.Actor{ID: "actor-1"}, record.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != report.StateCompleted {
		t.Fatalf("expected completed state, got %s", status.State)
	}

	info, err := svc.DownloadMetadata(context.Background(), report.Actor{ID: "actor-1"}, record.ID)
	if err != nil {
		t.Fatalf("download metadata: %v", err)
	}
	reader, _, err := store.Open(context.Background(), info.Artifact.Key)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Contains(data, []byte("work,licensee")) {
		t.Fatalf("expected csv headers, got %q", string(data))
	}
}

func TestScheduler_RequestReport_Idempotency(t *testing.T) {
	runner := setupRunner(t, &stubSource{rows: []report.Row{{"Falcon Run", "StreamCo"}}})
	tracker := report.NewMemoryTracker()
	store := report.NewMemoryStore()

	svc := report.NewService(report.ServiceConfig{
		Runner:  runner,
		Tracker: tracker,
		Store:   store,
	})

	idempotency := NewMemoryIdempotencyStore()
	var enqueueCalls int
	enqueuer := EnqueuerFunc(func(ctx context.Context, msg *job.ExecutionMessage) error {
		_ = ctx
		_ = msg
		enqueueCalls++
		return nil
	})

	scheduler := NewScheduler(Config{
		Service:          svc,
		Enqueuer:         enqueuer,
		Tracker:          tracker,
		IdempotencyStore: idempotency,
	})

	req := report.ReportRequest{
		Dataset:        "grants",
		Format:         report.FormatCSV,
		Delivery:       report.DeliveryAsync,
		IdempotencyKey: "abc123",
	}
	first, err := scheduler.RequestReport(context.Background(), report.Actor{ID: "actor-1"}, req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := scheduler.RequestReport(context.Background(), report.Actor{ID: "actor-1"}, req)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same report id, got %s vs %s", second.ID, first.ID)
	}
	if enqueueCalls != 1 {
		t.Fatalf("expected 1 enqueue call, got %d", enqueueCalls)
	}
}

func TestCancelRegistry_CancelStopsExecution(t *testing.T) {
	registry := NewCancelRegistry()

	started := make(chan struct{})
	done := make(chan error, 1)
	task := NewGenerateTask(TaskConfig{
		CancelRegistry: registry,
		Dispatch: func(ctx context.Context, msg rightscmd.GenerateReport) error {
			_ = msg
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})

	payload := Payload{ReportID: "rpt-1", Actor: report.Actor{ID: "actor-1"}, Request: report.ReportRequest{Dataset: "grants"}}
	encoded, err := encodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	go func() {
		done <- task.Execute(context.Background(), &job.ExecutionMessage{
			Parameters: map[string]any{"payload": encoded},
		})
	}()

	<-started
	if err := registry.Cancel(context.Background(), "rpt-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := <-done; err == nil {
		t.Fatalf("expected canceled error")
	}

	if err := registry.Cancel(context.Background(), "rpt-1"); report.KindFromError(err) != report.KindNotFound {
		t.Fatalf("expected not found after release, got %v", err)
	}
}
