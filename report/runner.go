package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Runner orchestrates report execution.
type Runner struct {
	Datasets       *DatasetRegistry
	RowSources     *RowSourceRegistry
	Renderers      *RendererRegistry
	Tracker        ReportTracker
	Store          ArtifactStore
	Guard          Guard
	ActorProvider  ActorProvider
	Logger         Logger
	Emitter        ChangeEmitter
	Retention      RetentionPolicy
	DeliveryPolicy DeliveryPolicy
	Now            func() time.Time
	IDGenerator    func() string
}

// NewRunner creates a runner with default registries and the built-in
// tabular renderers.
func NewRunner() *Runner {
	renderers := NewRendererRegistry()
	_ = renderers.Register(FormatCSV, CSVRenderer{})
	_ = renderers.Register(FormatJSON, JSONRenderer{})
	_ = renderers.Register(FormatNDJSON, JSONRenderer{})
	_ = renderers.Register(FormatXLSX, XLSXRenderer{})

	return &Runner{
		Datasets:    NewDatasetRegistry(),
		RowSources:  NewRowSourceRegistry(),
		Renderers:   renderers,
		Logger:      NopLogger{},
		Now:         time.Now,
		IDGenerator: defaultReportID,
	}
}

// Run executes a report request synchronously.
func (r *Runner) Run(ctx context.Context, req ReportRequest) (ReportResult, error) {
	if r == nil {
		return ReportResult{}, AsGoError(NewError(KindInternal, "runner is nil", nil))
	}
	if r.Datasets == nil || r.RowSources == nil || r.Renderers == nil {
		return ReportResult{}, AsGoError(NewError(KindInternal, "runner registries are not configured", nil))
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Logger == nil {
		r.Logger = NopLogger{}
	}
	if r.IDGenerator == nil {
		r.IDGenerator = defaultReportID
	}

	def, err := r.Datasets.Resolve(req)
	if err != nil {
		return ReportResult{}, AsGoError(err)
	}

	resolved, err := ResolveReport(req, def, r.Now())
	if err != nil {
		return ReportResult{}, AsGoError(err)
	}

	if resolved.Request.Output == nil {
		return ReportResult{}, AsGoError(NewError(KindValidation, "output writer is required", nil))
	}

	delivery := SelectDelivery(resolved.Request, resolved.Definition, r.DeliveryPolicy)
	if delivery == DeliveryAsync {
		return ReportResult{}, AsGoError(NewError(KindNotImpl, "async delivery not supported by the runner", nil))
	}

	actor := Actor{}
	if r.ActorProvider != nil {
		actor, err = r.ActorProvider.FromContext(ctx)
		if err != nil {
			return ReportResult{}, AsGoError(NewError(KindAuthz, "failed to resolve actor", err))
		}
	}

	if r.Guard != nil {
		if err := r.Guard.AuthorizeReport(ctx, actor, resolved.Request, resolved.Definition); err != nil {
			return ReportResult{}, AsGoError(NewError(KindAuthz, "report not authorized", err))
		}
	}

	ctx, cancel := applyMaxDuration(ctx, r.Now, resolved.Definition.Policy.MaxDuration)
	if cancel != nil {
		defer cancel()
	}

	runReq := resolved.Request
	if resolved.Definition.Policy.MaxBytes > 0 {
		runReq.Output = newLimitedWriter(runReq.Output, resolved.Definition.Policy.MaxBytes)
	}

	reportID := r.IDGenerator()
	if r.Tracker != nil {
		record := ReportRecord{
			ID:          reportID,
			Dataset:     resolved.Definition.Name,
			Format:      runReq.Format,
			State:       StateQueued,
			RequestedBy: actor,
			Scope:       actor.Scope,
			CreatedAt:   r.Now(),
		}
		id, err := r.Tracker.Start(ctx, record)
		if err != nil {
			return ReportResult{}, AsGoError(err)
		}
		if id != "" {
			reportID = id
		}
		_ = r.Tracker.SetState(ctx, reportID, StateRunning, nil)
	}

	info := buildRunInfo(reportID, resolved, actor, delivery, r.Now)
	r.emit(ctx, info, "report.started", nil)

	factory, ok := r.RowSources.Resolve(resolved.Definition.RowSourceKey)
	if !ok {
		err := NewError(KindNotFound, fmt.Sprintf("row source %q not registered", resolved.Definition.RowSourceKey), nil)
		r.fail(ctx, info, err)
		return ReportResult{}, AsGoError(err)
	}

	source, err := factory(runReq, resolved.Definition)
	if err != nil {
		r.fail(ctx, info, err)
		return ReportResult{}, AsGoError(err)
	}

	iterator, err := source.Open(ctx, RowSourceSpec{
		Definition: resolved.Definition,
		Request:    runReq,
		Columns:    resolved.Columns,
		Actor:      actor,
	})
	if err != nil {
		r.fail(ctx, info, err)
		return ReportResult{}, AsGoError(err)
	}
	defer iterator.Close()

	tracked := newTrackingIterator(iterator, resolved, r.Tracker, reportID)

	renderer, ok := r.Renderers.Resolve(runReq.Format)
	if !ok {
		err := NewError(KindNotFound, fmt.Sprintf("renderer %q not registered", runReq.Format), nil)
		r.fail(ctx, info, err)
		return ReportResult{}, AsGoError(err)
	}

	stats, err := renderer.Render(ctx, Schema{Columns: resolved.Columns}, tracked, runReq.Output, runReq.RenderOptions)
	if err != nil {
		r.fail(ctx, info, err)
		return ReportResult{}, AsGoError(err)
	}

	result := ReportResult{
		ID:       reportID,
		Delivery: delivery,
		Format:   runReq.Format,
		Rows:     stats.Rows,
		Bytes:    stats.Bytes,
		Filename: resolved.Filename,
	}

	if r.Tracker != nil {
		_ = r.Tracker.Complete(ctx, reportID, map[string]any{
			"rows":  stats.Rows,
			"bytes": stats.Bytes,
		})
	}

	r.emit(ctx, info, "report.completed", map[string]any{
		"rows":     stats.Rows,
		"bytes":    stats.Bytes,
		"duration": r.Now().Sub(info.startedAt),
	})

	return result, nil
}

func (r *Runner) fail(ctx context.Context, info runInfo, err error) {
	if info.reportID == "" {
		return
	}

	if errors.Is(err, context.Canceled) {
		if r.Tracker != nil {
			_ = r.Tracker.SetState(ctx, info.reportID, StateCanceled, nil)
		}
		r.emit(ctx, info, "report.canceled", map[string]any{
			"duration": r.Now().Sub(info.startedAt),
		})
		return
	}

	if r.Tracker != nil {
		_ = r.Tracker.Fail(ctx, info.reportID, err, nil)
	}
	r.emit(ctx, info, "report.failed", map[string]any{
		"error":      err.Error(),
		"error_kind": KindFromError(err),
		"duration":   r.Now().Sub(info.startedAt),
	})
}

func (r *Runner) emit(ctx context.Context, info runInfo, name string, meta map[string]any) {
	if r.Emitter == nil {
		return
	}
	_ = r.Emitter.Emit(ctx, ChangeEvent{
		Name:      name,
		ReportID:  info.reportID,
		Dataset:   info.resolved.Definition.Name,
		Format:    info.resolved.Request.Format,
		Delivery:  info.delivery,
		Actor:     info.actor,
		Timestamp: r.Now(),
		Metadata:  mergeMetadata(info.baseMeta, meta),
	})
}

type runInfo struct {
	reportID  string
	resolved  ResolvedReport
	actor     Actor
	delivery  DeliveryMode
	startedAt time.Time
	baseMeta  map[string]any
}

func buildRunInfo(reportID string, resolved ResolvedReport, actor Actor, delivery DeliveryMode, nowFn func() time.Time) runInfo {
	now := time.Now
	if nowFn != nil {
		now = nowFn
	}
	meta := map[string]any{
		"columns":  resolved.ColumnNames,
		"filename": resolved.Filename,
	}
	if resolved.Definition.Resource != "" {
		meta["resource"] = resolved.Definition.Resource
	}
	return runInfo{
		reportID:  reportID,
		resolved:  resolved,
		actor:     actor,
		delivery:  delivery,
		startedAt: now(),
		baseMeta:  meta,
	}
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func applyMaxDuration(ctx context.Context, nowFn func() time.Time, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return ctx, nil
	}
	now := time.Now
	if nowFn != nil {
		now = nowFn
	}
	deadline := now().Add(limit)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, nil
	}
	return context.WithDeadline(ctx, deadline)
}

func defaultReportID() string {
	return "rpt-" + uuid.NewString()
}

type trackingIterator struct {
	base        RowIterator
	tracker     ReportTracker
	reportID    string
	redactions  map[int]any
	maxRows     int
	currentRows int64
}

func newTrackingIterator(base RowIterator, resolved ResolvedReport, tracker ReportTracker, reportID string) *trackingIterator {
	return &trackingIterator{
		base:       base,
		tracker:    tracker,
		reportID:   reportID,
		redactions: resolved.RedactIndices,
		maxRows:    resolved.Definition.Policy.MaxRows,
	}
}

func (it *trackingIterator) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := it.base.Next(ctx)
	if err != nil {
		return nil, err
	}

	it.currentRows++
	if it.maxRows > 0 && it.currentRows > int64(it.maxRows) {
		return nil, NewError(KindValidation, "max rows exceeded", nil)
	}

	if len(it.redactions) > 0 {
		copyRow := make(Row, len(row))
		copy(copyRow, row)
		row = copyRow
		for idx, value := range it.redactions {
			if idx >= 0 && idx < len(row) {
				row[idx] = value
			}
		}
	}

	if it.tracker != nil {
		if err := it.tracker.Advance(ctx, it.reportID, ProgressDelta{Rows: 1}, nil); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func (it *trackingIterator) Close() error {
	return it.base.Close()
}
