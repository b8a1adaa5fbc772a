package report

import (
	"context"
	"fmt"
	"io"
	"time"
)

// DownloadInfo describes downloadable report metadata.
type DownloadInfo struct {
	ReportID string
	Artifact ArtifactRef
}

// Service coordinates report operations across runner, guard, tracker,
// and store.
type Service interface {
	RequestReport(ctx context.Context, actor Actor, req ReportRequest) (ReportRecord, error)
	GenerateReport(ctx context.Context, actor Actor, reportID string, req ReportRequest) (ReportResult, error)
	CancelReport(ctx context.Context, actor Actor, reportID string) (ReportRecord, error)
	DeleteReport(ctx context.Context, actor Actor, reportID string) error
	Status(ctx context.Context, actor Actor, reportID string) (ReportRecord, error)
	History(ctx context.Context, actor Actor, filter ProgressFilter) ([]ReportRecord, error)
	DownloadMetadata(ctx context.Context, actor Actor, reportID string) (DownloadInfo, error)
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	Runner         *Runner
	Tracker        ReportTracker
	Store          ArtifactStore
	Guard          Guard
	DeliveryPolicy DeliveryPolicy
	Now            func() time.Time
	IDGenerator    func() string
}

type service struct {
	runner         *Runner
	tracker        ReportTracker
	store          ArtifactStore
	guard          Guard
	deliveryPolicy DeliveryPolicy
	now            func() time.Time
	idGenerator    func() string
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) Service {
	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner()
	}

	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = defaultReportID
	}

	if runner.Now == nil {
		runner.Now = nowFn
	}
	if cfg.Guard != nil && runner.Guard == nil {
		runner.Guard = cfg.Guard
	}
	if cfg.Tracker != nil && runner.Tracker == nil {
		runner.Tracker = cfg.Tracker
	}
	if cfg.Store != nil && runner.Store == nil {
		runner.Store = cfg.Store
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = runner.Tracker
	}
	store := cfg.Store
	if store == nil {
		store = runner.Store
	}
	guard := cfg.Guard
	if guard == nil {
		guard = runner.Guard
	}

	policy := cfg.DeliveryPolicy
	if isZeroDeliveryPolicy(policy) {
		policy = runner.DeliveryPolicy
	}

	return &service{
		runner:         runner,
		tracker:        tracker,
		store:          store,
		guard:          guard,
		deliveryPolicy: policy,
		now:            nowFn,
		idGenerator:    idGen,
	}
}

// RequestReport handles sync/async report requests.
func (s *service) RequestReport(ctx context.Context, actor Actor, req ReportRequest) (ReportRecord, error) {
	if s == nil {
		return ReportRecord{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}

	resolved, err := s.resolveRequest(req)
	if err != nil {
		return ReportRecord{}, AsGoError(err)
	}

	delivery := SelectDelivery(resolved.Request, resolved.Definition, s.deliveryPolicy)
	if delivery == DeliveryAsync {
		return s.requestAsync(ctx, actor, resolved)
	}
	return s.requestSync(ctx, actor, resolved)
}

// GenerateReport produces an artifact for async jobs.
func (s *service) GenerateReport(ctx context.Context, actor Actor, reportID string, req ReportRequest) (ReportResult, error) {
	if s == nil {
		return ReportResult{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if reportID == "" {
		return ReportResult{}, AsGoError(NewError(KindValidation, "report ID is required", nil))
	}
	if s.store == nil {
		return ReportResult{}, AsGoError(NewError(KindNotImpl, "artifact store not configured", nil))
	}
	if s.tracker == nil {
		return ReportResult{}, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}

	resolved, err := s.resolveRequest(req)
	if err != nil {
		return ReportResult{}, AsGoError(err)
	}

	if _, err := s.tracker.Status(ctx, reportID); err != nil {
		_, startErr := s.tracker.Start(ctx, s.newRecord(reportID, actor, resolved))
		if startErr != nil {
			return ReportResult{}, AsGoError(startErr)
		}
	}

	key := s.artifactKey(reportID, resolved.Request.Format)
	meta := ArtifactMeta{
		ContentType: ContentTypeForFormat(resolved.Request.Format),
		Filename:    resolved.Filename,
		CreatedAt:   s.now(),
	}

	pr, pw := io.Pipe()
	putCh := make(chan storeResult, 1)
	go func() {
		ref, err := s.store.Put(ctx, key, pr, meta)
		_ = pr.CloseWithError(err)
		putCh <- storeResult{ref: ref, err: err}
	}()

	run := s.runnerWithActor(actor)
	if run == nil {
		_ = pw.Close()
		_ = pr.Close()
		return ReportResult{}, AsGoError(NewError(KindInternal, "runner is nil", nil))
	}
	run.IDGenerator = func() string { return reportID }
	run.Tracker = runnerTracker{base: s.tracker, reportID: reportID}

	runReq := resolved.Request
	runReq.Delivery = DeliverySync
	runReq.Output = pw

	result, err := run.Run(ctx, runReq)
	if err != nil {
		_ = pw.CloseWithError(err)
		<-putCh
		return ReportResult{}, err
	}

	_ = pw.Close()
	putResult := <-putCh
	if putResult.err != nil {
		_ = s.tracker.Fail(ctx, reportID, putResult.err, nil)
		return result, AsGoError(putResult.err)
	}

	s.updateArtifact(ctx, reportID, putResult.ref)
	result.Artifact = &putResult.ref
	return result, nil
}

// CancelReport marks a report as canceled.
func (s *service) CancelReport(ctx context.Context, actor Actor, reportID string) (ReportRecord, error) {
	if s == nil {
		return ReportRecord{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if reportID == "" {
		return ReportRecord{}, AsGoError(NewError(KindValidation, "report ID is required", nil))
	}
	if s.tracker == nil {
		return ReportRecord{}, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}
	if err := s.authorizeDownload(ctx, actor, reportID); err != nil {
		return ReportRecord{}, err
	}

	if err := s.tracker.SetState(ctx, reportID, StateCanceled, nil); err != nil {
		return ReportRecord{}, AsGoError(err)
	}
	record, err := s.tracker.Status(ctx, reportID)
	if err != nil {
		return ReportRecord{}, AsGoError(err)
	}
	return record, nil
}

// DeleteReport removes artifacts for a report and tombstones the record.
func (s *service) DeleteReport(ctx context.Context, actor Actor, reportID string) error {
	if s == nil {
		return AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if reportID == "" {
		return AsGoError(NewError(KindValidation, "report ID is required", nil))
	}
	if s.tracker == nil {
		return AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}
	if err := s.authorizeDownload(ctx, actor, reportID); err != nil {
		return err
	}

	record, err := s.tracker.Status(ctx, reportID)
	if err != nil {
		return AsGoError(err)
	}
	if s.store != nil {
		key := record.Artifact.Key
		if key == "" {
			key = s.artifactKey(record.ID, record.Format)
		}
		if key != "" {
			if err := s.store.Delete(ctx, key); err != nil {
				return AsGoError(err)
			}
		}
	}
	record.State = StateDeleted
	if updater, ok := s.tracker.(RecordUpdater); ok {
		if err := updater.Update(ctx, record); err != nil {
			return AsGoError(err)
		}
		return nil
	}
	if err := s.tracker.SetState(ctx, reportID, StateDeleted, nil); err != nil {
		return AsGoError(err)
	}
	return nil
}

// Status returns a single report record.
func (s *service) Status(ctx context.Context, actor Actor, reportID string) (ReportRecord, error) {
	if s == nil {
		return ReportRecord{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if reportID == "" {
		return ReportRecord{}, AsGoError(NewError(KindValidation, "report ID is required", nil))
	}
	if s.tracker == nil {
		return ReportRecord{}, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}
	if err := s.authorizeDownload(ctx, actor, reportID); err != nil {
		return ReportRecord{}, err
	}

	record, err := s.tracker.Status(ctx, reportID)
	if err != nil {
		return ReportRecord{}, AsGoError(err)
	}
	return record, nil
}

// History returns report records matching the filter.
func (s *service) History(ctx context.Context, actor Actor, filter ProgressFilter) ([]ReportRecord, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.tracker == nil {
		return nil, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}

	records, err := s.tracker.List(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}

	result := make([]ReportRecord, 0, len(records))
	for _, record := range records {
		if !scopeMatches(actor.Scope, record.Scope) {
			continue
		}
		if s.guard != nil {
			if err := s.guard.AuthorizeDownload(ctx, actor, record.ID); err != nil {
				continue
			}
		}
		result = append(result, record)
	}
	return result, nil
}

// DownloadMetadata returns artifact metadata for a completed report.
func (s *service) DownloadMetadata(ctx context.Context, actor Actor, reportID string) (DownloadInfo, error) {
	if s == nil {
		return DownloadInfo{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if reportID == "" {
		return DownloadInfo{}, AsGoError(NewError(KindValidation, "report ID is required", nil))
	}
	if s.tracker == nil {
		return DownloadInfo{}, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}
	if s.store == nil {
		return DownloadInfo{}, AsGoError(NewError(KindNotImpl, "artifact store not configured", nil))
	}
	if err := s.authorizeDownload(ctx, actor, reportID); err != nil {
		return DownloadInfo{}, err
	}

	record, err := s.tracker.Status(ctx, reportID)
	if err != nil {
		return DownloadInfo{}, AsGoError(err)
	}
	if record.State != StateCompleted {
		return DownloadInfo{}, AsGoError(NewError(KindValidation, "report not completed", nil))
	}

	key := record.Artifact.Key
	if key == "" {
		key = s.artifactKey(reportID, record.Format)
	}
	reader, meta, err := s.store.Open(ctx, key)
	if err != nil {
		return DownloadInfo{}, AsGoError(err)
	}
	_ = reader.Close()

	return DownloadInfo{
		ReportID: reportID,
		Artifact: ArtifactRef{Key: key, Meta: meta},
	}, nil
}

// Cleanup deletes expired artifacts and returns the count removed.
func (s *service) Cleanup(ctx context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.tracker == nil {
		return 0, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}
	if s.store == nil {
		return 0, AsGoError(NewError(KindNotImpl, "artifact store not configured", nil))
	}
	if now.IsZero() {
		now = s.now()
	}

	records, err := s.tracker.List(ctx, ProgressFilter{})
	if err != nil {
		return 0, AsGoError(err)
	}

	deleted := 0
	for _, record := range records {
		if record.ExpiresAt.IsZero() || record.ExpiresAt.After(now) {
			continue
		}
		key := record.Artifact.Key
		if key == "" {
			key = s.artifactKey(record.ID, record.Format)
		}
		if key != "" {
			if err := s.store.Delete(ctx, key); err != nil {
				return deleted, AsGoError(err)
			}
		}
		if deleter, ok := s.tracker.(RecordDeleter); ok {
			if err := deleter.Delete(ctx, record.ID); err != nil {
				return deleted, AsGoError(err)
			}
		} else {
			_ = s.tracker.SetState(ctx, record.ID, StateDeleted, map[string]any{"cleanup": true})
		}
		deleted++
	}
	return deleted, nil
}

func (s *service) requestSync(ctx context.Context, actor Actor, resolved ResolvedReport) (ReportRecord, error) {
	if resolved.Request.Output == nil {
		return ReportRecord{}, AsGoError(NewError(KindValidation, "output writer is required", nil))
	}

	run := s.runnerWithActor(actor)
	if run == nil {
		return ReportRecord{}, AsGoError(NewError(KindInternal, "runner is nil", nil))
	}

	result, err := run.Run(ctx, resolved.Request)
	if err != nil {
		return ReportRecord{}, err
	}

	if s.tracker != nil {
		record, err := s.tracker.Status(ctx, result.ID)
		if err == nil {
			return record, nil
		}
	}

	now := s.now()
	return ReportRecord{
		ID:           result.ID,
		Dataset:      resolved.Definition.Name,
		Format:       result.Format,
		State:        StateCompleted,
		RequestedBy:  actor,
		Scope:        actor.Scope,
		Counts:       ReportCounts{Processed: result.Rows},
		BytesWritten: result.Bytes,
		CreatedAt:    now,
		StartedAt:    now,
		CompletedAt:  now,
	}, nil
}

func (s *service) requestAsync(ctx context.Context, actor Actor, resolved ResolvedReport) (ReportRecord, error) {
	if s.store == nil {
		return ReportRecord{}, AsGoError(NewError(KindNotImpl, "artifact store not configured", nil))
	}
	if s.tracker == nil {
		return ReportRecord{}, AsGoError(NewError(KindNotImpl, "report tracker not configured", nil))
	}

	if s.guard != nil {
		if err := s.guard.AuthorizeReport(ctx, actor, resolved.Request, resolved.Definition); err != nil {
			return ReportRecord{}, AsGoError(NewError(KindAuthz, "report not authorized", err))
		}
	}

	reportID := s.idGenerator()
	record := s.newRecord(reportID, actor, resolved)

	if s.runner != nil && s.runner.Retention != nil {
		ttl, err := s.runner.Retention.TTL(ctx, actor, resolved.Request, resolved.Definition)
		if err != nil {
			return ReportRecord{}, AsGoError(err)
		}
		if ttl > 0 {
			record.ExpiresAt = s.now().Add(ttl)
			record.Artifact.Meta.ExpiresAt = record.ExpiresAt
		}
	}

	id, err := s.tracker.Start(ctx, record)
	if err != nil {
		return ReportRecord{}, AsGoError(err)
	}
	if id != "" && id != record.ID {
		record.ID = id
		record.Artifact.Key = s.artifactKey(id, resolved.Request.Format)
	}
	return record, nil
}

func (s *service) newRecord(reportID string, actor Actor, resolved ResolvedReport) ReportRecord {
	return ReportRecord{
		ID:          reportID,
		Dataset:     resolved.Definition.Name,
		Format:      resolved.Request.Format,
		State:       StateQueued,
		RequestedBy: actor,
		Scope:       actor.Scope,
		CreatedAt:   s.now(),
		Artifact: ArtifactRef{
			Key: s.artifactKey(reportID, resolved.Request.Format),
			Meta: ArtifactMeta{
				ContentType: ContentTypeForFormat(resolved.Request.Format),
				Filename:    resolved.Filename,
				CreatedAt:   s.now(),
			},
		},
	}
}

func (s *service) resolveRequest(req ReportRequest) (ResolvedReport, error) {
	if s.runner == nil || s.runner.Datasets == nil {
		return ResolvedReport{}, NewError(KindInternal, "dataset registry not configured", nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	def, err := s.runner.Datasets.Resolve(req)
	if err != nil {
		return ResolvedReport{}, err
	}
	return ResolveReport(req, def, s.now())
}

func (s *service) runnerWithActor(actor Actor) *Runner {
	if s.runner == nil {
		return nil
	}
	run := *s.runner
	run.ActorProvider = staticActorProvider{actor: actor}
	return &run
}

func (s *service) authorizeDownload(ctx context.Context, actor Actor, reportID string) error {
	if s.guard == nil {
		return nil
	}
	if err := s.guard.AuthorizeDownload(ctx, actor, reportID); err != nil {
		return AsGoError(NewError(KindAuthz, "download not authorized", err))
	}
	return nil
}

func (s *service) artifactKey(reportID string, format Format) string {
	if reportID == "" {
		return ""
	}
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("reports/%s.%s", reportID, format)
}

func (s *service) updateArtifact(ctx context.Context, reportID string, ref ArtifactRef) {
	if s.tracker == nil {
		return
	}
	if tracker, ok := s.tracker.(ArtifactTracker); ok {
		_ = tracker.SetArtifact(ctx, reportID, ref)
		return
	}
	if updater, ok := s.tracker.(RecordUpdater); ok {
		record, err := s.tracker.Status(ctx, reportID)
		if err != nil {
			return
		}
		record.Artifact = ref
		_ = updater.Update(ctx, record)
	}
}

type runnerTracker struct {
	base     ReportTracker
	reportID string
}

func (t runnerTracker) Start(ctx context.Context, record ReportRecord) (string, error) {
	if t.base == nil {
		return record.ID, nil
	}
	if t.reportID != "" {
		return t.reportID, nil
	}
	return t.base.Start(ctx, record)
}

func (t runnerTracker) Advance(ctx context.Context, id string, delta ProgressDelta, meta map[string]any) error {
	if t.base == nil {
		return nil
	}
	return t.base.Advance(ctx, id, delta, meta)
}

func (t runnerTracker) SetState(ctx context.Context, id string, state ReportState, meta map[string]any) error {
	if t.base == nil {
		return nil
	}
	return t.base.SetState(ctx, id, state, meta)
}

func (t runnerTracker) Fail(ctx context.Context, id string, err error, meta map[string]any) error {
	if t.base == nil {
		return nil
	}
	return t.base.Fail(ctx, id, err, meta)
}

func (t runnerTracker) Complete(ctx context.Context, id string, meta map[string]any) error {
	if t.base == nil {
		return nil
	}
	return t.base.Complete(ctx, id, meta)
}

func (t runnerTracker) Status(ctx context.Context, id string) (ReportRecord, error) {
	if t.base == nil {
		return ReportRecord{}, NewError(KindNotImpl, "report tracker not configured", nil)
	}
	return t.base.Status(ctx, id)
}

func (t runnerTracker) List(ctx context.Context, filter ProgressFilter) ([]ReportRecord, error) {
	if t.base == nil {
		return nil, NewError(KindNotImpl, "report tracker not configured", nil)
	}
	return t.base.List(ctx, filter)
}

type staticActorProvider struct {
	actor Actor
}

func (p staticActorProvider) FromContext(ctx context.Context) (Actor, error) {
	_ = ctx
	return p.actor, nil
}

type storeResult struct {
	ref ArtifactRef
	err error
}

func scopeMatches(actor Scope, record Scope) bool {
	if actor.TenantID != "" && actor.TenantID != record.TenantID {
		return false
	}
	if actor.WorkspaceID != "" && actor.WorkspaceID != record.WorkspaceID {
		return false
	}
	return true
}

func isZeroDeliveryPolicy(policy DeliveryPolicy) bool {
	return policy.Default == "" &&
		policy.Thresholds.MaxRows == 0 &&
		policy.Thresholds.MaxBytes == 0 &&
		policy.Thresholds.MaxDuration == 0
}

// ContentTypeForFormat maps formats to MIME content types.
func ContentTypeForFormat(format Format) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatNDJSON:
		return "application/x-ndjson"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
