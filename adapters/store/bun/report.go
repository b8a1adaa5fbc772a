package storebun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/uptrace/bun"
)

// ReportTracker stores report progress in a Bun-backed database.
type ReportTracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string

	counter uint64
}

// NewReportTracker creates a Bun-backed report tracker.
func NewReportTracker(db *bun.DB) *ReportTracker {
	return &ReportTracker{DB: db, Now: time.Now}
}

// Start creates a new report record.
func (t *ReportTracker) Start(ctx context.Context, record report.ReportRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = report.StateQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model, err := reportModelFrom(record)
	if err != nil {
		return "", err
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Advance updates counts for a report.
func (t *ReportTracker) Advance(ctx context.Context, id string, delta report.ProgressDelta, meta map[string]any) error {
	_ = meta
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	res, err := t.DB.NewUpdate().Model((*reportModel)(nil)).
		Set("counts_processed = counts_processed + ?", delta.Rows).
		Set("bytes_written = bytes_written + ?", delta.Bytes).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

// SetState updates the report state.
func (t *ReportTracker) SetState(ctx context.Context, id string, state report.ReportState, meta map[string]any) error {
	_ = meta
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	query := t.DB.NewUpdate().Model((*reportModel)(nil)).
		Set("state = ?", state).
		Where("id = ?", id)
	if state == report.StateRunning {
		query = query.Set("started_at = COALESCE(started_at, ?)", t.now())
	}
	if state == report.StateCompleted {
		query = query.Set("completed_at = COALESCE(completed_at, ?)", t.now())
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

// Fail marks the report as failed.
func (t *ReportTracker) Fail(ctx context.Context, id string, failure error, meta map[string]any) error {
	_ = failure
	_ = meta
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	res, err := t.DB.NewUpdate().Model((*reportModel)(nil)).
		Set("state = ?", report.StateFailed).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

// Complete marks the report as completed. meta rows/bytes override counts.
func (t *ReportTracker) Complete(ctx context.Context, id string, meta map[string]any) error {
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	query := t.DB.NewUpdate().Model((*reportModel)(nil)).
		Set("state = ?", report.StateCompleted).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	if rows, ok := meta["rows"].(int64); ok {
		query = query.Set("counts_processed = ?", rows)
	}
	if bytes, ok := meta["bytes"].(int64); ok {
		query = query.Set("bytes_written = ?", bytes)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

// Status returns a record by ID.
func (t *ReportTracker) Status(ctx context.Context, id string) (report.ReportRecord, error) {
	if t == nil || t.DB == nil {
		return report.ReportRecord{}, report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.ReportRecord{}, report.NewError(report.KindValidation, "report ID is required", nil)
	}

	model := new(reportModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.ReportRecord{}, report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
		}
		return report.ReportRecord{}, err
	}
	return model.toRecord()
}

// List returns records matching a filter, newest first.
func (t *ReportTracker) List(ctx context.Context, filter report.ProgressFilter) ([]report.ReportRecord, error) {
	if t == nil || t.DB == nil {
		return nil, report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}

	models := make([]reportModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.Dataset != "" {
		query = query.Where("dataset = ?", filter.Dataset)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC")

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]report.ReportRecord, 0, len(models))
	for _, model := range models {
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// SetArtifact updates the artifact metadata for a record.
func (t *ReportTracker) SetArtifact(ctx context.Context, id string, ref report.ArtifactRef) error {
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	meta, err := json.Marshal(ref.Meta)
	if err != nil {
		return err
	}
	query := t.DB.NewUpdate().Model((*reportModel)(nil)).
		Set("artifact_key = ?", ref.Key).
		Set("artifact_meta = ?", meta).
		Where("id = ?", id)
	if !ref.Meta.ExpiresAt.IsZero() {
		query = query.Set("expires_at = ?", ref.Meta.ExpiresAt)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

// Update replaces a report record.
func (t *ReportTracker) Update(ctx context.Context, record report.ReportRecord) error {
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if record.ID == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	model, err := reportModelFrom(record)
	if err != nil {
		return err
	}
	res, err := t.DB.NewUpdate().Model(&model).Where("id = ?", record.ID).Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", record.ID), nil)
	}
	return nil
}

// Delete removes a record from the tracker.
func (t *ReportTracker) Delete(ctx context.Context, id string) error {
	if t == nil || t.DB == nil {
		return report.NewError(report.KindNotImpl, "report tracker database not configured", nil)
	}
	if id == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	res, err := t.DB.NewDelete().Model((*reportModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return report.NewError(report.KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return nil
}

type reportModel struct {
	bun.BaseModel `bun:"table:report_records,alias:report_records"`

	ID                     string    `bun:",pk"`
	Dataset                string    `bun:",notnull"`
	Format                 string    `bun:",notnull"`
	State                  string    `bun:",notnull"`
	RequestedByID          string    `bun:"requested_by_id"`
	RequestedByTenantID    string    `bun:"requested_by_tenant_id"`
	RequestedByWorkspaceID string    `bun:"requested_by_workspace_id"`
	RequestedByRoles       []byte    `bun:"requested_by_roles"`
	ScopeTenantID          string    `bun:"scope_tenant_id"`
	ScopeWorkspaceID       string    `bun:"scope_workspace_id"`
	CountsProcessed        int64     `bun:"counts_processed"`
	CountsTotal            int64     `bun:"counts_total"`
	CountsErrors           int64     `bun:"counts_errors"`
	BytesWritten           int64     `bun:"bytes_written"`
	ArtifactKey            string    `bun:"artifact_key"`
	ArtifactMeta           []byte    `bun:"artifact_meta"`
	CreatedAt              time.Time `bun:"created_at"`
	StartedAt              time.Time `bun:"started_at,nullzero"`
	CompletedAt            time.Time `bun:"completed_at,nullzero"`
	ExpiresAt              time.Time `bun:"expires_at,nullzero"`
}

func reportModelFrom(record report.ReportRecord) (reportModel, error) {
	roles, err := json.Marshal(record.RequestedBy.Roles)
	if err != nil {
		return reportModel{}, err
	}
	meta, err := json.Marshal(record.Artifact.Meta)
	if err != nil {
		return reportModel{}, err
	}
	return reportModel{
		ID:                     record.ID,
		Dataset:                record.Dataset,
		Format:                 string(record.Format),
		State:                  string(record.State),
		RequestedByID:          record.RequestedBy.ID,
		RequestedByTenantID:    record.RequestedBy.Scope.TenantID,
		RequestedByWorkspaceID: record.RequestedBy.Scope.WorkspaceID,
		RequestedByRoles:       roles,
		ScopeTenantID:          record.Scope.TenantID,
		ScopeWorkspaceID:       record.Scope.WorkspaceID,
		CountsProcessed:        record.Counts.Processed,
		CountsTotal:            record.Counts.Total,
		CountsErrors:           record.Counts.Errors,
		BytesWritten:           record.BytesWritten,
		ArtifactKey:            record.Artifact.Key,
		ArtifactMeta:           meta,
		CreatedAt:              record.CreatedAt,
		StartedAt:              record.StartedAt,
		CompletedAt:            record.CompletedAt,
		ExpiresAt:              record.ExpiresAt,
	}, nil
}

func (m reportModel) toRecord() (report.ReportRecord, error) {
	record := report.ReportRecord{
		ID:      m.ID,
		Dataset: m.Dataset,
		Format:  report.Format(m.Format),
		State:   report.ReportState(m.State),
		RequestedBy: report.Actor{
			ID: m.RequestedByID,
			Scope: report.Scope{
				TenantID:    m.RequestedByTenantID,
				WorkspaceID: m.RequestedByWorkspaceID,
			},
		},
		Scope: report.Scope{
			TenantID:    m.ScopeTenantID,
			WorkspaceID: m.ScopeWorkspaceID,
		},
		Counts: report.ReportCounts{
			Processed: m.CountsProcessed,
			Total:     m.CountsTotal,
			Errors:    m.CountsErrors,
		},
		BytesWritten: m.BytesWritten,
		Artifact: report.ArtifactRef{
			Key: m.ArtifactKey,
		},
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		ExpiresAt:   m.ExpiresAt,
	}
	if len(m.RequestedByRoles) > 0 {
		if err := json.Unmarshal(m.RequestedByRoles, &record.RequestedBy.Roles); err != nil {
			return report.ReportRecord{}, err
		}
	}
	if len(m.ArtifactMeta) > 0 {
		if err := json.Unmarshal(m.ArtifactMeta, &record.Artifact.Meta); err != nil {
			return report.ReportRecord{}, err
		}
	}
	return record, nil
}

func (t *ReportTracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *ReportTracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("rpt-%d", id)
}
