package storebun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-rights/rights"
	"github.com/uptrace/bun"
)

// IngestTracker stores ingest progress in a Bun-backed database.
type IngestTracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string

	counter uint64
}

// NewIngestTracker creates a Bun-backed ingest tracker.
func NewIngestTracker(db *bun.DB) *IngestTracker {
	return &IngestTracker{DB: db, Now: time.Now}
}

// Start creates a new ingest record.
func (t *IngestTracker) Start(ctx context.Context, record rights.IngestRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = rights.StateQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model, err := ingestModelFrom(record)
	if err != nil {
		return "", err
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Advance updates extracted entity counts.
func (t *IngestTracker) Advance(ctx context.Context, id string, delta rights.IngestDelta, meta map[string]any) error {
	_ = meta
	if t == nil || t.DB == nil {
		return rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}
	if id == "" {
		return rights.NewError(rights.KindValidation, "ingest ID is required", nil)
	}

	res, err := t.DB.NewUpdate().Model((*ingestModel)(nil)).
		Set("counts_grants = counts_grants + ?", delta.Grants).
		Set("counts_conflicts = counts_conflicts + ?", delta.Conflicts).
		Set("counts_warnings = counts_warnings + ?", delta.Warnings).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return rights.NewError(rights.KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	return nil
}

// SetState updates the ingest state. meta["contract_id"] links the
// record to the persisted contract.
func (t *IngestTracker) SetState(ctx context.Context, id string, state rights.IngestState, meta map[string]any) error {
	if t == nil || t.DB == nil {
		return rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}
	if id == "" {
		return rights.NewError(rights.KindValidation, "ingest ID is required", nil)
	}

	query := t.DB.NewUpdate().Model((*ingestModel)(nil)).
		Set("state = ?", state).
		Where("id = ?", id)
	if state == rights.StateParsing {
		query = query.Set("started_at = COALESCE(started_at, ?)", t.now())
	}
	if state == rights.StateCompleted {
		query = query.Set("completed_at = COALESCE(completed_at, ?)", t.now())
	}
	if cid, ok := meta["contract_id"].(string); ok && cid != "" {
		query = query.Set("contract_id = ?", cid)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return rights.NewError(rights.KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	return nil
}

// Fail marks the ingest as failed and records the error message.
func (t *IngestTracker) Fail(ctx context.Context, id string, failure error, meta map[string]any) error {
	_ = meta
	if t == nil || t.DB == nil {
		return rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}
	if id == "" {
		return rights.NewError(rights.KindValidation, "ingest ID is required", nil)
	}

	message := ""
	if failure != nil {
		message = failure.Error()
	}
	res, err := t.DB.NewUpdate().Model((*ingestModel)(nil)).
		Set("state = ?", rights.StateFailed).
		Set("error = ?", message).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return rights.NewError(rights.KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	return nil
}

// Complete marks the ingest as completed.
func (t *IngestTracker) Complete(ctx context.Context, id string, meta map[string]any) error {
	return t.SetState(ctx, id, rights.StateCompleted, meta)
}

// Status returns a record by ID.
func (t *IngestTracker) Status(ctx context.Context, id string) (rights.IngestRecord, error) {
	if t == nil || t.DB == nil {
		return rights.IngestRecord{}, rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}
	if id == "" {
		return rights.IngestRecord{}, rights.NewError(rights.KindValidation, "ingest ID is required", nil)
	}

	model := new(ingestModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rights.IngestRecord{}, rights.NewError(rights.KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
		}
		return rights.IngestRecord{}, err
	}
	return model.toRecord()
}

// List returns records matching a filter, newest first.
func (t *IngestTracker) List(ctx context.Context, filter rights.IngestFilter) ([]rights.IngestRecord, error) {
	if t == nil || t.DB == nil {
		return nil, rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}

	models := make([]ingestModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.ContractID != "" {
		query = query.Where("contract_id = ?", filter.ContractID)
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

	records := make([]rights.IngestRecord, 0, len(models))
	for _, model := range models {
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Prune removes terminal records last touched before olderThan.
func (t *IngestTracker) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if t == nil || t.DB == nil {
		return 0, rights.NewError(rights.KindNotImpl, "ingest tracker database not configured", nil)
	}

	terminal := []string{
		string(rights.StateCompleted),
		string(rights.StateFailed),
		string(rights.StateCanceled),
		string(rights.StateDeleted),
	}
	res, err := t.DB.NewDelete().Model((*ingestModel)(nil)).
		Where("state IN (?)", bun.In(terminal)).
		Where("COALESCE(completed_at, created_at) < ?", olderThan).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

type ingestModel struct {
	bun.BaseModel `bun:"table:ingest_records,alias:ingest_records"`

	ID                     string    `bun:",pk"`
	ContractID             string    `bun:"contract_id"`
	Filename               string    `bun:"filename"`
	State                  string    `bun:",notnull"`
	RequestedByID          string    `bun:"requested_by_id"`
	RequestedByTenantID    string    `bun:"requested_by_tenant_id"`
	RequestedByWorkspaceID string    `bun:"requested_by_workspace_id"`
	RequestedByRoles       []byte    `bun:"requested_by_roles"`
	ScopeTenantID          string    `bun:"scope_tenant_id"`
	ScopeWorkspaceID       string    `bun:"scope_workspace_id"`
	CountsGrants           int64     `bun:"counts_grants"`
	CountsConflicts        int64     `bun:"counts_conflicts"`
	CountsWarnings         int64     `bun:"counts_warnings"`
	Error                  string    `bun:"error"`
	CreatedAt              time.Time `bun:"created_at"`
	StartedAt              time.Time `bun:"started_at,nullzero"`
	CompletedAt            time.Time `bun:"completed_at,nullzero"`
}

func ingestModelFrom(record rights.IngestRecord) (ingestModel, error) {
	roles, err := json.Marshal(record.RequestedBy.Roles)
	if err != nil {
		return ingestModel{}, err
	}
	return ingestModel{
		ID:                     record.ID,
		ContractID:             record.ContractID,
		Filename:               record.Filename,
		State:                  string(record.State),
		RequestedByID:          record.RequestedBy.ID,
		RequestedByTenantID:    record.RequestedBy.Scope.TenantID,
		RequestedByWorkspaceID: record.RequestedBy.Scope.WorkspaceID,
		RequestedByRoles:       roles,
		ScopeTenantID:          record.Scope.TenantID,
		ScopeWorkspaceID:       record.Scope.WorkspaceID,
		CountsGrants:           record.Counts.Grants,
		CountsConflicts:        record.Counts.Conflicts,
		CountsWarnings:         record.Counts.Warnings,
		Error:                  record.Error,
		CreatedAt:              record.CreatedAt,
		StartedAt:              record.StartedAt,
		CompletedAt:            record.CompletedAt,
	}, nil
}

func (m ingestModel) toRecord() (rights.IngestRecord, error) {
	record := rights.IngestRecord{
		ID:         m.ID,
		ContractID: m.ContractID,
		Filename:   m.Filename,
		State:      rights.IngestState(m.State),
		RequestedBy: rights.Actor{
			ID: m.RequestedByID,
			Scope: rights.Scope{
				TenantID:    m.RequestedByTenantID,
				WorkspaceID: m.RequestedByWorkspaceID,
			},
		},
		Scope: rights.Scope{
			TenantID:    m.ScopeTenantID,
			WorkspaceID: m.ScopeWorkspaceID,
		},
		Counts: rights.IngestCounts{
			Grants:    m.CountsGrants,
			Conflicts: m.CountsConflicts,
			Warnings:  m.CountsWarnings,
		},
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
	if len(m.RequestedByRoles) > 0 {
		if err := json.Unmarshal(m.RequestedByRoles, &record.RequestedBy.Roles); err != nil {
			return rights.IngestRecord{}, err
		}
	}
	return record, nil
}

func (t *IngestTracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *IngestTracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("ing-%d", id)
}
