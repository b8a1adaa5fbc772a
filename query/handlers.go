package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// DashboardHandler returns the KPI snapshot.
type DashboardHandler struct {
	Service rights.Service
}

func NewDashboardHandler(svc rights.Service) *DashboardHandler {
	return &DashboardHandler{Service: svc}
}

func (h *DashboardHandler) Query(ctx context.Context, msg Dashboard) (rights.KPISnapshot, error) {
	if h == nil || h.Service == nil {
		return rights.KPISnapshot{}, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Dashboard(ctx, msg.Actor)
}

// ContractListHandler returns contracts matching a filter.
type ContractListHandler struct {
	Service rights.Service
}

func NewContractListHandler(svc rights.Service) *ContractListHandler {
	return &ContractListHandler{Service: svc}
}

func (h *ContractListHandler) Query(ctx context.Context, msg ContractList) ([]rights.Contract, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Contracts(ctx, msg.Actor, msg.Filter)
}

// GrantListHandler returns grants matching a filter.
type GrantListHandler struct {
	Service rights.Service
}

func NewGrantListHandler(svc rights.Service) *GrantListHandler {
	return &GrantListHandler{Service: svc}
}

func (h *GrantListHandler) Query(ctx context.Context, msg GrantList) ([]rights.RightsGrant, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Grants(ctx, msg.Actor, msg.Filter)
}

// ConflictListHandler returns detected conflicts.
type ConflictListHandler struct {
	Service rights.Service
}

func NewConflictListHandler(svc rights.Service) *ConflictListHandler {
	return &ConflictListHandler{Service: svc}
}

func (h *ConflictListHandler) Query(ctx context.Context, msg ConflictList) ([]rights.Conflict, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Conflicts(ctx, msg.Actor, msg.Filter)
}

// StoryListHandler returns generated user stories.
type StoryListHandler struct {
	Service rights.Service
}

func NewStoryListHandler(svc rights.Service) *StoryListHandler {
	return &StoryListHandler{Service: svc}
}

func (h *StoryListHandler) Query(ctx context.Context, msg StoryList) ([]rights.Story, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Stories(ctx, msg.Actor)
}

// IngestStatusHandler returns a single ingest record.
type IngestStatusHandler struct {
	Service rights.Service
}

func NewIngestStatusHandler(svc rights.Service) *IngestStatusHandler {
	return &IngestStatusHandler{Service: svc}
}

func (h *IngestStatusHandler) Query(ctx context.Context, msg IngestStatus) (rights.IngestRecord, error) {
	if h == nil || h.Service == nil {
		return rights.IngestRecord{}, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Status(ctx, msg.Actor, msg.IngestID)
}

// IngestHistoryHandler returns ingest history.
type IngestHistoryHandler struct {
	Service rights.Service
}

func NewIngestHistoryHandler(svc rights.Service) *IngestHistoryHandler {
	return &IngestHistoryHandler{Service: svc}
}

func (h *IngestHistoryHandler) Query(ctx context.Context, msg IngestHistory) ([]rights.IngestRecord, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.History(ctx, msg.Actor, msg.Filter)
}

// ReportStatusHandler returns a single report record.
type ReportStatusHandler struct {
	Service report.Service
}

func NewReportStatusHandler(svc report.Service) *ReportStatusHandler {
	return &ReportStatusHandler{Service: svc}
}

func (h *ReportStatusHandler) Query(ctx context.Context, msg ReportStatus) (report.ReportRecord, error) {
	if h == nil || h.Service == nil {
		return report.ReportRecord{}, errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Status(ctx, msg.Actor, msg.ReportID)
}

// ReportHistoryHandler returns report history.
type ReportHistoryHandler struct {
	Service report.Service
}

func NewReportHistoryHandler(svc report.Service) *ReportHistoryHandler {
	return &ReportHistoryHandler{Service: svc}
}

func (h *ReportHistoryHandler) Query(ctx context.Context, msg ReportHistory) ([]report.ReportRecord, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.History(ctx, msg.Actor, msg.Filter)
}

// DownloadMetadataHandler returns artifact metadata.
type DownloadMetadataHandler struct {
	Service report.Service
}

func NewDownloadMetadataHandler(svc report.Service) *DownloadMetadataHandler {
	return &DownloadMetadataHandler{Service: svc}
}

func (h *DownloadMetadataHandler) Query(ctx context.Context, msg DownloadMetadata) (report.DownloadInfo, error) {
	if h == nil || h.Service == nil {
		return report.DownloadInfo{}, errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.DownloadMetadata(ctx, msg.Actor, msg.ReportID)
}
