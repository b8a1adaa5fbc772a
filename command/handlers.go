package command

import (
	"context"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// IngestContractHandler drives contract uploads through the pipeline.
type IngestContractHandler struct {
	Service rights.Service
}

func NewIngestContractHandler(svc rights.Service) *IngestContractHandler {
	return &IngestContractHandler{Service: svc}
}

func (h *IngestContractHandler) Execute(ctx context.Context, msg IngestContract) error {
	if h == nil || h.Service == nil {
		return errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	result, err := h.Service.IngestContract(ctx, msg.Actor, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[rights.IngestResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

// DeleteContractHandler removes a contract.
type DeleteContractHandler struct {
	Service rights.Service
}

func NewDeleteContractHandler(svc rights.Service) *DeleteContractHandler {
	return &DeleteContractHandler{Service: svc}
}

func (h *DeleteContractHandler) Execute(ctx context.Context, msg DeleteContract) error {
	if h == nil || h.Service == nil {
		return errors.New("rights service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.DeleteContract(ctx, msg.Actor, msg.ContractID)
}

// RequestReportHandler handles report requests.
type RequestReportHandler struct {
	Service report.Service
}

func NewRequestReportHandler(svc report.Service) *RequestReportHandler {
	return &RequestReportHandler{Service: svc}
}

func (h *RequestReportHandler) Execute(ctx context.Context, msg RequestReport) error {
	if h == nil || h.Service == nil {
		return errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	record, err := h.Service.RequestReport(ctx, msg.Actor, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = record
	}
	if res := gcmd.ResultFromContext[report.ReportRecord](ctx); res != nil {
		res.Store(record)
	}
	return nil
}

// CancelReportHandler cancels a report.
type CancelReportHandler struct {
	Service report.Service
}

func NewCancelReportHandler(svc report.Service) *CancelReportHandler {
	return &CancelReportHandler{Service: svc}
}

func (h *CancelReportHandler) Execute(ctx context.Context, msg CancelReport) error {
	if h == nil || h.Service == nil {
		return errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	_, err := h.Service.CancelReport(ctx, msg.Actor, msg.ReportID)
	return err
}

// DeleteReportHandler deletes a report.
type DeleteReportHandler struct {
	Service report.Service
}

func NewDeleteReportHandler(svc report.Service) *DeleteReportHandler {
	return &DeleteReportHandler{Service: svc}
}

func (h *DeleteReportHandler) Execute(ctx context.Context, msg DeleteReport) error {
	if h == nil || h.Service == nil {
		return errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.DeleteReport(ctx, msg.Actor, msg.ReportID)
}

// GenerateReportHandler runs report generation jobs.
type GenerateReportHandler struct {
	Service report.Service
}

func NewGenerateReportHandler(svc report.Service) *GenerateReportHandler {
	return &GenerateReportHandler{Service: svc}
}

func (h *GenerateReportHandler) Execute(ctx context.Context, msg GenerateReport) error {
	if h == nil || h.Service == nil {
		return errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	result, err := h.Service.GenerateReport(ctx, msg.Actor, msg.ReportID, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[report.ReportResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

// CleanupReportsHandler removes expired reports.
type CleanupReportsHandler struct {
	Service report.Service
	Config  gcmd.HandlerConfig
	Clock   func() time.Time
}

func NewCleanupReportsHandler(svc report.Service) *CleanupReportsHandler {
	return &CleanupReportsHandler{Service: svc}
}

func (h *CleanupReportsHandler) Execute(ctx context.Context, msg CleanupReports) error {
	if h == nil || h.Service == nil {
		return errors.New("report service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	now := msg.Now
	if now.IsZero() && h.Clock != nil {
		now = h.Clock()
	}
	count, err := h.Service.Cleanup(ctx, now)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

func (h *CleanupReportsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), CleanupReports{})
	}
}

func (h *CleanupReportsHandler) CronOptions() gcmd.HandlerConfig {
	return h.Config
}
