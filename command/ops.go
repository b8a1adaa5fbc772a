package command

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
)

// BatchRequest describes a request for scheduled report runs.
type BatchRequest struct {
	Actor   report.Actor         `json:"actor"`
	Request report.ReportRequest `json:"request"`
}

// BatchLoader loads batch requests from a source.
type BatchLoader func(ctx context.Context) ([]BatchRequest, error)

// BatchRequester schedules report requests.
type BatchRequester interface {
	RequestReport(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error)
}

// BatchExecutor runs batch reports synchronously.
type BatchExecutor interface {
	ExecuteReport(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error)
}

// BatchExecutorFunc adapts a function to a BatchExecutor.
type BatchExecutorFunc func(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error)

func (f BatchExecutorFunc) ExecuteReport(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error) {
	if f == nil {
		return report.ReportRecord{}, errors.New("batch executor is required", errors.CategoryInternal).
			WithTextCode("BATCH_EXECUTOR_NIL")
	}
	return f(ctx, actor, req)
}

// BatchCommand wires CLI/Cron execution for batch reports.
type BatchCommand struct {
	requester  BatchRequester
	executor   BatchExecutor
	loader     BatchLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	sleep      func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchExecutor sets the synchronous executor for batch reports.
func WithBatchExecutor(executor BatchExecutor) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.executor = executor
	}
}

// NewScheduledReportsCommand creates a scheduled reports CLI/Cron command.
func NewScheduledReportsCommand(requester BatchRequester, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		requester: requester,
		loader:    loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"reports-scheduled"},
			Description: "Run scheduled reports",
			Group:       "reports",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 * * * *"},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CronHandler executes scheduled batch reports.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *BatchCommand) run(ctx context.Context, from string) (int, error) {
	if c == nil {
		return 0, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.requester == nil && c.executor == nil {
		return 0, errors.New("batch requester or executor is required", errors.CategoryValidation).
			WithTextCode("REQUESTER_REQUIRED")
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range requests {
		if c.limits.MaxRequests > 0 && count >= c.limits.MaxRequests {
			break
		}
		req := item.Request
		req.Delivery = report.DeliveryAsync
		req.Output = nil
		if c.executor != nil {
			if _, err := c.executor.ExecuteReport(ctx, item.Actor, req); err != nil {
				return count, err
			}
		} else if _, err := c.requester.RequestReport(ctx, item.Actor, req); err != nil {
			return count, err
		}
		count++
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return count, nil
}

func (c *BatchCommand) loadRequests(ctx context.Context, from string) ([]BatchRequest, error) {
	if strings.TrimSpace(from) != "" {
		return loadBatchRequestsFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to JSON batch report requests'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From)
	return err
}

func loadBatchRequestsFromFile(path string) ([]BatchRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var requests []BatchRequest
	if err := json.Unmarshal(content, &requests); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return requests, nil
}

// DatasetBatch builds PDF batch requests for a dataset list.
type DatasetBatch struct {
	Actor    report.Actor
	Datasets []string
	Request  report.ReportRequest
}

// BuildPDFBatchRequests returns async PDF report requests for each dataset.
func BuildPDFBatchRequests(batch DatasetBatch) []BatchRequest {
	if len(batch.Datasets) == 0 {
		return nil
	}
	req := batch.Request
	if req.Format == "" {
		req.Format = report.FormatPDF
	}

	requests := make([]BatchRequest, 0, len(batch.Datasets))
	for _, dataset := range batch.Datasets {
		if strings.TrimSpace(dataset) == "" {
			continue
		}
		item := BatchRequest{
			Actor: batch.Actor,
			Request: report.ReportRequest{
				Dataset:           dataset,
				Format:            req.Format,
				Columns:           req.Columns,
				Locale:            req.Locale,
				Timezone:          req.Timezone,
				Delivery:          req.Delivery,
				IdempotencyKey:    req.IdempotencyKey,
				EstimatedRows:     req.EstimatedRows,
				EstimatedBytes:    req.EstimatedBytes,
				EstimatedDuration: req.EstimatedDuration,
				Contracts:         req.Contracts,
				Conflicts:         req.Conflicts,
				RenderOptions:     req.RenderOptions,
			},
		}
		requests = append(requests, item)
	}
	return requests
}

// CLIHandler exposes cleanup via CLI.
func (h *CleanupReportsHandler) CLIHandler() any {
	return &cleanupCLI{handler: h}
}

// CLIOptions describes cleanup CLI metadata.
func (h *CleanupReportsHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"reports-cleanup"},
		Description: "Remove expired report artifacts",
		Group:       "reports",
	}
}

type cleanupCLI struct {
	handler *CleanupReportsHandler
}

func (c *cleanupCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("cleanup handler is required", errors.CategoryInternal).
			WithTextCode("CLEANUP_HANDLER_REQUIRED")
	}
	return c.handler.Execute(context.Background(), CleanupReports{})
}
