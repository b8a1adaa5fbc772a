package reportjob

import (
	"context"

	rightscmd "github.com/goliatone/go-rights/command"
	"github.com/goliatone/go-rights/report"
)

// NewBatchExecutor builds a BatchExecutor that runs reports synchronously.
func NewBatchExecutor(task *GenerateTask, builder *MessageBuilder) rightscmd.BatchExecutor {
	return rightscmd.BatchExecutorFunc(func(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error) {
		if task == nil {
			return report.ReportRecord{}, report.NewError(report.KindInternal, "generate task is nil", nil)
		}
		if builder == nil {
			return report.ReportRecord{}, report.NewError(report.KindNotImpl, "message builder not configured", nil)
		}

		result, err := builder.Build(ctx, actor, req)
		if err != nil {
			return result.Record, err
		}
		if result.Reused {
			return result.Record, nil
		}
		if result.Message == nil {
			return result.Record, report.NewError(report.KindValidation, "execution message is required", nil)
		}

		if err := task.Execute(ctx, result.Message); err != nil {
			return result.Record, err
		}
		if result.Signature != "" {
			_ = builder.StoreIdempotency(ctx, result.Signature, result.Record.ID)
		}
		return result.Record, nil
	})
}
