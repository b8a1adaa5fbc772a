package reportjob

import (
	"context"
	"sync"

	"github.com/goliatone/go-rights/report"
)

// CancelRegistry tracks running report jobs for cancellation.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry creates a new registry for job cancellation.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

// Register associates a cancel func with a report ID.
func (r *CancelRegistry) Register(reportID string, cancel context.CancelFunc) func() {
	if r == nil || reportID == "" || cancel == nil {
		return func() {}
	}
	r.mu.Lock()
	r.cancels[reportID] = cancel
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.cancels, reportID)
		r.mu.Unlock()
	}
}

// Cancel triggers context cancellation for a running report.
func (r *CancelRegistry) Cancel(ctx context.Context, reportID string) error {
	_ = ctx
	if r == nil {
		return report.NewError(report.KindInternal, "cancel registry is nil", nil)
	}
	if reportID == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}

	r.mu.Lock()
	cancel, ok := r.cancels[reportID]
	r.mu.Unlock()
	if !ok {
		return report.NewError(report.KindNotFound, "report not running", nil)
	}
	cancel()
	return nil
}
