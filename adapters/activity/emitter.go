package rightsactivity

import (
	"context"
	"strings"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-users/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Config configures the activity emitter adapter.
type Config struct {
	Sink       types.ActivitySink
	Channel    string
	ObjectType string
}

// Emitter adapts ChangeEmitter events into go-users activity records.
type Emitter struct {
	sink       types.ActivitySink
	channel    string
	objectType string
}

// NewEmitter creates a new activity emitter.
func NewEmitter(cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "reports"
	}
	objectType := strings.TrimSpace(cfg.ObjectType)
	if objectType == "" {
		objectType = "report"
	}
	return &Emitter{
		sink:       cfg.Sink,
		channel:    channel,
		objectType: objectType,
	}
}

// Emit logs report lifecycle events to the configured ActivitySink.
func (e *Emitter) Emit(ctx context.Context, evt report.ChangeEvent) error {
	if e == nil {
		return report.NewError(report.KindInternal, "activity emitter is nil", nil)
	}
	if e.sink == nil {
		return report.NewError(report.KindNotImpl, "activity sink not configured", nil)
	}
	verb := strings.TrimSpace(evt.Name)
	if verb == "" {
		return report.NewError(report.KindValidation, "activity verb is required", nil)
	}
	objectID := strings.TrimSpace(evt.ReportID)
	if objectID == "" {
		return report.NewError(report.KindValidation, "activity object ID is required", nil)
	}

	meta := buildMetadata(evt)
	record, err := activity.BuildRecordFromUUID(
		parseUUID(evt.Actor.ID),
		verb,
		e.objectType,
		objectID,
		meta,
		activity.WithChannel(e.channel),
		activity.WithOccurredAt(evt.Timestamp),
		activity.WithTenant(parseUUID(evt.Actor.Scope.TenantID)),
		activity.WithOrg(parseUUID(evt.Actor.Scope.WorkspaceID)),
	)
	if err != nil {
		return err
	}
	return e.sink.Log(ctx, record)
}

func buildMetadata(evt report.ChangeEvent) map[string]any {
	meta := make(map[string]any, 4)
	if evt.Dataset != "" {
		meta["dataset"] = evt.Dataset
	}
	if evt.Format != "" {
		meta["format"] = string(evt.Format)
	}
	if evt.Delivery != "" {
		meta["delivery"] = string(evt.Delivery)
	}
	for k, v := range evt.Metadata {
		meta[k] = v
	}
	return meta
}

func parseUUID(value string) uuid.UUID {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
