package reportjob

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-command/dispatcher"
	job "github.com/goliatone/go-job"
	rightscmd "github.com/goliatone/go-rights/command"
	"github.com/goliatone/go-rights/rights"
)

const (
	DefaultIngestTaskID   = "rights:ingest"
	DefaultIngestTaskPath = "rights:ingest"
)

// IngestPayload captures the ingest job execution input.
type IngestPayload struct {
	Actor   rights.Actor         `json:"actor"`
	Request rights.IngestRequest `json:"request"`
}

// IngestDispatch dispatches a contract ingest command.
type IngestDispatch func(ctx context.Context, msg rightscmd.IngestContract) error

// IngestTaskConfig configures the contract ingest task.
type IngestTaskConfig struct {
	ID             string
	Path           string
	Config         job.Config
	HandlerOptions job.HandlerOptions
	Logger         rights.Logger
	Dispatch       IngestDispatch
}

// IngestTask executes contract ingest jobs.
type IngestTask struct {
	id             string
	path           string
	config         job.Config
	handlerOptions job.HandlerOptions
	logger         rights.Logger
	dispatch       IngestDispatch
}

// NewIngestTask creates a new contract ingest task.
func NewIngestTask(cfg IngestTaskConfig) *IngestTask {
	logger := cfg.Logger
	if logger == nil {
		logger = rights.NopLogger{}
	}
	id := cfg.ID
	if id == "" {
		id = DefaultIngestTaskID
	}
	path := cfg.Path
	if path == "" {
		path = DefaultIngestTaskPath
	}
	dispatch := cfg.Dispatch
	if dispatch == nil {
		dispatch = func(ctx context.Context, msg rightscmd.IngestContract) error {
			return dispatcher.Dispatch(ctx, msg)
		}
	}

	return &IngestTask{
		id:             id,
		path:           path,
		config:         cfg.Config,
		handlerOptions: cfg.HandlerOptions,
		logger:         logger,
		dispatch:       dispatch,
	}
}

// GetID returns the task identifier.
func (t *IngestTask) GetID() string { return t.id }

// GetHandler returns a handler for non-queue execution paths.
func (t *IngestTask) GetHandler() func() error {
	return func() error {
		return rights.NewError(rights.KindNotImpl, "ingest task requires a queued payload", nil)
	}
}

// GetHandlerConfig returns scheduler options for the task.
func (t *IngestTask) GetHandlerConfig() job.HandlerOptions { return t.handlerOptions }

// GetConfig returns task config defaults.
func (t *IngestTask) GetConfig() job.Config { return t.config }

// GetPath returns the task path.
func (t *IngestTask) GetPath() string { return t.path }

// GetEngine returns nil because this task is code-driven.
func (t *IngestTask) GetEngine() job.Engine { return nil }

// Execute runs contract ingestion for the provided payload.
func (t *IngestTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil {
		return rights.NewError(rights.KindInternal, "task is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := decodeIngestPayload(msg)
	if err != nil {
		return err
	}
	return t.dispatch(ctx, rightscmd.IngestContract{
		Actor:   payload.Actor,
		Request: payload.Request,
	})
}

// EncodeIngestPayload serializes an ingest payload for enqueueing.
func EncodeIngestPayload(payload IngestPayload) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, rights.NewError(rights.KindValidation, "payload is not serializable", err)
	}
	return json.RawMessage(raw), nil
}

func decodeIngestPayload(msg *job.ExecutionMessage) (IngestPayload, error) {
	if msg == nil || msg.Parameters == nil {
		return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload is required", nil)
	}
	raw, ok := msg.Parameters["payload"]
	if !ok {
		return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload missing", nil)
	}

	var data []byte
	switch value := raw.(type) {
	case IngestPayload:
		return value, nil
	case *IngestPayload:
		if value == nil {
			return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload is nil", nil)
		}
		return *value, nil
	case json.RawMessage:
		data = value
	case []byte:
		data = value
	case string:
		data = []byte(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload is invalid", err)
		}
		data = encoded
	}

	if len(data) == 0 {
		return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload is empty", nil)
	}
	var payload IngestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return IngestPayload{}, rights.NewError(rights.KindValidation, "job payload is invalid", err)
	}
	return payload, nil
}
