package reportdelivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
)

// ScheduleMode selects how scheduled deliveries are processed.
type ScheduleMode string

const (
	ScheduleModeEnqueue     ScheduleMode = "enqueue"
	ScheduleModeExecuteSync ScheduleMode = "execute_sync"
)

const scheduleModeEnv = "REPORT_DELIVERY_SCHEDULE_MODE"

// ScheduleLoader loads scheduled delivery requests.
type ScheduleLoader func(ctx context.Context) ([]Request, error)

// ScheduleRequester enqueues scheduled delivery requests.
type ScheduleRequester interface {
	RequestDelivery(ctx context.Context, req Request) error
}

// ScheduleExecutor runs a scheduled delivery in-process.
type ScheduleExecutor interface {
	Execute(ctx context.Context, req Request) error
}

// ScheduleExecutorFunc adapts a function to a ScheduleExecutor.
type ScheduleExecutorFunc func(ctx context.Context, req Request) error

func (f ScheduleExecutorFunc) Execute(ctx context.Context, req Request) error {
	if f == nil {
		return errors.New("schedule executor is nil", errors.CategoryInternal).
			WithTextCode("EXECUTOR_NIL")
	}
	return f(ctx, req)
}

// ScheduleLimits bounds scheduled delivery execution.
type ScheduleLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// ScheduleCommand wires CLI/Cron execution for scheduled deliveries.
type ScheduleCommand struct {
	requester  ScheduleRequester
	executor   ScheduleExecutor
	loader     ScheduleLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     ScheduleLimits
	mode       ScheduleMode
	sleep      func(time.Duration)
}

// ScheduleOption customizes scheduled delivery commands.
type ScheduleOption func(*ScheduleCommand)

// WithScheduleCLIConfig overrides CLI configuration.
func WithScheduleCLIConfig(cfg gcmd.CLIConfig) ScheduleOption {
	return func(cmd *ScheduleCommand) {
		cmd.cliConfig = cfg
	}
}

// WithScheduleCronConfig overrides cron configuration.
func WithScheduleCronConfig(cfg gcmd.HandlerConfig) ScheduleOption {
	return func(cmd *ScheduleCommand) {
		cmd.cronConfig = cfg
	}
}

// WithScheduleLimits overrides scheduling limits.
func WithScheduleLimits(limits ScheduleLimits) ScheduleOption {
	return func(cmd *ScheduleCommand) {
		cmd.limits = limits
	}
}

// WithScheduleMode pins the execution mode, taking precedence over the
// CLI flag and environment.
func WithScheduleMode(mode ScheduleMode) ScheduleOption {
	return func(cmd *ScheduleCommand) {
		cmd.mode = mode
	}
}

// WithScheduleExecutor configures in-process execution. Sets the mode to
// execute_sync unless a mode was already pinned.
func WithScheduleExecutor(executor ScheduleExecutor) ScheduleOption {
	return func(cmd *ScheduleCommand) {
		cmd.executor = executor
		if cmd.mode == "" {
			cmd.mode = ScheduleModeExecuteSync
		}
	}
}

// NewScheduledDeliveriesCommand creates a scheduled delivery CLI/Cron command.
func NewScheduledDeliveriesCommand(requester ScheduleRequester, loader ScheduleLoader, opts ...ScheduleOption) *ScheduleCommand {
	cmd := &ScheduleCommand{
		requester: requester,
		loader:    loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"reports-deliver"},
			Description: "Run scheduled report deliveries",
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

// CronHandler executes scheduled deliveries.
func (c *ScheduleCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "", "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *ScheduleCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *ScheduleCommand) CLIHandler() any {
	return &scheduleCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *ScheduleCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *ScheduleCommand) run(ctx context.Context, from, modeFlag string) (int, error) {
	if c == nil {
		return 0, errors.New("schedule command is nil", errors.CategoryInternal).
			WithTextCode("SCHEDULE_CMD_NIL")
	}

	mode, err := c.resolveMode(modeFlag)
	if err != nil {
		return 0, err
	}
	if mode == ScheduleModeExecuteSync && c.executor == nil {
		return 0, errors.New("schedule executor is required", errors.CategoryValidation).
			WithTextCode("EXECUTOR_REQUIRED")
	}
	if mode == ScheduleModeEnqueue && c.requester == nil {
		return 0, errors.New("schedule requester is required", errors.CategoryValidation).
			WithTextCode("REQUESTER_REQUIRED")
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range requests {
		if c.limits.MaxRequests > 0 && count >= c.limits.MaxRequests {
			break
		}
		switch mode {
		case ScheduleModeExecuteSync:
			err = c.executor.Execute(ctx, req)
		default:
			err = c.requester.RequestDelivery(ctx, req)
		}
		if err != nil {
			return count, err
		}
		count++
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return count, nil
}

// resolveMode precedence: configured mode, then CLI flag, then
// environment, then enqueue.
func (c *ScheduleCommand) resolveMode(flag string) (ScheduleMode, error) {
	if c != nil && c.mode != "" {
		return c.mode, nil
	}
	if raw := strings.TrimSpace(flag); raw != "" {
		return parseScheduleMode(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(scheduleModeEnv)); raw != "" {
		return parseScheduleMode(raw)
	}
	return ScheduleModeEnqueue, nil
}

func parseScheduleMode(raw string) (ScheduleMode, error) {
	switch ScheduleMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ScheduleModeEnqueue:
		return ScheduleModeEnqueue, nil
	case ScheduleModeExecuteSync:
		return ScheduleModeExecuteSync, nil
	default:
		return "", errors.New(fmt.Sprintf("invalid schedule mode %q", raw), errors.CategoryValidation).
			WithTextCode("SCHEDULE_MODE_INVALID")
	}
}

func (c *ScheduleCommand) loadRequests(ctx context.Context, from string) ([]Request, error) {
	if strings.TrimSpace(from) != "" {
		return loadScheduleRequestsFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("schedule loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type scheduleCLI struct {
	cmd  *ScheduleCommand
	From string `kong:"name='from',help='Path to JSON scheduled delivery requests'"`
	Mode string `kong:"name='mode',help='Execution mode: enqueue or execute_sync'"`
}

func (c *scheduleCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("schedule command is required", errors.CategoryInternal).
			WithTextCode("SCHEDULE_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From, c.Mode)
	return err
}

func loadScheduleRequestsFromFile(path string) ([]Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read schedule file failed").
			WithTextCode("SCHEDULE_FILE_READ")
	}

	var requests []Request
	if err := json.Unmarshal(content, &requests); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "schedule file invalid JSON").
			WithTextCode("SCHEDULE_FILE_INVALID")
	}
	return requests, nil
}
