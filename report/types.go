package report

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-rights/rights"
)

// Actor and Scope are shared with the rights domain.
type Actor = rights.Actor

// Scope identifies tenant/workspace scope.
type Scope = rights.Scope

// Logger provides logging hooks.
type Logger = rights.Logger

// NopLogger is a no-op logger.
type NopLogger = rights.NopLogger

// Format is the report output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatXLSX   Format = "xlsx"
	FormatHTML   Format = "html"
	FormatPDF    Format = "pdf"
	FormatSQLite Format = "sqlite"
)

// DeliveryMode describes how reports are delivered.
type DeliveryMode string

const (
	DeliverySync  DeliveryMode = "sync"
	DeliveryAsync DeliveryMode = "async"
	DeliveryAuto  DeliveryMode = "auto"
)

// ReportRequest captures a report request. Resource is an alternate
// lookup key resolved to a dataset by the API layer.
type ReportRequest struct {
	Dataset           string
	Resource          string
	Format            Format
	Columns           []string
	Locale            string
	Timezone          string
	Delivery          DeliveryMode
	IdempotencyKey    string
	EstimatedRows     int
	EstimatedBytes    int64
	EstimatedDuration time.Duration
	Contracts         rights.ContractFilter
	Conflicts         rights.ConflictFilter
	Query             any
	Output            io.Writer
	RenderOptions     RenderOptions
}

// ReportDefinition declares a reportable dataset.
type ReportDefinition struct {
	Name            string
	Resource        string
	Schema          Schema
	AllowedFormats  []Format
	DefaultFilename string
	RowSourceKey    string
	Policy          ReportPolicy
	DeliveryPolicy  *DeliveryPolicy
	Template        TemplateOptions
}

// ReportPolicy enforces report limits and redaction.
type ReportPolicy struct {
	AllowedColumns []string
	RedactColumns  []string
	RedactionValue any
	MaxRows        int
	MaxBytes       int64
	MaxDuration    time.Duration
}

// DeliveryPolicy configures delivery selection thresholds.
type DeliveryPolicy struct {
	Default    DeliveryMode
	Thresholds DeliveryThresholds
}

// DeliveryThresholds drive auto delivery decisions.
type DeliveryThresholds struct {
	MaxRows     int
	MaxBytes    int64
	MaxDuration time.Duration
}

// Column defines a column in the report schema.
type Column struct {
	Name   string
	Label  string
	Type   string
	Format ColumnFormat
}

// ColumnFormat provides renderer-specific formatting hints.
type ColumnFormat struct {
	Layout string
	Number string
	Excel  string
}

// Schema defines the columns for a dataset.
type Schema struct {
	Columns []Column
}

// ReportCounts tracks row counts.
type ReportCounts struct {
	Processed int64
	Total     int64
	Errors    int64
}

// ReportState captures progress states.
type ReportState string

const (
	StateQueued     ReportState = "queued"
	StateRunning    ReportState = "running"
	StatePublishing ReportState = "publishing"
	StateCompleted  ReportState = "completed"
	StateFailed     ReportState = "failed"
	StateCanceled   ReportState = "canceled"
	StateDeleted    ReportState = "deleted"
)

// ReportRecord captures tracker state for a report.
type ReportRecord struct {
	ID           string
	Dataset      string
	Format       Format
	State        ReportState
	RequestedBy  Actor
	Scope        Scope
	Counts       ReportCounts
	BytesWritten int64
	Artifact     ArtifactRef
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ExpiresAt    time.Time
}

// ReportResult captures a completed report.
type ReportResult struct {
	ID       string
	Delivery DeliveryMode
	Format   Format
	Rows     int64
	Bytes    int64
	Filename string
	Artifact *ArtifactRef
}

// Row is a column-aligned record.
type Row []any

// RowSourceSpec is passed to RowSource.Open.
type RowSourceSpec struct {
	Definition ResolvedDefinition
	Request    ReportRequest
	Columns    []Column
	Actor      Actor
}

// RowSource provides row iterators for reports.
type RowSource interface {
	Open(ctx context.Context, spec RowSourceSpec) (RowIterator, error)
}

// RowIterator streams rows.
type RowIterator interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}

// Renderer writes rows to the destination.
type Renderer interface {
	Render(ctx context.Context, schema Schema, rows RowIterator, w io.Writer, opts RenderOptions) (RenderStats, error)
}

// RenderStats capture renderer output.
type RenderStats struct {
	Rows  int64
	Bytes int64
}

// JSONMode configures JSON rendering.
type JSONMode string

const (
	JSONModeArray JSONMode = "array"
	JSONModeLines JSONMode = "ndjson"
)

// CSVOptions configures CSV output.
type CSVOptions struct {
	IncludeHeaders bool
	Delimiter      rune
	HeadersSet     bool
}

// JSONOptions configures JSON output.
type JSONOptions struct {
	Mode JSONMode
}

// TemplateOptions configures HTML template rendering.
type TemplateOptions struct {
	TemplateName string
	Title        string
	MaxRows      int
	GeneratedAt  time.Time
	Data         map[string]any
}

// XLSXOptions configures XLSX output.
type XLSXOptions struct {
	IncludeHeaders bool
	HeadersSet     bool
	SheetName      string
	MaxRows        int
	MaxBytes       int64
}

// PDFExternalAssetsPolicy controls external asset handling in PDF rendering.
type PDFExternalAssetsPolicy string

const (
	PDFExternalAssetsUnspecified PDFExternalAssetsPolicy = ""
	PDFExternalAssetsAllow       PDFExternalAssetsPolicy = "allow"
	PDFExternalAssetsBlock       PDFExternalAssetsPolicy = "block"
)

// PDFOptions configures PDF output for headless engines.
type PDFOptions struct {
	PageSize             string
	Landscape            *bool
	PrintBackground      *bool
	Scale                float64
	MarginTop            string
	MarginBottom         string
	MarginLeft           string
	MarginRight          string
	PreferCSSPageSize    *bool
	BaseURL              string
	ExternalAssetsPolicy PDFExternalAssetsPolicy
}

// FormatOptions configures locale/timezone formatting.
type FormatOptions struct {
	Locale   string
	Timezone string
}

// SQLiteOptions configures SQLite output.
type SQLiteOptions struct {
	TableName string
}

// RenderOptions configures renderer behavior.
type RenderOptions struct {
	CSV      CSVOptions
	JSON     JSONOptions
	Template TemplateOptions
	XLSX     XLSXOptions
	PDF      PDFOptions
	SQLite   SQLiteOptions
	Format   FormatOptions
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Filename    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore stores report artifacts.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ProgressDelta indicates progress changes.
type ProgressDelta struct {
	Rows  int64
	Bytes int64
}

// ReportTracker tracks report progress.
type ReportTracker interface {
	Start(ctx context.Context, record ReportRecord) (string, error)
	Advance(ctx context.Context, id string, delta ProgressDelta, meta map[string]any) error
	SetState(ctx context.Context, id string, state ReportState, meta map[string]any) error
	Fail(ctx context.Context, id string, err error, meta map[string]any) error
	Complete(ctx context.Context, id string, meta map[string]any) error
	Status(ctx context.Context, id string) (ReportRecord, error)
	List(ctx context.Context, filter ProgressFilter) ([]ReportRecord, error)
}

// ArtifactTracker updates stored artifact metadata.
type ArtifactTracker interface {
	SetArtifact(ctx context.Context, id string, ref ArtifactRef) error
}

// RecordUpdater updates records outside state transitions.
type RecordUpdater interface {
	Update(ctx context.Context, record ReportRecord) error
}

// RecordDeleter removes records from the tracker.
type RecordDeleter interface {
	Delete(ctx context.Context, id string) error
}

// ProgressFilter filters tracker lists.
type ProgressFilter struct {
	Dataset string
	State   ReportState
	Since   time.Time
	Until   time.Time
}

// Guard enforces authorization.
type Guard interface {
	AuthorizeReport(ctx context.Context, actor Actor, req ReportRequest, def ResolvedDefinition) error
	AuthorizeDownload(ctx context.Context, actor Actor, reportID string) error
}

// ActorProvider extracts the actor from context.
type ActorProvider interface {
	FromContext(ctx context.Context) (Actor, error)
}

// ChangeEvent describes lifecycle events.
type ChangeEvent struct {
	Name      string
	ReportID  string
	Dataset   string
	Format    Format
	Delivery  DeliveryMode
	Actor     Actor
	Timestamp time.Time
	Metadata  map[string]any
}

// ChangeEmitter emits lifecycle events.
type ChangeEmitter interface {
	Emit(ctx context.Context, evt ChangeEvent) error
}

// RetentionPolicy decides artifact TTLs.
type RetentionPolicy interface {
	TTL(ctx context.Context, actor Actor, req ReportRequest, def ResolvedDefinition) (time.Duration, error)
}

// ResolvedDefinition is a definition resolved for a request.
type ResolvedDefinition struct {
	ReportDefinition
}
