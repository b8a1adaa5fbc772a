package rights

import (
	"context"
	"time"
)

// MediaType identifies an exploitation channel for a grant.
type MediaType string

const (
	MediaTheatrical MediaType = "theatrical"
	MediaSVOD       MediaType = "svod"
	MediaAVOD       MediaType = "avod"
	MediaTVOD       MediaType = "tvod"
	MediaFreeTV     MediaType = "free_tv"
	MediaPayTV      MediaType = "pay_tv"
	MediaHomeVideo  MediaType = "home_video"
	MediaAll        MediaType = "all"
)

// TerritoryWorldwide matches every territory.
const TerritoryWorldwide = "worldwide"

// Window is a licensing window. A zero End means the window is open-ended.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitempty"`
}

// Overlaps reports whether two windows intersect. Open-ended windows
// extend to infinity.
func (w Window) Overlaps(other Window) bool {
	if !w.End.IsZero() && !w.End.After(other.Start) {
		return false
	}
	if !other.End.IsZero() && !other.End.After(w.Start) {
		return false
	}
	return true
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.End.IsZero() {
		return true
	}
	return t.Before(w.End)
}

// Holdback blocks other exploitation of a work during a window.
type Holdback struct {
	Media       MediaType `json:"media"`
	Territories []string  `json:"territories"`
	Window      Window    `json:"window"`
	Reason      string    `json:"reason,omitempty"`
}

// RightsGrant is a single extracted licensing grant.
type RightsGrant struct {
	ID          string     `json:"id"`
	ContractID  string     `json:"contract_id"`
	Work        string     `json:"work"`
	Licensee    string     `json:"licensee"`
	Media       MediaType  `json:"media"`
	Territories []string   `json:"territories"`
	Window      Window     `json:"window"`
	Exclusive   bool       `json:"exclusive"`
	Holdbacks   []Holdback `json:"holdbacks,omitempty"`
	FeeCents    int64      `json:"fee_cents,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// Contract is an ingested source document plus its extracted grants.
type Contract struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Licensor   string        `json:"licensor"`
	Licensee   string        `json:"licensee"`
	Filename   string        `json:"filename"`
	SourceType string        `json:"source_type"`
	SignedAt   time.Time     `json:"signed_at,omitempty"`
	Grants     []RightsGrant `json:"grants"`
	UploadedBy Actor         `json:"uploaded_by"`
	Scope      Scope         `json:"scope"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ConflictKind classifies a detected conflict.
type ConflictKind string

const (
	ConflictExclusivity ConflictKind = "exclusivity_overlap"
	ConflictHoldback    ConflictKind = "holdback_violation"
	ConflictDuplicate   ConflictKind = "duplicate_grant"
)

// Severity ranks a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Conflict links two grants that cannot coexist.
type Conflict struct {
	ID          string       `json:"id"`
	Kind        ConflictKind `json:"kind"`
	Severity    Severity     `json:"severity"`
	Work        string       `json:"work"`
	Media       MediaType    `json:"media"`
	GrantID     string       `json:"grant_id"`
	OtherID     string       `json:"other_id"`
	Territories []string     `json:"territories"`
	Window      Window       `json:"window"`
	Detail      string       `json:"detail"`
	DetectedAt  time.Time    `json:"detected_at"`
}

// Extraction is the structured payload produced by an extractor.
type Extraction struct {
	Title    string        `json:"title"`
	Licensor string        `json:"licensor"`
	Licensee string        `json:"licensee"`
	SignedAt time.Time     `json:"signed_at,omitempty"`
	Grants   []RightsGrant `json:"grants"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Document is parsed upload content handed to the extractor.
type Document struct {
	Filename   string
	SourceType string
	Text       string
}

// Extractor turns contract text into structured rights data.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (Extraction, error)
}

// ExtractorFunc adapts a function to an Extractor.
type ExtractorFunc func(ctx context.Context, doc Document) (Extraction, error)

func (f ExtractorFunc) Extract(ctx context.Context, doc Document) (Extraction, error) {
	if f == nil {
		return Extraction{}, NewError(KindNotImpl, "extractor not configured", nil)
	}
	return f(ctx, doc)
}

// DocumentParser extracts plain text from an uploaded file.
type DocumentParser interface {
	Parse(ctx context.Context, filename string, content []byte) (Document, error)
}

// Actor identifies the requesting principal.
type Actor struct {
	ID      string
	Scope   Scope
	Roles   []string
	Details map[string]any
}

// Scope identifies tenant/workspace scope.
type Scope struct {
	TenantID    string
	WorkspaceID string
}

// IngestState captures pipeline progress states.
type IngestState string

const (
	StateQueued     IngestState = "queued"
	StateParsing    IngestState = "parsing"
	StateExtracting IngestState = "extracting"
	StatePersisting IngestState = "persisting"
	StateCompleted  IngestState = "completed"
	StateFailed     IngestState = "failed"
	StateCanceled   IngestState = "canceled"
	StateDeleted    IngestState = "deleted"
)

// IsTerminal reports whether the state accepts no further transitions.
func (s IngestState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCanceled, StateDeleted:
		return true
	}
	return false
}

// IngestCounts tracks extracted entity counts.
type IngestCounts struct {
	Grants    int64
	Conflicts int64
	Warnings  int64
}

// IngestRecord captures tracker state for an ingest run.
type IngestRecord struct {
	ID          string
	ContractID  string
	Filename    string
	State       IngestState
	RequestedBy Actor
	Scope       Scope
	Counts      IngestCounts
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// IngestDelta indicates progress changes.
type IngestDelta struct {
	Grants    int64
	Conflicts int64
	Warnings  int64
}

// IngestTracker tracks ingest progress.
type IngestTracker interface {
	Start(ctx context.Context, record IngestRecord) (string, error)
	Advance(ctx context.Context, id string, delta IngestDelta, meta map[string]any) error
	SetState(ctx context.Context, id string, state IngestState, meta map[string]any) error
	Fail(ctx context.Context, id string, err error, meta map[string]any) error
	Complete(ctx context.Context, id string, meta map[string]any) error
	Status(ctx context.Context, id string) (IngestRecord, error)
	List(ctx context.Context, filter IngestFilter) ([]IngestRecord, error)
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// IngestFilter filters tracker lists.
type IngestFilter struct {
	ContractID string
	State      IngestState
	Since      time.Time
	Until      time.Time
}

// ContractFilter filters contract listings.
type ContractFilter struct {
	Licensee string
	Work     string
	Media    MediaType
	Since    time.Time
}

// ConflictFilter filters conflict listings.
type ConflictFilter struct {
	Work     string
	Kind     ConflictKind
	Severity Severity
}

// ContractStore persists contracts, grants, and conflicts.
type ContractStore interface {
	SaveContract(ctx context.Context, contract Contract) error
	Contract(ctx context.Context, id string) (Contract, error)
	Contracts(ctx context.Context, filter ContractFilter) ([]Contract, error)
	DeleteContract(ctx context.Context, id string) error
	Grants(ctx context.Context, filter ContractFilter) ([]RightsGrant, error)
	ReplaceConflicts(ctx context.Context, conflicts []Conflict) error
	Conflicts(ctx context.Context, filter ConflictFilter) ([]Conflict, error)
}

// Guard enforces authorization.
type Guard interface {
	AuthorizeIngest(ctx context.Context, actor Actor, filename string) error
	AuthorizeRead(ctx context.Context, actor Actor, contractID string) error
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// ChangeEvent describes lifecycle events.
type ChangeEvent struct {
	Name       string
	IngestID   string
	ContractID string
	Actor      Actor
	Timestamp  time.Time
	Metadata   map[string]any
}

// ChangeEmitter emits lifecycle events.
type ChangeEmitter interface {
	Emit(ctx context.Context, evt ChangeEvent) error
}
