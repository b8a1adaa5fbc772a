package query

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// Dashboard requests the KPI snapshot.
type Dashboard struct {
	Actor rights.Actor
}

func (Dashboard) Type() string { return "rights:dashboard" }

func (msg Dashboard) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// ContractList requests contracts matching a filter.
type ContractList struct {
	Actor  rights.Actor
	Filter rights.ContractFilter
}

func (ContractList) Type() string { return "rights:contracts" }

func (msg ContractList) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// GrantList requests grants matching a filter.
type GrantList struct {
	Actor  rights.Actor
	Filter rights.ContractFilter
}

func (GrantList) Type() string { return "rights:grants" }

func (msg GrantList) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// ConflictList requests detected conflicts matching a filter.
type ConflictList struct {
	Actor  rights.Actor
	Filter rights.ConflictFilter
}

func (ConflictList) Type() string { return "rights:conflicts" }

func (msg ConflictList) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// StoryList requests generated user stories.
type StoryList struct {
	Actor rights.Actor
}

func (StoryList) Type() string { return "rights:stories" }

func (msg StoryList) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// IngestStatus requests an ingest status record.
type IngestStatus struct {
	Actor    rights.Actor
	IngestID string
}

func (IngestStatus) Type() string { return "rights:ingest:status" }

func (msg IngestStatus) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.IngestID == "" {
		return errors.New("ingest ID is required", errors.CategoryValidation).
			WithTextCode("INGEST_ID_REQUIRED")
	}
	return nil
}

// IngestHistory requests ingest history.
type IngestHistory struct {
	Actor  rights.Actor
	Filter rights.IngestFilter
}

func (IngestHistory) Type() string { return "rights:ingest:history" }

func (msg IngestHistory) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// ReportStatus requests a report status record.
type ReportStatus struct {
	Actor    report.Actor
	ReportID string
}

func (ReportStatus) Type() string { return "report:status" }

func (msg ReportStatus) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.ReportID == "" {
		return errors.New("report ID is required", errors.CategoryValidation).
			WithTextCode("REPORT_ID_REQUIRED")
	}
	return nil
}

// ReportHistory requests report history.
type ReportHistory struct {
	Actor  report.Actor
	Filter report.ProgressFilter
}

func (ReportHistory) Type() string { return "report:history" }

func (msg ReportHistory) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	return nil
}

// DownloadMetadata requests download metadata.
type DownloadMetadata struct {
	Actor    report.Actor
	ReportID string
}

func (DownloadMetadata) Type() string { return "report:download" }

func (msg DownloadMetadata) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.ReportID == "" {
		return errors.New("report ID is required", errors.CategoryValidation).
			WithTextCode("REPORT_ID_REQUIRED")
	}
	return nil
}
