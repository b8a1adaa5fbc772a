package command

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// IngestContract runs a contract upload through the ingest pipeline.
type IngestContract struct {
	Actor   rights.Actor
	Request rights.IngestRequest
	Result  *rights.IngestResult
}

func (IngestContract) Type() string { return "rights:ingest" }

func (msg IngestContract) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.Request.Filename == "" {
		return errors.New("filename is required", errors.CategoryValidation).
			WithTextCode("FILENAME_REQUIRED")
	}
	if len(msg.Request.Content) == 0 {
		return errors.New("document content is required", errors.CategoryValidation).
			WithTextCode("CONTENT_REQUIRED")
	}
	return nil
}

// DeleteContract removes a contract and reruns conflict detection.
type DeleteContract struct {
	Actor      rights.Actor
	ContractID string
}

func (DeleteContract) Type() string { return "rights:contract:delete" }

func (msg DeleteContract) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.ContractID == "" {
		return errors.New("contract ID is required", errors.CategoryValidation).
			WithTextCode("CONTRACT_ID_REQUIRED")
	}
	return nil
}

// RequestReport requests a sync or async report.
type RequestReport struct {
	Actor   report.Actor
	Request report.ReportRequest
	Result  *report.ReportRecord
}

func (RequestReport) Type() string { return "report:request" }

func (msg RequestReport) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.Request.Dataset == "" {
		return errors.New("dataset is required", errors.CategoryValidation).
			WithTextCode("DATASET_REQUIRED")
	}
	return nil
}

// CancelReport cancels an existing report.
type CancelReport struct {
	Actor    report.Actor
	ReportID string
}

func (CancelReport) Type() string { return "report:cancel" }

func (msg CancelReport) Validate() error {
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

// DeleteReport deletes a report and its artifacts.
type DeleteReport struct {
	Actor    report.Actor
	ReportID string
}

func (DeleteReport) Type() string { return "report:delete" }

func (msg DeleteReport) Validate() error {
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

// GenerateReport runs a report generation job.
type GenerateReport struct {
	Actor    report.Actor
	ReportID string
	Request  report.ReportRequest
	Result   *report.ReportResult
}

func (GenerateReport) Type() string { return "report:generate" }

func (msg GenerateReport) Validate() error {
	if msg.Actor.ID == "" {
		return errors.New("actor ID is required", errors.CategoryValidation).
			WithTextCode("ACTOR_REQUIRED")
	}
	if msg.ReportID == "" {
		return errors.New("report ID is required", errors.CategoryValidation).
			WithTextCode("REPORT_ID_REQUIRED")
	}
	if msg.Request.Dataset == "" {
		return errors.New("dataset is required", errors.CategoryValidation).
			WithTextCode("DATASET_REQUIRED")
	}
	return nil
}

// CleanupReports removes expired reports.
type CleanupReports struct {
	Now    time.Time
	Result *int
}

func (CleanupReports) Type() string { return "report:cleanup" }

func (CleanupReports) Validate() error { return nil }
