// Package reportrepo adapts repositories to report row sources.
package reportrepo

import (
	"context"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// Spec captures repository query inputs.
type Spec struct {
	Request   report.ReportRequest
	Columns   []report.Column
	Actor     report.Actor
	Scope     report.Scope
	Contracts rights.ContractFilter
	Conflicts rights.ConflictFilter
}

// Repository streams rows for a repository-backed report.
type Repository interface {
	Stream(ctx context.Context, spec Spec) (report.RowIterator, error)
}

// Source adapts a repository to a RowSource.
type Source struct {
	Repo Repository
}

// NewSource creates a repository-backed RowSource.
func NewSource(repo Repository) *Source {
	return &Source{Repo: repo}
}

// Open delegates to the repository stream method.
func (s *Source) Open(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
	if s == nil || s.Repo == nil {
		return nil, report.NewError(report.KindValidation, "repository is required", nil)
	}
	return s.Repo.Stream(ctx, Spec{
		Request:   spec.Request,
		Columns:   spec.Columns,
		Actor:     spec.Actor,
		Scope:     spec.Actor.Scope,
		Contracts: spec.Request.Contracts,
		Conflicts: spec.Request.Conflicts,
	})
}
