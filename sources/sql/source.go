// Package reportsql provides a named-query row source for report datasets.
package reportsql

import (
	"context"
	"fmt"

	"github.com/goliatone/go-rights/report"
)

// QuerySpec describes a named query execution.
type QuerySpec struct {
	Name    string
	Query   string
	Params  any
	Actor   report.Actor
	Scope   report.Scope
	Columns []report.Column
}

// Executor runs a named query and returns a row iterator.
type Executor interface {
	Query(ctx context.Context, spec QuerySpec) (report.RowIterator, error)
}

// Source executes a named query with validated params.
type Source struct {
	Registry  *Registry
	Executor  Executor
	QueryName string
}

// NewSource creates a named query row source.
func NewSource(reg *Registry, exec Executor, name string) *Source {
	return &Source{Registry: reg, Executor: exec, QueryName: name}
}

// Open validates params and executes the named query.
func (s *Source) Open(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
	if s == nil || s.Registry == nil {
		return nil, report.NewError(report.KindValidation, "query registry is required", nil)
	}
	if s.Executor == nil {
		return nil, report.NewError(report.KindValidation, "query executor is required", nil)
	}
	if s.QueryName == "" {
		return nil, report.NewError(report.KindValidation, "query name is required", nil)
	}

	def, ok := s.Registry.Resolve(s.QueryName)
	if !ok {
		return nil, report.NewError(report.KindNotFound, fmt.Sprintf("query %q not registered", s.QueryName), nil)
	}

	var params any
	if def.Params != nil {
		built, err := def.Params(spec)
		if err != nil {
			return nil, err
		}
		params = built
	}

	params, err := validateParams(def, params)
	if err != nil {
		return nil, err
	}

	if def.ScopeInjector != nil {
		params, err = def.ScopeInjector(spec.Actor.Scope, params)
		if err != nil {
			return nil, err
		}
	} else if injector, ok := params.(interface {
		WithScope(scope report.Scope) (any, error)
	}); ok {
		params, err = injector.WithScope(spec.Actor.Scope)
		if err != nil {
			return nil, err
		}
	}

	return s.Executor.Query(ctx, QuerySpec{
		Name:    def.Name,
		Query:   def.Query,
		Params:  params,
		Actor:   spec.Actor,
		Scope:   spec.Actor.Scope,
		Columns: spec.Columns,
	})
}

func validateParams(def Definition, params any) (any, error) {
	if def.Validate != nil {
		if err := def.Validate(params); err != nil {
			return nil, err
		}
		return params, nil
	}
	if validator, ok := params.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return nil, err
		}
	}
	return params, nil
}
