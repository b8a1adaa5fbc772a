package reportapi

import (
	"context"
	"strings"

	"github.com/goliatone/go-rights/report"
)

// DatasetResolver resolves a dataset name for requests that omit it.
type DatasetResolver interface {
	ResolveDataset(ctx context.Context, resource string) (string, error)
}

// DatasetResolverFunc adapts a function to a DatasetResolver.
type DatasetResolverFunc func(ctx context.Context, resource string) (string, error)

// ResolveDataset resolves the dataset name.
func (f DatasetResolverFunc) ResolveDataset(ctx context.Context, resource string) (string, error) {
	if f == nil {
		return "", report.NewError(report.KindInternal, "dataset resolver is nil", nil)
	}
	return f(ctx, resource)
}

// NewDatasetResolver returns a resolver that maps resources to datasets.
func NewDatasetResolver(registry *report.DatasetRegistry) DatasetResolver {
	return DatasetResolverFunc(func(ctx context.Context, resource string) (string, error) {
		_ = ctx
		if registry == nil {
			return "", report.NewError(report.KindInternal, "dataset registry not configured", nil)
		}
		resource = strings.TrimSpace(resource)
		if resource == "" {
			return "", report.NewError(report.KindValidation, "resource is required", nil)
		}
		def, err := registry.ResolveByResource(resource)
		if err != nil {
			return "", err
		}
		return def.Name, nil
	})
}
