package report

import (
	"fmt"
	"sync"
)

// DatasetRegistry stores report definitions.
type DatasetRegistry struct {
	mu   sync.RWMutex
	defs map[string]ReportDefinition
}

// NewDatasetRegistry creates an empty registry.
func NewDatasetRegistry() *DatasetRegistry {
	return &DatasetRegistry{defs: make(map[string]ReportDefinition)}
}

// Register adds a definition.
func (r *DatasetRegistry) Register(def ReportDefinition) error {
	if def.Name == "" {
		return NewError(KindValidation, "dataset name is required", nil)
	}
	if def.RowSourceKey == "" {
		return NewError(KindValidation, "row source key is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return NewError(KindValidation, fmt.Sprintf("dataset %q already registered", def.Name), nil)
	}
	r.defs[def.Name] = def
	return nil
}

// Resolve returns a resolved definition for the request.
func (r *DatasetRegistry) Resolve(req ReportRequest) (ResolvedDefinition, error) {
	r.mu.RLock()
	def, ok := r.defs[req.Dataset]
	r.mu.RUnlock()
	if !ok {
		return ResolvedDefinition{}, NewError(KindNotFound, fmt.Sprintf("dataset %q not found", req.Dataset), nil)
	}

	resolved := ResolvedDefinition{ReportDefinition: def}
	if len(resolved.AllowedFormats) == 0 {
		resolved.AllowedFormats = []Format{FormatCSV, FormatJSON, FormatNDJSON, FormatXLSX}
	}
	return resolved, nil
}

// ResolveByResource finds a definition by its resource name.
func (r *DatasetRegistry) ResolveByResource(resource string) (ReportDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, def := range r.defs {
		if def.Resource == resource {
			return def, nil
		}
	}
	return ReportDefinition{}, NewError(KindNotFound, fmt.Sprintf("resource %q not found", resource), nil)
}

// Names returns the registered dataset names.
func (r *DatasetRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}

// RowSourceFactory creates a RowSource for a request.
type RowSourceFactory func(req ReportRequest, def ResolvedDefinition) (RowSource, error)

// RowSourceRegistry stores row source factories.
type RowSourceRegistry struct {
	mu        sync.RWMutex
	factories map[string]RowSourceFactory
}

// NewRowSourceRegistry creates an empty registry.
func NewRowSourceRegistry() *RowSourceRegistry {
	return &RowSourceRegistry{factories: make(map[string]RowSourceFactory)}
}

// Register adds a row source factory.
func (r *RowSourceRegistry) Register(key string, factory RowSourceFactory) error {
	if key == "" {
		return NewError(KindValidation, "row source key is required", nil)
	}
	if factory == nil {
		return NewError(KindValidation, "row source factory is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		return NewError(KindValidation, fmt.Sprintf("row source %q already registered", key), nil)
	}
	r.factories[key] = factory
	return nil
}

// Resolve finds a row source factory by key.
func (r *RowSourceRegistry) Resolve(key string) (RowSourceFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[key]
	return factory, ok
}

// RendererRegistry stores renderers by format.
type RendererRegistry struct {
	mu        sync.RWMutex
	renderers map[Format]Renderer
}

// NewRendererRegistry creates a registry.
func NewRendererRegistry() *RendererRegistry {
	return &RendererRegistry{renderers: make(map[Format]Renderer)}
}

// Register adds a renderer for a format.
func (r *RendererRegistry) Register(format Format, renderer Renderer) error {
	if format == "" {
		return NewError(KindValidation, "renderer format is required", nil)
	}
	if renderer == nil {
		return NewError(KindValidation, "renderer is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.renderers[format]; exists {
		return NewError(KindValidation, fmt.Sprintf("renderer for %q already registered", format), nil)
	}
	r.renderers[format] = renderer
	return nil
}

// Resolve returns the renderer for the format.
func (r *RendererRegistry) Resolve(format Format) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[format]
	return renderer, ok
}
