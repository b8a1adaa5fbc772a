package reporttemplate

import (
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-rights/rights"
)

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data map[string]any) error
}

// Pongo2Executor compiles and executes pongo2 templates by name.
type Pongo2Executor struct {
	mu        sync.RWMutex
	templates map[string]*pongo2.Template
}

// NewPongo2Executor compiles the provided template sources. The bundled
// report template is always registered under "report" unless overridden.
func NewPongo2Executor(sources map[string]string) (*Pongo2Executor, error) {
	e := &Pongo2Executor{templates: make(map[string]*pongo2.Template)}
	if err := e.Add(DefaultTemplateName, defaultReportTemplate); err != nil {
		return nil, err
	}
	for name, source := range sources {
		if err := e.Add(name, source); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Add compiles a template source and registers it under name.
func (e *Pongo2Executor) Add(name, source string) error {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return rights.NewError(rights.KindValidation, "unable to compile template "+name, err)
	}
	e.mu.Lock()
	e.templates[name] = tpl
	e.mu.Unlock()
	return nil
}

// ExecuteTemplate renders a named template into the writer.
func (e *Pongo2Executor) ExecuteTemplate(w io.Writer, name string, data map[string]any) error {
	e.mu.RLock()
	tpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return rights.NewError(rights.KindNotFound, "template "+name+" not registered", nil)
	}
	return tpl.ExecuteWriter(pongo2.Context(data), w)
}
