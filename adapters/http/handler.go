package rightshttp

import (
	"net/http"

	"github.com/goliatone/go-rights/adapters/reportapi"
	"github.com/goliatone/go-rights/report"
)

// Config configures the HTTP adapter.
type Config = reportapi.Config

// Handler exposes report HTTP endpoints.
type Handler struct {
	controller *reportapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: reportapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.basePath(), h)
		r.Handle(h.basePath()+"/", h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.basePath(), h.ServeHTTP)
		r.HandleFunc(h.basePath()+"/", h.ServeHTTP)
	}
}

// ServeHTTP routes report endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		reportapi.WriteError(httpResponse{w: w}, report.NewError(report.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w, req: r})
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return "/admin/reports"
	}
	path := h.controller.BasePath()
	if path == "" {
		return "/admin/reports"
	}
	return path
}
