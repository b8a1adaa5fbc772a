package main

import (
	"context"
	"io"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	rightsformgen "github.com/goliatone/go-rights/adapters/formgen"
	reportjob "github.com/goliatone/go-rights/adapters/job"
	"github.com/goliatone/go-rights/rights"
	"github.com/goliatone/go-router"
)

// renderHome renders the dashboard page.
func (a *App) renderHome() router.HandlerFunc {
	return func(c router.Context) error {
		return c.Render("index", router.ViewContext{
			"title":         "GenAI Rights Dashboard",
			"datasets":      a.Runner.Datasets.Names(),
			"formats":       []string{"csv", "json", "ndjson", "xlsx", "html", "pdf", "sqlite"},
			"expiring_days": a.Config.Ingest.ExpiringDays,
			"logged_in":     a.Auth.ValidateSession(c.Cookies(sessionCookieName)),
		})
	}
}

// UploadContract handles POST /api/contracts/upload.
func (a *App) UploadContract(c router.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(400, errorBody("a contract file is required", "missing_file"))
	}
	f, err := header.Open()
	if err != nil {
		return c.JSON(400, errorBody("unable to read upload", "bad_upload"))
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, a.Config.Ingest.MaxDocumentBytes+1))
	if err != nil {
		return c.JSON(400, errorBody("unable to read upload", "bad_upload"))
	}
	if int64(len(content)) > a.Config.Ingest.MaxDocumentBytes {
		return c.JSON(400, errorBody("document too large", "document_too_large"))
	}

	req := rights.IngestRequest{
		Filename:       header.Filename,
		Content:        content,
		IdempotencyKey: c.Header("Idempotency-Key"),
	}

	if c.Query("async") == "true" {
		return a.enqueueIngest(c, req)
	}

	result, err := a.Rights.IngestContract(c.Context(), a.getActor(c), req)
	if err != nil {
		a.Logger.Errorf("ingest failed for %s: %v", header.Filename, err)
		return c.JSON(422, errorBody(err.Error(), "ingest_failed"))
	}

	return c.JSON(201, map[string]any{
		"ingest_id":   result.IngestID,
		"contract_id": result.ContractID,
		"contract":    result.Contract,
		"conflicts":   result.Conflicts,
		"warnings":    result.Warnings,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// enqueueIngest runs the ingest job in the background and returns 202.
func (a *App) enqueueIngest(c router.Context, req rights.IngestRequest) error {
	payload, err := reportjob.EncodeIngestPayload(reportjob.IngestPayload{
		Actor:   a.getActor(c),
		Request: req,
	})
	if err != nil {
		return c.JSON(400, errorBody("unable to encode ingest payload", "bad_payload"))
	}
	msg := &job.ExecutionMessage{Parameters: map[string]any{"payload": payload}}

	go func() {
		execCtx, cancel := context.WithTimeout(context.Background(), a.Config.Ingest.Timeout+time.Minute)
		defer cancel()
		if err := a.IngestTask.Execute(execCtx, msg); err != nil {
			a.Logger.Errorf("async ingest failed for %s: %v", req.Filename, err)
		}
	}()

	return c.JSON(202, map[string]any{
		"queued":   true,
		"filename": req.Filename,
	})
}

// Dashboard handles GET /api/dashboard.
func (a *App) Dashboard(c router.Context) error {
	snapshot, err := a.Rights.Dashboard(c.Context(), a.getActor(c))
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "dashboard_failed"))
	}
	return c.JSON(200, snapshot)
}

// ListContracts handles GET /api/contracts.
func (a *App) ListContracts(c router.Context) error {
	contracts, err := a.Rights.Contracts(c.Context(), a.getActor(c), contractFilterFromQuery(c))
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "contracts_failed"))
	}
	return c.JSON(200, map[string]any{"contracts": contracts})
}

// GetContract handles GET /api/contracts/:id.
func (a *App) GetContract(c router.Context) error {
	contract, err := a.Rights.Contract(c.Context(), a.getActor(c), c.Param("id"))
	if err != nil {
		return c.JSON(404, errorBody("contract not found", "not_found"))
	}
	return c.JSON(200, contract)
}

// DeleteContract handles DELETE /api/contracts/:id.
func (a *App) DeleteContract(c router.Context) error {
	if err := a.Rights.DeleteContract(c.Context(), a.getActor(c), c.Param("id")); err != nil {
		return c.JSON(404, errorBody("contract not found", "not_found"))
	}
	return c.NoContent(204)
}

// ListGrants handles GET /api/grants.
func (a *App) ListGrants(c router.Context) error {
	grants, err := a.Rights.Grants(c.Context(), a.getActor(c), contractFilterFromQuery(c))
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "grants_failed"))
	}
	return c.JSON(200, map[string]any{"grants": grants})
}

// ListConflicts handles GET /api/conflicts.
func (a *App) ListConflicts(c router.Context) error {
	filter := rights.ConflictFilter{
		Work:     c.Query("work"),
		Kind:     rights.ConflictKind(c.Query("kind")),
		Severity: rights.Severity(c.Query("severity")),
	}
	conflicts, err := a.Rights.Conflicts(c.Context(), a.getActor(c), filter)
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "conflicts_failed"))
	}
	return c.JSON(200, map[string]any{"conflicts": conflicts})
}

// ListStories handles GET /api/stories.
func (a *App) ListStories(c router.Context) error {
	stories, err := a.Rights.Stories(c.Context(), a.getActor(c))
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "stories_failed"))
	}
	return c.JSON(200, map[string]any{"stories": stories})
}

// IngestStatus handles GET /api/ingests/:id.
func (a *App) IngestStatus(c router.Context) error {
	record, err := a.Rights.Status(c.Context(), a.getActor(c), c.Param("id"))
	if err != nil {
		return c.JSON(404, errorBody("ingest not found", "not_found"))
	}
	return c.JSON(200, record)
}

// IngestHistory handles GET /api/ingests.
func (a *App) IngestHistory(c router.Context) error {
	filter := rights.IngestFilter{
		ContractID: c.Query("contract_id"),
		State:      rights.IngestState(c.Query("state")),
	}
	records, err := a.Rights.History(c.Context(), a.getActor(c), filter)
	if err != nil {
		return c.JSON(500, errorBody(err.Error(), "history_failed"))
	}
	return c.JSON(200, map[string]any{"ingests": records})
}

// ListDatasets handles GET /api/datasets.
func (a *App) ListDatasets(c router.Context) error {
	names := a.Runner.Datasets.Names()
	datasets := make([]map[string]any, 0, len(names))
	for _, name := range names {
		def, err := a.Runner.Datasets.ResolveByResource(name)
		if err != nil {
			continue
		}
		columns := make([]string, 0, len(def.Schema.Columns))
		for _, col := range def.Schema.Columns {
			columns = append(columns, col.Name)
		}
		datasets = append(datasets, map[string]any{
			"name":     def.Name,
			"resource": def.Resource,
			"columns":  columns,
		})
	}
	return c.JSON(200, map[string]any{"datasets": datasets})
}

// ReportUI handles GET /api/ui, the formgen widget contract.
func (a *App) ReportUI(c router.Context) error {
	return c.JSON(200, rightsformgen.DefaultUI("/admin/reports"))
}

// getActor resolves the acting user from forwarded auth headers.
func (a *App) getActor(c router.Context) rights.Actor {
	id := c.Header("X-Auth-User")
	if id == "" {
		id = "demo-user"
	}
	tenant := c.Header("X-Auth-Tenant")
	if tenant == "" {
		tenant = "demo-tenant"
	}
	var roles []string
	if raw := c.Header("X-Auth-Roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return rights.Actor{
		ID:    id,
		Roles: roles,
		Scope: rights.Scope{
			TenantID:    tenant,
			WorkspaceID: c.Header("X-Auth-Workspace"),
		},
	}
}

func contractFilterFromQuery(c router.Context) rights.ContractFilter {
	filter := rights.ContractFilter{
		Licensee: c.Query("licensee"),
		Work:     c.Query("work"),
		Media:    rights.MediaType(c.Query("media")),
	}
	if since := c.Query("since"); since != "" {
		if parsed, err := time.Parse("2006-01-02", since); err == nil {
			filter.Since = parsed
		}
	}
	return filter
}

func errorBody(message, code string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}
}
