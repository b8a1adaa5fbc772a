package reportapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/report"
)

// DefaultMaxBufferBytes is the fallback buffer limit when streaming is unavailable.
const DefaultMaxBufferBytes int64 = 8 * 1024 * 1024

// Config configures the shared report API controller.
type Config struct {
	Service          report.Service
	Runner           *report.Runner
	Store            report.ArtifactStore
	Guard            report.Guard
	ActorProvider    report.ActorProvider
	DeliveryPolicy   report.DeliveryPolicy
	BasePath         string
	HistoryPath      string
	SignedURLTTL     time.Duration
	IdempotencyStore IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           report.Logger
	IDGenerator      func() string
	RequestDecoder   RequestDecoder
	MaxBufferBytes   int64
}

// Controller exposes report API handlers for multiple transports.
type Controller struct {
	service          report.Service
	runner           *report.Runner
	store            report.ArtifactStore
	guard            report.Guard
	actorProvider    report.ActorProvider
	deliveryPolicy   report.DeliveryPolicy
	basePath         string
	historyPath      string
	signedURLTTL     time.Duration
	idempotencyStore IdempotencyStore
	idempotencyTTL   time.Duration
	logger           report.Logger
	idGenerator      func() string
	requestDecoder   RequestDecoder
	maxBufferBytes   int64
}

// NewController creates a shared report API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = "/admin/reports"
	}
	historyPath := strings.TrimRight(cfg.HistoryPath, "/")
	if historyPath == "" {
		historyPath = basePath + "/history"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = report.NopLogger{}
	}
	decoder := cfg.RequestDecoder
	if decoder == nil {
		decoder = JSONRequestDecoder{}
	}
	maxBuffer := cfg.MaxBufferBytes
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferBytes
	}
	return &Controller{
		service:          cfg.Service,
		runner:           cfg.Runner,
		store:            cfg.Store,
		guard:            cfg.Guard,
		actorProvider:    cfg.ActorProvider,
		deliveryPolicy:   cfg.DeliveryPolicy,
		basePath:         basePath,
		historyPath:      historyPath,
		signedURLTTL:     cfg.SignedURLTTL,
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyTTL:   cfg.IdempotencyTTL,
		logger:           logger,
		idGenerator:      cfg.IDGenerator,
		requestDecoder:   decoder,
		maxBufferBytes:   maxBuffer,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// HistoryPath returns the configured history path.
func (c *Controller) HistoryPath() string {
	if c == nil {
		return ""
	}
	return c.historyPath
}

// Serve routes report endpoints using the shared controller.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, report.NewError(report.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, report.NewError(report.KindInternal, "request is nil", nil))
		return
	}
	if strings.TrimRight(req.Path(), "/") == c.historyPath {
		if req.Method() != http.MethodGet {
			res.SetHeader("Allow", "GET")
			res.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.handleList(req, res)
		return
	}
	if !strings.HasPrefix(req.Path(), c.basePath) {
		writeNotFound(res)
		return
	}

	pathSuffix := strings.TrimPrefix(req.Path(), c.basePath)
	pathSuffix = strings.Trim(pathSuffix, "/")
	parts := []string{}
	if pathSuffix != "" {
		parts = strings.Split(pathSuffix, "/")
	}

	switch req.Method() {
	case http.MethodPost:
		if len(parts) != 0 {
			writeNotFound(res)
			return
		}
		c.handlePost(req, res)
	case http.MethodGet:
		switch len(parts) {
		case 0:
			if hasReportQuery(req) {
				c.handleGet(req, res)
				return
			}
			c.handleList(req, res)
		case 1:
			c.handleStatus(req, res, parts[0])
		case 2:
			switch parts[1] {
			case "download":
				c.handleDownload(req, res, parts[0])
			case "preview":
				c.handlePreview(req, res, parts[0])
			default:
				writeNotFound(res)
			}
		default:
			writeNotFound(res)
		}
	case http.MethodDelete:
		if len(parts) != 1 {
			writeNotFound(res)
			return
		}
		c.handleDelete(req, res, parts[0])
	default:
		res.SetHeader("Allow", "GET,POST,DELETE")
		res.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Controller) handlePost(req Request, res Response) {
	if c.requestDecoder == nil {
		WriteError(res, report.NewError(report.KindInternal, "request decoder not configured", nil))
		return
	}
	decoded, err := c.requestDecoder.Decode(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	c.process(req, res, decoded)
}

// handleGet serves datagrid-style report requests from the querystring.
func (c *Controller) handleGet(req Request, res Response) {
	decoder := QueryRequestDecoder{}
	if c.runner != nil && c.runner.Datasets != nil {
		decoder.Resolver = NewDatasetResolver(c.runner.Datasets)
	}
	decoded, err := decoder.Decode(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	c.process(req, res, decoded)
}

func (c *Controller) process(req Request, res Response, decoded report.ReportRequest) {
	if key := req.Header("Idempotency-Key"); key != "" {
		decoded.IdempotencyKey = key
	}

	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	resolved, err := c.resolve(decoded)
	if err != nil {
		WriteError(res, err)
		return
	}
	delivery := report.SelectDelivery(resolved.Request, resolved.Definition, c.deliveryPolicyForRequest())

	if delivery == report.DeliveryAsync {
		c.handleAsync(req, res, actor, resolved)
		return
	}
	c.handleSync(req, res, actor, resolved)
}

func hasReportQuery(req Request) bool {
	for _, key := range []string{"dataset", "resource", "format"} {
		if strings.TrimSpace(req.Query(key)) != "" {
			return true
		}
	}
	return false
}

func (c *Controller) handleAsync(req Request, res Response, actor report.Actor, resolved report.ResolvedReport) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}

	idempotencyKey := resolved.Request.IdempotencyKey
	if idempotencyKey != "" && c.idempotencyStore != nil {
		signature := c.idempotencySignature(idempotencyKey, actor, resolved.Request)
		reportID, ok, err := c.idempotencyStore.Get(req.Context(), signature)
		if err != nil {
			WriteError(res, err)
			return
		}
		if ok {
			record, err := c.service.Status(req.Context(), actor, reportID)
			if err == nil && isReusableState(record.State) {
				writeJSON(res, http.StatusAccepted, AsyncResponse{
					ID:          record.ID,
					StatusURL:   c.statusURL(record.ID),
					DownloadURL: c.downloadURL(record.ID),
				})
				return
			}
		}
	}

	asyncReq := resolved.Request
	asyncReq.Delivery = report.DeliveryAsync
	asyncReq.Output = nil
	record, err := c.service.RequestReport(req.Context(), actor, asyncReq)
	if err != nil {
		WriteError(res, err)
		return
	}

	if idempotencyKey != "" && c.idempotencyStore != nil {
		signature := c.idempotencySignature(idempotencyKey, actor, asyncReq)
		ttl := c.idempotencyTTL
		if ttl == 0 {
			ttl = 24 * time.Hour
		}
		if err := c.idempotencyStore.Set(req.Context(), signature, record.ID, ttl); err != nil {
			c.logger.Errorf("idempotency store set failed: %v", err)
		}
	}

	writeJSON(res, http.StatusAccepted, AsyncResponse{
		ID:          record.ID,
		StatusURL:   c.statusURL(record.ID),
		DownloadURL: c.downloadURL(record.ID),
	})
}

func (c *Controller) handleSync(req Request, res Response, actor report.Actor, resolved report.ResolvedReport) {
	if c.runner == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report runner not configured", nil))
		return
	}
	guard := c.guard
	if guard == nil {
		guard = c.runner.Guard
	}
	if guard != nil {
		if err := guard.AuthorizeReport(req.Context(), actor, resolved.Request, resolved.Definition); err != nil {
			WriteError(res, report.NewError(report.KindAuthz, "report not authorized", err))
			return
		}
	}

	reportID := c.nextID()
	filename := sanitizeFilename(resolved.Filename, resolved.Request.Format)
	setDownloadHeaders(res, reportID, filename, contentTypeForFormat(resolved.Request.Format))

	runReq := resolved.Request
	runReq.Delivery = report.DeliverySync

	run := *c.runner
	run.IDGenerator = func() string { return reportID }
	run.ActorProvider = staticActorProvider{actor: actor}

	if writer, ok := res.Writer(); ok {
		tracker := &trackingWriter{writer: writer}
		runReq.Output = tracker

		_, err := run.Run(req.Context(), runReq)
		if err != nil {
			if !tracker.Written() {
				clearDownloadHeaders(res)
				WriteError(res, err)
				return
			}
			c.logger.Errorf("sync report failed after write: %v", err)
		}
		return
	}

	buffer := newLimitedBuffer(c.maxBufferBytes)
	runReq.Output = buffer

	_, err := run.Run(req.Context(), runReq)
	if err != nil {
		if !buffer.Written() {
			clearDownloadHeaders(res)
			WriteError(res, err)
			return
		}
		c.logger.Errorf("sync report failed after buffer write: %v", err)
	}

	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buffer.Bytes()); err != nil {
		c.logger.Errorf("sync report buffer write failed: %v", err)
	}
}

func (c *Controller) handleList(req Request, res Response) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}
	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	filter, err := parseFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	records, err := c.service.History(req.Context(), actor, filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, records)
}

func (c *Controller) handleStatus(req Request, res Response, reportID string) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}
	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	record, err := c.service.Status(req.Context(), actor, reportID)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, record)
}

func (c *Controller) handleDownload(req Request, res Response, reportID string) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}
	if c.store == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "artifact store not configured", nil))
		return
	}
	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	info, err := c.service.DownloadMetadata(req.Context(), actor, reportID)
	if err != nil {
		WriteError(res, err)
		return
	}

	ttl := c.signedURLTTL
	if ttl > 0 && !info.Artifact.Meta.ExpiresAt.IsZero() {
		remaining := time.Until(info.Artifact.Meta.ExpiresAt)
		if remaining <= 0 {
			WriteError(res, report.NewError(report.KindValidation, "artifact expired", nil))
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		url, err := c.store.SignedURL(req.Context(), info.Artifact.Key, ttl)
		if err == nil {
			_ = res.Redirect(url, http.StatusFound)
			return
		}
		if report.KindFromError(err) != report.KindNotImpl {
			WriteError(res, err)
			return
		}
	}

	reader, meta, err := c.store.Open(req.Context(), info.Artifact.Key)
	if err != nil {
		WriteError(res, err)
		return
	}
	defer reader.Close()

	filename := meta.Filename
	if filename == "" {
		filename = path.Base(info.Artifact.Key)
	}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	format := formatFromPath(filename)
	filename = sanitizeFilename(filename, format)
	setDownloadHeaders(res, info.ReportID, filename, contentType)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", fmt.Sprintf("%d", meta.Size))
	}

	if writer, ok := res.Writer(); ok {
		res.WriteHeader(http.StatusOK)
		if _, err := io.Copy(writer, reader); err != nil {
			c.logger.Errorf("download copy failed: %v", err)
		}
		return
	}

	buffer := newLimitedBuffer(c.maxBufferBytes)
	if _, err := io.Copy(buffer, reader); err != nil {
		WriteError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buffer.Bytes()); err != nil {
		c.logger.Errorf("download buffer write failed: %v", err)
	}
}

func (c *Controller) handlePreview(req Request, res Response, reportID string) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}
	if c.store == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "artifact store not configured", nil))
		return
	}
	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	info, err := c.service.DownloadMetadata(req.Context(), actor, reportID)
	if err != nil {
		WriteError(res, err)
		return
	}

	reader, meta, err := c.store.Open(req.Context(), info.Artifact.Key)
	if err != nil {
		WriteError(res, err)
		return
	}
	defer reader.Close()

	if meta.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(meta.ContentType)
		if err != nil {
			mediaType = meta.ContentType
		}
		if mediaType != "text/html" {
			WriteError(res, report.NewError(report.KindValidation, "preview only supports HTML artifacts", nil))
			return
		}
	}

	filename := meta.Filename
	if filename == "" {
		filename = "report-preview.html"
	}
	filename = sanitizeFilename(filename, report.FormatHTML)

	setPreviewHeaders(res, reportID, filename)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", fmt.Sprintf("%d", meta.Size))
	}

	if writer, ok := res.Writer(); ok {
		res.WriteHeader(http.StatusOK)
		if _, err := io.Copy(writer, reader); err != nil {
			c.logger.Errorf("preview copy failed: %v", err)
		}
		return
	}

	buffer := newLimitedBuffer(c.maxBufferBytes)
	if _, err := io.Copy(buffer, reader); err != nil {
		WriteError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buffer.Bytes()); err != nil {
		c.logger.Errorf("preview buffer write failed: %v", err)
	}
}

func (c *Controller) handleDelete(req Request, res Response, reportID string) {
	if c.service == nil {
		WriteError(res, report.NewError(report.KindNotImpl, "report service not configured", nil))
		return
	}
	actor, err := c.actorFromRequest(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	record, err := c.service.Status(req.Context(), actor, reportID)
	if err != nil {
		WriteError(res, err)
		return
	}

	switch record.State {
	case report.StateQueued, report.StateRunning:
		if _, err := c.service.CancelReport(req.Context(), actor, reportID); err != nil {
			WriteError(res, err)
			return
		}
	default:
		if err := c.service.DeleteReport(req.Context(), actor, reportID); err != nil {
			WriteError(res, err)
			return
		}
	}

	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) actorFromRequest(req Request) (report.Actor, error) {
	if c.actorProvider == nil {
		return report.Actor{}, nil
	}
	actor, err := c.actorProvider.FromContext(req.Context())
	if err != nil {
		return report.Actor{}, report.NewError(report.KindAuthz, "actor resolution failed", err)
	}
	return actor, nil
}

func (c *Controller) resolve(req report.ReportRequest) (report.ResolvedReport, error) {
	if c.runner == nil || c.runner.Datasets == nil {
		return report.ResolvedReport{}, report.NewError(report.KindInternal, "dataset registry not configured", nil)
	}
	if req.Dataset == "" && strings.TrimSpace(req.Resource) != "" {
		def, err := c.runner.Datasets.ResolveByResource(strings.TrimSpace(req.Resource))
		if err != nil {
			return report.ResolvedReport{}, report.NewError(report.KindValidation, fmt.Sprintf("unknown resource %q", req.Resource), err)
		}
		req.Dataset = def.Name
	}
	now := time.Now()
	if c.runner.Now != nil {
		now = c.runner.Now()
	}
	def, err := c.runner.Datasets.Resolve(req)
	if err != nil {
		return report.ResolvedReport{}, err
	}
	return report.ResolveReport(req, def, now)
}

func (c *Controller) statusURL(reportID string) string {
	return path.Join(c.basePath, reportID)
}

func (c *Controller) downloadURL(reportID string) string {
	return path.Join(c.basePath, reportID, "download")
}

func (c *Controller) nextID() string {
	if c.idGenerator == nil {
		c.idGenerator = defaultIDGenerator()
	}
	return c.idGenerator()
}

func (c *Controller) idempotencySignature(key string, actor report.Actor, req report.ReportRequest) string {
	return buildIdempotencyKey(key, actor, req)
}

func (c *Controller) deliveryPolicyForRequest() report.DeliveryPolicy {
	if !isZeroDeliveryPolicy(c.deliveryPolicy) {
		return c.deliveryPolicy
	}
	if c.runner != nil {
		return c.runner.DeliveryPolicy
	}
	return report.DeliveryPolicy{}
}

func writeNotFound(res Response) {
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusNotFound)
	_, _ = res.Write([]byte("404 page not found\n"))
}

// WriteError writes a JSON error response with a mapped status code.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := report.AsGoError(err)
	status := statusForError(ge)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	writeJSON(res, status, payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.TextCode == "not_implemented" {
		return http.StatusNotImplemented
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryAuthz:
		return http.StatusForbidden
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryExternal:
		return http.StatusBadGateway
	case errorslib.CategoryOperation:
		if err.TextCode == "canceled" {
			return http.StatusConflict
		}
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseFilter(req Request) (report.ProgressFilter, error) {
	filter := report.ProgressFilter{
		Dataset: req.Query("dataset"),
		State:   report.ReportState(req.Query("state")),
	}
	if since := req.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return report.ProgressFilter{}, report.NewError(report.KindValidation, "invalid since timestamp", err)
		}
		filter.Since = ts
	}
	if until := req.Query("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return report.ProgressFilter{}, report.NewError(report.KindValidation, "invalid until timestamp", err)
		}
		filter.Until = ts
	}
	return filter, nil
}

func isReusableState(state report.ReportState) bool {
	switch state {
	case report.StateQueued, report.StateRunning, report.StatePublishing, report.StateCompleted:
		return true
	default:
		return false
	}
}

func sanitizeFilename(filename string, format report.Format) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		if format != "" {
			name = fmt.Sprintf("report.%s", format)
		} else {
			name = "report"
		}
	}
	return name
}

func setDownloadHeaders(res Response, reportID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if reportID != "" {
		res.SetHeader("X-Report-Id", reportID)
	}
}

func setPreviewHeaders(res Response, reportID, filename string) {
	res.SetHeader("Content-Type", "text/html; charset=utf-8")
	res.SetHeader("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	if reportID != "" {
		res.SetHeader("X-Report-Id", reportID)
	}
}

func clearDownloadHeaders(res Response) {
	res.DelHeader("Content-Disposition")
	res.DelHeader("Content-Type")
	res.DelHeader("X-Report-Id")
}

func contentTypeForFormat(format report.Format) string {
	switch format {
	case report.FormatCSV:
		return "text/csv"
	case report.FormatJSON:
		return "application/json"
	case report.FormatNDJSON:
		return "application/x-ndjson"
	case report.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case report.FormatHTML:
		return "text/html"
	case report.FormatPDF:
		return "application/pdf"
	case report.FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

func formatFromPath(name string) report.Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "csv":
		return report.FormatCSV
	case "json":
		return report.FormatJSON
	case "ndjson":
		return report.FormatNDJSON
	case "xlsx":
		return report.FormatXLSX
	case "html":
		return report.FormatHTML
	case "pdf":
		return report.FormatPDF
	case "sqlite", "db":
		return report.FormatSQLite
	default:
		return ""
	}
}

func isZeroDeliveryPolicy(policy report.DeliveryPolicy) bool {
	return policy.Default == "" &&
		policy.Thresholds.MaxRows == 0 &&
		policy.Thresholds.MaxBytes == 0 &&
		policy.Thresholds.MaxDuration == 0
}

type trackingWriter struct {
	writer  io.Writer
	written bool
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	w.written = true
	return w.writer.Write(p)
}

func (w *trackingWriter) Written() bool {
	return w.written
}

type staticActorProvider struct {
	actor report.Actor
}

func (p staticActorProvider) FromContext(ctx context.Context) (report.Actor, error) {
	_ = ctx
	return p.actor, nil
}

func defaultIDGenerator() func() string {
	var counter uint64
	return func() string {
		id := atomic.AddUint64(&counter, 1)
		return fmt.Sprintf("rpt-%d", id)
	}
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
	written bool
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxBufferBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, report.NewError(report.KindInternal, "buffer limit exceeded", nil)
	}
	b.written = true
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *limitedBuffer) Written() bool {
	return b.written
}

func (b *limitedBuffer) Len() int {
	return b.buf.Len()
}
