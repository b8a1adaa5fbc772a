package rightsrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-rights/adapters/reportapi"
	rightshttp "github.com/goliatone/go-rights/adapters/http"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-router"
)

type stubSource struct {
	rows []report.Row
}

func (s *stubSource) Open(ctx context.Context, spec report.RowSourceSpec) (report.RowIterator, error) {
	_ = ctx
	_ = spec
	return &stubIterator{rows: s.rows}, nil
}

type stubIterator struct {
	rows []report.Row
	idx  int
}

func (it *stubIterator) Next(ctx context.Context) (report.Row, error) {
	_ = ctx
	if it.idx >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.idx]
	it.idx++
	return row, nil
}

func (it *stubIterator) Close() error { return nil }

func newTestRunner(t *testing.T) *report.Runner {
	t.Helper()
	runner := report.NewRunner()
	if err := runner.Datasets.Register(report.ReportDefinition{
		Name:         "grants",
		RowSourceKey: "stub",
		Schema: report.Schema{Columns: []report.Column{
			{Name: "id"},
			{Name: "work"},
		}},
	}); err != nil {
		t.Fatalf("register dataset: %v", err)
	}
	if err := runner.RowSources.Register("stub", func(req report.ReportRequest, def report.ResolvedDefinition) (report.RowSource, error) {
		_ = req
		_ = def
		return &stubSource{rows: []report.Row{{"1", "Falcon Run"}}}, nil
	}); err != nil {
		t.Fatalf("register source: %v", err)
	}
	return runner
}

func newTestService(runner *report.Runner, id string) (report.Service, report.ReportTracker, report.ArtifactStore) {
	tracker := report.NewMemoryTracker()
	store := report.NewMemoryStore()
	svc := report.NewService(report.ServiceConfig{
		Runner:         runner,
		Tracker:        tracker,
		Store:          store,
		DeliveryPolicy: report.DeliveryPolicy{Default: report.DeliveryAsync},
		IDGenerator: func() string {
			return id
		},
	})
	return svc, tracker, store
}

func seedPreviewRecord(t *testing.T, tracker report.ReportTracker, store report.ArtifactStore, reportID string, state report.ReportState, contentType string) {
	t.Helper()
	ctx := context.Background()
	ref := report.ArtifactRef{}
	if state == report.StateCompleted {
		var err error
		ref, err = store.Put(ctx, "reports/"+reportID+".html", bytes.NewBufferString("<html><body>preview</body></html>"), report.ArtifactMeta{
			Filename:    "report-preview.html",
			ContentType: contentType,
		})
		if err != nil {
			t.Fatalf("store put: %v", err)
		}
	}
	if _, err := tracker.Start(ctx, report.ReportRecord{
		ID:       reportID,
		Dataset:  "grants",
		Format:   report.FormatHTML,
		State:    state,
		Artifact: ref,
	}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}
}

func assertErrorParity(t *testing.T, rec *httptest.ResponseRecorder, routerRec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != routerRec.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerRec.Code)
	}
	if rec.Header().Get("Content-Type") != routerRec.Header().Get("Content-Type") {
		t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerRec.Header().Get("Content-Type"))
	}
	var httpPayload reportapi.ErrorResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&httpPayload); err != nil {
		t.Fatalf("decode http response: %v", err)
	}
	var routerPayload reportapi.ErrorResponse
	if err := json.NewDecoder(bytes.NewReader(routerRec.Body.Bytes())).Decode(&routerPayload); err != nil {
		t.Fatalf("decode router response: %v", err)
	}
	if httpPayload != routerPayload {
		t.Fatalf("payload mismatch: http=%+v router=%+v", httpPayload, routerPayload)
	}
}

func TestTransportParity_SyncReport(t *testing.T) {
	runner := newTestRunner(t)
	actor := report.Actor{ID: "user-1"}

	cfg := reportapi.Config{
		Runner:        runner,
		ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		IDGenerator: func() string {
			return "rpt-sync"
		},
	}

	httpHandler := rightshttp.NewHandler(cfg)
	routerHandler := NewHandler(cfg)

	body := `{"dataset":"grants","format":"csv","delivery":"sync"}`

	req := httptest.NewRequest(http.MethodPost, "/admin/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)

	routerCtx := newTestHTTPContext(http.MethodPost, "/admin/reports", []byte(body), nil, nil)
	if err := routerHandler.Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	if rec.Code != routerCtx.recorder.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerCtx.recorder.Code)
	}
	if rec.Header().Get("Content-Type") != routerCtx.recorder.Header().Get("Content-Type") {
		t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerCtx.recorder.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Content-Disposition") != routerCtx.recorder.Header().Get("Content-Disposition") {
		t.Fatalf("content-disposition mismatch: http=%q router=%q", rec.Header().Get("Content-Disposition"), routerCtx.recorder.Header().Get("Content-Disposition"))
	}
	if rec.Header().Get("X-Report-Id") != routerCtx.recorder.Header().Get("X-Report-Id") {
		t.Fatalf("report id mismatch: http=%q router=%q", rec.Header().Get("X-Report-Id"), routerCtx.recorder.Header().Get("X-Report-Id"))
	}
	if rec.Body.String() != routerCtx.recorder.Body.String() {
		t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), routerCtx.recorder.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "id,work") {
		t.Fatalf("expected csv content, got %q", rec.Body.String())
	}
	if routerCtx.sendCalled {
		t.Fatalf("expected streaming response, got buffered send")
	}
}

func TestTransportParity_AsyncReport(t *testing.T) {
	runnerHTTP := newTestRunner(t)
	runnerRouter := newTestRunner(t)
	actor := report.Actor{ID: "user-1"}

	svcHTTP, _, storeHTTP := newTestService(runnerHTTP, "rpt-async")
	svcRouter, _, storeRouter := newTestService(runnerRouter, "rpt-async")

	cfgHTTP := reportapi.Config{
		Service:       svcHTTP,
		Runner:        runnerHTTP,
		Store:         storeHTTP,
		ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
	}
	cfgRouter := reportapi.Config{
		Service:       svcRouter,
		Runner:        runnerRouter,
		Store:         storeRouter,
		ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
	}

	httpHandler := rightshttp.NewHandler(cfgHTTP)
	routerHandler := NewHandler(cfgRouter)

	body := `{"dataset":"grants","format":"csv","delivery":"async"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)

	routerCtx := newTestHTTPContext(http.MethodPost, "/admin/reports", []byte(body), nil, nil)
	if err := routerHandler.Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	var httpPayload reportapi.AsyncResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&httpPayload); err != nil {
		t.Fatalf("decode http response: %v", err)
	}

	var routerPayload reportapi.AsyncResponse
	if err := json.NewDecoder(bytes.NewReader(routerCtx.recorder.Body.Bytes())).Decode(&routerPayload); err != nil {
		t.Fatalf("decode router response: %v", err)
	}

	if rec.Code != routerCtx.recorder.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerCtx.recorder.Code)
	}
	if httpPayload != routerPayload {
		t.Fatalf("payload mismatch: http=%+v router=%+v", httpPayload, routerPayload)
	}
	if rec.Header().Get("Content-Type") != routerCtx.recorder.Header().Get("Content-Type") {
		t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerCtx.recorder.Header().Get("Content-Type"))
	}
}

func TestTransportParity_Download(t *testing.T) {
	actor := report.Actor{ID: "user-1"}

	serviceHTTP, trackerHTTP, storeHTTP := newTestService(report.NewRunner(), "rpt-download")
	serviceRouter, trackerRouter, storeRouter := newTestService(report.NewRunner(), "rpt-download")

	refHTTP, err := storeHTTP.Put(context.Background(), "reports/rpt-download.csv", bytes.NewBufferString("id,work\n1,Falcon Run\n"), report.ArtifactMeta{
		Filename:    "grants.csv",
		ContentType: "text/csv",
	})
	if err != nil {
		t.Fatalf("store put: %v", err)
	}
	if _, err := trackerHTTP.Start(context.Background(), report.ReportRecord{
		ID:       "rpt-download",
		Dataset:  "grants",
		Format:   report.FormatCSV,
		State:    report.StateCompleted,
		Artifact: refHTTP,
	}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	refRouter, err := storeRouter.Put(context.Background(), "reports/rpt-download.csv", bytes.NewBufferString("id,work\n1,Falcon Run\n"), report.ArtifactMeta{
		Filename:    "grants.csv",
		ContentType: "text/csv",
	})
	if err != nil {
		t.Fatalf("store put: %v", err)
	}
	if _, err := trackerRouter.Start(context.Background(), report.ReportRecord{
		ID:       "rpt-download",
		Dataset:  "grants",
		Format:   report.FormatCSV,
		State:    report.StateCompleted,
		Artifact: refRouter,
	}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	cfgHTTP := reportapi.Config{
		Service:       serviceHTTP,
		Store:         storeHTTP,
		ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
	}
	cfgRouter := reportapi.Config{
		Service:       serviceRouter,
		Store:         storeRouter,
		ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
	}

	httpHandler := rightshttp.NewHandler(cfgHTTP)
	routerHandler := NewHandler(cfgRouter)

	req := httptest.NewRequest(http.MethodGet, "/admin/reports/rpt-download/download", nil)
	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)

	routerCtx := newTestHTTPContext(http.MethodGet, "/admin/reports/rpt-download/download", nil, nil, nil)
	if err := routerHandler.Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	if rec.Code != routerCtx.recorder.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerCtx.recorder.Code)
	}
	if rec.Header().Get("Content-Type") != routerCtx.recorder.Header().Get("Content-Type") {
		t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerCtx.recorder.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Content-Disposition") != routerCtx.recorder.Header().Get("Content-Disposition") {
		t.Fatalf("content-disposition mismatch: http=%q router=%q", rec.Header().Get("Content-Disposition"), routerCtx.recorder.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != routerCtx.recorder.Body.String() {
		t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), routerCtx.recorder.Body.String())
	}
}

func TestTransportParity_Preview(t *testing.T) {
	actor := report.Actor{ID: "user-1"}

	t.Run("ok", func(t *testing.T) {
		serviceHTTP, trackerHTTP, storeHTTP := newTestService(report.NewRunner(), "rpt-preview")
		serviceRouter, trackerRouter, storeRouter := newTestService(report.NewRunner(), "rpt-preview")

		seedPreviewRecord(t, trackerHTTP, storeHTTP, "rpt-preview", report.StateCompleted, "text/html")
		seedPreviewRecord(t, trackerRouter, storeRouter, "rpt-preview", report.StateCompleted, "text/html")

		cfgHTTP := reportapi.Config{
			Service:       serviceHTTP,
			Store:         storeHTTP,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}
		cfgRouter := reportapi.Config{
			Service:       serviceRouter,
			Store:         storeRouter,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}

		httpHandler := rightshttp.NewHandler(cfgHTTP)
		routerHandler := NewHandler(cfgRouter)

		req := httptest.NewRequest(http.MethodGet, "/admin/reports/rpt-preview/preview", nil)
		rec := httptest.NewRecorder()
		httpHandler.ServeHTTP(rec, req)

		routerCtx := newTestHTTPContext(http.MethodGet, "/admin/reports/rpt-preview/preview", nil, nil, nil)
		if err := routerHandler.Handle(routerCtx); err != nil {
			t.Fatalf("router handle: %v", err)
		}

		if rec.Code != routerCtx.recorder.Code {
			t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerCtx.recorder.Code)
		}
		if rec.Header().Get("Content-Type") != routerCtx.recorder.Header().Get("Content-Type") {
			t.Fatalf("content-type mismatch: http=%q router=%q", rec.Header().Get("Content-Type"), routerCtx.recorder.Header().Get("Content-Type"))
		}
		if rec.Header().Get("Content-Disposition") != routerCtx.recorder.Header().Get("Content-Disposition") {
			t.Fatalf("content-disposition mismatch: http=%q router=%q", rec.Header().Get("Content-Disposition"), routerCtx.recorder.Header().Get("Content-Disposition"))
		}
		if rec.Body.String() != routerCtx.recorder.Body.String() {
			t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), routerCtx.recorder.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "<html") {
			t.Fatalf("expected html content, got %q", rec.Body.String())
		}
	})

	t.Run("non-html", func(t *testing.T) {
		serviceHTTP, trackerHTTP, storeHTTP := newTestService(report.NewRunner(), "rpt-preview")
		serviceRouter, trackerRouter, storeRouter := newTestService(report.NewRunner(), "rpt-preview")

		seedPreviewRecord(t, trackerHTTP, storeHTTP, "rpt-preview", report.StateCompleted, "text/csv")
		seedPreviewRecord(t, trackerRouter, storeRouter, "rpt-preview", report.StateCompleted, "text/csv")

		cfgHTTP := reportapi.Config{
			Service:       serviceHTTP,
			Store:         storeHTTP,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}
		cfgRouter := reportapi.Config{
			Service:       serviceRouter,
			Store:         storeRouter,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}

		httpHandler := rightshttp.NewHandler(cfgHTTP)
		routerHandler := NewHandler(cfgRouter)

		req := httptest.NewRequest(http.MethodGet, "/admin/reports/rpt-preview/preview", nil)
		rec := httptest.NewRecorder()
		httpHandler.ServeHTTP(rec, req)

		routerCtx := newTestHTTPContext(http.MethodGet, "/admin/reports/rpt-preview/preview", nil, nil, nil)
		if err := routerHandler.Handle(routerCtx); err != nil {
			t.Fatalf("router handle: %v", err)
		}

		assertErrorParity(t, rec, routerCtx.recorder)
	})

	t.Run("not-completed", func(t *testing.T) {
		serviceHTTP, trackerHTTP, storeHTTP := newTestService(report.NewRunner(), "rpt-preview")
		serviceRouter, trackerRouter, storeRouter := newTestService(report.NewRunner(), "rpt-preview")

		seedPreviewRecord(t, trackerHTTP, storeHTTP, "rpt-preview", report.StateRunning, "text/html")
		seedPreviewRecord(t, trackerRouter, storeRouter, "rpt-preview", report.StateRunning, "text/html")

		cfgHTTP := reportapi.Config{
			Service:       serviceHTTP,
			Store:         storeHTTP,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}
		cfgRouter := reportapi.Config{
			Service:       serviceRouter,
			Store:         storeRouter,
			ActorProvider: rightshttp.StaticActorProvider{Actor: actor},
		}

		httpHandler := rightshttp.NewHandler(cfgHTTP)
		routerHandler := NewHandler(cfgRouter)

		req := httptest.NewRequest(http.MethodGet, "/admin/reports/rpt-preview/preview", nil)
		rec := httptest.NewRecorder()
		httpHandler.ServeHTTP(rec, req)

		routerCtx := newTestHTTPContext(http.MethodGet, "/admin/reports/rpt-preview/preview", nil, nil, nil)
		if err := routerHandler.Handle(routerCtx); err != nil {
			t.Fatalf("router handle: %v", err)
		}

		assertErrorParity(t, rec, routerCtx.recorder)
	})
}

func TestRouterBufferedFallback(t *testing.T) {
	runner := newTestRunner(t)
	actor := report.Actor{ID: "user-1"}

	cfg := reportapi.Config{
		Runner:         runner,
		ActorProvider:  rightshttp.StaticActorProvider{Actor: actor},
		MaxBufferBytes: 1024,
		IDGenerator: func() string {
			return "rpt-buffer"
		},
	}

	handler := NewHandler(cfg)
	body := `{"dataset":"grants","format":"csv","delivery":"sync"}`
	ctx := newTestContext(http.MethodPost, "/admin/reports", []byte(body), nil, nil)

	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	if ctx.recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.recorder.Code)
	}
	if !ctx.sendCalled {
		t.Fatalf("expected buffered send when HTTPContext is unavailable")
	}
	if !strings.Contains(ctx.recorder.Body.String(), "id,work") {
		t.Fatalf("expected csv content, got %q", ctx.recorder.Body.String())
	}
}

type testContext struct {
	method        string
	path          string
	body          []byte
	query         map[string]string
	headers       map[string]string
	params        map[string]string
	locals        map[any]any
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
	status        int
	sendCalled    bool
}

func newTestContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testContext {
	if headers == nil {
		headers = make(map[string]string)
	}
	if query == nil {
		query = make(map[string]string)
	}
	return &testContext{
		method:   method,
		path:     path,
		body:     body,
		query:    query,
		headers:  headers,
		params:   make(map[string]string),
		locals:   make(map[any]any),
		ctx:      context.Background(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Bind(v any) error {
	if len(c.body) == 0 {
		return nil
	}
	return json.Unmarshal(c.body, v)
}

func (c *testContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *testContext) SetContext(ctx context.Context) {
	c.ctx = ctx
}

func (c *testContext) Next() error { return nil }

func (c *testContext) RouteName() string { return "" }

func (c *testContext) RouteParams() map[string]string { return c.params }

func (c *testContext) Method() string { return c.method }

func (c *testContext) Path() string { return c.path }

func (c *testContext) Param(name string, defaultValue ...string) string {
	if val, ok := c.params[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) ParamsInt(key string, defaultValue int) int {
	val := c.Param(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.query[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) QueryValues(name string) []string {
	if val, ok := c.query[name]; ok {
		return []string{val}
	}
	return nil
}

func (c *testContext) QueryInt(name string, defaultValue int) int {
	val := c.Query(name)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Queries() map[string]string { return c.query }

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *testContext) LocalsMerge(key any, value map[string]any) map[string]any {
	merged, _ := c.locals[key].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range value {
		merged[k] = v
	}
	c.locals[key] = merged
	return merged
}

func (c *testContext) Render(name string, bind any, layouts ...string) error {
	return nil
}

func (c *testContext) Cookie(cookie *router.Cookie) {}

func (c *testContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) CookieParser(out any) error { return nil }

func (c *testContext) Redirect(location string, status ...int) error {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	c.SetHeader("Location", location)
	c.writeHeader(code)
	return nil
}

func (c *testContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return nil
}

func (c *testContext) RedirectBack(fallback string, status ...int) error {
	return nil
}

func (c *testContext) Header(name string) string {
	return c.headers[name]
}

func (c *testContext) Referer() string { return "" }

func (c *testContext) OriginalURL() string { return c.path }

func (c *testContext) FormFile(key string) (*multipart.FileHeader, error) {
	return nil, nil
}

func (c *testContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) IP() string { return "127.0.0.1" }

func (c *testContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *testContext) Send(body []byte) error {
	c.sendCalled = true
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) SendString(body string) error {
	return c.Send([]byte(body))
}

func (c *testContext) SendStatus(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) SendStream(r io.Reader) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *testContext) NoContent(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) Set(key string, value any) {
	c.locals[key] = value
}

func (c *testContext) Get(key string, def any) any {
	if val, ok := c.locals[key]; ok {
		return val
	}
	return def
}

func (c *testContext) GetString(key string, def string) string {
	if val, ok := c.locals[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return def
}

func (c *testContext) GetInt(key string, def int) int {
	if val, ok := c.locals[key]; ok {
		if num, ok := val.(int); ok {
			return num
		}
	}
	return def
}

func (c *testContext) GetBool(key string, def bool) bool {
	if val, ok := c.locals[key]; ok {
		if flag, ok := val.(bool); ok {
			return flag
		}
	}
	return def
}

func (c *testContext) writeHeader(code int) {
	if c.statusWritten {
		c.status = code
		return
	}
	c.statusWritten = true
	c.status = code
	c.recorder.WriteHeader(code)
}

type testHTTPContext struct {
	*testContext
	req *http.Request
}

func newTestHTTPContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testHTTPContext {
	base := newTestContext(method, path, body, headers, query)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
		base.headers[key] = value
	}
	base.ctx = req.Context()
	return &testHTTPContext{testContext: base, req: req}
}

func (c *testHTTPContext) Request() *http.Request { return c.req }

func (c *testHTTPContext) Response() http.ResponseWriter { return c.recorder }

var _ router.Context = (*testContext)(nil)
var _ router.Context = (*testHTTPContext)(nil)
var _ router.HTTPContext = (*testHTTPContext)(nil)
