package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	job "github.com/goliatone/go-job"
	reportdelivery "github.com/goliatone/go-rights/adapters/delivery"
	"github.com/goliatone/go-rights/adapters/docparse"
	reportjob "github.com/goliatone/go-rights/adapters/job"
	"github.com/goliatone/go-rights/adapters/llm"
	reportpdf "github.com/goliatone/go-rights/adapters/pdf"
	reportsqlite "github.com/goliatone/go-rights/adapters/sqlite"
	storefs "github.com/goliatone/go-rights/adapters/store/fs"
	reporttemplate "github.com/goliatone/go-rights/adapters/template"
	"github.com/goliatone/go-rights/cmd/rightsd/config"
	"github.com/goliatone/go-rights/examples"
	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// App holds the application dependencies.
type App struct {
	Config         config.Config
	Logger         *SimpleLogger
	Auth           *authGate
	Rights         rights.Service
	Reports        report.Service
	Runner         *report.Runner
	ContractStore  rights.ContractStore
	IngestTracker  rights.IngestTracker
	ReportTracker  report.ReportTracker
	Store          *storefs.Store
	Scheduler      *reportjob.Scheduler
	Delivery       *reportdelivery.Service
	GenerateTask   *reportjob.GenerateTask
	IngestTask     *reportjob.IngestTask
	CancelRegistry *reportjob.CancelRegistry
	PDFEngine      *reportpdf.ChromiumEngine
	subscriptions  []dispatcher.Subscription
}

// NewApp creates and initializes the application.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := &SimpleLogger{prefix: "rightsd"}

	gate, err := newAuthGate(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth gate: %w", err)
	}

	if err := os.MkdirAll(cfg.Report.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	contractStore := rights.NewMemoryContractStore()
	ingestTracker := rights.NewMemoryIngestTracker()

	var completer llm.Completer
	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		completer = llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			Logger:      logger,
		})
	}

	pipeline := &rights.Pipeline{
		Parser:           docparse.Parser{MaxBytes: cfg.Ingest.MaxDocumentBytes},
		Store:            contractStore,
		Tracker:          ingestTracker,
		Logger:           logger,
		MaxDocumentBytes: cfg.Ingest.MaxDocumentBytes,
		Timeout:          cfg.Ingest.Timeout,
	}
	var storyWriter rights.StoryWriter
	if completer != nil {
		pipeline.Extractor = llm.Extractor{Client: completer, Logger: logger}
		storyWriter = llm.StoryRewriter{Client: completer, Logger: logger}
	} else {
		logger.Infof("no LLM configured, contract uploads will fail until RIGHTS_LLM_API_KEY is set")
	}

	rightsService := rights.NewService(rights.ServiceConfig{
		Pipeline:     pipeline,
		Store:        contractStore,
		Tracker:      ingestTracker,
		StoryWriter:  storyWriter,
		Logger:       logger,
		ExpiringDays: cfg.Ingest.ExpiringDays,
	})

	reportTracker := report.NewMemoryTracker()
	artifactStore := storefs.NewStore(cfg.Report.ArtifactDir)
	if cfg.Server.BaseURL != "" {
		artifactStore.BaseURL = cfg.Server.BaseURL + "/artifacts"
	}

	runner := report.NewRunner()
	runner.Tracker = reportTracker
	runner.Store = artifactStore
	runner.Logger = logger
	runner.Guard = &NoOpGuard{}

	if err := report.RegisterRightsDatasets(runner, contractStore); err != nil {
		return nil, fmt.Errorf("failed to register datasets: %w", err)
	}

	executor, err := reporttemplate.NewPongo2Executor(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compile report templates: %w", err)
	}
	htmlRenderer := reporttemplate.Renderer{Templates: executor}
	if err := runner.Renderers.Register(report.FormatHTML, htmlRenderer); err != nil {
		return nil, err
	}
	if err := runner.Renderers.Register(report.FormatSQLite, reportsqlite.Renderer{Enabled: true}); err != nil {
		return nil, err
	}

	var pdfEngine *reportpdf.ChromiumEngine
	if cfg.Report.PDFEnabled {
		pdfEngine = &reportpdf.ChromiumEngine{Headless: cfg.Report.PDFHeadless}
		if err := runner.Renderers.Register(report.FormatPDF, reportpdf.Renderer{
			HTMLRenderer: htmlRenderer,
			Engine:       pdfEngine,
		}); err != nil {
			return nil, err
		}
	}

	deliveryPolicy := report.DeliveryPolicy{Default: report.DeliverySync}
	if cfg.Report.EnableAsync && cfg.Report.MaxRows > 0 {
		deliveryPolicy.Thresholds.MaxRows = cfg.Report.MaxRows
	}
	runner.DeliveryPolicy = deliveryPolicy

	reportService := report.NewService(report.ServiceConfig{
		Runner:         runner,
		Tracker:        reportTracker,
		Store:          artifactStore,
		Guard:          &NoOpGuard{},
		DeliveryPolicy: deliveryPolicy,
	})

	notifier, err := setupReportReadyNotifier(ctx, logger, cfg.Notifications)
	if err != nil {
		return nil, fmt.Errorf("failed to set up notifications: %w", err)
	}
	if notifier != nil {
		reportService = newNotifyingService(reportService, artifactStore, notifier, cfg.Notifications, logger, cfg.Server.BaseURL)
	}

	cancelRegistry := reportjob.NewCancelRegistry()
	generateTask := reportjob.NewGenerateTask(reportjob.TaskConfig{
		CancelRegistry: cancelRegistry,
		Store:          artifactStore,
		Logger:         logger,
	})
	ingestTask := reportjob.NewIngestTask(reportjob.IngestTaskConfig{Logger: logger})

	var scheduler *reportjob.Scheduler
	if cfg.Report.EnableAsync {
		enqueuer := reportjob.EnqueuerFunc(func(ctx context.Context, msg *job.ExecutionMessage) error {
			go func() {
				const asyncReportTimeout = 10 * time.Minute
				execCtx, cancel := context.WithTimeout(context.Background(), asyncReportTimeout)
				defer cancel()

				if err := generateTask.Execute(execCtx, msg); err != nil {
					logger.Errorf("async report task failed: %v", err)
				}
			}()
			return nil
		})

		scheduler = reportjob.NewScheduler(reportjob.Config{
			Service:  reportService,
			Enqueuer: enqueuer,
			Tracker:  reportTracker,
			Logger:   logger,
		})
		reportService = schedulingService{Service: reportService, scheduler: scheduler}
	}

	deliveryService := reportdelivery.NewService(reportdelivery.Config{
		Service:     reportService,
		Store:       artifactStore,
		EmailSender: logEmailSender{logger: logger},
		Logger:      logger,
		LinkTTL:     notifyLinkTTL,
		Notifier:    notifier,
	})

	rightsSubs, err := examples.RegisterRightsHandlers(nil, rightsService)
	if err != nil {
		return nil, fmt.Errorf("failed to register rights handlers: %w", err)
	}
	reportSubs, err := examples.RegisterReportHandlers(nil, reportService)
	if err != nil {
		return nil, fmt.Errorf("failed to register report handlers: %w", err)
	}

	app := &App{
		Config:         cfg,
		Logger:         logger,
		Auth:           gate,
		Rights:         rightsService,
		Reports:        reportService,
		Runner:         runner,
		ContractStore:  contractStore,
		IngestTracker:  ingestTracker,
		ReportTracker:  reportTracker,
		Store:          artifactStore,
		Scheduler:      scheduler,
		Delivery:       deliveryService,
		GenerateTask:   generateTask,
		IngestTask:     ingestTask,
		CancelRegistry: cancelRegistry,
		PDFEngine:      pdfEngine,
		subscriptions:  append(rightsSubs, reportSubs...),
	}

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, contractStore, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Infof("seeded demo contracts")
	}

	return app, nil
}

// Close releases app resources.
func (a *App) Close() error {
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	if a.PDFEngine != nil {
		a.PDFEngine.Close()
	}
	return nil
}

// SimpleLogger is a basic logger implementation.
type SimpleLogger struct {
	prefix string
}

func (l *SimpleLogger) Debugf(format string, args ...any) {
	fmt.Printf("[DEBUG] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Infof(format string, args ...any) {
	fmt.Printf("[INFO] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Errorf(format string, args ...any) {
	fmt.Printf("[ERROR] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

// schedulingService routes async report requests through the go-job
// scheduler so queued records actually get generated.
type schedulingService struct {
	report.Service
	scheduler *reportjob.Scheduler
}

func (s schedulingService) RequestReport(ctx context.Context, actor report.Actor, req report.ReportRequest) (report.ReportRecord, error) {
	if s.scheduler != nil && req.Delivery == report.DeliveryAsync {
		return s.scheduler.RequestReport(ctx, actor, req)
	}
	return s.Service.RequestReport(ctx, actor, req)
}

// NoOpGuard allows all operations.
type NoOpGuard struct{}

func (g *NoOpGuard) AuthorizeReport(ctx context.Context, actor report.Actor, req report.ReportRequest, def report.ResolvedDefinition) error {
	return nil
}

func (g *NoOpGuard) AuthorizeDownload(ctx context.Context, actor report.Actor, reportID string) error {
	return nil
}
