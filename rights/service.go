package rights

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service coordinates ingest, catalog queries, and dashboard views.
type Service interface {
	IngestContract(ctx context.Context, actor Actor, req IngestRequest) (IngestResult, error)
	Contract(ctx context.Context, actor Actor, id string) (Contract, error)
	Contracts(ctx context.Context, actor Actor, filter ContractFilter) ([]Contract, error)
	Grants(ctx context.Context, actor Actor, filter ContractFilter) ([]RightsGrant, error)
	Conflicts(ctx context.Context, actor Actor, filter ConflictFilter) ([]Conflict, error)
	Dashboard(ctx context.Context, actor Actor) (KPISnapshot, error)
	Stories(ctx context.Context, actor Actor) ([]Story, error)
	DeleteContract(ctx context.Context, actor Actor, id string) error
	Status(ctx context.Context, actor Actor, ingestID string) (IngestRecord, error)
	History(ctx context.Context, actor Actor, filter IngestFilter) ([]IngestRecord, error)
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
}

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	Pipeline     *Pipeline
	Store        ContractStore
	Tracker      IngestTracker
	Guard        Guard
	StoryWriter  StoryWriter
	Logger       Logger
	ExpiringDays int
	Now          func() time.Time
	IDGenerator  func() string
}

type service struct {
	pipeline     *Pipeline
	store        ContractStore
	tracker      IngestTracker
	guard        Guard
	storyWriter  StoryWriter
	logger       Logger
	expiringDays int
	now          func() time.Time
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) Service {
	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = &Pipeline{}
	}

	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	if pipeline.Now == nil {
		pipeline.Now = nowFn
	}
	if cfg.IDGenerator != nil && pipeline.IDGenerator == nil {
		pipeline.IDGenerator = cfg.IDGenerator
	}
	if cfg.Store != nil && pipeline.Store == nil {
		pipeline.Store = cfg.Store
	}
	if cfg.Tracker != nil && pipeline.Tracker == nil {
		pipeline.Tracker = cfg.Tracker
	}
	if cfg.Guard != nil && pipeline.Guard == nil {
		pipeline.Guard = cfg.Guard
	}
	if cfg.Logger != nil && pipeline.Logger == nil {
		pipeline.Logger = cfg.Logger
	}

	store := cfg.Store
	if store == nil {
		store = pipeline.Store
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = pipeline.Tracker
	}
	guard := cfg.Guard
	if guard == nil {
		guard = pipeline.Guard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	return &service{
		pipeline:     pipeline,
		store:        store,
		tracker:      tracker,
		guard:        guard,
		storyWriter:  cfg.StoryWriter,
		logger:       logger,
		expiringDays: cfg.ExpiringDays,
		now:          nowFn,
	}
}

// IngestContract runs the ingest pipeline synchronously.
func (s *service) IngestContract(ctx context.Context, actor Actor, req IngestRequest) (IngestResult, error) {
	if s == nil {
		return IngestResult{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	result, err := s.pipeline.Run(ctx, actor, req)
	if err != nil {
		return result, AsGoError(err)
	}
	return result, nil
}

// Contract returns a single contract.
func (s *service) Contract(ctx context.Context, actor Actor, id string) (Contract, error) {
	if s == nil {
		return Contract{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if id == "" {
		return Contract{}, AsGoError(NewError(KindValidation, "contract ID is required", nil))
	}
	if s.store == nil {
		return Contract{}, AsGoError(NewError(KindNotImpl, "contract store not configured", nil))
	}
	if err := s.authorizeRead(ctx, actor, id); err != nil {
		return Contract{}, err
	}

	contract, err := s.store.Contract(ctx, id)
	if err != nil {
		return Contract{}, AsGoError(err)
	}
	if !scopeMatches(actor.Scope, contract.Scope) {
		return Contract{}, AsGoError(NewError(KindNotFound, "contract not found in scope", nil))
	}
	return contract, nil
}

// Contracts lists contracts visible to the actor.
func (s *service) Contracts(ctx context.Context, actor Actor, filter ContractFilter) ([]Contract, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.store == nil {
		return nil, AsGoError(NewError(KindNotImpl, "contract store not configured", nil))
	}

	contracts, err := s.store.Contracts(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	result := make([]Contract, 0, len(contracts))
	for _, c := range contracts {
		if !scopeMatches(actor.Scope, c.Scope) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Grants lists grants matching the filter.
func (s *service) Grants(ctx context.Context, actor Actor, filter ContractFilter) ([]RightsGrant, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.store == nil {
		return nil, AsGoError(NewError(KindNotImpl, "contract store not configured", nil))
	}
	_ = actor

	grants, err := s.store.Grants(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	return grants, nil
}

// Conflicts lists detected conflicts matching the filter.
func (s *service) Conflicts(ctx context.Context, actor Actor, filter ConflictFilter) ([]Conflict, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.store == nil {
		return nil, AsGoError(NewError(KindNotImpl, "contract store not configured", nil))
	}
	_ = actor

	conflicts, err := s.store.Conflicts(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	return conflicts, nil
}

// Dashboard builds the KPI snapshot for the current catalog.
func (s *service) Dashboard(ctx context.Context, actor Actor) (KPISnapshot, error) {
	if s == nil {
		return KPISnapshot{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	contracts, err := s.Contracts(ctx, actor, ContractFilter{})
	if err != nil {
		return KPISnapshot{}, err
	}
	conflicts, err := s.Conflicts(ctx, actor, ConflictFilter{})
	if err != nil {
		return KPISnapshot{}, err
	}
	return BuildKPIs(contracts, conflicts, s.now(), s.expiringDays), nil
}

// Stories generates user stories for the current catalog.
func (s *service) Stories(ctx context.Context, actor Actor) ([]Story, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	contracts, err := s.Contracts(ctx, actor, ContractFilter{})
	if err != nil {
		return nil, err
	}
	conflicts, err := s.Conflicts(ctx, actor, ConflictFilter{})
	if err != nil {
		return nil, err
	}

	stories := GenerateStories(contracts, conflicts, s.now())
	if s.storyWriter != nil {
		rewritten, err := s.storyWriter.Rewrite(ctx, stories)
		if err != nil {
			s.logger.Errorf("story rewrite failed, using generated stories: %v", err)
			return stories, nil
		}
		stories = rewritten
	}
	return stories, nil
}

// DeleteContract removes a contract and recomputes conflicts.
func (s *service) DeleteContract(ctx context.Context, actor Actor, id string) error {
	if s == nil {
		return AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if id == "" {
		return AsGoError(NewError(KindValidation, "contract ID is required", nil))
	}
	if s.store == nil {
		return AsGoError(NewError(KindNotImpl, "contract store not configured", nil))
	}
	if err := s.authorizeRead(ctx, actor, id); err != nil {
		return err
	}

	if err := s.store.DeleteContract(ctx, id); err != nil {
		return AsGoError(err)
	}

	grants, err := s.store.Grants(ctx, ContractFilter{})
	if err != nil {
		return AsGoError(err)
	}
	if err := s.store.ReplaceConflicts(ctx, DetectConflicts(grants, s.now())); err != nil {
		return AsGoError(err)
	}

	if s.tracker != nil {
		records, err := s.tracker.List(ctx, IngestFilter{ContractID: id})
		if err == nil {
			for _, record := range records {
				_ = s.tracker.SetState(ctx, record.ID, StateDeleted, nil)
			}
		}
	}
	return nil
}

// Status returns a single ingest record.
func (s *service) Status(ctx context.Context, actor Actor, ingestID string) (IngestRecord, error) {
	if s == nil {
		return IngestRecord{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if ingestID == "" {
		return IngestRecord{}, AsGoError(NewError(KindValidation, "ingest ID is required", nil))
	}
	if s.tracker == nil {
		return IngestRecord{}, AsGoError(NewError(KindNotImpl, "ingest tracker not configured", nil))
	}

	record, err := s.tracker.Status(ctx, ingestID)
	if err != nil {
		return IngestRecord{}, AsGoError(err)
	}
	if !scopeMatches(actor.Scope, record.Scope) {
		return IngestRecord{}, AsGoError(NewError(KindNotFound, "ingest not found in scope", nil))
	}
	return record, nil
}

// History returns ingest records matching the filter.
func (s *service) History(ctx context.Context, actor Actor, filter IngestFilter) ([]IngestRecord, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.tracker == nil {
		return nil, AsGoError(NewError(KindNotImpl, "ingest tracker not configured", nil))
	}

	records, err := s.tracker.List(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	result := make([]IngestRecord, 0, len(records))
	for _, record := range records {
		if !scopeMatches(actor.Scope, record.Scope) {
			continue
		}
		result = append(result, record)
	}
	return result, nil
}

// Cleanup prunes terminal ingest records last touched before olderThan.
func (s *service) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	if s == nil {
		return 0, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.tracker == nil {
		return 0, AsGoError(NewError(KindNotImpl, "ingest tracker not configured", nil))
	}

	removed, err := s.tracker.Prune(ctx, olderThan)
	if err != nil {
		return 0, AsGoError(err)
	}
	if removed > 0 && s.logger != nil {
		s.logger.Debugf("pruned %d ingest records", removed)
	}
	return removed, nil
}

func (s *service) authorizeRead(ctx context.Context, actor Actor, contractID string) error {
	if s.guard == nil {
		return nil
	}
	if err := s.guard.AuthorizeRead(ctx, actor, contractID); err != nil {
		return AsGoError(NewError(KindAuthz, "read not authorized", err))
	}
	return nil
}

func scopeMatches(actor Scope, record Scope) bool {
	if actor.TenantID != "" && actor.TenantID != record.TenantID {
		return false
	}
	if actor.WorkspaceID != "" && actor.WorkspaceID != record.WorkspaceID {
		return false
	}
	return true
}

func defaultIDGenerator() string {
	return "ctr-" + uuid.NewString()
}
