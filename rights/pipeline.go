package rights

import (
	"context"
	"fmt"
	"time"
)

// IngestRequest describes a single contract ingest.
type IngestRequest struct {
	Filename       string
	Content        []byte
	IdempotencyKey string
	Metadata       map[string]any
}

// IngestResult summarizes a completed ingest run.
type IngestResult struct {
	IngestID   string
	ContractID string
	Contract   Contract
	Conflicts  []Conflict
	Warnings   []string
	Duration   time.Duration
}

// Pipeline drives a contract through parse, extract, normalize,
// persist, and conflict detection. Fields are dependencies; zero-value
// seams fall back to no-ops where that is safe.
type Pipeline struct {
	Parser    DocumentParser
	Extractor Extractor
	Store     ContractStore
	Tracker   IngestTracker
	Guard     Guard
	Emitter   ChangeEmitter
	Logger    Logger

	MaxDocumentBytes int64
	Timeout          time.Duration

	Now         func() time.Time
	IDGenerator func() string
}

// Run executes the full ingest pipeline for one document.
func (p *Pipeline) Run(ctx context.Context, actor Actor, req IngestRequest) (IngestResult, error) {
	if p == nil {
		return IngestResult{}, NewError(KindInternal, "pipeline is nil", nil)
	}
	if p.Parser == nil {
		return IngestResult{}, NewError(KindNotImpl, "document parser not configured", nil)
	}
	if p.Extractor == nil {
		return IngestResult{}, NewError(KindNotImpl, "extractor not configured", nil)
	}
	if p.Store == nil {
		return IngestResult{}, NewError(KindNotImpl, "contract store not configured", nil)
	}
	if req.Filename == "" {
		return IngestResult{}, NewError(KindValidation, "filename is required", nil)
	}
	if len(req.Content) == 0 {
		return IngestResult{}, NewError(KindValidation, "document content is empty", nil)
	}
	if p.MaxDocumentBytes > 0 && int64(len(req.Content)) > p.MaxDocumentBytes {
		return IngestResult{}, NewError(KindValidation,
			fmt.Sprintf("document exceeds %d bytes", p.MaxDocumentBytes), nil)
	}

	if p.Guard != nil {
		if err := p.Guard.AuthorizeIngest(ctx, actor, req.Filename); err != nil {
			return IngestResult{}, NewError(KindAuthz, "ingest not authorized", err)
		}
	}

	now := p.nowFn()
	start := now()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	ingestID, completed, err := p.startRecord(ctx, actor, req, start)
	if err != nil {
		return IngestResult{}, err
	}
	if completed != nil {
		p.logf("ingest %s already completed, replaying result", ingestID)
		return p.replayResult(ctx, *completed), nil
	}

	result, err := p.run(ctx, actor, req, ingestID, now)
	if err != nil {
		p.fail(ctx, ingestID, err)
		return IngestResult{IngestID: ingestID}, err
	}
	result.IngestID = ingestID
	result.Duration = now().Sub(start)

	p.emit(ctx, ChangeEvent{
		Name:       "contract.ingested",
		IngestID:   ingestID,
		ContractID: result.ContractID,
		Actor:      actor,
		Timestamp:  now(),
		Metadata:   req.Metadata,
	})
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, actor Actor, req IngestRequest, ingestID string, now func() time.Time) (IngestResult, error) {
	p.setState(ctx, ingestID, StateParsing, nil)
	doc, err := p.Parser.Parse(ctx, req.Filename, req.Content)
	if err != nil {
		return IngestResult{}, err
	}
	if doc.Text == "" {
		return IngestResult{}, NewError(KindValidation,
			fmt.Sprintf("no text extracted from %q", req.Filename), nil)
	}

	p.setState(ctx, ingestID, StateExtracting, nil)
	extraction, err := p.Extractor.Extract(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return IngestResult{}, NewError(KindTimeout, "extraction timed out", err)
		}
		return IngestResult{}, err
	}
	if err := NormalizeExtraction(&extraction); err != nil {
		return IngestResult{}, err
	}

	p.setState(ctx, ingestID, StatePersisting, nil)
	contract := p.buildContract(actor, req, doc, extraction, now())
	if err := p.Store.SaveContract(ctx, contract); err != nil {
		return IngestResult{}, err
	}

	all, err := p.Store.Grants(ctx, ContractFilter{})
	if err != nil {
		return IngestResult{}, err
	}
	conflicts := DetectConflicts(all, now())
	if err := p.Store.ReplaceConflicts(ctx, conflicts); err != nil {
		return IngestResult{}, err
	}

	p.advance(ctx, ingestID, IngestDelta{
		Grants:    int64(len(contract.Grants)),
		Conflicts: int64(len(conflicts)),
		Warnings:  int64(len(extraction.Warnings)),
	})
	p.complete(ctx, ingestID, contract.ID)

	p.logf("ingest %s completed: contract=%s grants=%d conflicts=%d",
		ingestID, contract.ID, len(contract.Grants), len(conflicts))

	return IngestResult{
		ContractID: contract.ID,
		Contract:   contract,
		Conflicts:  conflicts,
		Warnings:   extraction.Warnings,
	}, nil
}

func (p *Pipeline) buildContract(actor Actor, req IngestRequest, doc Document, ex Extraction, now time.Time) Contract {
	id := p.nextID()
	title := ex.Title
	if title == "" {
		title = req.Filename
	}
	grants := make([]RightsGrant, len(ex.Grants))
	copy(grants, ex.Grants)
	for i := range grants {
		if grants[i].ID == "" {
			grants[i].ID = fmt.Sprintf("%s/g%d", id, i+1)
		}
		grants[i].ContractID = id
	}
	return Contract{
		ID:         id,
		Title:      title,
		Licensor:   ex.Licensor,
		Licensee:   ex.Licensee,
		Filename:   req.Filename,
		SourceType: doc.SourceType,
		SignedAt:   ex.SignedAt,
		Grants:     grants,
		UploadedBy: actor,
		Scope:      actor.Scope,
		CreatedAt:  now,
	}
}

// startRecord creates (or reuses, for idempotent retries) the tracker
// record for this ingest. A non-nil second return carries the record of
// an already-completed duplicate; the caller replays its result instead
// of running the pipeline again.
func (p *Pipeline) startRecord(ctx context.Context, actor Actor, req IngestRequest, start time.Time) (string, *IngestRecord, error) {
	if p.Tracker == nil {
		return p.nextID(), nil, nil
	}
	if req.IdempotencyKey != "" {
		if existing, err := p.Tracker.Status(ctx, req.IdempotencyKey); err == nil {
			if existing.State == StateCompleted {
				return existing.ID, &existing, nil
			}
			return existing.ID, nil, nil
		}
	}
	id, err := p.Tracker.Start(ctx, IngestRecord{
		ID:          req.IdempotencyKey,
		Filename:    req.Filename,
		State:       StateQueued,
		RequestedBy: actor,
		Scope:       actor.Scope,
		CreatedAt:   start,
	})
	if err != nil {
		return "", nil, err
	}
	return id, nil, nil
}

// replayResult rebuilds the ingest result for a completed duplicate.
func (p *Pipeline) replayResult(ctx context.Context, record IngestRecord) IngestResult {
	result := IngestResult{
		IngestID:   record.ID,
		ContractID: record.ContractID,
	}
	if p.Store != nil && record.ContractID != "" {
		if contract, err := p.Store.Contract(ctx, record.ContractID); err == nil {
			result.Contract = contract
		}
	}
	return result
}

func (p *Pipeline) setState(ctx context.Context, id string, state IngestState, meta map[string]any) {
	if p.Tracker == nil {
		return
	}
	_ = p.Tracker.SetState(ctx, id, state, meta)
}

func (p *Pipeline) advance(ctx context.Context, id string, delta IngestDelta) {
	if p.Tracker == nil {
		return
	}
	_ = p.Tracker.Advance(ctx, id, delta, nil)
}

func (p *Pipeline) complete(ctx context.Context, id, contractID string) {
	if p.Tracker == nil {
		return
	}
	_ = p.Tracker.Complete(ctx, id, map[string]any{"contract_id": contractID})
}

func (p *Pipeline) fail(ctx context.Context, id string, err error) {
	if p.Tracker == nil {
		return
	}
	_ = p.Tracker.Fail(ctx, id, err, map[string]any{"kind": string(KindFromError(err))})
}

func (p *Pipeline) emit(ctx context.Context, evt ChangeEvent) {
	if p.Emitter == nil {
		return
	}
	if err := p.Emitter.Emit(ctx, evt); err != nil {
		p.logf("emit %s failed: %v", evt.Name, err)
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Infof(format, args...)
}

func (p *Pipeline) nowFn() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}

func (p *Pipeline) nextID() string {
	if p.IDGenerator != nil {
		return p.IDGenerator()
	}
	return defaultIDGenerator()
}
