package rights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryContractStore stores contracts in memory (test/dev only).
type MemoryContractStore struct {
	mu        sync.RWMutex
	contracts map[string]Contract
	conflicts []Conflict
}

// NewMemoryContractStore creates an in-memory contract store.
func NewMemoryContractStore() *MemoryContractStore {
	return &MemoryContractStore{contracts: make(map[string]Contract)}
}

// SaveContract inserts or replaces a contract.
func (s *MemoryContractStore) SaveContract(ctx context.Context, contract Contract) error {
	_ = ctx
	if contract.ID == "" {
		return NewError(KindValidation, "contract ID is required", nil)
	}
	s.mu.Lock()
	s.contracts[contract.ID] = contract
	s.mu.Unlock()
	return nil
}

// Contract returns a contract by ID.
func (s *MemoryContractStore) Contract(ctx context.Context, id string) (Contract, error) {
	_ = ctx
	s.mu.RLock()
	contract, ok := s.contracts[id]
	s.mu.RUnlock()
	if !ok {
		return Contract{}, NewError(KindNotFound, fmt.Sprintf("contract %q not found", id), nil)
	}
	return contract, nil
}

// Contracts returns contracts matching a filter, newest first.
func (s *MemoryContractStore) Contracts(ctx context.Context, filter ContractFilter) ([]Contract, error) {
	_ = ctx
	result := []Contract{}

	s.mu.RLock()
	for _, contract := range s.contracts {
		if !matchesContract(contract, filter) {
			continue
		}
		result = append(result, contract)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteContract removes a contract and its conflicts.
func (s *MemoryContractStore) DeleteContract(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	contract, ok := s.contracts[id]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("contract %q not found", id), nil)
	}
	delete(s.contracts, id)

	grantIDs := map[string]bool{}
	for _, g := range contract.Grants {
		grantIDs[g.ID] = true
	}
	kept := s.conflicts[:0]
	for _, c := range s.conflicts {
		if grantIDs[c.GrantID] || grantIDs[c.OtherID] {
			continue
		}
		kept = append(kept, c)
	}
	s.conflicts = kept
	return nil
}

// Grants returns all grants matching a filter.
func (s *MemoryContractStore) Grants(ctx context.Context, filter ContractFilter) ([]RightsGrant, error) {
	contracts, err := s.Contracts(ctx, filter)
	if err != nil {
		return nil, err
	}
	grants := []RightsGrant{}
	for _, contract := range contracts {
		for _, g := range contract.Grants {
			if filter.Work != "" && !strings.EqualFold(g.Work, filter.Work) {
				continue
			}
			if filter.Media != "" && g.Media != filter.Media {
				continue
			}
			if filter.Licensee != "" && !strings.EqualFold(g.Licensee, filter.Licensee) {
				continue
			}
			grants = append(grants, g)
		}
	}
	return grants, nil
}

// ReplaceConflicts swaps the stored conflict set.
func (s *MemoryContractStore) ReplaceConflicts(ctx context.Context, conflicts []Conflict) error {
	_ = ctx
	s.mu.Lock()
	s.conflicts = append([]Conflict(nil), conflicts...)
	s.mu.Unlock()
	return nil
}

// Conflicts returns conflicts matching a filter.
func (s *MemoryContractStore) Conflicts(ctx context.Context, filter ConflictFilter) ([]Conflict, error) {
	_ = ctx
	result := []Conflict{}

	s.mu.RLock()
	for _, c := range s.conflicts {
		if filter.Work != "" && !strings.EqualFold(c.Work, filter.Work) {
			continue
		}
		if filter.Kind != "" && c.Kind != filter.Kind {
			continue
		}
		if filter.Severity != "" && c.Severity != filter.Severity {
			continue
		}
		result = append(result, c)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func matchesContract(contract Contract, filter ContractFilter) bool {
	if !filter.Since.IsZero() && contract.CreatedAt.Before(filter.Since) {
		return false
	}
	if filter.Licensee == "" && filter.Work == "" && filter.Media == "" {
		return true
	}
	for _, g := range contract.Grants {
		if filter.Licensee != "" && !strings.EqualFold(g.Licensee, filter.Licensee) {
			continue
		}
		if filter.Work != "" && !strings.EqualFold(g.Work, filter.Work) {
			continue
		}
		if filter.Media != "" && g.Media != filter.Media {
			continue
		}
		return true
	}
	return false
}

// MemoryIngestTracker stores ingest progress in memory (test/dev only).
type MemoryIngestTracker struct {
	mu      sync.RWMutex
	records map[string]IngestRecord
	counter uint64
}

// NewMemoryIngestTracker creates an in-memory tracker.
func NewMemoryIngestTracker() *MemoryIngestTracker {
	return &MemoryIngestTracker{records: make(map[string]IngestRecord)}
}

// Start creates a new record.
func (t *MemoryIngestTracker) Start(ctx context.Context, record IngestRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	t.mu.Lock()
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Advance updates counts.
func (t *MemoryIngestTracker) Advance(ctx context.Context, id string, delta IngestDelta, meta map[string]any) error {
	_ = ctx
	_ = meta

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	record.Counts.Grants += delta.Grants
	record.Counts.Conflicts += delta.Conflicts
	record.Counts.Warnings += delta.Warnings
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// SetState updates the record state.
func (t *MemoryIngestTracker) SetState(ctx context.Context, id string, state IngestState, meta map[string]any) error {
	_ = ctx

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	record.State = state
	if state == StateParsing && record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	if state == StateCompleted && record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	if cid, ok := meta["contract_id"].(string); ok && cid != "" {
		record.ContractID = cid
	}
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// Fail records failure state.
func (t *MemoryIngestTracker) Fail(ctx context.Context, id string, err error, meta map[string]any) error {
	_ = ctx
	_ = meta

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	record.State = StateFailed
	if err != nil {
		record.Error = err.Error()
	}
	record.CompletedAt = time.Now()
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// Complete marks the ingest as completed.
func (t *MemoryIngestTracker) Complete(ctx context.Context, id string, meta map[string]any) error {
	return t.SetState(ctx, id, StateCompleted, meta)
}

// Status returns a record by ID.
func (t *MemoryIngestTracker) Status(ctx context.Context, id string) (IngestRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return IngestRecord{}, NewError(KindNotFound, fmt.Sprintf("ingest %q not found", id), nil)
	}
	return record, nil
}

// List returns records matching a filter.
func (t *MemoryIngestTracker) List(ctx context.Context, filter IngestFilter) ([]IngestRecord, error) {
	_ = ctx
	result := []IngestRecord{}

	t.mu.RLock()
	for _, record := range t.records {
		if filter.ContractID != "" && record.ContractID != filter.ContractID {
			continue
		}
		if filter.State != "" && record.State != filter.State {
			continue
		}
		if !filter.Since.IsZero() && record.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && record.CreatedAt.After(filter.Until) {
			continue
		}
		result = append(result, record)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Prune removes terminal records last touched before olderThan.
func (t *MemoryIngestTracker) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	_ = ctx
	removed := 0

	t.mu.Lock()
	for id, record := range t.records {
		if !record.State.IsTerminal() {
			continue
		}
		touched := record.CompletedAt
		if touched.IsZero() {
			touched = record.CreatedAt
		}
		if touched.Before(olderThan) {
			delete(t.records, id)
			removed++
		}
	}
	t.mu.Unlock()
	return removed, nil
}

func (t *MemoryIngestTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("ing-%d", id)
}
