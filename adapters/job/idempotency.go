package reportjob

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// IdempotencyStore stores idempotency keys.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, reportID string, ttl time.Duration) error
}

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]idempotencyEntry
	clock   func() time.Time
}

type idempotencyEntry struct {
	reportID  string
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		clock:   time.Now,
	}
}

// Get returns the report ID for an idempotency key.
func (s *MemoryIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	if s == nil {
		return "", false, report.NewError(report.KindInternal, "idempotency store is nil", nil)
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.reportID, true, nil
}

// Set stores the report ID for an idempotency key.
func (s *MemoryIdempotencyStore) Set(ctx context.Context, key, reportID string, ttl time.Duration) error {
	_ = ctx
	if s == nil {
		return report.NewError(report.KindInternal, "idempotency store is nil", nil)
	}
	if key == "" {
		return report.NewError(report.KindValidation, "idempotency key is required", nil)
	}
	if reportID == "" {
		return report.NewError(report.KindValidation, "report ID is required", nil)
	}
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = idempotencyEntry{reportID: reportID, expiresAt: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdempotencyStore) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

func buildIdempotencyKey(key string, actor report.Actor, req report.ReportRequest) string {
	payload := idempotencyPayload{
		Key:       key,
		ActorID:   actor.ID,
		Scope:     actor.Scope,
		Dataset:   req.Dataset,
		Format:    req.Format,
		Columns:   req.Columns,
		Contracts: req.Contracts,
		Conflicts: req.Conflicts,
	}

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("report:%x", sum[:])
}

type idempotencyPayload struct {
	Key       string                `json:"key"`
	ActorID   string                `json:"actor_id,omitempty"`
	Scope     report.Scope          `json:"scope"`
	Dataset   string                `json:"dataset"`
	Format    report.Format         `json:"format"`
	Columns   []string              `json:"columns,omitempty"`
	Contracts rights.ContractFilter `json:"contracts,omitempty"`
	Conflicts rights.ConflictFilter `json:"conflicts,omitempty"`
}
