package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore stores artifacts in memory (test/dev only).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	meta ArtifactMeta
}

// NewMemoryStore creates an in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error) {
	_ = ctx
	if key == "" {
		return ArtifactRef{}, NewError(KindValidation, "artifact key is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArtifactRef{}, err
	}
	meta.Size = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, meta: meta}
	s.mu.Unlock()

	return ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ArtifactMeta{}, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// SignedURL returns a static error for memory store.
func (s *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	_ = key
	_ = ttl
	return "", NewError(KindNotImpl, "signed URLs not supported by memory store", nil)
}

// MemoryTracker stores progress in memory (test/dev only).
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]ReportRecord
	counter uint64
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]ReportRecord)}
}

// Start creates a new record.
func (t *MemoryTracker) Start(ctx context.Context, record ReportRecord) (string, error) {
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
func (t *MemoryTracker) Advance(ctx context.Context, id string, delta ProgressDelta, meta map[string]any) error {
	_ = ctx
	_ = meta

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	record.Counts.Processed += delta.Rows
	record.BytesWritten += delta.Bytes
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// SetState updates the record state.
func (t *MemoryTracker) SetState(ctx context.Context, id string, state ReportState, meta map[string]any) error {
	_ = ctx
	_ = meta

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	record.State = state
	if state == StateRunning && record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	if state == StateCompleted && record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// Fail records failure state.
func (t *MemoryTracker) Fail(ctx context.Context, id string, err error, meta map[string]any) error {
	_ = ctx
	_ = meta
	_ = err

	t.mu.Lock()
	record, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return NewError(KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	record.State = StateFailed
	record.CompletedAt = time.Now()
	t.records[id] = record
	t.mu.Unlock()
	return nil
}

// Complete marks the report as completed.
func (t *MemoryTracker) Complete(ctx context.Context, id string, meta map[string]any) error {
	_ = meta
	return t.SetState(ctx, id, StateCompleted, nil)
}

// Status returns a record by ID.
func (t *MemoryTracker) Status(ctx context.Context, id string) (ReportRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return ReportRecord{}, NewError(KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	return record, nil
}

// List returns records matching a filter.
func (t *MemoryTracker) List(ctx context.Context, filter ProgressFilter) ([]ReportRecord, error) {
	_ = ctx
	result := []ReportRecord{}

	t.mu.RLock()
	for _, record := range t.records {
		if filter.Dataset != "" && record.Dataset != filter.Dataset {
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
	return result, nil
}

// SetArtifact updates the stored artifact reference.
func (t *MemoryTracker) SetArtifact(ctx context.Context, id string, ref ArtifactRef) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[id]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("report %q not found", id), nil)
	}
	record.Artifact = ref
	t.records[id] = record
	return nil
}

// Update replaces a record.
func (t *MemoryTracker) Update(ctx context.Context, record ReportRecord) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[record.ID]; !ok {
		return NewError(KindNotFound, fmt.Sprintf("report %q not found", record.ID), nil)
	}
	t.records[record.ID] = record
	return nil
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("rpt-%d", id)
}
