package rightshttp

import "github.com/goliatone/go-rights/adapters/reportapi"

// IdempotencyStore stores idempotency keys.
type IdempotencyStore = reportapi.IdempotencyStore

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore = reportapi.MemoryIdempotencyStore

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return reportapi.NewMemoryIdempotencyStore()
}
