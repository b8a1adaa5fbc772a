// Package storebun provides Bun-backed persistence for the rights
// catalog and both progress trackers.
//
// ContractStore persists contracts (grants inline as JSON) and detected
// conflicts. IngestTracker and ReportTracker persist pipeline and report
// progress records. CreateTables provisions the schema; the SQLite shim
// driver works for tests and the demo binary.
package storebun
