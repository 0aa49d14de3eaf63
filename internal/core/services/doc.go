// Package services implements the driving ports.
//
// SyncOrchestrator keeps every configured store in step with the document
// source: it decides per store whether a document is stale, derives chunks,
// embeddings and relationships once, and applies them store by store so one
// failing backend never blocks the others. DocumentService is the read side.
//
// The RateGate and SyncStats in this package are the only shared mutable
// state; both are constructed once by the caller and injected.
package services
