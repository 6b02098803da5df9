// Package metrics provides operation metrics for abra ingestion and store
// operations, with a Prometheus-backed collector and a no-op default.
package metrics

import "context"

// Collector is the interface for metrics collection.
type Collector interface {
	// RecordOperation records completion of an operation ("write-binding",
	// "store-content", "import-identities", ...) with status "ok"/"error".
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)

	// RecordStage records the duration of a named stage within an operation.
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)

	// RecordRejection records a non-fatal per-item rejection or skip
	// (reason: "pii", "already-exists", ...).
	RecordRejection(ctx context.Context, operation string, reason string)

	// RecordError records a fatal error by classified type.
	RecordError(ctx context.Context, operation string, errorType string)

	// SetStorageCount sets the current row count for a collection
	// ("bindings", "content", "catcodes").
	SetStorageCount(ctx context.Context, storageType string, count int64)
}
