package metrics

// Operation names accepted by Recorder implementations.
const (
	// OpStorageGet is a key read against the persistence medium.
	OpStorageGet = "storage_get"
	// OpStorageSet is a key write against the persistence medium.
	OpStorageSet = "storage_set"
	// OpStorageDelete is a key removal against the persistence medium.
	OpStorageDelete = "storage_delete"
	// OpMigration is one run of the legacy list conversion.
	OpMigration = "migration"
	// OpMigrationRecord is one legacy record handled by a conversion run.
	OpMigrationRecord = "migration_record"
	// OpTemplateApply is one template application requested through the store.
	OpTemplateApply = "template_apply"
	// storeOpPrefix marks state store mutations, e.g. "store_add_question".
	storeOpPrefix = "store_"
)

// Status label values.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusNotFound  = "not_found"
	StatusNoop      = "noop"
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
	StatusNoSession = "no_session"
)

// Histogram bucket configuration.
const (
	// BucketStart100us is the starting bucket for storage histograms (0.1ms to ~400ms range).
	BucketStart100us = 0.0001
	// BucketStart1ms is the starting bucket for migration histograms (1ms to ~4s range).
	BucketStart1ms = 0.001
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount12 covers three orders of magnitude.
	BucketCount12 = 12
)

// StoreOp returns the operation name for a state store mutation.
func StoreOp(name string) string {
	return storeOpPrefix + name
}
