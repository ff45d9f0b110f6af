package datastore

import (
	"context"

	"github.com/tphakala/visitprep/internal/errors"
)

// storageError categorizes a backend failure. Context cancellation keeps its own category
// so callers can tell a withdrawn request from a broken medium.
func storageError(err error, operation, key string) error {
	category := errors.CategoryStorage
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryCancellation
	}

	return errors.New(err).
		Component("datastore").
		Category(category).
		Context("operation", operation).
		Context("key", key).
		Build()
}

// integrityError reports a stored blob that no longer decodes.
func integrityError(err error, key string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDataIntegrity).
		Context("operation", "decode_blob").
		Context("key", key).
		Priority(errors.PriorityHigh).
		Build()
}
