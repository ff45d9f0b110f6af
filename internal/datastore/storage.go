// Package datastore provides the persistence medium of the visit organizer: a small
// string-keyed blob store with SQLite, MySQL and in-memory backends, plus typed
// repositories for the blobs the organizer keeps in it.
package datastore

import (
	"context"

	"github.com/tphakala/visitprep/internal/errors"
)

// Storage is a string-keyed blob store. Writes replace the whole value; the last write wins.
type Storage interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying connection.
	Close() error
}

// ErrKeyNotFound is returned by Storage.Get for absent keys.
var ErrKeyNotFound = errors.NewStd("key not found")

// Key space. One flag plus one blob per concern.
const (
	KeyMigrationCompleted = "visitprep.migration_completed"
	KeyNurseries          = "visitprep.nurseries"
	KeyQuestionLists      = "visitprep.question_lists"
	KeyCustomTemplates    = "visitprep.custom_templates"
)
