package datastore

import (
	"github.com/tphakala/visitprep/internal/conf"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
	"github.com/tphakala/visitprep/internal/observability/metrics"
)

// Open creates the backend selected in settings and wraps it with metrics recording.
func Open(settings *conf.Settings, log logger.Logger, rec metrics.Recorder) (Storage, error) {
	storageSettings := &settings.Storage

	var (
		store Storage
		err   error
	)

	switch storageSettings.Backend {
	case conf.BackendMemory:
		store = NewMemoryStore()
	case conf.BackendMySQL:
		store, err = NewMySQLStore(&storageSettings.MySQL, log, storageSettings.SlowQueryThreshold)
	case conf.BackendSQLite, "":
		store, err = NewSQLiteStore(storageSettings.SQLite.Path, log, storageSettings.SlowQueryThreshold)
	default:
		return nil, errors.Newf("unsupported storage backend %q", storageSettings.Backend).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.Debug("storage opened", logger.String("backend", storageSettings.Backend))
	}

	return Instrument(store, rec), nil
}
