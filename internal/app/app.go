// Package app wires settings into the running services shared by every command.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/visitprep/internal/buildinfo"
	"github.com/tphakala/visitprep/internal/catalog"
	"github.com/tphakala/visitprep/internal/conf"
	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/migration"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
	"github.com/tphakala/visitprep/internal/observability"
	"github.com/tphakala/visitprep/internal/store"
)

const sentryFlushTimeout = 2 * time.Second

// App holds the services built from one Settings value.
type App struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Log       *logger.CentralLogger
	Metrics   *observability.Metrics
	Storage   datastore.Storage
	Migrator  *migration.Migrator
	Compat    *migration.Compat
	Catalog   *catalog.Catalog
	Store     *store.Store
	telemetry bool
}

// New builds the service graph. The caller must Close the returned App.
func New(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)

	a := &App{
		Settings: settings,
		Build:    build,
		Log:      central,
	}

	if err := a.initTelemetry(); err != nil {
		_ = central.Close()
		return nil, err
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Storage, err = datastore.Open(settings, central.Module("datastore"), a.Metrics.Organizer)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	state, err := migration.NewStateManager(ctx, a.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Migrator = migration.NewMigrator(a.Storage, state, central.Module("migration"),
		migration.WithRecorder(a.Metrics.Organizer))
	a.Compat = migration.NewCompat(a.Migrator)

	a.Catalog, err = catalog.New(datastore.NewTemplateRepository(a.Storage), central.Module("catalog"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Store = store.New(a.Storage, a.Migrator, a.Catalog, central.Module("store"),
		store.WithRecorder(a.Metrics.Organizer))

	central.Module("app").Debug("services initialized",
		logger.String("version", build.GetVersion()),
		logger.String("backend", settings.Storage.Backend))

	return a, nil
}

func (a *App) initTelemetry() error {
	if !a.Settings.Telemetry.Enabled {
		return nil
	}

	reporter, err := errors.InitSentry(a.Settings.Telemetry.DSN, a.Build.Release())
	if err != nil {
		return err
	}
	a.telemetry = reporter.IsEnabled()
	return nil
}

// Close writes the metrics textfile, closes storage and flushes telemetry and logs.
// It returns the first error encountered.
func (a *App) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Metrics != nil && a.Settings.Metrics.TextfilePath != "" {
		keep(a.Metrics.WriteTextfile(a.Settings.Metrics.TextfilePath))
	}

	if a.Storage != nil {
		keep(a.Storage.Close())
		a.Storage = nil
	}

	if a.telemetry {
		sentry.Flush(sentryFlushTimeout)
	}

	if a.Log != nil {
		keep(a.Log.Flush())
		keep(a.Log.Close())
	}

	return firstErr
}
