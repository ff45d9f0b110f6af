package app

import (
	"context"

	"github.com/tphakala/visitprep/internal/buildinfo"
	"github.com/tphakala/visitprep/internal/conf"
	"github.com/tphakala/visitprep/internal/errors"
)

// Env carries what the command line resolved before a subcommand runs.
type Env struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Ephemeral bool
}

// Open builds an App for one command. Ephemeral runs keep all data in memory.
func (e *Env) Open(ctx context.Context) (*App, error) {
	if e.Settings == nil {
		return nil, errors.NewStd("settings have not been loaded")
	}

	settings := *e.Settings
	if e.Ephemeral {
		settings.Storage.Backend = conf.BackendMemory
	}
	return New(ctx, &settings, e.Build)
}

// Run opens an App, passes it to fn and closes it afterwards.
func (e *Env) Run(ctx context.Context, fn func(*App) error) error {
	a, err := e.Open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(a)
	return errors.Join(runErr, a.Close())
}
