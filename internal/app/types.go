package app

import (
	"errors"

	"order_sheets_sync/internal/config"
	"order_sheets_sync/internal/records"
	"order_sheets_sync/internal/syncer"
)

// App bundles what one command needs to run sync passes.
type App struct {
	Config *config.Config
	Source records.Source
	Syncer *syncer.Syncer

	closers []func() error
}

// New wires a syncer that reads from the configured record source and
// writes to dest.
func New(cfg *config.Config, dest syncer.Destination) (*App, error) {
	source, closeSource, err := NewRecordSource(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:  cfg,
		Source:  source,
		Syncer:  syncer.New(source, dest, NewBuilder(cfg), SyncOptions(cfg)),
		closers: []func() error{closeSource},
	}, nil
}

// OnClose registers fn to run when the app closes, before earlier
// registrations.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
