// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookrunner provides a worker that delivers relation hooks to a
// handler strictly one at a time.
package hookrunner

import (
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/datanode/hook"
	"github.com/juju/datanode/relation"
)

// Handler handles a single hook.
type Handler interface {
	Handle(hook.Info) error
}

// Logger is the logging interface used by the worker.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
}

// Config holds the dependencies of a hook runner.
type Config struct {
	// Hooks delivers the hooks to run. The worker finishes cleanly once
	// it is closed and drained.
	Hooks <-chan hook.Info

	// Handler runs each hook.
	Handler Handler

	// Relation, if set, is checked before each hook runs and updated
	// after it succeeds.
	Relation *relation.State

	// Committed, if set, is called after each successful hook.
	Committed func(hook.Info) error

	Clock  clock.Clock
	Logger Logger
}

// Validate returns an error if the config cannot start a hook runner.
func (config Config) Validate() error {
	if config.Hooks == nil {
		return errors.NotValidf("nil Hooks")
	}
	if config.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Worker runs hooks as they arrive.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
	ran      int
}

// NewWorker starts a worker running the configured hooks.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{
		config: config,
	}
	err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

func (w *Worker) loop() error {
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case hi, ok := <-w.config.Hooks:
			if !ok {
				w.config.Logger.Debugf("hook channel closed after %d hook(s)", w.ran)
				return nil
			}
			if err := w.run(hi); err != nil {
				return errors.Trace(err)
			}
		}
	}
}

func (w *Worker) run(hi hook.Info) error {
	if st := w.config.Relation; st != nil {
		if err := st.Validate(hi); err != nil {
			return errors.Trace(err)
		}
	}
	start := w.config.Clock.Now()
	if err := w.config.Handler.Handle(hi); err != nil {
		return errors.Annotatef(err, "hook %q failed", hi.String())
	}
	if st := w.config.Relation; st != nil {
		st.Update(hi)
	}
	if w.config.Committed != nil {
		if err := w.config.Committed(hi); err != nil {
			return errors.Annotatef(err, "committing hook %q", hi.String())
		}
	}
	w.ran++
	w.config.Logger.Infof("ran %q for %q in %v", hi.String(), hi.RemoteUnit, w.config.Clock.Now().Sub(start))
	return nil
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}
