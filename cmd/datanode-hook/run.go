// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/mutex/v2"
	"gopkg.in/yaml.v3"

	"github.com/juju/datanode/bus"
	"github.com/juju/datanode/conversation"
	coreconversation "github.com/juju/datanode/core/conversation"
	"github.com/juju/datanode/datanode"
	"github.com/juju/datanode/hook"
	"github.com/juju/datanode/relation"
	"github.com/juju/datanode/worker/hookrunner"
)

var logger = loggo.GetLogger("datanode.cmd.hook")

const (
	// hookLockName names the machine lock held while hooks run, so
	// that concurrent invocations do not interleave.
	hookLockName  = "datanode-hook"
	hookLockDelay = 250 * time.Millisecond

	conversationsDir = "conversations"
	statesFile       = "states.yaml"
	relationFile     = "relation.yaml"
)

// hookContext is everything a hook run loads from, and persists to, the
// state directory.
type hookContext struct {
	cfg           *hookConfig
	conversations *conversation.StateDir
	bus           *bus.Bus
	relation      *relation.State
	provides      *datanode.Provides
	spec          datanode.Spec
}

// newHookContext loads the state directory named by cfg.
func newHookContext(cfg *hookConfig) (*hookContext, error) {
	conversations, err := conversation.ReadStateDir(filepath.Join(cfg.StateDir, conversationsDir))
	if err != nil {
		return nil, errors.Trace(err)
	}
	active, err := bus.ReadStateFile(filepath.Join(cfg.StateDir, statesFile))
	if err != nil {
		return nil, errors.Trace(err)
	}
	stateBus := bus.New(nil)
	stateBus.Restore(active)
	relState, err := relation.ReadStateFile(filepath.Join(cfg.StateDir, relationFile), cfg.RelationName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	provides, err := datanode.NewProvides(datanode.Config{
		RelationName:  cfg.RelationName,
		UnitName:      cfg.UnitName,
		Scope:         cfg.Scope,
		Conversations: conversations,
		Bus:           stateBus,
		Logger:        loggo.GetLogger("datanode.provides"),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	ctx := &hookContext{
		cfg:           cfg,
		conversations: conversations,
		bus:           stateBus,
		relation:      relState,
		provides:      provides,
	}
	if cfg.SetSpec != "" {
		if ctx.spec, err = readSpec(cfg.SetSpec); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return ctx, nil
}

// readSpec reads a JSON object from path.
func readSpec(path string) (datanode.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "cannot read spec")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var spec datanode.Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Annotatef(err, "invalid spec file %q", path)
	}
	return spec, nil
}

// mergeRemoteSettings imports the remote settings file, if any, into the
// conversation of the configured remote unit.
func (ctx *hookContext) mergeRemoteSettings() error {
	if ctx.cfg.RemoteSettings == "" {
		return nil
	}
	data, err := os.ReadFile(ctx.cfg.RemoteSettings)
	if err != nil {
		return errors.Annotate(err, "cannot read remote settings")
	}
	var settings map[string]string
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return errors.Annotatef(err, "invalid remote settings file %q", ctx.cfg.RemoteSettings)
	}
	key, err := coreconversation.KeyFor(ctx.cfg.Scope, ctx.cfg.RelationName, ctx.cfg.RemoteUnit)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("merging %d remote setting(s) into %q", len(settings), key)
	return errors.Trace(ctx.conversations.MergeRemote(key, settings))
}

// Handle runs a hook, first publishing the requested spec and
// registration when the relation is related and about to be evaluated.
func (ctx *hookContext) Handle(hi hook.Info) error {
	if hi.Kind == hook.RelationChanged && ctx.bus.IsSet(ctx.provides.States().Related) {
		if err := ctx.provides.RunFor(hi.RemoteUnit, ctx.publish); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(ctx.provides.Handle(hi))
}

func (ctx *hookContext) publish() error {
	if ctx.spec != nil {
		if err := ctx.provides.SetSpec(ctx.spec); err != nil {
			return errors.Trace(err)
		}
	}
	if ctx.cfg.Register {
		if err := ctx.provides.Register(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// commit persists the state directory after a successful hook.
func (ctx *hookContext) commit(hook.Info) error {
	if err := ctx.conversations.Write(); err != nil {
		return errors.Trace(err)
	}
	if err := bus.WriteStateFile(filepath.Join(ctx.cfg.StateDir, statesFile), ctx.bus.States()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(ctx.relation.Write(filepath.Join(ctx.cfg.StateDir, relationFile)))
}

// runHooks runs the hooks in order and returns the states active
// afterwards.
func runHooks(cfg *hookConfig, infos []hook.Info) ([]string, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    hookLockName,
		Clock:   clock.WallClock,
		Delay:   hookLockDelay,
		Timeout: cfg.LockTimeout,
	})
	if err != nil {
		return nil, errors.Annotate(err, "cannot acquire hook lock")
	}
	defer releaser.Release()

	ctx, err := newHookContext(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := ctx.mergeRemoteSettings(); err != nil {
		return nil, errors.Trace(err)
	}
	hooks := make(chan hook.Info, len(infos))
	for _, hi := range infos {
		hooks <- hi
	}
	close(hooks)
	w, err := hookrunner.NewWorker(hookrunner.Config{
		Hooks:     hooks,
		Handler:   ctx,
		Relation:  ctx.relation,
		Committed: ctx.commit,
		Clock:     clock.WallClock,
		Logger:    loggo.GetLogger("datanode.hookrunner"),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := w.Wait(); err != nil {
		return nil, errors.Trace(err)
	}
	return ctx.bus.States(), nil
}
