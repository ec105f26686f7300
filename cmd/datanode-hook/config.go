// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/names/v5"

	"github.com/juju/datanode/core/conversation"
	"github.com/juju/datanode/core/states"
	"github.com/juju/datanode/datanode"
	"github.com/juju/datanode/hook"
	"github.com/juju/datanode/juju/osenv"
)

const (
	defaultLogConfig   = "<root>=INFO"
	defaultLockTimeout = 5 * time.Minute
)

// requiredError is useful when complaining about missing command-line options.
func requiredError(name string) error {
	return fmt.Errorf("--%s option must be set", name)
}

// hookConfig holds the command line of a hook run.
type hookConfig struct {
	StateDir       string
	UnitName       string
	RelationName   string
	Scope          conversation.Scope
	RemoteUnit     string
	RemoteSettings string
	SetSpec        string
	Register       bool
	LogConfig      string
	LockTimeout    time.Duration

	// HookNames holds the hooks to run, in order. When empty, the hook
	// is taken from the environment.
	HookNames []string
}

// parseArgs parses the command line, taking defaults from the hook
// environment.
func parseArgs(args []string, getenv osenv.Getenv, stderr io.Writer) (*hookConfig, error) {
	var cfg hookConfig
	var scope string
	fs := gnuflag.NewFlagSet("datanode-hook", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.StateDir, "state-dir", "", "directory holding the relation state")
	fs.StringVar(&cfg.UnitName, "unit", getenv.Lookup(osenv.JujuUnitNameEnvKey, ""), "name of the local unit")
	fs.StringVar(&cfg.RelationName, "relation", datanode.DefaultRelationName, "local endpoint name of the relation")
	fs.StringVar(&scope, "scope", string(conversation.Global), "conversation scope: global, application or unit")
	fs.StringVar(&cfg.RemoteUnit, "remote-unit", getenv.Lookup(osenv.JujuRemoteUnitEnvKey, ""), "remote unit triggering the hooks")
	fs.StringVar(&cfg.RemoteSettings, "remote-settings", "", "YAML file of remote relation settings to merge before running hooks")
	fs.StringVar(&cfg.SetSpec, "set-spec", "", "JSON file holding the spec to publish once related")
	fs.BoolVar(&cfg.Register, "register", false, "tell the remote side this unit is registered once related")
	fs.StringVar(&cfg.LogConfig, "log-config", getenv.Lookup(osenv.JujuLoggingConfigEnvKey, defaultLogConfig), "logging configuration")
	fs.DurationVar(&cfg.LockTimeout, "lock-timeout", defaultLockTimeout, "how long to wait for other hooks to finish")
	if err := fs.Parse(true, args); err != nil {
		return nil, err
	}
	var err error
	if cfg.Scope, err = conversation.ParseScope(scope); err != nil {
		return nil, errors.Trace(err)
	}
	cfg.HookNames = fs.Args()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &cfg, nil
}

// Validate returns an error if the hooks cannot be run with cfg.
func (cfg *hookConfig) Validate() error {
	if cfg.StateDir == "" {
		return requiredError("state-dir")
	}
	if cfg.UnitName == "" {
		return requiredError("unit")
	}
	if !names.IsValidUnit(cfg.UnitName) {
		return errors.NotValidf("unit name %q", cfg.UnitName)
	}
	if !states.IsValidRelationName(cfg.RelationName) {
		return errors.NotValidf("relation name %q", cfg.RelationName)
	}
	if cfg.LockTimeout <= 0 {
		return errors.NotValidf("lock timeout %v", cfg.LockTimeout)
	}
	if cfg.RemoteUnit != "" && !names.IsValidUnit(cfg.RemoteUnit) {
		return errors.NotValidf("remote unit %q", cfg.RemoteUnit)
	}
	return errors.Trace(cfg.Scope.Validate())
}

// hooks returns the hooks to run, either named on the command line or
// described by the environment.
func (cfg *hookConfig) hooks(getenv osenv.Getenv) ([]hook.Info, error) {
	if len(cfg.HookNames) == 0 {
		hi, err := hook.FromEnvironment(getenv)
		if err != nil {
			return nil, errors.Annotate(err, "no hook named")
		}
		if hi.RelationName != cfg.RelationName {
			return nil, errors.NotSupportedf("hook for relation %q", hi.RelationName)
		}
		return []hook.Info{hi}, nil
	}
	infos := make([]hook.Info, len(cfg.HookNames))
	for i, hookName := range cfg.HookNames {
		relationName, kind, err := hook.ParseName(hookName)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if relationName != cfg.RelationName {
			return nil, errors.NotSupportedf("hook for relation %q", relationName)
		}
		hi := hook.Info{
			Kind:         kind,
			RelationName: relationName,
			RelationId:   -1,
		}
		if kind != hook.RelationBroken {
			hi.RemoteUnit = cfg.RemoteUnit
		}
		if err := hi.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
		infos[i] = hi
	}
	return infos, nil
}
