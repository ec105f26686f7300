// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package conversation defines the key/value exchange a relation handler
// has with the units on the other side of a relation.
package conversation

import (
	"github.com/juju/errors"
	"github.com/juju/names/v5"
)

// Store holds the settings of one conversation. Local settings belong to
// this side; remote settings are the ones published by the other side.
// Values are opaque strings, typically JSON text.
type Store interface {
	// GetLocal returns the local value for key, and whether it was set.
	GetLocal(key string) (string, bool)

	// SetLocal sets the local value for key.
	SetLocal(key, value string) error

	// GetRemote returns the remote value for key, and whether it was set.
	GetRemote(key string) (string, bool)

	// SetRemote sets the remote value for key.
	SetRemote(key, value string) error
}

// Source hands out the conversation stored under a key.
type Source interface {
	// Conversation returns the conversation for key, creating it if it
	// does not exist yet.
	Conversation(key string) (Store, error)
}

// Scope determines how many conversations a relation holds.
type Scope string

const (
	// Global uses a single conversation for every unit on the relation.
	Global Scope = "global"

	// Application uses one conversation per remote application.
	Application Scope = "application"

	// Unit uses one conversation per remote unit.
	Unit Scope = "unit"
)

// ParseScope returns the scope named by s.
func ParseScope(s string) (Scope, error) {
	scope := Scope(s)
	if err := scope.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	return scope, nil
}

// Validate returns an error if the scope is not known.
func (s Scope) Validate() error {
	switch s {
	case Global, Application, Unit:
		return nil
	}
	return errors.NotValidf("conversation scope %q", string(s))
}

// KeyFor returns the conversation key for relationName, as seen from a
// hook triggered by remoteUnit. The remote unit is ignored for the global
// scope and required otherwise.
func KeyFor(scope Scope, relationName, remoteUnit string) (string, error) {
	if relationName == "" {
		return "", errors.NotValidf("empty relation name")
	}
	switch scope {
	case Global:
		return relationName, nil
	case Application:
		if !names.IsValidUnit(remoteUnit) {
			return "", errors.NotValidf("remote unit %q", remoteUnit)
		}
		app, err := names.UnitApplication(remoteUnit)
		if err != nil {
			return "", errors.Trace(err)
		}
		return relationName + ":" + app, nil
	case Unit:
		if !names.IsValidUnit(remoteUnit) {
			return "", errors.NotValidf("remote unit %q", remoteUnit)
		}
		return relationName + ":" + remoteUnit, nil
	}
	return "", errors.NotValidf("conversation scope %q", string(scope))
}
