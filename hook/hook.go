// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hook defines the relation lifecycle hooks a relation handler
// reacts to.
package hook

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/juju/datanode/core/states"
)

// Kind identifies a relation lifecycle hook.
type Kind string

const (
	RelationJoined   Kind = "relation-joined"
	RelationChanged  Kind = "relation-changed"
	RelationDeparted Kind = "relation-departed"
	RelationBroken   Kind = "relation-broken"
)

// IsValid reports whether the kind is a known relation hook.
func (kind Kind) IsValid() bool {
	switch kind {
	case RelationJoined, RelationChanged, RelationDeparted, RelationBroken:
		return true
	}
	return false
}

// Info holds details required to handle a hook.
type Info struct {
	Kind Kind

	// RelationName is the local endpoint name of the relation.
	RelationName string

	// RelationId identifies the relation instance; -1 when unknown.
	RelationId int

	// RemoteUnit is the name of the unit that triggered the hook. It is
	// not set for relation-broken.
	RemoteUnit string
}

// String returns the full hook name, e.g. "datanode-relation-changed".
func (hi Info) String() string {
	return hi.RelationName + "-" + string(hi.Kind)
}

// Validate returns an error if the info is not valid.
func (hi Info) Validate() error {
	switch hi.Kind {
	case RelationJoined, RelationChanged, RelationDeparted:
		if !names.IsValidUnit(hi.RemoteUnit) {
			return errors.NotValidf("%q hook remote unit %q", hi.Kind, hi.RemoteUnit)
		}
		fallthrough
	case RelationBroken:
		if !states.IsValidRelationName(hi.RelationName) {
			return errors.NotValidf("%q hook relation name %q", hi.Kind, hi.RelationName)
		}
		return nil
	}
	return errors.NotValidf("hook kind %q", hi.Kind)
}

// ParseName splits a hook name such as "datanode-relation-changed" into
// the relation name and the hook kind.
func ParseName(hookName string) (string, Kind, error) {
	i := strings.LastIndex(hookName, "-relation-")
	if i <= 0 {
		return "", "", errors.NotValidf("relation hook name %q", hookName)
	}
	relationName, kind := hookName[:i], Kind(hookName[i+1:])
	if !kind.IsValid() {
		return "", "", errors.NotValidf("relation hook name %q", hookName)
	}
	if !states.IsValidRelationName(relationName) {
		return "", "", errors.NotValidf("relation name %q in hook %q", relationName, hookName)
	}
	return relationName, kind, nil
}

// parseRelationId extracts the numeric id from a relation id such as
// "datanode:3".
func parseRelationId(value string) (int, error) {
	name, idStr := "", value
	if i := strings.LastIndex(value, ":"); i >= 0 {
		name, idStr = value[:i], value[i+1:]
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 0 {
		return -1, errors.NotValidf("relation id %q", value)
	}
	if name != "" && !states.IsValidRelationName(name) {
		return -1, errors.NotValidf("relation id %q", value)
	}
	return id, nil
}
