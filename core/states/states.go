// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package states defines the named boolean states a relation handler
// raises for the rest of the charm to react to.
package states

import (
	"regexp"

	"github.com/juju/errors"
)

// Name identifies a state on the bus, e.g. "datanode.ready".
type Name string

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

const (
	suffixRelated      = "related"
	suffixSpecMismatch = "spec.mismatch"
	suffixReady        = "ready"
)

// validRelationName matches charm endpoint names.
var validRelationName = regexp.MustCompile(`^[a-z][a-z0-9]*(?:[-_][a-z0-9]+)*$`)

// IsValidRelationName reports whether name is usable as a relation
// endpoint name.
func IsValidRelationName(name string) bool {
	return validRelationName.MatchString(name)
}

// Names holds the states owned by one relation endpoint.
type Names struct {
	// Related is set while the relation is joined.
	Related Name

	// SpecMismatch is set when both sides have published their
	// settings but the remote spec disagrees with the local one.
	SpecMismatch Name

	// Ready is set when the specs agree and the local unit is
	// registered with the remote side.
	Ready Name
}

// ForRelation returns the state names for the named relation endpoint.
func ForRelation(relationName string) (Names, error) {
	if !IsValidRelationName(relationName) {
		return Names{}, errors.NotValidf("relation name %q", relationName)
	}
	return Names{
		Related:      Name(relationName + "." + suffixRelated),
		SpecMismatch: Name(relationName + "." + suffixSpecMismatch),
		Ready:        Name(relationName + "." + suffixReady),
	}, nil
}

// All returns every state name, in a stable order.
func (n Names) All() []Name {
	return []Name{n.Related, n.SpecMismatch, n.Ready}
}
