// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hook

import (
	"github.com/juju/errors"

	"github.com/juju/datanode/juju/osenv"
)

// FromEnvironment builds the Info for the hook Juju is currently running,
// as described by its hook environment variables.
func FromEnvironment(getenv osenv.Getenv) (Info, error) {
	hookName := getenv.Lookup(osenv.JujuHookNameEnvKey, "")
	if hookName == "" {
		return Info{}, errors.NotFoundf("%s", osenv.JujuHookNameEnvKey)
	}
	relationName, kind, err := ParseName(hookName)
	if err != nil {
		return Info{}, errors.Trace(err)
	}
	if relation := getenv.Lookup(osenv.JujuRelationEnvKey, relationName); relation != relationName {
		return Info{}, errors.NotValidf("hook %q run for relation %q", hookName, relation)
	}
	hi := Info{
		Kind:         kind,
		RelationName: relationName,
		RelationId:   -1,
		RemoteUnit:   getenv.Lookup(osenv.JujuRemoteUnitEnvKey, ""),
	}
	if value := getenv.Lookup(osenv.JujuRelationIdEnvKey, ""); value != "" {
		if hi.RelationId, err = parseRelationId(value); err != nil {
			return Info{}, errors.Trace(err)
		}
	}
	if err := hi.Validate(); err != nil {
		return Info{}, errors.Trace(err)
	}
	return hi, nil
}
