// Copyright 2013 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package osenv names the environment variables Juju sets when it runs a
// charm hook.
package osenv

const (
	JujuUnitNameEnvKey      = "JUJU_UNIT_NAME"
	JujuHookNameEnvKey      = "JUJU_HOOK_NAME"
	JujuRelationEnvKey      = "JUJU_RELATION"
	JujuRelationIdEnvKey    = "JUJU_RELATION_ID"
	JujuRemoteUnitEnvKey    = "JUJU_REMOTE_UNIT"
	JujuRemoteAppEnvKey     = "JUJU_REMOTE_APP"
	JujuCharmDirEnvKey      = "CHARM_DIR"
	JujuLoggingConfigEnvKey = "JUJU_LOGGING_CONFIG"
)

// Getenv looks up an environment variable, as os.Getenv does.
type Getenv func(key string) string

// Lookup returns the value of key, or fallback if it is unset or empty.
func (g Getenv) Lookup(key, fallback string) string {
	if g == nil {
		return fallback
	}
	if value := g(key); value != "" {
		return value
	}
	return fallback
}
