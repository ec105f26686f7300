// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package states

// Bus holds the set of active states. Setting an already set state, or
// removing one that is not set, has no effect.
type Bus interface {
	// SetState marks the named state as active.
	SetState(Name)

	// RemoveState clears the named state.
	RemoveState(Name)

	// ToggleState sets the named state when active is true and
	// removes it otherwise.
	ToggleState(name Name, active bool)

	// IsSet reports whether the named state is active.
	IsSet(Name) bool

	// States returns the names of all active states, sorted.
	States() []string
}
