// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package bus implements the state bus: the set of named states charm
// handlers raise and clear, and the fan-out of their transitions to
// interested subscribers.
package bus

import (
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/loggo/v2"
	"github.com/juju/pubsub/v2"

	"github.com/juju/datanode/core/states"
)

var logger = loggo.GetLogger("datanode.bus")

// StateChangedTopic is the topic every state transition is published on.
const StateChangedTopic = "state.changed"

// StateChange is the payload published on StateChangedTopic.
type StateChange struct {
	Name   states.Name
	Active bool
}

// Bus is a states.Bus that publishes transitions to a hub.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	active set.Strings
	hub    *pubsub.SimpleHub
}

// New returns an empty Bus publishing on hub. If hub is nil a private hub
// is created.
func New(hub *pubsub.SimpleHub) *Bus {
	if hub == nil {
		hub = pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
			Logger: loggo.GetLogger("datanode.bus.hub"),
		})
	}
	return &Bus{
		active: set.NewStrings(),
		hub:    hub,
	}
}

// Hub returns the hub transitions are published on.
func (b *Bus) Hub() *pubsub.SimpleHub {
	return b.hub
}

// Restore marks the named states active without publishing anything. It
// is used to reload states persisted by a previous process.
func (b *Bus) Restore(names []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		b.active.Add(name)
	}
}

// SetState is part of the states.Bus interface.
func (b *Bus) SetState(name states.Name) {
	b.ToggleState(name, true)
}

// RemoveState is part of the states.Bus interface.
func (b *Bus) RemoveState(name states.Name) {
	b.ToggleState(name, false)
}

// ToggleState is part of the states.Bus interface.
func (b *Bus) ToggleState(name states.Name, active bool) {
	b.mu.Lock()
	if b.active.Contains(string(name)) == active {
		b.mu.Unlock()
		return
	}
	if active {
		b.active.Add(string(name))
	} else {
		b.active.Remove(string(name))
	}
	b.mu.Unlock()

	logger.Debugf("state %q active: %v", name, active)
	b.hub.Publish(StateChangedTopic, StateChange{Name: name, Active: active})
}

// IsSet is part of the states.Bus interface.
func (b *Bus) IsSet(name states.Name) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active.Contains(string(name))
}

// States is part of the states.Bus interface.
func (b *Bus) States() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active.SortedValues()
}

// Watch calls handler, on the hub's goroutine, with every state
// transition published after Watch returns. The returned func
// unsubscribes.
func (b *Bus) Watch(handler func(StateChange)) func() {
	return b.hub.Subscribe(StateChangedTopic, func(topic string, data interface{}) {
		change, ok := data.(StateChange)
		if !ok {
			logger.Criticalf("programming error: topic data expected StateChange, got %T", data)
			return
		}
		handler(change)
	})
}
