// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package conversation provides stores for relation conversations: an
// in-memory one and one persisted in a state directory.
package conversation

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/naturalsort"

	"github.com/juju/datanode/core/conversation"
)

// Settings is the content of one conversation.
type Settings struct {
	Local  map[string]string `yaml:"local,omitempty"`
	Remote map[string]string `yaml:"remote,omitempty"`
}

func newSettings() *Settings {
	return &Settings{
		Local:  map[string]string{},
		Remote: map[string]string{},
	}
}

// copy returns an independent copy of the settings.
func (s *Settings) copy() Settings {
	stCopy := Settings{
		Local:  make(map[string]string, len(s.Local)),
		Remote: make(map[string]string, len(s.Remote)),
	}
	for k, v := range s.Local {
		stCopy.Local[k] = v
	}
	for k, v := range s.Remote {
		stCopy.Remote[k] = v
	}
	return stCopy
}

// Memory is a conversation.Source holding every conversation in memory.
// It is safe for concurrent use.
type Memory struct {
	mu            sync.Mutex
	conversations map[string]*Settings
	dirty         map[string]bool
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		conversations: map[string]*Settings{},
		dirty:         map[string]bool{},
	}
}

// Conversation is part of the conversation.Source interface.
func (m *Memory) Conversation(key string) (conversation.Store, error) {
	if key == "" {
		return nil, errors.NotValidf("empty conversation key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[key]; !ok {
		m.conversations[key] = newSettings()
		m.dirty[key] = true
	}
	return &store{memory: m, key: key}, nil
}

// Keys returns the keys of every known conversation in natural order,
// so that "datanode:namenode/2" sorts before "datanode:namenode/10".
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.conversations))
	for key := range m.conversations {
		keys = append(keys, key)
	}
	return naturalsort.Sort(keys)
}

// Settings returns a copy of the settings of the conversation with the
// given key.
func (m *Memory) Settings(key string) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.conversations[key]
	if !ok {
		return Settings{}, errors.NotFoundf("conversation %q", key)
	}
	return s.copy(), nil
}

// MergeRemote applies a snapshot of remote settings to the conversation
// with the given key. An empty value deletes the setting, as relation-set
// does.
func (m *Memory) MergeRemote(key string, settings map[string]string) error {
	if key == "" {
		return errors.NotValidf("empty conversation key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.conversations[key]
	if !ok {
		s = newSettings()
		m.conversations[key] = s
	}
	for k, v := range settings {
		if v == "" {
			delete(s.Remote, k)
			continue
		}
		s.Remote[k] = v
	}
	m.dirty[key] = true
	return nil
}

// restore installs settings loaded from elsewhere without marking them
// dirty.
func (m *Memory) restore(key string, s *Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Local == nil {
		s.Local = map[string]string{}
	}
	if s.Remote == nil {
		s.Remote = map[string]string{}
	}
	m.conversations[key] = s
}

// takeDirty returns copies of the conversations changed since the last
// call, and clears their dirty flags.
func (m *Memory) takeDirty() map[string]Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := make(map[string]Settings, len(m.dirty))
	for key := range m.dirty {
		changed[key] = m.conversations[key].copy()
	}
	m.dirty = map[string]bool{}
	return changed
}

// markDirty flags keys for rewriting after a failed flush.
func (m *Memory) markDirty(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.dirty[key] = true
	}
}

// store is the conversation.Store view of one Memory conversation.
type store struct {
	memory *Memory
	key    string
}

func (s *store) get(remote bool, key string) (string, bool) {
	s.memory.mu.Lock()
	defer s.memory.mu.Unlock()
	settings := s.memory.conversations[s.key]
	if remote {
		v, ok := settings.Remote[key]
		return v, ok
	}
	v, ok := settings.Local[key]
	return v, ok
}

func (s *store) set(remote bool, key, value string) error {
	if key == "" {
		return errors.NotValidf("empty setting key")
	}
	s.memory.mu.Lock()
	defer s.memory.mu.Unlock()
	settings := s.memory.conversations[s.key]
	target := settings.Local
	if remote {
		target = settings.Remote
	}
	if value == "" {
		delete(target, key)
	} else {
		target[key] = value
	}
	s.memory.dirty[s.key] = true
	return nil
}

// GetLocal is part of the conversation.Store interface.
func (s *store) GetLocal(key string) (string, bool) {
	return s.get(false, key)
}

// SetLocal is part of the conversation.Store interface. Setting an empty
// value deletes the setting, as relation-set does.
func (s *store) SetLocal(key, value string) error {
	return s.set(false, key, value)
}

// GetRemote is part of the conversation.Store interface.
func (s *store) GetRemote(key string) (string, bool) {
	return s.get(true, key)
}

// SetRemote is part of the conversation.Store interface.
func (s *store) SetRemote(key, value string) error {
	return s.set(true, key, value)
}
