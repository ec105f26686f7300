// Copyright 2012-2015 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package relation tracks which remote units have joined a relation, so
// that hooks can be checked against the order Juju guarantees: joined,
// then changed for the same unit, then any number of changed, then
// departed, and broken only once every unit has departed.
package relation

import (
	"fmt"
	"os"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/naturalsort"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"

	"github.com/juju/datanode/hook"
)

// State describes the state of a relation.
type State struct {
	// RelationName is the local endpoint name of the relation.
	RelationName string

	// Members holds the remote units that have joined and not departed.
	Members set.Strings

	// ChangedPending names the unit that has just joined, and for which
	// relation-changed must be the next hook.
	ChangedPending string

	// Broken is set once relation-broken has run.
	Broken bool
}

// NewState returns the state of a relation nobody has joined.
func NewState(relationName string) *State {
	return &State{
		RelationName: relationName,
		Members:      set.NewStrings(),
	}
}

// Validate returns an error if hi may not run in the current state.
func (s *State) Validate(hi hook.Info) (err error) {
	defer errors.DeferredAnnotatef(&err, "inappropriate %q for %q", hi.Kind, hi.RemoteUnit)
	if hi.RelationName != s.RelationName {
		return fmt.Errorf("expected relation %q, got relation %q", s.RelationName, hi.RelationName)
	}
	if s.Broken {
		return fmt.Errorf("relation is broken and cannot be changed further")
	}
	if hi.Kind == hook.RelationBroken {
		if s.Members.IsEmpty() {
			return nil
		}
		return fmt.Errorf(`cannot run "relation-broken" while units still present`)
	}
	joined := s.Members.Contains(hi.RemoteUnit)
	switch {
	case s.ChangedPending != "":
		if hi.RemoteUnit != s.ChangedPending || hi.Kind != hook.RelationChanged {
			return fmt.Errorf(`expected "relation-changed" for %q`, s.ChangedPending)
		}
	case joined && hi.Kind == hook.RelationJoined:
		return fmt.Errorf("unit already joined")
	case !joined && hi.Kind != hook.RelationJoined:
		return fmt.Errorf("unit has not joined")
	}
	return nil
}

// Update records that hi ran successfully. Recording the same hook twice
// leaves the state unchanged.
func (s *State) Update(hi hook.Info) {
	switch hi.Kind {
	case hook.RelationJoined:
		s.Members.Add(hi.RemoteUnit)
		s.ChangedPending = hi.RemoteUnit
	case hook.RelationChanged:
		s.ChangedPending = ""
	case hook.RelationDeparted:
		s.Members.Remove(hi.RemoteUnit)
		if s.ChangedPending == hi.RemoteUnit {
			s.ChangedPending = ""
		}
	case hook.RelationBroken:
		s.Broken = true
	}
}

// diskInfo defines the relation state serialization.
type diskInfo struct {
	RelationName   string   `yaml:"relation"`
	Members        []string `yaml:"members,omitempty"`
	ChangedPending string   `yaml:"changed-pending,omitempty"`
	Broken         bool     `yaml:"broken,omitempty"`
}

// ReadStateFile loads the relation state persisted at path. A missing file
// yields a new state for relationName.
func ReadStateFile(path, relationName string) (_ *State, err error) {
	defer errors.DeferredAnnotatef(&err, "cannot load relation state from %q", path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewState(relationName), nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var info diskInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, errors.Trace(err)
	}
	if info.RelationName != relationName {
		return nil, errors.Errorf("state is for relation %q", info.RelationName)
	}
	st := NewState(relationName)
	st.Members = set.NewStrings(info.Members...)
	st.ChangedPending = info.ChangedPending
	st.Broken = info.Broken
	if st.ChangedPending != "" && !st.Members.Contains(st.ChangedPending) {
		return nil, errors.Errorf("changed pending for %q, which has not joined", st.ChangedPending)
	}
	return st, nil
}

// Write atomically persists the state at path.
func (s *State) Write(path string) error {
	members := naturalsort.Sort(s.Members.Values())
	data, err := yaml.Marshal(diskInfo{
		RelationName:   s.RelationName,
		Members:        members,
		ChangedPending: s.ChangedPending,
		Broken:         s.Broken,
	})
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(path, data, 0600), "cannot write relation state to %q", path)
}
