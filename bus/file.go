// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package bus

import (
	"os"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"
)

// stateFile defines the serialization of the active states.
type stateFile struct {
	States []string `yaml:"states"`
}

// ReadStateFile returns the state names persisted at path. A missing file
// holds no states.
func ReadStateFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Annotatef(err, "cannot read states from %q", path)
	}
	var sf stateFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, errors.Annotatef(err, "invalid state file %q", path)
	}
	return sf.States, nil
}

// WriteStateFile atomically persists the state names at path.
func WriteStateFile(path string, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	data, err := yaml.Marshal(stateFile{States: sorted})
	if err != nil {
		return errors.Trace(err)
	}
	if err := utils.AtomicWriteFile(path, data, 0600); err != nil {
		return errors.Annotatef(err, "cannot write states to %q", path)
	}
	return nil
}
