// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package conversation

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/naturalsort"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"
)

var logger = loggo.GetLogger("datanode.conversation")

const fileSuffix = ".yaml"

// StateDir is a Memory backed by a directory holding one file per
// conversation. Changes are only persisted by Write. Concurrent
// modifications to the underlying directory may cause StateDir
// instances to exhibit undefined behaviour.
type StateDir struct {
	*Memory

	// path identifies the directory holding persistent state.
	path string
}

// diskInfo defines the conversation serialization.
type diskInfo struct {
	Key    string            `yaml:"key"`
	Local  map[string]string `yaml:"local,omitempty"`
	Remote map[string]string `yaml:"remote,omitempty"`
}

// ReadStateDir loads every conversation persisted in dirPath. Entries not
// ending in ".yaml" are ignored. If the directory does not exist, it will
// be created.
func ReadStateDir(dirPath string) (_ *StateDir, err error) {
	defer errors.DeferredAnnotatef(&err, "cannot load conversations from %q", dirPath)
	if err := ensureDir(dirPath); err != nil {
		return nil, errors.Trace(err)
	}
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	d := &StateDir{
		Memory: NewMemory(),
		path:   dirPath,
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			return nil, errors.Trace(err)
		}
		var info diskInfo
		if err := yaml.Unmarshal(data, &info); err != nil {
			return nil, errors.Errorf("invalid conversation file %q: %v", name, err)
		}
		if info.Key == "" {
			return nil, errors.Errorf(`invalid conversation file %q: "key" not set`, name)
		}
		if fsName(info.Key) != name {
			return nil, errors.Errorf("conversation file %q holds key %q", name, info.Key)
		}
		d.restore(info.Key, &Settings{Local: info.Local, Remote: info.Remote})
	}
	logger.Debugf("loaded %d conversation(s) from %q", len(d.Keys()), dirPath)
	return d, nil
}

// Path returns the directory the conversations are persisted in.
func (d *StateDir) Path() string {
	return d.path
}

// Write atomically persists every conversation changed since the last
// call to Write.
func (d *StateDir) Write() (err error) {
	defer errors.DeferredAnnotatef(&err, "cannot write conversations to %q", d.path)
	changed := d.takeDirty()
	keys := make([]string, 0, len(changed))
	for key := range changed {
		keys = append(keys, key)
	}
	naturalsort.Sort(keys)
	for i, key := range keys {
		s := changed[key]
		data, err := yaml.Marshal(diskInfo{Key: key, Local: s.Local, Remote: s.Remote})
		if err != nil {
			d.markDirty(keys[i:])
			return errors.Trace(err)
		}
		if err := utils.AtomicWriteFile(filepath.Join(d.path, fsName(key)), data, 0600); err != nil {
			d.markDirty(keys[i:])
			return errors.Trace(err)
		}
		logger.Tracef("wrote conversation %q", key)
	}
	return nil
}

// fsName returns the file name holding the conversation with the given
// key.
func fsName(key string) string {
	return strings.Replace(key, "/", "-", -1) + fileSuffix
}

// ensureDir creates the directory at path if it does not exist, and
// fails if something other than a directory is there.
func ensureDir(path string) error {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	} else if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.Errorf("%q is not a directory", path)
	}
	return nil
}
