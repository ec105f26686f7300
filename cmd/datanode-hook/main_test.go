// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/datanode/bus"
	"github.com/juju/datanode/conversation"
	"github.com/juju/datanode/relation"
)

type mainSuite struct {
	testing.IsolationSuite

	stateDir string
	remote   string
	spec     string
}

var _ = gc.Suite(&mainSuite{})

const remoteSettings = `
spec: '{"replication": 3}'
host: namenode-0
port: "8020"
webhdfs-port: "50070"
ssh-key: ssh-rsa AAAA
hosts-map: '{"10.0.0.3": "data-3"}'
`

func (s *mainSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	dir := c.MkDir()
	s.stateDir = filepath.Join(dir, "state")
	s.remote = filepath.Join(dir, "remote.yaml")
	s.spec = filepath.Join(dir, "spec.json")
	c.Assert(os.WriteFile(s.remote, []byte(remoteSettings), 0644), jc.ErrorIsNil)
	c.Assert(os.WriteFile(s.spec, []byte(`{"replication": 3}`), 0644), jc.ErrorIsNil)
}

func (s *mainSuite) run(c *gc.C, env map[string]string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	args = append([]string{"--state-dir", s.stateDir, "--unit", "data/3"}, args...)
	code := Main(args, envMap(env), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (s *mainSuite) TestReady(c *gc.C) {
	code, stdout, stderr := s.run(c, nil,
		"--remote-unit", "namenode/0",
		"--remote-settings", s.remote,
		"--set-spec", s.spec,
		"--register",
		"datanode-relation-joined",
		"datanode-relation-changed",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.ready\ndatanode.related\n")

	active, err := bus.ReadStateFile(filepath.Join(s.stateDir, "states.yaml"))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(active, jc.DeepEquals, []string{"datanode.ready", "datanode.related"})

	conversations, err := conversation.ReadStateDir(filepath.Join(s.stateDir, "conversations"))
	c.Assert(err, jc.ErrorIsNil)
	settings, err := conversations.Settings("datanode")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(settings.Local, jc.DeepEquals, map[string]string{"spec": `{"replication":3}`})
	c.Check(settings.Remote["registered"], gc.Equals, "true")

	st, err := relation.ReadStateFile(filepath.Join(s.stateDir, "relation.yaml"), "datanode")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(st.Members.SortedValues(), jc.DeepEquals, []string{"namenode/0"})
	c.Check(st.ChangedPending, gc.Equals, "")
}

func (s *mainSuite) TestSpecMismatch(c *gc.C) {
	c.Assert(os.WriteFile(s.spec, []byte(`{"replication": 2}`), 0644), jc.ErrorIsNil)
	code, stdout, stderr := s.run(c, nil,
		"--remote-unit", "namenode/0",
		"--remote-settings", s.remote,
		"--set-spec", s.spec,
		"datanode-relation-joined",
		"datanode-relation-changed",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.related\ndatanode.spec.mismatch\n")
}

func (s *mainSuite) TestSpecFileKeepsLargeIntegers(c *gc.C) {
	c.Assert(os.WriteFile(s.spec, []byte(`{"replication": 9007199254740993}`), 0644), jc.ErrorIsNil)
	remote := strings.Replace(remoteSettings, `{"replication": 3}`, `{"replication": 9007199254740992}`, 1)
	c.Assert(os.WriteFile(s.remote, []byte(remote), 0644), jc.ErrorIsNil)

	code, stdout, stderr := s.run(c, nil,
		"--remote-unit", "namenode/0",
		"--remote-settings", s.remote,
		"--set-spec", s.spec,
		"datanode-relation-joined",
		"datanode-relation-changed",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.related\ndatanode.spec.mismatch\n")
}

func (s *mainSuite) TestStatePersistsAcrossRuns(c *gc.C) {
	code, stdout, stderr := s.run(c, nil,
		"--remote-unit", "namenode/0",
		"--remote-settings", s.remote,
		"datanode-relation-joined",
		"datanode-relation-changed",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.ready\ndatanode.related\n")

	code, stdout, stderr = s.run(c, nil,
		"--remote-unit", "namenode/0",
		"datanode-relation-departed",
		"datanode-relation-broken",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "")

	st, err := relation.ReadStateFile(filepath.Join(s.stateDir, "relation.yaml"), "datanode")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(st.Members.IsEmpty(), jc.IsTrue)
	c.Check(st.Broken, jc.IsTrue)

	// Nothing runs on a broken relation.
	code, _, stderr = s.run(c, nil, "--remote-unit", "namenode/0", "datanode-relation-joined")
	c.Check(code, gc.Equals, exit_fail)
	c.Check(stderr, jc.Contains, "relation is broken and cannot be changed further")
}

func (s *mainSuite) TestHookFromEnvironment(c *gc.C) {
	code, stdout, stderr := s.run(c, map[string]string{
		"JUJU_HOOK_NAME":   "datanode-relation-joined",
		"JUJU_RELATION":    "datanode",
		"JUJU_RELATION_ID": "datanode:4",
		"JUJU_REMOTE_UNIT": "namenode/0",
	})
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.related\n")
}

func (s *mainSuite) TestOutOfOrderHook(c *gc.C) {
	code, stdout, stderr := s.run(c, nil, "--remote-unit", "namenode/0", "datanode-relation-changed")
	c.Check(code, gc.Equals, exit_fail)
	c.Check(stdout, gc.Equals, "")
	c.Check(stderr, jc.Contains, `inappropriate "relation-changed" for "namenode/0": unit has not joined`)

	_, err := os.Stat(filepath.Join(s.stateDir, "states.yaml"))
	c.Check(os.IsNotExist(err), jc.IsTrue)
}

func (s *mainSuite) TestUsageError(c *gc.C) {
	code, _, stderr := s.run(c, nil, "--scope", "model", "datanode-relation-broken")
	c.Check(code, gc.Equals, exit_err)
	c.Check(stderr, gc.Equals, "error: conversation scope \"model\" not valid\n")
}

func (s *mainSuite) TestInvalidLogConfig(c *gc.C) {
	code, _, stderr := s.run(c, nil, "--log-config", "<root>=NOISY", "datanode-relation-broken")
	c.Check(code, gc.Equals, exit_err)
	c.Check(stderr, jc.Contains, "invalid log config")
}

func (s *mainSuite) TestUnitScope(c *gc.C) {
	code, stdout, stderr := s.run(c, nil,
		"--scope", "unit",
		"--remote-unit", "namenode/1",
		"--remote-settings", s.remote,
		"datanode-relation-joined",
		"datanode-relation-changed",
	)
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout, gc.Equals, "datanode.ready\ndatanode.related\n")

	_, err := os.Stat(filepath.Join(s.stateDir, "conversations", "datanode:namenode-1.yaml"))
	c.Check(err, jc.ErrorIsNil)
}
