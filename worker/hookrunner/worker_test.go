// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookrunner_test

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/datanode/hook"
	"github.com/juju/datanode/relation"
	"github.com/juju/datanode/worker/hookrunner"
)

const longWait = 10 * time.Second

type workerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&workerSuite{})

// recordingHandler records the hooks it handles and checks that no two
// run at once.
type recordingHandler struct {
	mu      sync.Mutex
	running bool
	overlap bool
	hooks   []hook.Info
	fail    map[hook.Kind]error
}

func (h *recordingHandler) Handle(hi hook.Info) error {
	h.mu.Lock()
	if h.running {
		h.overlap = true
	}
	h.running = true
	h.mu.Unlock()

	time.Sleep(time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	h.hooks = append(h.hooks, hi)
	return h.fail[hi.Kind]
}

func (h *recordingHandler) handled() []hook.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hook.Info(nil), h.hooks...)
}

func info(kind hook.Kind, unit string) hook.Info {
	return hook.Info{Kind: kind, RelationName: "datanode", RemoteUnit: unit}
}

func (s *workerSuite) config(hooks <-chan hook.Info, handler hookrunner.Handler) hookrunner.Config {
	return hookrunner.Config{
		Hooks:   hooks,
		Handler: handler,
		Clock:   clock.WallClock,
		Logger:  loggo.GetLogger("datanode.hookrunner.test"),
	}
}

func (s *workerSuite) waitDone(c *gc.C, w *hookrunner.Worker) error {
	done := make(chan error, 1)
	go func() { done <- w.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(longWait):
		c.Fatalf("worker did not finish")
	}
	return nil
}

func (s *workerSuite) TestValidate(c *gc.C) {
	hooks := make(chan hook.Info)
	valid := s.config(hooks, &recordingHandler{})
	c.Assert(valid.Validate(), jc.ErrorIsNil)

	for i, t := range []struct {
		mutate func(*hookrunner.Config)
		err    string
	}{
		{func(cfg *hookrunner.Config) { cfg.Hooks = nil }, "nil Hooks not valid"},
		{func(cfg *hookrunner.Config) { cfg.Handler = nil }, "nil Handler not valid"},
		{func(cfg *hookrunner.Config) { cfg.Clock = nil }, "nil Clock not valid"},
		{func(cfg *hookrunner.Config) { cfg.Logger = nil }, "nil Logger not valid"},
	} {
		c.Logf("test %d", i)
		cfg := valid
		t.mutate(&cfg)
		_, err := hookrunner.NewWorker(cfg)
		c.Check(err, gc.ErrorMatches, t.err)
		c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	}
}

func (s *workerSuite) TestRunsHooksInOrder(c *gc.C) {
	hooks := make(chan hook.Info, 10)
	expect := []hook.Info{
		info(hook.RelationJoined, "namenode/0"),
		info(hook.RelationChanged, "namenode/0"),
		info(hook.RelationChanged, "namenode/0"),
		info(hook.RelationDeparted, "namenode/0"),
		info(hook.RelationBroken, ""),
	}
	for _, hi := range expect {
		hooks <- hi
	}
	close(hooks)

	handler := &recordingHandler{}
	var committed []hook.Info
	cfg := s.config(hooks, handler)
	cfg.Relation = relation.NewState("datanode")
	cfg.Committed = func(hi hook.Info) error {
		committed = append(committed, hi)
		return nil
	}
	w, err := hookrunner.NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)

	c.Assert(s.waitDone(c, w), jc.ErrorIsNil)
	c.Check(handler.handled(), jc.DeepEquals, expect)
	c.Check(committed, jc.DeepEquals, expect)
	c.Check(handler.overlap, jc.IsFalse)
	c.Check(cfg.Relation.Broken, jc.IsTrue)
}

func (s *workerSuite) TestHandlerError(c *gc.C) {
	hooks := make(chan hook.Info, 2)
	hooks <- info(hook.RelationJoined, "namenode/0")
	hooks <- info(hook.RelationChanged, "namenode/0")

	handler := &recordingHandler{fail: map[hook.Kind]error{
		hook.RelationChanged: errors.New("boom"),
	}}
	cfg := s.config(hooks, handler)
	cfg.Relation = relation.NewState("datanode")
	w, err := hookrunner.NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)

	err = s.waitDone(c, w)
	c.Check(err, gc.ErrorMatches, `hook "datanode-relation-changed" failed: boom`)
	c.Check(handler.handled(), gc.HasLen, 2)
	// The failed hook is still pending.
	c.Check(cfg.Relation.ChangedPending, gc.Equals, "namenode/0")
}

func (s *workerSuite) TestOutOfOrderHook(c *gc.C) {
	hooks := make(chan hook.Info, 1)
	hooks <- info(hook.RelationChanged, "namenode/0")

	handler := &recordingHandler{}
	cfg := s.config(hooks, handler)
	cfg.Relation = relation.NewState("datanode")
	w, err := hookrunner.NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)

	err = s.waitDone(c, w)
	c.Check(err, gc.ErrorMatches, `inappropriate "relation-changed" for "namenode/0": unit has not joined`)
	c.Check(handler.handled(), gc.HasLen, 0)
}

func (s *workerSuite) TestCommitError(c *gc.C) {
	hooks := make(chan hook.Info, 1)
	hooks <- info(hook.RelationJoined, "namenode/0")

	cfg := s.config(hooks, &recordingHandler{})
	cfg.Committed = func(hook.Info) error {
		return errors.New("disk full")
	}
	w, err := hookrunner.NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)

	err = s.waitDone(c, w)
	c.Check(err, gc.ErrorMatches, `committing hook "datanode-relation-joined": disk full`)
}

func (s *workerSuite) TestKill(c *gc.C) {
	hooks := make(chan hook.Info)
	w, err := hookrunner.NewWorker(s.config(hooks, &recordingHandler{}))
	c.Assert(err, jc.ErrorIsNil)
	workertest.CheckAlive(c, w)
	workertest.CleanKill(c, w)
}
