// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datanode_test

import (
	"encoding/json"

	"github.com/juju/testing"
	gc "gopkg.in/check.v1"

	"github.com/juju/datanode/core/states"
	"github.com/juju/datanode/datanode"
)

type matchSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&matchSuite{})

func datanodeState(suffix string) states.Name {
	return states.Name("datanode." + suffix)
}

var specMatchTests = []struct {
	about  string
	local  datanode.Spec
	remote datanode.Spec
	match  bool
}{{
	about:  "extra remote keys are ignored",
	local:  datanode.Spec{"cluster": "a", "port": float64(50010)},
	remote: datanode.Spec{"cluster": "a", "port": float64(50010), "extra": float64(1)},
	match:  true,
}, {
	about:  "different value",
	local:  datanode.Spec{"cluster": "a"},
	remote: datanode.Spec{"cluster": "b"},
	match:  false,
}, {
	about:  "empty local spec matches vacuously",
	local:  datanode.Spec{},
	remote: datanode.Spec{"cluster": "b"},
	match:  true,
}, {
	about: "nil specs",
	match: true,
}, {
	about:  "missing remote key",
	local:  datanode.Spec{"cluster": "a", "dirs": []interface{}{"/srv"}},
	remote: datanode.Spec{"cluster": "a"},
	match:  false,
}, {
	about:  "missing remote key for a null local value",
	local:  datanode.Spec{"cluster": nil},
	remote: datanode.Spec{},
	match:  false,
}, {
	about:  "nested values compare deeply",
	local:  datanode.Spec{"dirs": []interface{}{"/srv/a", "/srv/b"}, "opts": map[string]interface{}{"ha": true}},
	remote: datanode.Spec{"dirs": []interface{}{"/srv/a", "/srv/b"}, "opts": map[string]interface{}{"ha": true}},
	match:  true,
}, {
	about:  "nested values differ",
	local:  datanode.Spec{"dirs": []interface{}{"/srv/a", "/srv/b"}},
	remote: datanode.Spec{"dirs": []interface{}{"/srv/b", "/srv/a"}},
	match:  false,
}, {
	about:  "types differ",
	local:  datanode.Spec{"port": float64(50010)},
	remote: datanode.Spec{"port": "50010"},
	match:  false,
}, {
	about:  "large integers differing in the last digit",
	local:  datanode.Spec{"id": json.Number("9007199254740993")},
	remote: datanode.Spec{"id": json.Number("9007199254740992")},
	match:  false,
}, {
	about:  "equal large integers",
	local:  datanode.Spec{"id": json.Number("123456789012345678901234567890")},
	remote: datanode.Spec{"id": json.Number("123456789012345678901234567890")},
	match:  true,
}, {
	about:  "integer and float notation of the same number",
	local:  datanode.Spec{"n": json.Number("1"), "m": json.Number("100")},
	remote: datanode.Spec{"n": json.Number("1.0"), "m": json.Number("1e2")},
	match:  true,
}, {
	about:  "nested large integers",
	local:  datanode.Spec{"ids": []interface{}{json.Number("9007199254740993")}},
	remote: datanode.Spec{"ids": []interface{}{json.Number("9007199254740992")}},
	match:  false,
}, {
	about:  "nested objects with different keys",
	local:  datanode.Spec{"opts": map[string]interface{}{"ha": true}},
	remote: datanode.Spec{"opts": map[string]interface{}{"ha": true, "x": json.Number("1")}},
	match:  false,
}, {
	about:  "number and string",
	local:  datanode.Spec{"port": json.Number("50010")},
	remote: datanode.Spec{"port": "50010"},
	match:  false,
}, {
	about:  "Go and decoded numbers",
	local:  datanode.Spec{"port": 50010},
	remote: datanode.Spec{"port": json.Number("50010")},
	match:  true,
}}

func (*matchSuite) TestSpecMatches(c *gc.C) {
	for i, t := range specMatchTests {
		c.Logf("test %d: %s", i, t.about)
		c.Check(datanode.SpecMatches(t.local, t.remote), gc.Equals, t.match)
	}
}
