// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package datanode implements the provides side of the datanode relation.
// A data-storage unit uses it to publish the spec it was configured with,
// and to learn from the coordinating unit whether the two agree and
// whether it has been registered.
//
// The outcome is reported through three states on the state bus:
//
//	<relation>.related        the relation is joined
//	<relation>.spec.mismatch  both sides published, specs disagree
//	<relation>.ready          both sides published, specs agree, unit registered
package datanode

//go:generate go run ../generate/accessorgen accessors_generated.go datanode Provides host port webhdfs-port ssh-key

import (
	"encoding/json"
	"io"
	"math/big"
	"reflect"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"github.com/juju/schema"

	"github.com/juju/datanode/core/conversation"
	"github.com/juju/datanode/core/states"
	"github.com/juju/datanode/hook"
)

// DefaultRelationName is the endpoint name the datanode interface is
// usually declared under.
const DefaultRelationName = "datanode"

const (
	keySpec       = "spec"
	keyHostsMap   = "hosts-map"
	keyRegistered = "registered"
)

var (
	specSchema     = schema.StringMap(schema.Any())
	hostsMapSchema = schema.StringMap(schema.Any())
)

// Spec is the desired configuration of a storage node, as exchanged over
// the relation. Values are anything JSON can carry; numbers decoded from
// the relation are json.Number so that they keep their exact value.
type Spec map[string]interface{}

// Logger is the logging interface used by Provides.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warningf(string, ...interface{})
}

// Config holds the dependencies and identity of a Provides.
type Config struct {
	// RelationName is the local endpoint name of the relation.
	RelationName string

	// UnitName is the name of the local unit, e.g. "data/3".
	UnitName string

	// Scope decides how conversations are shared between remote units.
	Scope conversation.Scope

	// Conversations supplies the relation's conversation stores.
	Conversations conversation.Source

	// Bus receives the relation's states.
	Bus states.Bus

	// Logger receives the diagnostic output of the handlers.
	Logger Logger
}

// Validate returns an error if the config cannot be used to create a
// Provides.
func (config Config) Validate() error {
	if !states.IsValidRelationName(config.RelationName) {
		return errors.NotValidf("relation name %q", config.RelationName)
	}
	if !names.IsValidUnit(config.UnitName) {
		return errors.NotValidf("unit name %q", config.UnitName)
	}
	if err := config.Scope.Validate(); err != nil {
		return errors.Trace(err)
	}
	if config.Conversations == nil {
		return errors.NotValidf("nil Conversations")
	}
	if config.Bus == nil {
		return errors.NotValidf("nil Bus")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Provides reacts to the lifecycle hooks of the datanode relation and
// keeps the relation's states in line with the relation data.
//
// Hooks delivered through Handle run one at a time. While a hook runs,
// the accessors act on the conversation of the unit that triggered it.
type Provides struct {
	config        Config
	states        states.Names
	localHostname string

	// handling is held while a hook is being handled.
	handling sync.Mutex

	mu         sync.Mutex
	remoteUnit string
}

// NewProvides returns a Provides for the configured relation.
func NewProvides(config Config) (*Provides, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	stateNames, err := states.ForRelation(config.RelationName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Provides{
		config:        config,
		states:        stateNames,
		localHostname: strings.Replace(config.UnitName, "/", "-", -1),
	}, nil
}

// States returns the names of the states this relation owns.
func (p *Provides) States() states.Names {
	return p.states
}

// Handle runs the handler for the hook described by hi.
func (p *Provides) Handle(hi hook.Info) (err error) {
	defer errors.DeferredAnnotatef(&err, "handling %q", hi.String())
	if err := hi.Validate(); err != nil {
		return errors.Trace(err)
	}
	if hi.RelationName != p.config.RelationName {
		return errors.NotSupportedf("hook for relation %q", hi.RelationName)
	}

	p.handling.Lock()
	defer p.handling.Unlock()
	p.setRemoteUnit(hi.RemoteUnit)
	defer p.setRemoteUnit("")

	p.config.Logger.Debugf("running %q for %q", hi.String(), hi.RemoteUnit)
	switch hi.Kind {
	case hook.RelationJoined:
		return p.Joined()
	case hook.RelationChanged:
		return p.Changed()
	case hook.RelationDeparted:
		return p.Departed()
	case hook.RelationBroken:
		return p.Broken()
	}
	return errors.NotSupportedf("hook kind %q", hi.Kind)
}

// Joined marks the relation as related.
func (p *Provides) Joined() error {
	p.config.Bus.SetState(p.states.Related)
	return nil
}

// Changed re-evaluates the relation data and toggles the spec.mismatch
// and ready states to match it.
func (p *Provides) Changed() error {
	conv, err := p.conversation()
	if err != nil {
		return errors.Trace(err)
	}
	var (
		spec        = p.remoteSpec(conv)
		host        = p.Host()
		port        = p.Port()
		webhdfsPort = p.WebHDFSPort()
		sshKey      = p.SSHKey()
		hostsMap    = p.hostsMap(conv)
	)
	p.config.Logger.Infof("Data: %v", map[string]interface{}{
		"spec":           spec,
		"host":           host,
		"port":           port,
		"webhdfs_port":   webhdfsPort,
		"hosts_map":      hostsMap,
		"local_hostname": p.localHostname,
	})

	available := len(spec) > 0 && host != "" && port != "" && webhdfsPort != "" && sshKey != ""
	matches := specMatches(p.localSpec(conv), spec)
	registered := false
	for _, hostname := range hostsMap {
		if hostname == p.localHostname {
			registered = true
			break
		}
	}

	p.config.Bus.ToggleState(p.states.SpecMismatch, available && !matches)
	p.config.Bus.ToggleState(p.states.Ready, available && matches && registered)

	p.config.Logger.Infof("States: %v", p.config.Bus.States())
	return nil
}

// Departed clears every state owned by the relation. The local spec is
// left in place.
func (p *Provides) Departed() error {
	for _, name := range p.states.All() {
		p.config.Bus.RemoveState(name)
	}
	return nil
}

// Broken is handled exactly as Departed.
func (p *Provides) Broken() error {
	return p.Departed()
}

// SetSpec publishes the local spec. It should be called once the
// relation's related state is set.
func (p *Provides) SetSpec(spec Spec) error {
	if spec == nil {
		spec = Spec{}
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return errors.Annotate(err, "cannot encode spec")
	}
	conv, err := p.conversation()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(conv.SetLocal(keySpec, string(data)), "cannot set spec")
}

// Spec returns the spec published by the remote side. It is empty if none
// was published or if it cannot be decoded.
func (p *Provides) Spec() Spec {
	conv, err := p.conversation()
	if err != nil {
		p.config.Logger.Warningf("cannot read remote spec: %v", err)
		return Spec{}
	}
	return p.remoteSpec(conv)
}

// LocalSpec returns the spec set with SetSpec, or an empty spec.
func (p *Provides) LocalSpec() Spec {
	conv, err := p.conversation()
	if err != nil {
		p.config.Logger.Warningf("cannot read local spec: %v", err)
		return Spec{}
	}
	return p.localSpec(conv)
}

// SpecMatches reports whether every key of the local spec has an equal
// value in the remote spec.
func (p *Provides) SpecMatches() bool {
	conv, err := p.conversation()
	if err != nil {
		p.config.Logger.Warningf("cannot compare specs: %v", err)
		return false
	}
	return specMatches(p.localSpec(conv), p.remoteSpec(conv))
}

// HostsMap returns the hosts registered by the remote side, keyed by an
// identifier meaningful only to that side.
func (p *Provides) HostsMap() map[string]string {
	conv, err := p.conversation()
	if err != nil {
		p.config.Logger.Warningf("cannot read hosts map: %v", err)
		return map[string]string{}
	}
	return p.hostsMap(conv)
}

// LocalHostname returns the hostname the remote side registers this unit
// under: the unit name with "/" replaced by "-".
func (p *Provides) LocalHostname() string {
	return p.localHostname
}

// Register signals the remote side that this unit considers itself
// registered.
func (p *Provides) Register() error {
	conv, err := p.conversation()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(conv.SetRemote(keyRegistered, "true"), "cannot register")
}

// RunFor calls f with the accessors acting on the conversation of
// remoteUnit, as they do while a hook triggered by that unit is handled.
// It must not be called from within a handler.
func (p *Provides) RunFor(remoteUnit string, f func() error) error {
	p.handling.Lock()
	defer p.handling.Unlock()
	p.setRemoteUnit(remoteUnit)
	defer p.setRemoteUnit("")
	return f()
}

func (p *Provides) setRemoteUnit(unit string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteUnit = unit
}

// conversation returns the conversation of the current remote unit.
func (p *Provides) conversation() (conversation.Store, error) {
	p.mu.Lock()
	unit := p.remoteUnit
	p.mu.Unlock()
	key, err := conversation.KeyFor(p.config.Scope, p.config.RelationName, unit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	conv, err := p.config.Conversations.Conversation(key)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot get conversation %q", key)
	}
	return conv, nil
}

// remoteField returns a remote setting of the current conversation.
func (p *Provides) remoteField(key string) string {
	conv, err := p.conversation()
	if err != nil {
		p.config.Logger.Warningf("cannot read remote %q: %v", key, err)
		return ""
	}
	value, _ := conv.GetRemote(key)
	return value
}

func (p *Provides) remoteSpec(conv conversation.Store) Spec {
	raw, _ := conv.GetRemote(keySpec)
	return Spec(p.decode("remote "+keySpec, raw, specSchema))
}

func (p *Provides) localSpec(conv conversation.Store) Spec {
	raw, _ := conv.GetLocal(keySpec)
	return Spec(p.decode("local "+keySpec, raw, specSchema))
}

func (p *Provides) hostsMap(conv conversation.Store) map[string]string {
	raw, _ := conv.GetRemote(keyHostsMap)
	decoded := p.decode("remote "+keyHostsMap, raw, hostsMapSchema)
	hosts := make(map[string]string, len(decoded))
	for id, value := range decoded {
		hostname, ok := value.(string)
		if !ok {
			p.config.Logger.Debugf("ignoring %s entry %q: %v is not a hostname", keyHostsMap, id, value)
			continue
		}
		hosts[id] = hostname
	}
	return hosts
}

// decode parses raw as a JSON object and coerces it with checker.
// Anything that does not decode is treated as an empty object.
func (p *Provides) decode(what, raw string, checker schema.Checker) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		p.config.Logger.Warningf("ignoring malformed %s: %v", what, err)
		return map[string]interface{}{}
	}
	if _, err := dec.Token(); err != io.EOF {
		p.config.Logger.Warningf("ignoring malformed %s: trailing data", what)
		return map[string]interface{}{}
	}
	coerced, err := checker.Coerce(value, []string{what})
	if err != nil {
		p.config.Logger.Warningf("ignoring invalid %s: %v", what, err)
		return map[string]interface{}{}
	}
	return coerced.(map[string]interface{})
}

// specMatches reports whether every key of local has an equal value in
// remote. Keys only present in remote are ignored.
func specMatches(local, remote Spec) bool {
	for key, value := range local {
		remoteValue, ok := remote[key]
		if !ok || !valuesEqual(value, remoteValue) {
			return false
		}
	}
	return true
}

// valuesEqual compares two decoded JSON values. Numbers are equal when
// their exact values are, so 1 equals 1.0 and large integers never round.
func valuesEqual(a, b interface{}) bool {
	if x, ok := exactNumber(a); ok {
		y, ok := exactNumber(b)
		return ok && x.Cmp(y) == 0
	}
	switch a := a.(type) {
	case map[string]interface{}:
		b, ok := b.(map[string]interface{})
		if !ok || len(a) != len(b) {
			return false
		}
		for key, value := range a {
			other, ok := b[key]
			if !ok || !valuesEqual(value, other) {
				return false
			}
		}
		return true
	case []interface{}:
		b, ok := b.([]interface{})
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !valuesEqual(a[i], b[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// exactNumber returns the exact value of a JSON number, or false if v is
// not a number.
func exactNumber(v interface{}) (*big.Rat, bool) {
	switch v := v.(type) {
	case json.Number:
		return new(big.Rat).SetString(v.String())
	case float64:
		r := new(big.Rat).SetFloat64(v)
		return r, r != nil
	case int:
		return new(big.Rat).SetInt64(int64(v)), true
	case int64:
		return new(big.Rat).SetInt64(v), true
	}
	return nil, false
}
