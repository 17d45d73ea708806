// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package acl

import (
	"fmt"
	"strings"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Decision represents the result of evaluating an access rule list.
type Decision int8

const (
	// Deny is returned when no allow rule matched.
	Deny Decision = iota

	// Allow is returned when an allow rule matched first.
	Allow
)

// String returns Decision string representation.
func (d Decision) String() string {
	if d == Allow {
		return allowAction
	}
	return denyAction
}

const (
	allowAction = "allow"
	denyAction  = "deny"
)

const (
	// AllRuleList names the built-in rule list that allows every identity.
	AllRuleList = "all"

	// NoneRuleList names the built-in rule list that denies every identity.
	NoneRuleList = "none"
)

// RuleConfig contains a single access rule configuration.
type RuleConfig struct {
	Match  string `fig:"match"`
	Action string `fig:"action"`
}

// Config contains access control configuration.
type Config struct {
	// Groups maps a group name to its members. A member is either a bare JID or a domain.
	Groups map[string][]string `fig:"groups"`

	// Rules maps a rule list name to its ordered rules.
	Rules map[string][]RuleConfig `fig:"rules"`
}

type rule struct {
	pred   Predicate
	action Decision
}

// Evaluator evaluates named access rule lists.
// Evaluator is read-only once created, so it can be shared among goroutines without synchronization.
type Evaluator struct {
	groups map[string]groupPredicate
	lists  map[string][]rule
}

// New returns a new Evaluator built from cfg.
func New(cfg Config) (*Evaluator, error) {
	e := &Evaluator{
		groups: make(map[string]groupPredicate, len(cfg.Groups)),
		lists:  make(map[string][]rule, len(cfg.Rules)+2),
	}
	for name, members := range cfg.Groups {
		grp := make(groupPredicate, len(members))
		for _, m := range members {
			grp[strings.TrimSpace(m)] = struct{}{}
		}
		e.groups[name] = grp
	}
	e.lists[AllRuleList] = []rule{{pred: matchAll, action: Allow}}
	e.lists[NoneRuleList] = []rule{{pred: matchAll, action: Deny}}

	for name, rules := range cfg.Rules {
		if name == AllRuleList || name == NoneRuleList {
			return nil, fmt.Errorf("acl: rule list name %s is reserved", name)
		}
		var rl []rule
		for _, rc := range rules {
			pred, err := parsePredicate(rc.Match, e.groups)
			if err != nil {
				return nil, err
			}
			action, err := parseAction(rc.Action)
			if err != nil {
				return nil, err
			}
			rl = append(rl, rule{pred: pred, action: action})
		}
		e.lists[name] = rl
	}
	return e, nil
}

// Evaluate evaluates list rules in order against id. The first matching rule decides.
// Deny is returned when nothing matches or when the list is not defined.
func (e *Evaluator) Evaluate(list string, id *jid.JID) Decision {
	for _, r := range e.lists[list] {
		if r.pred.Matches(id) {
			return r.action
		}
	}
	return Deny
}

// IsAllowed is a convenience wrapper over Evaluate.
func (e *Evaluator) IsAllowed(list string, id *jid.JID) bool {
	return e.Evaluate(list, id) == Allow
}

// HasRuleList tells whether a rule list with the given name is defined.
func (e *Evaluator) HasRuleList(list string) bool {
	_, ok := e.lists[list]
	return ok
}

// Predicate parses a predicate expression resolving group references against the evaluator groups.
func (e *Evaluator) Predicate(expr string) (Predicate, error) {
	return parsePredicate(expr, e.groups)
}

func parseAction(action string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "", allowAction:
		return Allow, nil
	case denyAction:
		return Deny, nil
	}
	return Deny, fmt.Errorf("acl: unrecognized action: %s", action)
}
