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
	"regexp"
	"strings"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	allPredicate  = "all"
	nonePredicate = "none"

	userPrefix         = "user:"
	serverPrefix       = "server:"
	groupPrefix        = "group:"
	userRegExpPrefix   = "user_regexp:"
	serverRegExpPrefix = "server_regexp:"
)

// Predicate matches an identity.
type Predicate interface {
	// Matches tells whether id satisfies the predicate.
	// A nil id represents a not yet identified entity.
	Matches(id *jid.JID) bool
}

type predicateFunc func(id *jid.JID) bool

func (f predicateFunc) Matches(id *jid.JID) bool { return f(id) }

var (
	matchAll  = predicateFunc(func(_ *jid.JID) bool { return true })
	matchNone = predicateFunc(func(_ *jid.JID) bool { return false })
)

type userPredicate struct {
	node   string
	domain string
}

func (p userPredicate) Matches(id *jid.JID) bool {
	if id == nil || id.Node() != p.node {
		return false
	}
	return len(p.domain) == 0 || id.Domain() == p.domain
}

type serverPredicate string

func (p serverPredicate) Matches(id *jid.JID) bool {
	return id != nil && id.Domain() == string(p)
}

type groupPredicate map[string]struct{}

func (p groupPredicate) Matches(id *jid.JID) bool {
	if id == nil {
		return false
	}
	if _, ok := p[id.ToBareJID().String()]; ok {
		return true
	}
	_, ok := p[id.Domain()]
	return ok
}

type regexpPredicate struct {
	re      *regexp.Regexp
	extract func(id *jid.JID) string
}

func (p regexpPredicate) Matches(id *jid.JID) bool {
	if id == nil {
		return false
	}
	return p.re.MatchString(p.extract(id))
}

func parsePredicate(expr string, groups map[string]groupPredicate) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == allPredicate:
		return matchAll, nil

	case expr == nonePredicate:
		return matchNone, nil

	case strings.HasPrefix(expr, userPrefix):
		v := strings.TrimPrefix(expr, userPrefix)
		if len(v) == 0 {
			return nil, fmt.Errorf("acl: empty user predicate")
		}
		node, domain := v, ""
		if i := strings.IndexByte(v, '@'); i >= 0 {
			node, domain = v[:i], v[i+1:]
		}
		return userPredicate{node: node, domain: domain}, nil

	case strings.HasPrefix(expr, serverPrefix):
		v := strings.TrimPrefix(expr, serverPrefix)
		if len(v) == 0 {
			return nil, fmt.Errorf("acl: empty server predicate")
		}
		return serverPredicate(v), nil

	case strings.HasPrefix(expr, groupPrefix):
		name := strings.TrimPrefix(expr, groupPrefix)
		grp, ok := groups[name]
		if !ok {
			return nil, fmt.Errorf("acl: unknown group: %s", name)
		}
		return grp, nil

	case strings.HasPrefix(expr, userRegExpPrefix):
		re, err := regexp.Compile(strings.TrimPrefix(expr, userRegExpPrefix))
		if err != nil {
			return nil, fmt.Errorf("acl: invalid user regexp: %w", err)
		}
		return regexpPredicate{re: re, extract: func(id *jid.JID) string { return id.ToBareJID().String() }}, nil

	case strings.HasPrefix(expr, serverRegExpPrefix):
		re, err := regexp.Compile(strings.TrimPrefix(expr, serverRegExpPrefix))
		if err != nil {
			return nil, fmt.Errorf("acl: invalid server regexp: %w", err)
		}
		return regexpPredicate{re: re, extract: func(id *jid.JID) string { return id.Domain() }}, nil
	}
	return nil, fmt.Errorf("acl: unrecognized predicate: %s", expr)
}
