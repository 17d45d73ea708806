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

package shaper

import (
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/acl"
)

// UnlimitedProfile is applied whenever no shaper rule matches.
var UnlimitedProfile = Profile{Name: "unlimited", Unlimited: true}

// Profile contains a named shaper parameter set.
type Profile struct {
	Name      string `fig:"name"`
	Rate      int    `fig:"rate"`
	BurstSize int    `fig:"burst_size"`
	Unlimited bool   `fig:"unlimited"`
}

// RuleConfig binds an access predicate to a profile name.
type RuleConfig struct {
	Match   string `fig:"match"`
	Profile string `fig:"profile"`
}

// Config contains shaper profiles and rules configuration.
type Config struct {
	Profiles []Profile               `fig:"profiles"`
	Rules    map[string][]RuleConfig `fig:"rules"`
}

type rule struct {
	pred    acl.Predicate
	profile Profile
}

// Rules maps a connection class to an ordered set of profile rules.
type Rules struct {
	profiles map[string]Profile
	classes  map[string][]rule
}

// NewRules builds shaper rules from cfg. Rule predicates are parsed using ev, so they can
// refer to any group it defines.
func NewRules(cfg Config, ev *acl.Evaluator) (*Rules, error) {
	rs := &Rules{
		profiles: make(map[string]Profile, len(cfg.Profiles)),
		classes:  make(map[string][]rule, len(cfg.Rules)),
	}
	for _, p := range cfg.Profiles {
		if len(p.Name) == 0 {
			return nil, fmt.Errorf("shaper: unnamed profile")
		}
		if _, ok := rs.profiles[p.Name]; ok {
			return nil, fmt.Errorf("shaper: duplicated profile: %s", p.Name)
		}
		if !p.Unlimited && (p.Rate <= 0 || p.BurstSize <= 0) {
			return nil, fmt.Errorf("shaper: profile %s: rate and burst_size must be positive", p.Name)
		}
		rs.profiles[p.Name] = p
	}
	for class, rules := range cfg.Rules {
		for _, rc := range rules {
			p, ok := rs.profiles[rc.Profile]
			if !ok {
				return nil, fmt.Errorf("shaper: %s: unknown profile: %s", class, rc.Profile)
			}
			pred, err := ev.Predicate(rc.Match)
			if err != nil {
				return nil, err
			}
			rs.classes[class] = append(rs.classes[class], rule{pred: pred, profile: p})
		}
	}
	return rs, nil
}

// Profile returns the profile of the first class rule matching id.
// UnlimitedProfile is returned when nothing matches.
func (rs *Rules) Profile(class string, id *jid.JID) Profile {
	if rs == nil {
		return UnlimitedProfile
	}
	for _, r := range rs.classes[class] {
		if r.pred.Matches(id) {
			return r.profile
		}
	}
	return UnlimitedProfile
}

// Shaper returns a new shaper instance for the profile matching id.
func (rs *Rules) Shaper(class string, id *jid.JID) *Shaper {
	return New(rs.Profile(class, id))
}
