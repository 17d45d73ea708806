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

package c2s

import (
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/shaper"
)

// accessEvaluatorMock is a mock implementation of accessEvaluator.
type accessEvaluatorMock struct {
	IsAllowedFunc func(list string, id *jid.JID) bool
}

func (m *accessEvaluatorMock) IsAllowed(list string, id *jid.JID) bool {
	return m.IsAllowedFunc(list, id)
}

// shaperRulesMock is a mock implementation of shaperRules.
type shaperRulesMock struct {
	ShaperFunc func(class string, id *jid.JID) *shaper.Shaper
}

func (m *shaperRulesMock) Shaper(class string, id *jid.JID) *shaper.Shaper {
	if m.ShaperFunc == nil {
		return nil
	}
	return m.ShaperFunc(class, id)
}
