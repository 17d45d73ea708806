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

package router

import "github.com/jackal-xmpp/stravaganza/v2/jid"

// accessEvaluatorMock is a mock implementation of accessEvaluator.
type accessEvaluatorMock struct {
	IsAllowedFunc func(list string, id *jid.JID) bool

	calls struct {
		IsAllowed []struct {
			List string
			ID   *jid.JID
		}
	}
}

func (m *accessEvaluatorMock) IsAllowed(list string, id *jid.JID) bool {
	m.calls.IsAllowed = append(m.calls.IsAllowed, struct {
		List string
		ID   *jid.JID
	}{List: list, ID: id})
	return m.IsAllowedFunc(list, id)
}

// IsAllowedCalls returns the recorded IsAllowed invocations.
func (m *accessEvaluatorMock) IsAllowedCalls() []struct {
	List string
	ID   *jid.JID
} {
	return m.calls.IsAllowed
}
