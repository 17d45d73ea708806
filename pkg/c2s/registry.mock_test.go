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
	"sync"

	"github.com/ortuman/kestrel/pkg/router/stream"
)

// registryMock is a mock implementation of sessionRegistry.
type registryMock struct {
	RegisterFunc   func(stm stream.C2S, maxSessions int) error
	UnregisterFunc func(stm stream.C2S)

	mu    sync.Mutex
	calls struct {
		Register   int
		Unregister int
	}
}

func (m *registryMock) Register(stm stream.C2S, maxSessions int) error {
	m.mu.Lock()
	m.calls.Register++
	m.mu.Unlock()
	return m.RegisterFunc(stm, maxSessions)
}

func (m *registryMock) Unregister(stm stream.C2S) {
	m.mu.Lock()
	m.calls.Unregister++
	m.mu.Unlock()
	if m.UnregisterFunc != nil {
		m.UnregisterFunc(stm)
	}
}

// RegisterCalls returns the number of times Register was invoked.
func (m *registryMock) RegisterCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Register
}

// UnregisterCalls returns the number of times Unregister was invoked.
func (m *registryMock) UnregisterCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Unregister
}
