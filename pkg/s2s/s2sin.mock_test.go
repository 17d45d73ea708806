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

package s2s

import (
	"sync"

	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
)

// s2sInMock is a mock implementation of s2sIn.
type s2sInMock struct {
	IDFunc         func() string
	DisconnectFunc func(streamErr *streamerror.Error) <-chan error
	DoneFunc       func() <-chan struct{}

	mu    sync.Mutex
	calls struct {
		Disconnect int
	}
}

func (m *s2sInMock) ID() string { return m.IDFunc() }

func (m *s2sInMock) Disconnect(streamErr *streamerror.Error) <-chan error {
	m.mu.Lock()
	m.calls.Disconnect++
	m.mu.Unlock()
	return m.DisconnectFunc(streamErr)
}

func (m *s2sInMock) Done() <-chan struct{} { return m.DoneFunc() }

// DisconnectCalls returns the number of times Disconnect was invoked.
func (m *s2sInMock) DisconnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Disconnect
}
