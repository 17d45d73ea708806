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
	"context"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
)

// s2sOutMock is a mock implementation of s2sOut.
type s2sOutMock struct {
	IDFunc          func() string
	SendElementFunc func(elem stravaganza.Element) <-chan error
	DisconnectFunc  func(streamErr *streamerror.Error) <-chan error
	dialFunc        func(ctx context.Context) error
	startFunc       func() error

	mu    sync.Mutex
	calls struct {
		SendElement []stravaganza.Element
		dial        int
		start       int
	}
}

func (m *s2sOutMock) ID() string { return m.IDFunc() }

func (m *s2sOutMock) SendElement(elem stravaganza.Element) <-chan error {
	m.mu.Lock()
	m.calls.SendElement = append(m.calls.SendElement, elem)
	m.mu.Unlock()
	return m.SendElementFunc(elem)
}

func (m *s2sOutMock) Disconnect(streamErr *streamerror.Error) <-chan error {
	return m.DisconnectFunc(streamErr)
}

func (m *s2sOutMock) dial(ctx context.Context) error {
	m.mu.Lock()
	m.calls.dial++
	m.mu.Unlock()
	return m.dialFunc(ctx)
}

func (m *s2sOutMock) start() error {
	m.mu.Lock()
	m.calls.start++
	m.mu.Unlock()
	return m.startFunc()
}

// SendElementCalls returns the elements passed to SendElement.
func (m *s2sOutMock) SendElementCalls() []stravaganza.Element {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stravaganza.Element(nil), m.calls.SendElement...)
}

func (m *s2sOutMock) dialCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.dial
}

func (m *s2sOutMock) startCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.start
}
