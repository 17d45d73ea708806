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
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/transport"
)

// sessionMock is a mock implementation of session.
type sessionMock struct {
	StreamIDFunc   func() string
	SetFromJIDFunc func(jd *jid.JID)
	OpenStreamFunc func(ctx context.Context) error
	CloseFunc      func(ctx context.Context) error
	SendFunc       func(ctx context.Context, elem stravaganza.Element) error
	ReceiveFunc    func() (stravaganza.Element, error)
	ResetFunc      func(tr transport.Transport) error

	mu    sync.Mutex
	calls struct {
		Close int
		Send  []stravaganza.Element
	}
}

func (m *sessionMock) StreamID() string {
	if m.StreamIDFunc == nil {
		return ""
	}
	return m.StreamIDFunc()
}

func (m *sessionMock) SetFromJID(jd *jid.JID) {
	if m.SetFromJIDFunc != nil {
		m.SetFromJIDFunc(jd)
	}
}

func (m *sessionMock) OpenStream(ctx context.Context) error {
	if m.OpenStreamFunc == nil {
		return nil
	}
	return m.OpenStreamFunc(ctx)
}

func (m *sessionMock) Close(ctx context.Context) error {
	m.mu.Lock()
	m.calls.Close++
	m.mu.Unlock()
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc(ctx)
}

func (m *sessionMock) Send(ctx context.Context, elem stravaganza.Element) error {
	m.mu.Lock()
	m.calls.Send = append(m.calls.Send, elem)
	m.mu.Unlock()
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, elem)
}

func (m *sessionMock) Receive() (stravaganza.Element, error) { return m.ReceiveFunc() }

func (m *sessionMock) Reset(tr transport.Transport) error {
	if m.ResetFunc == nil {
		return nil
	}
	return m.ResetFunc(tr)
}

// CloseCalls returns the number of times Close was invoked.
func (m *sessionMock) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Close
}

// SendCalls returns the elements passed to Send.
func (m *sessionMock) SendCalls() []stravaganza.Element {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stravaganza.Element(nil), m.calls.Send...)
}
