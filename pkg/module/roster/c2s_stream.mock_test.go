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

package roster

import (
	"context"
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// c2sStreamMock is a mock implementation of stream.C2S.
type c2sStreamMock struct {
	IDFunc           func() string
	JIDFunc          func() *jid.JID
	UsernameFunc     func() string
	ResourceFunc     func() string
	PresenceFunc     func() *stravaganza.Presence
	LastActivityFunc func() time.Time
	SendElementFunc  func(ctx context.Context, elem stravaganza.Element) error
	DisconnectFunc   func(streamErr *streamerror.Error) <-chan error
	DoneFunc         func() <-chan struct{}

	mu    sync.Mutex
	calls struct {
		SendElement []stravaganza.Element
	}
}

func (m *c2sStreamMock) ID() string                      { return m.IDFunc() }
func (m *c2sStreamMock) JID() *jid.JID                   { return m.JIDFunc() }
func (m *c2sStreamMock) Username() string                { return m.UsernameFunc() }
func (m *c2sStreamMock) Resource() string                { return m.ResourceFunc() }
func (m *c2sStreamMock) Presence() *stravaganza.Presence { return m.PresenceFunc() }
func (m *c2sStreamMock) LastActivity() time.Time         { return m.LastActivityFunc() }
func (m *c2sStreamMock) Done() <-chan struct{}           { return m.DoneFunc() }

func (m *c2sStreamMock) SendElement(ctx context.Context, elem stravaganza.Element) error {
	m.mu.Lock()
	m.calls.SendElement = append(m.calls.SendElement, elem)
	m.mu.Unlock()
	return m.SendElementFunc(ctx, elem)
}

func (m *c2sStreamMock) Disconnect(streamErr *streamerror.Error) <-chan error {
	return m.DisconnectFunc(streamErr)
}

// SendElementCalls returns the elements passed to SendElement.
func (m *c2sStreamMock) SendElementCalls() []stravaganza.Element {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stravaganza.Element(nil), m.calls.SendElement...)
}
