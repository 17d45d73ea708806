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

package module

import (
	"context"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/router"
)

// hostsMock is a mock implementation of hosts.
type hostsMock struct {
	IsLocalHostFunc func(domain string) bool
}

func (m *hostsMock) IsLocalHost(domain string) bool {
	return m.IsLocalHostFunc(domain)
}

// routerMock is a mock implementation of globalRouter.
type routerMock struct {
	RouteFunc func(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error)

	mu    sync.Mutex
	calls struct {
		Route      []stravaganza.Stanza
		Register   []router.Handler
		Unregister []router.Handler
	}
}

func (m *routerMock) Route(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error) {
	m.mu.Lock()
	m.calls.Route = append(m.calls.Route, stanza)
	m.mu.Unlock()
	if m.RouteFunc == nil {
		return router.Delivered, nil
	}
	return m.RouteFunc(ctx, stanza)
}

func (m *routerMock) RegisterHandler(h router.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Register = append(m.calls.Register, h)
}

func (m *routerMock) UnregisterHandler(h router.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Unregister = append(m.calls.Unregister, h)
}

// RouteCalls returns the stanzas passed to Route.
func (m *routerMock) RouteCalls() []stravaganza.Stanza {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stravaganza.Stanza(nil), m.calls.Route...)
}

// RegisterHandlerCalls returns the handlers passed to RegisterHandler.
func (m *routerMock) RegisterHandlerCalls() []router.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]router.Handler(nil), m.calls.Register...)
}

// UnregisterHandlerCalls returns the handlers passed to UnregisterHandler.
func (m *routerMock) UnregisterHandlerCalls() []router.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]router.Handler(nil), m.calls.Unregister...)
}
