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

package disco

import (
	"context"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/router"
)

// routerMock is a mock implementation of globalRouter.
type routerMock struct {
	RouteFunc func(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error)

	mu    sync.Mutex
	calls []stravaganza.Stanza
}

func (m *routerMock) Route(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, stanza)
	m.mu.Unlock()
	if m.RouteFunc == nil {
		return router.Delivered, nil
	}
	return m.RouteFunc(ctx, stanza)
}

// RouteCalls returns the stanzas passed to Route.
func (m *routerMock) RouteCalls() []stravaganza.Stanza {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stravaganza.Stanza(nil), m.calls...)
}

// Reset clears recorded calls.
func (m *routerMock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
