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

package offline

import (
	"context"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// gatewayMock is a mock implementation of gateway.
type gatewayMock struct {
	RouteFunc func(ctx context.Context, msg *stravaganza.Message) error

	mu    sync.Mutex
	calls struct {
		Route []*stravaganza.Message
	}
}

func (m *gatewayMock) Route(ctx context.Context, msg *stravaganza.Message) error {
	m.mu.Lock()
	m.calls.Route = append(m.calls.Route, msg)
	m.mu.Unlock()
	if m.RouteFunc == nil {
		return nil
	}
	return m.RouteFunc(ctx, msg)
}

// RouteCalls returns the messages passed to Route.
func (m *gatewayMock) RouteCalls() []*stravaganza.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*stravaganza.Message(nil), m.calls.Route...)
}
