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
	"net"
	"sync"
)

// dialerMock is a mock implementation of dialer.
type dialerMock struct {
	DialContextFunc func(ctx context.Context, remoteDomain string) (net.Conn, bool, error)

	mu    sync.Mutex
	calls []string
}

func (m *dialerMock) DialContext(ctx context.Context, remoteDomain string) (net.Conn, bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, remoteDomain)
	m.mu.Unlock()
	return m.DialContextFunc(ctx, remoteDomain)
}

// DialContextCalls returns the dialed remote domains.
func (m *dialerMock) DialContextCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
