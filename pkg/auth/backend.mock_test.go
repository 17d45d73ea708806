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

package auth

import (
	"context"
	"sync"
)

// backendMock is a mock implementation of Backend.
type backendMock struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (bool, error)

	mu    sync.Mutex
	calls []struct{ Username, Password string }
}

func (m *backendMock) Authenticate(ctx context.Context, username, password string) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, struct{ Username, Password string }{username, password})
	m.mu.Unlock()
	return m.AuthenticateFunc(ctx, username, password)
}

// AuthenticateCalls gets all the calls that were made to Authenticate.
func (m *backendMock) AuthenticateCalls() []struct{ Username, Password string } {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
