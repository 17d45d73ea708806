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
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/auth"
)

// authenticatorMock is a mock implementation of c2sAuthenticator.
type authenticatorMock struct {
	MechanismFunc      func() string
	UsernameFunc       func() string
	AuthenticatedFunc  func() bool
	ProcessElementFunc func(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *auth.SASLError)
	ResetFunc          func()
}

func (m *authenticatorMock) Mechanism() string   { return m.MechanismFunc() }
func (m *authenticatorMock) Username() string    { return m.UsernameFunc() }
func (m *authenticatorMock) Authenticated() bool { return m.AuthenticatedFunc() }

func (m *authenticatorMock) ProcessElement(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *auth.SASLError) {
	return m.ProcessElementFunc(ctx, elem)
}

func (m *authenticatorMock) Reset() {
	if m.ResetFunc != nil {
		m.ResetFunc()
	}
}
