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

	"github.com/jackal-xmpp/stravaganza/v2"
)

// serviceHandlerMock is a mock implementation of ServiceHandler.
type serviceHandlerMock struct {
	NameFunc          func() string
	HostFunc          func() string
	ProcessStanzaFunc func(ctx context.Context, stanza stravaganza.Stanza) error
}

func (m *serviceHandlerMock) Name() string { return m.NameFunc() }

func (m *serviceHandlerMock) Host() string { return m.HostFunc() }

func (m *serviceHandlerMock) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

func (m *serviceHandlerMock) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

func (m *serviceHandlerMock) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

func (m *serviceHandlerMock) Start(_ context.Context) error { return nil }

func (m *serviceHandlerMock) Stop(_ context.Context) error { return nil }

func (m *serviceHandlerMock) ProcessStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	return m.ProcessStanzaFunc(ctx, stanza)
}
