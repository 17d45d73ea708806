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

	"github.com/jackal-xmpp/stravaganza/v2"
)

// serviceHandlerMock is a mock implementation of module.ServiceHandler.
type serviceHandlerMock struct {
	NameFunc            func() string
	HostFunc            func() string
	StreamFeatureFunc   func(ctx context.Context, domain string) (stravaganza.Element, error)
	ServerFeaturesFunc  func(ctx context.Context) ([]string, error)
	AccountFeaturesFunc func(ctx context.Context) ([]string, error)
	StartFunc           func(ctx context.Context) error
	StopFunc            func(ctx context.Context) error
	ProcessStanzaFunc   func(ctx context.Context, stanza stravaganza.Stanza) error
}

func (m *serviceHandlerMock) Name() string { return m.NameFunc() }

func (m *serviceHandlerMock) Host() string { return m.HostFunc() }

func (m *serviceHandlerMock) StreamFeature(ctx context.Context, domain string) (stravaganza.Element, error) {
	return m.StreamFeatureFunc(ctx, domain)
}

func (m *serviceHandlerMock) ServerFeatures(ctx context.Context) ([]string, error) {
	return m.ServerFeaturesFunc(ctx)
}

func (m *serviceHandlerMock) AccountFeatures(ctx context.Context) ([]string, error) {
	return m.AccountFeaturesFunc(ctx)
}

func (m *serviceHandlerMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *serviceHandlerMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

func (m *serviceHandlerMock) ProcessStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	return m.ProcessStanzaFunc(ctx, stanza)
}
