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
)

// modulesMock is a mock implementation of modules.
type modulesMock struct {
	StreamFeaturesFunc func(ctx context.Context, domain string) ([]stravaganza.Element, error)
	IsModuleIQFunc     func(iq *stravaganza.IQ) bool
	ProcessIQFunc      func(ctx context.Context, iq *stravaganza.IQ) error
}

func (m *modulesMock) StreamFeatures(ctx context.Context, domain string) ([]stravaganza.Element, error) {
	return m.StreamFeaturesFunc(ctx, domain)
}

func (m *modulesMock) IsModuleIQ(iq *stravaganza.IQ) bool { return m.IsModuleIQFunc(iq) }

func (m *modulesMock) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	return m.ProcessIQFunc(ctx, iq)
}
