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
)

// iqProcessorMock is a mock implementation of IQProcessor.
type iqProcessorMock struct {
	NameFunc             func() string
	MatchesNamespaceFunc func(namespace string, serverTarget bool) bool
	ProcessIQFunc        func(ctx context.Context, iq *stravaganza.IQ) error

	mu    sync.Mutex
	calls struct {
		Start            int
		Stop             int
		MatchesNamespace []string
		ProcessIQ        []*stravaganza.IQ
	}
}

func (m *iqProcessorMock) Name() string { return m.NameFunc() }

func (m *iqProcessorMock) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

func (m *iqProcessorMock) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

func (m *iqProcessorMock) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

func (m *iqProcessorMock) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Start++
	return nil
}

func (m *iqProcessorMock) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Stop++
	return nil
}

func (m *iqProcessorMock) MatchesNamespace(namespace string, serverTarget bool) bool {
	m.mu.Lock()
	m.calls.MatchesNamespace = append(m.calls.MatchesNamespace, namespace)
	m.mu.Unlock()
	return m.MatchesNamespaceFunc(namespace, serverTarget)
}

func (m *iqProcessorMock) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	m.mu.Lock()
	m.calls.ProcessIQ = append(m.calls.ProcessIQ, iq)
	m.mu.Unlock()
	return m.ProcessIQFunc(ctx, iq)
}

// StartCalls returns the number of Start invocations.
func (m *iqProcessorMock) StartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Start
}

// StopCalls returns the number of Stop invocations.
func (m *iqProcessorMock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Stop
}

// MatchesNamespaceCalls returns the namespaces passed to MatchesNamespace.
func (m *iqProcessorMock) MatchesNamespaceCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls.MatchesNamespace...)
}

// ProcessIQCalls returns the iqs passed to ProcessIQ.
func (m *iqProcessorMock) ProcessIQCalls() []*stravaganza.IQ {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*stravaganza.IQ(nil), m.calls.ProcessIQ...)
}
