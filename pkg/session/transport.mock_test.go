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

package session

import (
	"crypto/tls"
	"crypto/x509"
	"sync"
	"time"

	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
)

// transportMock is a mock implementation of sessionTransport.
type transportMock struct {
	mu sync.Mutex

	ReadFunc             func(p []byte) (int, error)
	WriteFunc            func(p []byte) (int, error)
	WriteStringFunc      func(s string) (int, error)
	CloseFunc            func() error
	TypeFunc             func() transport.Type
	FlushFunc            func() error
	SetWriteDeadlineFunc func(d time.Time) error
	SetShaperFunc        func(shp *shaper.Shaper)
	StartTLSFunc         func(cfg *tls.Config, asClient bool)
	IsSecuredFunc        func() bool
	PeerCertificatesFunc func() []*x509.Certificate

	flushCalls int
}

func (m *transportMock) Read(p []byte) (int, error) { return m.ReadFunc(p) }

func (m *transportMock) Write(p []byte) (int, error) {
	if m.WriteFunc == nil {
		return m.WriteStringFunc(string(p))
	}
	return m.WriteFunc(p)
}

func (m *transportMock) WriteString(s string) (int, error) { return m.WriteStringFunc(s) }

func (m *transportMock) Close() error { return m.CloseFunc() }

func (m *transportMock) Type() transport.Type {
	if m.TypeFunc == nil {
		return transport.Socket
	}
	return m.TypeFunc()
}

func (m *transportMock) Flush() error {
	m.mu.Lock()
	m.flushCalls++
	m.mu.Unlock()
	return m.FlushFunc()
}

func (m *transportMock) SetWriteDeadline(d time.Time) error {
	if m.SetWriteDeadlineFunc == nil {
		return nil
	}
	return m.SetWriteDeadlineFunc(d)
}

func (m *transportMock) SetShaper(shp *shaper.Shaper) { m.SetShaperFunc(shp) }

func (m *transportMock) StartTLS(cfg *tls.Config, asClient bool) { m.StartTLSFunc(cfg, asClient) }

func (m *transportMock) IsSecured() bool { return m.IsSecuredFunc() }

func (m *transportMock) PeerCertificates() []*x509.Certificate { return m.PeerCertificatesFunc() }

// FlushCalls returns how many times Flush was called.
func (m *transportMock) FlushCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushCalls
}
