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
	"crypto/tls"
	"crypto/x509"
	"sync"
	"time"

	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
)

// transportMock is a mock implementation of c2sTransport.
type transportMock struct {
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

	mu    sync.Mutex
	calls struct {
		Close     int
		SetShaper []*shaper.Shaper
		StartTLS  int
	}
}

func (m *transportMock) Read(p []byte) (int, error)         { return m.ReadFunc(p) }
func (m *transportMock) Write(p []byte) (int, error)        { return m.WriteFunc(p) }
func (m *transportMock) WriteString(s string) (int, error)  { return m.WriteStringFunc(s) }
func (m *transportMock) Flush() error                       { return m.FlushFunc() }
func (m *transportMock) SetWriteDeadline(d time.Time) error { return m.SetWriteDeadlineFunc(d) }
func (m *transportMock) PeerCertificates() []*x509.Certificate {
	return m.PeerCertificatesFunc()
}

func (m *transportMock) Type() transport.Type {
	if m.TypeFunc == nil {
		return transport.Socket
	}
	return m.TypeFunc()
}

func (m *transportMock) IsSecured() bool {
	if m.IsSecuredFunc == nil {
		return false
	}
	return m.IsSecuredFunc()
}

func (m *transportMock) Close() error {
	m.mu.Lock()
	m.calls.Close++
	m.mu.Unlock()
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *transportMock) SetShaper(shp *shaper.Shaper) {
	m.mu.Lock()
	m.calls.SetShaper = append(m.calls.SetShaper, shp)
	m.mu.Unlock()
	if m.SetShaperFunc != nil {
		m.SetShaperFunc(shp)
	}
}

func (m *transportMock) StartTLS(cfg *tls.Config, asClient bool) {
	m.mu.Lock()
	m.calls.StartTLS++
	m.mu.Unlock()
	if m.StartTLSFunc != nil {
		m.StartTLSFunc(cfg, asClient)
	}
}

// CloseCalls returns the number of times Close was invoked.
func (m *transportMock) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Close
}

// SetShaperCalls returns the shapers passed to SetShaper.
func (m *transportMock) SetShaperCalls() []*shaper.Shaper {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*shaper.Shaper(nil), m.calls.SetShaper...)
}

// StartTLSCalls returns the number of times StartTLS was invoked.
func (m *transportMock) StartTLSCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.StartTLS
}
