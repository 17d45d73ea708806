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
	"net"
	"time"
)

// netConnMock is a mock implementation of netConn.
type netConnMock struct {
	ReadFunc  func(b []byte) (int, error)
	WriteFunc func(b []byte) (int, error)
	CloseFunc func() error
}

func (m *netConnMock) Read(b []byte) (int, error) {
	if m.ReadFunc == nil {
		return 0, nil
	}
	return m.ReadFunc(b)
}

func (m *netConnMock) Write(b []byte) (int, error) {
	if m.WriteFunc == nil {
		return len(b), nil
	}
	return m.WriteFunc(b)
}

func (m *netConnMock) Close() error {
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *netConnMock) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (m *netConnMock) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (m *netConnMock) SetDeadline(_ time.Time) error      { return nil }
func (m *netConnMock) SetReadDeadline(_ time.Time) error  { return nil }
func (m *netConnMock) SetWriteDeadline(_ time.Time) error { return nil }
