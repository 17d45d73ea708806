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

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/ortuman/kestrel/pkg/shaper"
)

const writeBuffSize = 4096

type socketTransport struct {
	conn    net.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	sr      *shaper.Reader
	bw      *bufio.Writer
	secured bool
}

// NewSocketTransport creates a socket class stream transport.
// A zero idleTimeout disables read inactivity checks.
func NewSocketTransport(conn net.Conn, idleTimeout time.Duration) Transport {
	ctx, cancel := context.WithCancel(context.Background())
	s := &socketTransport{
		conn:   newDeadlineConn(conn, idleTimeout),
		ctx:    ctx,
		cancel: cancel,
	}
	_, s.secured = conn.(*tls.Conn)
	s.sr = shaper.NewReader(ctx, s.conn)
	s.bw = bufio.NewWriterSize(s.conn, writeBuffSize)
	return s
}

func (s *socketTransport) Read(p []byte) (n int, err error) {
	return s.sr.Read(p)
}

func (s *socketTransport) Write(p []byte) (n int, err error) {
	return s.bw.Write(p)
}

func (s *socketTransport) WriteString(str string) (int, error) {
	return s.bw.WriteString(str)
}

func (s *socketTransport) Close() error {
	s.cancel()
	return s.conn.Close()
}

func (s *socketTransport) Type() Type {
	return Socket
}

func (s *socketTransport) Flush() error {
	return s.bw.Flush()
}

func (s *socketTransport) SetWriteDeadline(d time.Time) error {
	return s.conn.SetWriteDeadline(d)
}

func (s *socketTransport) SetShaper(shp *shaper.Shaper) {
	s.sr.SetShaper(shp)
}

func (s *socketTransport) StartTLS(cfg *tls.Config, asClient bool) {
	if s.secured {
		return
	}
	if asClient {
		s.conn = tls.Client(s.conn, cfg)
	} else {
		s.conn = tls.Server(s.conn, cfg)
	}
	shp := s.sr.Shaper()
	s.sr = shaper.NewReader(s.ctx, s.conn)
	s.sr.SetShaper(shp)
	s.bw = bufio.NewWriterSize(s.conn, writeBuffSize)
	s.secured = true
}

func (s *socketTransport) IsSecured() bool {
	return s.secured
}

func (s *socketTransport) PeerCertificates() []*x509.Certificate {
	conn, ok := s.conn.(tlsStateQueryable)
	if !ok {
		return nil
	}
	return conn.ConnectionState().PeerCertificates
}
