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
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ortuman/kestrel/pkg/shaper"
)

// Subprotocol is the WebSocket subprotocol name negotiated by XMPP clients.
const Subprotocol = "xmpp"

// frameConn contains the subset of *websocket.Conn used by the transport.
type frameConn interface {
	NextReader() (messageType int, r io.Reader, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type webSocketTransport struct {
	conn        frameConn
	idleTimeout time.Duration
	secured     bool
	peerCerts   []*x509.Certificate
	cancel      context.CancelFunc
	sr          *shaper.Reader

	rdMu sync.Mutex
	cur  io.Reader

	wrMu sync.Mutex
	buf  bytes.Buffer
}

// NewWebSocketTransport creates a WebSocket class stream transport.
// Every flushed write is sent as a single text frame, so callers must flush once per element.
func NewWebSocketTransport(conn *websocket.Conn, idleTimeout time.Duration, connState *tls.ConnectionState) Transport {
	ws := newWebSocketTransport(conn, idleTimeout)
	if connState != nil {
		ws.secured = true
		ws.peerCerts = connState.PeerCertificates
	}
	return ws
}

func newWebSocketTransport(conn frameConn, idleTimeout time.Duration) *webSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	ws := &webSocketTransport{
		conn:        conn,
		idleTimeout: idleTimeout,
		cancel:      cancel,
	}
	ws.sr = shaper.NewReader(ctx, readerFunc(ws.readFrames))
	return ws
}

func (ws *webSocketTransport) Read(p []byte) (int, error) {
	return ws.sr.Read(p)
}

func (ws *webSocketTransport) readFrames(p []byte) (int, error) {
	ws.rdMu.Lock()
	defer ws.rdMu.Unlock()

	for {
		if ws.cur == nil {
			if ws.idleTimeout > 0 {
				if err := ws.conn.SetReadDeadline(time.Now().Add(ws.idleTimeout)); err != nil {
					return 0, err
				}
			}
			mt, r, err := ws.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.TextMessage {
				continue
			}
			ws.cur = r
		}
		n, err := ws.cur.Read(p)
		if err == io.EOF {
			ws.cur = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

func (ws *webSocketTransport) Write(p []byte) (int, error) {
	ws.wrMu.Lock()
	defer ws.wrMu.Unlock()
	return ws.buf.Write(p)
}

func (ws *webSocketTransport) WriteString(s string) (int, error) {
	ws.wrMu.Lock()
	defer ws.wrMu.Unlock()
	return ws.buf.WriteString(s)
}

func (ws *webSocketTransport) Flush() error {
	ws.wrMu.Lock()
	defer ws.wrMu.Unlock()

	if ws.buf.Len() == 0 {
		return nil
	}
	defer ws.buf.Reset()
	return ws.conn.WriteMessage(websocket.TextMessage, ws.buf.Bytes())
}

func (ws *webSocketTransport) Close() error {
	ws.cancel()
	return ws.conn.Close()
}

func (ws *webSocketTransport) Type() Type {
	return WebSocket
}

func (ws *webSocketTransport) SetWriteDeadline(d time.Time) error {
	return ws.conn.SetWriteDeadline(d)
}

func (ws *webSocketTransport) SetShaper(shp *shaper.Shaper) {
	ws.sr.SetShaper(shp)
}

// StartTLS is a no-op. WebSocket connections are secured at the HTTP layer.
func (ws *webSocketTransport) StartTLS(_ *tls.Config, _ bool) {}

func (ws *webSocketTransport) IsSecured() bool {
	return ws.secured
}

func (ws *webSocketTransport) PeerCertificates() []*x509.Certificate {
	return ws.peerCerts
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
