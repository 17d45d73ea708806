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
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/auth"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/module"
	"github.com/ortuman/kestrel/pkg/module/offline"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
	"golang.org/x/time/rate"
)

const (
	listenKeepAlive = time.Second * 15

	socketTransport    = "socket"
	webSocketTransport = "websocket"
)

// Listener accepts C2S connections and runs a stream for each of them.
// Socket listeners own their TCP acceptor, whereas WebSocket listeners are mounted into the HTTP server.
type Listener struct {
	cfg         ListenerConfig
	addr        string
	hosts       *host.Hosts
	authBackend auth.Backend
	router      globalRouter
	reg         sessionRegistry
	mods        modules
	offline     offlineQueue
	access      accessEvaluator
	shapers     shaperRules
	hk          *hook.Hooks
	logger      kitlog.Logger
	limiter     *rate.Limiter
	upgrader    websocket.Upgrader

	ln            net.Listener
	active        int32
	stopCtx       context.Context
	stopFn        context.CancelFunc
	connHandlerFn func(conn net.Conn)
}

// NewListener returns a new C2S listener.
func NewListener(
	cfg ListenerConfig,
	hosts *host.Hosts,
	authBackend auth.Backend,
	router *router.Router,
	reg *Registry,
	mods *module.Modules,
	offlineQueue *offline.Offline,
	access *acl.Evaluator,
	shapers *shaper.Rules,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *Listener {
	ln := &Listener{
		cfg:         cfg,
		addr:        net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port)),
		hosts:       hosts,
		authBackend: authBackend,
		router:      router,
		reg:         reg,
		mods:        mods,
		access:      access,
		shapers:     shapers,
		hk:          hk,
		logger:      kitlog.With(logger, "listener", "c2s", "transport", cfg.Transport, "port", cfg.Port),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{transport.Subprotocol},
			CheckOrigin:  func(_ *http.Request) bool { return true },
		},
	}
	if offlineQueue != nil {
		ln.offline = offlineQueue
	}
	if cfg.AcceptRate > 0 {
		ln.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst)
	}
	ln.stopCtx, ln.stopFn = context.WithCancel(context.Background())
	ln.connHandlerFn = ln.handleConn
	return ln
}

// IsWebSocket tells whether the listener serves WebSocket connections.
func (l *Listener) IsWebSocket() bool {
	return l.cfg.Transport == webSocketTransport
}

// Start starts listening on the TCP network address to handle incoming C2S connections.
// WebSocket listeners do not open any socket, as connections are handed over by the HTTP server.
func (l *Listener) Start(ctx context.Context) error {
	if l.IsWebSocket() {
		level.Info(l.logger).Log("msg", "accepting C2S websocket connections")
		return nil
	}
	lc := net.ListenConfig{
		KeepAlive: listenKeepAlive,
	}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}
	if l.cfg.DirectTLS {
		ln = tls.NewListener(ln, l.hosts.TLSConfig())
	}
	l.ln = ln
	atomic.StoreInt32(&l.active, 1)

	go func() {
		for atomic.LoadInt32(&l.active) == 1 {
			if err := l.waitAccept(l.stopCtx); err != nil {
				return
			}
			conn, err := l.ln.Accept()
			if err != nil {
				continue
			}
			level.Debug(l.logger).Log("msg", "received C2S incoming connection", "remote_address", conn.RemoteAddr().String())

			go l.connHandlerFn(conn)
		}
	}()
	level.Info(l.logger).Log("msg", "accepting C2S socket connections", "addr", l.addr, "direct_tls", l.cfg.DirectTLS)
	return nil
}

// Stop stops handling incoming C2S connections and closes underlying TCP listener.
func (l *Listener) Stop(_ context.Context) error {
	l.stopFn()
	if l.IsWebSocket() {
		return nil
	}
	atomic.StoreInt32(&l.active, 0)
	if err := l.ln.Close(); err != nil {
		return err
	}
	level.Info(l.logger).Log("msg", "stopped C2S listener", "addr", l.addr)
	return nil
}

// ServeHTTP upgrades the HTTP connection to an XMPP over WebSocket stream.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := l.waitAccept(r.Context()); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		level.Debug(l.logger).Log("msg", "failed to upgrade websocket connection", "err", err)
		return
	}
	if conn.Subprotocol() != transport.Subprotocol {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "unsupported subprotocol"),
		)
		_ = conn.Close()
		return
	}
	tr := transport.NewWebSocketTransport(conn, l.cfg.KeepAliveTimeout, r.TLS)
	go l.runStream(tr, webSocketTransport)
}

func (l *Listener) handleConn(conn net.Conn) {
	l.runStream(transport.NewSocketTransport(conn, l.cfg.KeepAliveTimeout), socketTransport)
}

func (l *Listener) runStream(tr transport.Transport, trName string) {
	reportIncomingConnection(trName)

	stm := newInC2S(
		l.streamConfig(),
		tr,
		[]auth.Authenticator{auth.NewPlain(l.authBackend, l.hosts.DefaultHostName())},
		l.hosts,
		l.router,
		l.reg,
		l.mods,
		l.offline,
		l.access,
		l.shapers,
		l.hk,
		l.logger,
	)
	stm.start()
}

func (l *Listener) streamConfig() inCfg {
	return inCfg{
		authenticateTimeout: l.cfg.AuthenticateTimeout,
		reqTimeout:          l.cfg.RequestTimeout,
		maxStanzaSize:       l.cfg.MaxStanzaSize,
		maxSessions:         l.cfg.MaxSessions,
		resConflict:         parseResourceConflict(l.cfg.ResourceConflict),
		shaperClass:         l.cfg.Shaper,
		access:              l.cfg.Access,
		startTLSRequired:    l.cfg.StartTLSRequired,
		useTLS:              l.cfg.DirectTLS,
		tlsConfig:           l.hosts.TLSConfig(),
	}
}

func (l *Listener) waitAccept(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
