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
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
	"golang.org/x/time/rate"
)

const listenKeepAlive = time.Second * 15

// Listener accepts incoming S2S connections.
type Listener struct {
	cfg     ListenerConfig
	addr    string
	hosts   *host.Hosts
	router  *router.Router
	access  *acl.Evaluator
	shapers *shaper.Rules
	inHub   *InHub
	hk      *hook.Hooks
	logger  kitlog.Logger
	limiter *rate.Limiter

	ln            net.Listener
	active        uint32
	stopCtx       context.Context
	stopFn        context.CancelFunc
	connHandlerFn func(conn net.Conn)
}

// NewListeners creates and initializes a set of S2S listeners based of cfg configuration.
func NewListeners(
	cfg ListenersConfig,
	hosts *host.Hosts,
	router *router.Router,
	access *acl.Evaluator,
	shapers *shaper.Rules,
	inHub *InHub,
	hk *hook.Hooks,
	logger kitlog.Logger,
) []*Listener {
	var listeners []*Listener
	for _, lnCfg := range cfg {
		listeners = append(listeners, NewListener(lnCfg, hosts, router, access, shapers, inHub, hk, logger))
	}
	return listeners
}

// NewListener returns a new S2S listener.
func NewListener(
	cfg ListenerConfig,
	hosts *host.Hosts,
	router *router.Router,
	access *acl.Evaluator,
	shapers *shaper.Rules,
	inHub *InHub,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *Listener {
	ln := &Listener{
		cfg:     cfg,
		addr:    net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port)),
		hosts:   hosts,
		router:  router,
		access:  access,
		shapers: shapers,
		inHub:   inHub,
		hk:      hk,
		logger:  kitlog.With(logger, "listener", "s2s", "port", cfg.Port),
	}
	if cfg.AcceptRate > 0 {
		ln.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst)
	}
	ln.stopCtx, ln.stopFn = context.WithCancel(context.Background())
	ln.connHandlerFn = ln.handleConn
	return ln
}

// Start starts listening on the TCP network address to handle incoming S2S connections.
func (l *Listener) Start(ctx context.Context) error {
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
	atomic.StoreUint32(&l.active, 1)

	go func() {
		for atomic.LoadUint32(&l.active) == 1 {
			if l.limiter != nil {
				if err := l.limiter.Wait(l.stopCtx); err != nil {
					return
				}
			}
			conn, err := l.ln.Accept()
			if err != nil {
				continue
			}
			level.Debug(l.logger).Log("msg", "received S2S incoming connection", "remote_address", conn.RemoteAddr().String())

			go l.connHandlerFn(conn)
		}
	}()
	level.Info(l.logger).Log("msg", "accepting S2S socket connections", "addr", l.addr, "direct_tls", l.cfg.DirectTLS)
	return nil
}

// Stop stops handling incoming S2S connections and closes underlying TCP listener.
func (l *Listener) Stop(_ context.Context) error {
	l.stopFn()
	atomic.StoreUint32(&l.active, 0)
	if err := l.ln.Close(); err != nil {
		return err
	}
	level.Info(l.logger).Log("msg", "stopped S2S listener", "addr", l.addr)
	return nil
}

func (l *Listener) handleConn(conn net.Conn) {
	tr := transport.NewSocketTransport(conn, l.cfg.KeepAliveTimeout)
	stm := newInS2S(
		inConfig{
			connectTimeout:   l.cfg.ConnectTimeout,
			keepAliveTimeout: l.cfg.KeepAliveTimeout,
			reqTimeout:       l.cfg.RequestTimeout,
			maxStanzaSize:    l.cfg.MaxStanzaSize,
			access:           l.cfg.Access,
			shaperClass:      l.cfg.Shaper,
			directTLS:        l.cfg.DirectTLS,
			tlsConfig:        l.hosts.TLSConfig(),
		},
		tr,
		l.hosts,
		l.router,
		l.access,
		l.shapers,
		l.inHub,
		l.hk,
		l.logger,
	)
	if err := stm.start(); err != nil {
		level.Warn(l.logger).Log("msg", "failed to start S2S incoming stream", "err", err)
	}
}
