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
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	xmppparser "github.com/ortuman/kestrel/pkg/parser"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/router/stream"
	xmppsession "github.com/ortuman/kestrel/pkg/session"
	"github.com/ortuman/kestrel/pkg/transport"
)

type outState uint32

const (
	outConnecting outState = iota
	outConnected
	outSecuring
	outAuthenticating
	outAuthenticated
	outDisconnected
)

type outConfig struct {
	dialTimeout      time.Duration
	keepAliveTimeout time.Duration
	reqTimeout       time.Duration
	maxStanzaSize    int
	shaperClass      string
}

type outS2S struct {
	cfg     outConfig
	sender  string
	target  string
	tr      transport.Transport
	session session
	dialer  dialer
	hosts   *host.Hosts
	tlsCfg  *tls.Config
	shapers shaperRules
	onClose func(s *outS2S)
	hk      *hook.Hooks
	logger  kitlog.Logger
	rq      *runqueue.RunQueue
	doneCh  chan struct{}

	mu           sync.RWMutex
	state        outState
	flags        flags
	pendingQueue []stravaganza.Element
}

func newOutS2S(
	cfg outConfig,
	sender string,
	target string,
	tlsCfg *tls.Config,
	hosts *host.Hosts,
	shapers shaperRules,
	hk *hook.Hooks,
	logger kitlog.Logger,
	onClose func(s *outS2S),
) *outS2S {
	stm := &outS2S{
		cfg:     cfg,
		sender:  sender,
		target:  target,
		hosts:   hosts,
		tlsCfg:  tlsCfg,
		shapers: shapers,
		onClose: onClose,
		hk:      hk,
		logger:  kitlog.With(logger, "sender", sender, "target", target),
		dialer:  newDialer(cfg.dialTimeout, tlsCfg),
		doneCh:  make(chan struct{}),
	}
	stm.rq = runqueue.New(stm.ID())
	return stm
}

func (s *outS2S) ID() string {
	return "s2s:out:" + s.target
}

// SendElement writes elem once the stream is authenticated. Elements sent before are queued in order.
func (s *outS2S) SendElement(elem stravaganza.Element) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.sendOrEnqueueElement(ctx, elem)
	})
	return errCh
}

func (s *outS2S) Disconnect(streamErr *streamerror.Error) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.disconnect(ctx, streamErr)
	})
	return errCh
}

func (s *outS2S) Done() <-chan struct{} {
	return s.doneCh
}

func (s *outS2S) dial(ctx context.Context) error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		errCh <- s.dialRemote(ctx)
	})
	return <-errCh
}

func (s *outS2S) dialRemote(ctx context.Context) error {
	if s.getState() == outDisconnected {
		return stream.ErrStreamClosed
	}
	conn, usesTLS, err := s.dialer.DialContext(ctx, s.target)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return router.ErrRemoteServerTimeout
		}
		return fmt.Errorf("%w: %v", router.ErrRemoteServerNotFound, err)
	}
	level.Info(s.logger).Log("msg", "dialed S2S remote connection", "direct_tls", usesTLS)

	targetJID, _ := jid.New("", s.target, "", true)

	s.tr = transport.NewSocketTransport(conn, s.cfg.keepAliveTimeout)
	s.tr.SetShaper(s.shapers.Shaper(s.cfg.shaperClass, targetJID))

	s.session = xmppsession.New(
		xmppsession.S2SSession,
		s.ID(),
		s.tr,
		s.hosts,
		xmppsession.Config{
			MaxStanzaSize: s.cfg.maxStanzaSize,
			IsOut:         true,
		},
		s.logger,
	)
	s.session.SetFromJID(targetJID)

	if usesTLS {
		s.flags.setSecured() // already secured
	}
	return nil
}

func (s *outS2S) start() error {
	s.restartSession()

	ctx, cancel := s.requestContext()
	if err := s.session.OpenStream(ctx); err != nil {
		cancel()
		_ = s.close(context.Background())
		return err
	}
	level.Info(s.logger).Log("msg", "registered S2S out stream")

	_, err := s.runHook(ctx, hook.S2SOutStreamConnected, &hook.S2SStreamInfo{
		ID:     s.ID(),
		Sender: s.sender,
		Target: s.target,
	})
	cancel()

	if err != nil {
		return err
	}
	reportOutgoingConnection("register")

	s.readLoop()
	return nil
}

func (s *outS2S) readLoop() {
	for s.getState() != outDisconnected {
		elem, sErr := s.session.Receive()
		s.handleSessionResult(elem, sErr)
	}
}

func (s *outS2S) handleSessionResult(elem stravaganza.Element, sErr error) {
	doneCh := make(chan struct{})
	s.rq.Run(func() {
		defer close(doneCh)

		ctx, cancel := s.requestContext()
		defer cancel()

		switch {
		case sErr == nil && elem != nil:
			if err := s.handleElement(ctx, elem); err != nil {
				level.Warn(s.logger).Log("msg", "failed to process outgoing S2S session element", "err", err)
				_ = s.close(ctx)
			}

		case sErr != nil:
			s.handleSessionError(ctx, sErr)
		}
	})
	<-doneCh
}

func (s *outS2S) handleElement(ctx context.Context, elem stravaganza.Element) error {
	var err error
	t0 := time.Now()
	switch s.getState() {
	case outConnecting:
		err = s.handleConnecting(ctx, elem)
	case outConnected:
		err = s.handleConnected(ctx, elem)
	case outSecuring:
		err = s.handleSecuring(ctx, elem)
	case outAuthenticating:
		err = s.handleAuthenticating(ctx, elem)
	case outAuthenticated:
		level.Debug(s.logger).Log("msg", "ignored element received over S2S out stream", "name", elem.Name())
	}
	reportIncomingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
		time.Since(t0).Seconds(),
	)
	return err
}

func (s *outS2S) handleConnecting(_ context.Context, _ stravaganza.Element) error {
	s.setState(outConnected)
	return nil
}

func (s *outS2S) handleConnected(ctx context.Context, elem stravaganza.Element) error {
	if elem.Name() != "stream:features" {
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
	switch {
	case !s.flags.isSecured():
		if elem.ChildNamespace("starttls", tlsNamespace) == nil {
			// unsecured connections are unsupported
			return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
		}
		s.setState(outSecuring)

		return s.sendElement(ctx, stravaganza.NewBuilder("starttls").
			WithAttribute(stravaganza.Namespace, tlsNamespace).
			Build(),
		)

	case !s.flags.isAuthenticated():
		if !hasExternalAuthMechanism(elem) {
			level.Info(s.logger).Log("msg", "remote server does not offer SASL EXTERNAL")
			return s.disconnect(ctx, streamerror.E(streamerror.RemoteConnectionFailed))
		}
		s.setState(outAuthenticating)

		return s.sendElement(ctx, stravaganza.NewBuilder("auth").
			WithAttribute(stravaganza.Namespace, saslNamespace).
			WithAttribute("mechanism", externalMechanism).
			WithText(base64.StdEncoding.EncodeToString([]byte(s.sender))).
			Build(),
		)

	default:
		return s.finishAuthentication(ctx)
	}
}

func (s *outS2S) handleSecuring(ctx context.Context, elem stravaganza.Element) error {
	if elem.Name() != "proceed" {
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	} else if elem.Attribute(stravaganza.Namespace) != tlsNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	s.tr.StartTLS(s.tlsCfg, true)

	s.flags.setSecured()
	s.restartSession()

	return s.session.OpenStream(ctx)
}

func (s *outS2S) handleAuthenticating(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	switch elem.Name() {
	case "success":
		s.flags.setAuthenticated()

		s.restartSession()
		return s.session.OpenStream(ctx)

	case "failure":
		level.Info(s.logger).Log("msg", "S2S out stream authentication rejected by remote server")
		return s.disconnect(ctx, streamerror.E(streamerror.RemoteConnectionFailed))

	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *outS2S) handleSessionError(ctx context.Context, err error) {
	var streamErr *streamerror.Error

	switch {
	case errors.Is(err, xmppparser.ErrStreamClosedByPeer):
		_ = s.session.Close(ctx)
		_ = s.close(ctx)

	case errors.As(err, &streamErr):
		_ = s.disconnect(ctx, streamErr)

	default:
		_ = s.close(ctx)
	}
}

func (s *outS2S) finishAuthentication(ctx context.Context) error {
	s.setState(outAuthenticated)

	level.Info(s.logger).Log("msg", "authenticated S2S out stream", "pending", len(s.pendingQueue))

	// send pending elements
	for _, elem := range s.pendingQueue {
		if err := s.sendElement(ctx, elem); err != nil {
			return err
		}
	}
	s.pendingQueue = nil
	return nil
}

func (s *outS2S) restartSession() {
	_ = s.session.Reset(s.tr)
	s.setState(outConnecting)
}

func (s *outS2S) disconnect(ctx context.Context, streamErr *streamerror.Error) error {
	if s.getState() == outDisconnected {
		return nil
	}
	if s.session == nil {
		return s.close(ctx) // not dialed yet
	}
	if streamErr != nil {
		if err := s.sendElement(ctx, streamErr.Element()); err != nil {
			level.Debug(s.logger).Log("msg", "failed to send stream error", "err", err)
		}
	}
	_ = s.session.Close(ctx)
	return s.close(ctx)
}

func (s *outS2S) sendOrEnqueueElement(ctx context.Context, elem stravaganza.Element) error {
	switch s.getState() {
	case outAuthenticated:
		return s.sendElement(ctx, elem)
	case outDisconnected:
		return stream.ErrStreamClosed
	default:
		s.pendingQueue = append(s.pendingQueue, elem)
	}
	return nil
}

func (s *outS2S) sendElement(ctx context.Context, elem stravaganza.Element) error {
	if err := s.session.Send(ctx, elem); err != nil {
		return err
	}
	reportOutgoingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
	)
	return nil
}

func (s *outS2S) close(ctx context.Context) error {
	if s.getState() == outDisconnected {
		return nil
	}
	defer close(s.doneCh)

	s.setState(outDisconnected)

	if s.onClose != nil {
		s.onClose(s)
	}
	if n := len(s.pendingQueue); n > 0 {
		level.Warn(s.logger).Log("msg", "discarded pending S2S out elements", "count", n)
		s.pendingQueue = nil
	}
	level.Info(s.logger).Log("msg", "unregistered S2S out stream")

	_, err := s.runHook(ctx, hook.S2SOutStreamDisconnected, &hook.S2SStreamInfo{
		ID:     s.ID(),
		Sender: s.sender,
		Target: s.target,
	})
	reportOutgoingConnection("unregister")

	// close underlying transport
	if s.tr != nil {
		_ = s.tr.Close()
	}
	return err
}

func (s *outS2S) setState(state outState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *outS2S) getState() outState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *outS2S) runHook(ctx context.Context, hookName string, inf *hook.S2SStreamInfo) (halt bool, err error) {
	return s.hk.Run(ctx, hookName, &hook.ExecutionContext{
		Info:   inf,
		Sender: s,
	})
}

func (s *outS2S) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.reqTimeout)
}

func hasExternalAuthMechanism(streamFeatures stravaganza.Element) bool {
	mechanisms := streamFeatures.ChildNamespace("mechanisms", saslNamespace)
	if mechanisms == nil {
		return false
	}
	for _, m := range mechanisms.AllChildren() {
		if m.Name() == "mechanism" && m.Text() == externalMechanism {
			return true
		}
	}
	return false
}
