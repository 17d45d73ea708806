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
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	xmppparser "github.com/ortuman/kestrel/pkg/parser"
	"github.com/ortuman/kestrel/pkg/router"
	xmppsession "github.com/ortuman/kestrel/pkg/session"
	"github.com/ortuman/kestrel/pkg/transport"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

type inState uint32

const (
	inConnecting inState = iota
	inConnected
	inDisconnected
)

var inDisconnectTimeout = time.Second * 5

type inConfig struct {
	connectTimeout   time.Duration
	keepAliveTimeout time.Duration
	reqTimeout       time.Duration
	maxStanzaSize    int
	access           string
	shaperClass      string
	directTLS        bool
	tlsConfig        *tls.Config
}

type inS2S struct {
	id           string
	cfg          inConfig
	tr           transport.Transport
	session      session
	hosts        hosts
	router       globalRouter
	access       accessEvaluator
	shapers      shaperRules
	inHub        *InHub
	hk           *hook.Hooks
	logger       kitlog.Logger
	rq           *runqueue.RunQueue
	discTm       *time.Timer
	doneCh       chan struct{}
	sendDisabled bool

	mu     sync.RWMutex
	state  inState
	flags  flags
	jd     *jid.JID
	target string
	sender string
}

func newInS2S(
	cfg inConfig,
	tr transport.Transport,
	hosts *host.Hosts,
	router globalRouter,
	access accessEvaluator,
	shapers shaperRules,
	inHub *InHub,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *inS2S {
	id := nextStreamID()

	// connection shaper until the remote domain is authenticated
	tr.SetShaper(shapers.Shaper(cfg.shaperClass, nil))

	sLogger := kitlog.With(logger, "id", id)
	stm := &inS2S{
		id:  id,
		cfg: cfg,
		tr:  tr,
		session: xmppsession.New(
			xmppsession.S2SSession,
			id,
			tr,
			hosts,
			xmppsession.Config{MaxStanzaSize: cfg.maxStanzaSize},
			sLogger,
		),
		hosts:   hosts,
		router:  router,
		access:  access,
		shapers: shapers,
		inHub:   inHub,
		hk:      hk,
		logger:  sLogger,
		rq:      runqueue.New(id),
		doneCh:  make(chan struct{}),
		state:   inConnecting,
	}
	if cfg.directTLS || tr.IsSecured() {
		stm.flags.setSecured() // stream already secured
	}
	return stm
}

func (s *inS2S) ID() string {
	return s.id
}

// Sender returns the remote domain once the stream header has been received.
func (s *inS2S) Sender() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sender
}

func (s *inS2S) Disconnect(streamErr *streamerror.Error) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.disconnect(ctx, streamErr)
	})
	return errCh
}

func (s *inS2S) Done() <-chan struct{} {
	return s.doneCh
}

func (s *inS2S) start() error {
	s.inHub.register(s)

	level.Info(s.logger).Log("msg", "registered S2S incoming stream")

	ctx, cancel := s.requestContext()
	_, err := s.runHook(ctx, hook.S2SInStreamRegistered, &hook.S2SStreamInfo{
		ID: s.id,
	})
	cancel()

	if err != nil {
		return err
	}
	reportIncomingConnection("register")

	s.readLoop()
	return nil
}

func (s *inS2S) readLoop() {
	s.restartSession()

	tm := time.AfterFunc(s.cfg.connectTimeout, s.connTimeout) // schedule connect timeout
	elem, sErr := s.session.Receive()
	tm.Stop()

	for {
		if s.getState() == inDisconnected {
			return
		}
		s.handleSessionResult(elem, sErr)

		tm := time.AfterFunc(s.cfg.keepAliveTimeout, s.connTimeout) // schedule read timeout
		elem, sErr = s.session.Receive()
		tm.Stop()
	}
}

func (s *inS2S) handleSessionResult(elem stravaganza.Element, sErr error) {
	doneCh := make(chan struct{})
	s.rq.Run(func() {
		defer close(doneCh)

		ctx, cancel := s.requestContext()
		defer cancel()

		switch {
		case sErr == nil && elem != nil:
			if err := s.handleElement(ctx, elem); err != nil {
				level.Warn(s.logger).Log("msg", "failed to process incoming S2S session element", "err", err)
				return
			}

		case sErr != nil:
			s.handleSessionError(ctx, sErr)
		}
	})
	<-doneCh
}

func (s *inS2S) connTimeout() {
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		_ = s.disconnect(ctx, streamerror.E(streamerror.ConnectionTimeout))
	})
}

func (s *inS2S) handleElement(ctx context.Context, elem stravaganza.Element) error {
	var err error
	t0 := time.Now()
	switch s.getState() {
	case inConnecting:
		err = s.handleConnecting(ctx, elem)
	case inConnected:
		err = s.handleConnected(ctx, elem)
	}
	reportIncomingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
		time.Since(t0).Seconds(),
	)
	return err
}

func (s *inS2S) handleConnecting(ctx context.Context, elem stravaganza.Element) error {
	target := elem.Attribute(stravaganza.To)
	if len(target) == 0 {
		target = s.hosts.DefaultHostName()
	}
	sender := elem.Attribute(stravaganza.From)
	if len(sender) == 0 {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidFrom))
	}
	jd, err := jid.New("", sender, "", false)
	if err != nil {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidFrom))
	}
	s.mu.Lock()
	s.target = target
	s.sender = sender
	s.jd = jd
	s.mu.Unlock()

	s.session.SetFromJID(jd)

	// remote domain must be allowed before offering any feature
	if !s.access.IsAllowed(s.cfg.access, jd) {
		level.Info(s.logger).Log("msg", "S2S incoming stream denied by access rule", "sender", sender, "rule", s.cfg.access)
		reportIncomingRejected("access")
		return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
	}
	fb := stravaganza.NewBuilder("stream:features").
		WithAttribute("xmlns:stream", streamNamespace).
		WithAttribute(stravaganza.Version, "1.0")

	switch {
	case !s.flags.isSecured():
		fb.WithChild(stravaganza.NewBuilder("starttls").
			WithAttribute(stravaganza.Namespace, tlsNamespace).
			WithChild(stravaganza.NewBuilder("required").Build()).
			Build(),
		)

	case !s.flags.isAuthenticated():
		fb.WithChild(stravaganza.NewBuilder("mechanisms").
			WithAttribute(stravaganza.Namespace, saslNamespace).
			WithChild(
				stravaganza.NewBuilder("mechanism").
					WithText(externalMechanism).
					Build(),
			).
			Build(),
		)
	}
	s.setState(inConnected)

	if err := s.session.OpenStream(ctx); err != nil {
		return err
	}
	return s.sendElement(ctx, fb.Build())
}

func (s *inS2S) handleConnected(ctx context.Context, elem stravaganza.Element) error {
	switch {
	case !s.flags.isSecured():
		return s.proceedStartTLS(ctx, elem)

	case !s.flags.isAuthenticated():
		if elem.Name() != "auth" {
			return s.disconnect(ctx, streamerror.E(streamerror.NotAuthorized))
		}
		return s.authenticate(ctx, elem)
	}
	stanza, ok := elem.(stravaganza.Stanza)
	if !ok {
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
	return s.processStanza(ctx, stanza)
}

func (s *inS2S) processStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	hInf := &hook.S2SStreamInfo{
		ID:      s.id,
		Sender:  s.sender,
		Target:  s.target,
		Element: stanza,
	}
	halted, err := s.runHook(ctx, hook.S2SInStreamElementReceived, hInf)
	if err != nil {
		return err
	}
	if halted {
		return nil
	}
	// only stanzas addressed to a served domain are accepted
	domain := stanza.ToJID().Domain()
	if !s.hosts.IsLocalHost(domain) && !s.router.IsHandlerHost(domain) {
		return s.replyError(ctx, stanza, stanzaerror.ItemNotFound, nil)
	}
	_, err = s.router.Route(ctx, stanza)
	if err == nil {
		return nil
	}
	return s.handleRoutingError(ctx, stanza, err)
}

func (s *inS2S) handleRoutingError(ctx context.Context, stanza stravaganza.Stanza, err error) error {
	_, isPresence := stanza.(*stravaganza.Presence)

	switch {
	case errors.Is(err, router.ErrAccessDenied):
		return s.replyError(ctx, stanza, stanzaerror.Forbidden, nil)
	case errors.Is(err, router.ErrQueueFull):
		return s.replyError(ctx, stanza, stanzaerror.ServiceUnavailable, xmpputil.ApplicationCondition("queue-full"))
	case errors.Is(err, router.ErrNoRoute):
		if isPresence {
			return nil
		}
		return s.replyError(ctx, stanza, stanzaerror.ServiceUnavailable, nil)
	default:
		level.Warn(s.logger).Log("msg", "failed to route S2S incoming stanza", "err", err)
		return s.replyError(ctx, stanza, stanzaerror.InternalServerError, nil)
	}
}

// replyError routes back an error stanza. Incoming streams are unidirectional,
// so the reply leaves through the outgoing stream towards the sender domain.
func (s *inS2S) replyError(ctx context.Context, stanza stravaganza.Stanza, reason stanzaerror.Reason, appElem stravaganza.Element) error {
	if stanza.Attribute(stravaganza.Type) == stravaganza.ErrorType {
		return nil
	}
	if iq, ok := stanza.(*stravaganza.IQ); ok && iq.IsResult() {
		return nil
	}
	var errStanza stravaganza.Stanza
	if appElem != nil {
		errStanza = xmpputil.MakeErrorStanzaWithApplicationElement(stanza, appElem, reason)
	} else {
		errStanza = xmpputil.MakeErrorStanza(stanza, reason)
	}
	_, err := s.router.Route(ctx, errStanza)
	return err
}

func (s *inS2S) authenticate(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	if elem.Attribute("mechanism") != externalMechanism {
		return s.failAuthentication(ctx, "invalid-mechanism", "")
	}
	// validate initiating server certificate
	for _, cert := range s.tr.PeerCertificates() {
		for _, dnsName := range cert.DNSNames {
			if dnsName == s.sender {
				return s.finishAuthentication(ctx)
			}
		}
	}
	return s.failAuthentication(ctx, "bad-protocol", "Failed to get peer certificate")
}

func (s *inS2S) failAuthentication(ctx context.Context, reason, text string) error {
	level.Info(s.logger).Log("msg", "failed S2S incoming stream authentication",
		"sender", s.sender,
		"target", s.target,
		"reason", reason,
	)
	reportIncomingRejected(reason)

	sb := stravaganza.NewBuilder("failure").
		WithAttribute(stravaganza.Namespace, saslNamespace).
		WithChild(stravaganza.NewBuilder(reason).Build())
	if len(text) > 0 {
		sb.WithChild(
			stravaganza.NewBuilder("text").
				WithText(text).
				Build(),
		)
	}
	return s.sendElement(ctx, sb.Build())
}

func (s *inS2S) finishAuthentication(ctx context.Context) error {
	// apply remote domain shaper
	s.tr.SetShaper(s.shapers.Shaper(s.cfg.shaperClass, s.jd))

	level.Info(s.logger).Log("msg", "authenticated S2S incoming stream", "sender", s.sender, "target", s.target)

	s.flags.setAuthenticated()
	s.restartSession()

	return s.sendElement(ctx, stravaganza.NewBuilder("success").
		WithAttribute(stravaganza.Namespace, saslNamespace).
		Build(),
	)
}

func (s *inS2S) proceedStartTLS(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != tlsNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	} else if elem.Name() != "starttls" {
		return s.disconnect(ctx, streamerror.E(streamerror.NotAuthorized))
	}
	err := s.sendElement(ctx, stravaganza.NewBuilder("proceed").
		WithAttribute(stravaganza.Namespace, tlsNamespace).
		Build(),
	)
	if err != nil {
		return err
	}
	s.tr.StartTLS(s.serverTLSConfig(), false)
	s.flags.setSecured()

	level.Info(s.logger).Log("msg", "secured S2S incoming stream", "sender", s.sender, "target", s.target)

	s.restartSession()
	return nil
}

func (s *inS2S) serverTLSConfig() *tls.Config {
	var cfg *tls.Config
	if s.cfg.tlsConfig != nil {
		cfg = s.cfg.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg.ClientAuth = tls.VerifyClientCertIfGiven
	return cfg
}

func (s *inS2S) handleSessionError(ctx context.Context, err error) {
	var streamErr *streamerror.Error
	var stanzaErr *stanzaerror.Error

	switch {
	case errors.Is(err, xmppparser.ErrStreamClosedByPeer):
		_ = s.session.Close(ctx)
		_ = s.close(ctx)

	case errors.As(err, &streamErr):
		_ = s.disconnect(ctx, streamErr)

	case errors.As(err, &stanzaErr):
		level.Debug(s.logger).Log("msg", "dropped malformed S2S incoming stanza", "err", err)

	default:
		_ = s.close(ctx)
	}
}

func (s *inS2S) restartSession() {
	_ = s.session.Reset(s.tr)
	s.setState(inConnecting)
}

func (s *inS2S) disconnect(ctx context.Context, streamErr *streamerror.Error) error {
	if s.getState() == inDisconnected {
		return nil
	}
	if s.getState() == inConnecting {
		_ = s.session.OpenStream(ctx)
	}
	if streamErr != nil {
		if err := s.sendElement(ctx, streamErr.Element()); err != nil {
			level.Debug(s.logger).Log("msg", "failed to send stream error", "err", err)
		}
	}
	// close stream session and wait for the other entity to close its stream
	_ = s.session.Close(ctx)

	if s.getState() != inConnecting && streamErr != nil && streamErr.Reason == streamerror.ConnectionTimeout {
		s.discTm = time.AfterFunc(inDisconnectTimeout, func() {
			s.rq.Run(func() {
				ctx, cancel := s.requestContext()
				defer cancel()
				_ = s.close(ctx)
			})
		})
		s.sendDisabled = true // avoid sending anymore stanzas while closing
		return nil
	}
	return s.close(ctx)
}

func (s *inS2S) close(ctx context.Context) error {
	if s.getState() == inDisconnected {
		return nil // already disconnected
	}
	defer close(s.doneCh)

	s.setState(inDisconnected)

	if s.discTm != nil {
		s.discTm.Stop()
	}
	s.inHub.unregister(s)

	level.Info(s.logger).Log("msg", "unregistered S2S incoming stream", "sender", s.sender, "target", s.target)

	_, err := s.runHook(ctx, hook.S2SInStreamUnregistered, &hook.S2SStreamInfo{
		ID:     s.id,
		Sender: s.sender,
		Target: s.target,
	})
	reportIncomingConnection("unregister")

	// close underlying transport
	_ = s.tr.Close()
	return err
}

func (s *inS2S) sendElement(ctx context.Context, elem stravaganza.Element) error {
	if s.sendDisabled {
		return nil
	}
	err := s.session.Send(ctx, elem)
	reportOutgoingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
	)
	return err
}

func (s *inS2S) setState(state inState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *inS2S) getState() inState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *inS2S) runHook(ctx context.Context, hookName string, inf *hook.S2SStreamInfo) (halt bool, err error) {
	return s.hk.Run(ctx, hookName, &hook.ExecutionContext{
		Info:   inf,
		Sender: s,
	})
}

func (s *inS2S) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.reqTimeout)
}

var currentID uint64

func nextStreamID() string {
	return "s2s:in:" + strconv.FormatUint(atomic.AddUint64(&currentID, 1), 10)
}
