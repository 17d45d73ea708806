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
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/auth"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	xmppparser "github.com/ortuman/kestrel/pkg/parser"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/router/stream"
	xmppsession "github.com/ortuman/kestrel/pkg/session"
	"github.com/ortuman/kestrel/pkg/transport"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

type state uint32

const (
	inConnecting state = iota
	inConnected
	inAuthenticating
	inAuthenticated
	inBound
	inDisconnected
	inTerminated
)

const (
	maxAuthFailed  = 5
	maxAuthAborted = 1

	maxRegisterAttempts = 3
)

var disconnectTimeout = time.Second * 5

type resourceConflict int8

const (
	terminateOld resourceConflict = iota
	override
	disallow
)

func parseResourceConflict(s string) resourceConflict {
	switch s {
	case "override":
		return override
	case "disallow":
		return disallow
	default:
		return terminateOld
	}
}

type inCfg struct {
	authenticateTimeout time.Duration
	reqTimeout          time.Duration
	maxStanzaSize       int
	maxSessions         int
	resConflict         resourceConflict
	shaperClass         string
	access              string
	startTLSRequired    bool
	useTLS              bool
	tlsConfig           *tls.Config
}

type authState struct {
	authenticators []auth.Authenticator
	active         auth.Authenticator
	failedTimes    int
	abortTimes     int
}

func (a *authState) reset() {
	if a.active != nil {
		a.active.Reset()
	}
	a.active = nil
}

type inC2S struct {
	id           string
	cfg          inCfg
	tr           transport.Transport
	authSt       authState
	session      session
	router       globalRouter
	reg          sessionRegistry
	mods         modules
	offline      offlineQueue
	access       accessEvaluator
	shapers      shaperRules
	hk           *hook.Hooks
	logger       kitlog.Logger
	rq           *runqueue.RunQueue
	discTm       *time.Timer
	doneCh       chan struct{}
	sendDisabled bool

	pendMu  sync.Mutex
	pending []stravaganza.Element
	closing bool

	mu      sync.RWMutex
	state   state
	jd      *jid.JID
	pr      *stravaganza.Presence
	lastAct time.Time
	flags   flags
}

func newInC2S(
	cfg inCfg,
	tr transport.Transport,
	authenticators []auth.Authenticator,
	hosts *host.Hosts,
	router globalRouter,
	reg sessionRegistry,
	mods modules,
	offline offlineQueue,
	access accessEvaluator,
	shapers shaperRules,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *inC2S {
	id := nextStreamID()

	// connection shaper until the peer identity is known
	tr.SetShaper(shapers.Shaper(cfg.shaperClass, nil))

	sLogger := kitlog.With(logger, "id", id)
	stm := &inC2S{
		id:  id,
		cfg: cfg,
		tr:  tr,
		session: xmppsession.New(
			xmppsession.C2SSession,
			id,
			tr,
			hosts,
			xmppsession.Config{MaxStanzaSize: cfg.maxStanzaSize},
			sLogger,
		),
		authSt:  authState{authenticators: authenticators},
		router:  router,
		reg:     reg,
		mods:    mods,
		offline: offline,
		access:  access,
		shapers: shapers,
		hk:      hk,
		logger:  sLogger,
		rq:      runqueue.New(id),
		doneCh:  make(chan struct{}),
		state:   inConnecting,
		lastAct: time.Now(),
	}
	if cfg.useTLS || tr.IsSecured() {
		stm.flags.setSecured() // stream already secured
	}
	return stm
}

func (s *inC2S) ID() string {
	return s.id
}

func (s *inC2S) JID() *jid.JID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jd
}

func (s *inC2S) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Node()
	}
	return ""
}

func (s *inC2S) Domain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Domain()
	}
	return ""
}

func (s *inC2S) Resource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Resource()
	}
	return ""
}

func (s *inC2S) Presence() *stravaganza.Presence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pr
}

func (s *inC2S) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAct
}

func (s *inC2S) SendElement(_ context.Context, elem stravaganza.Element) error {
	s.pendMu.Lock()
	if s.closing || s.getState() == inTerminated {
		s.pendMu.Unlock()
		return stream.ErrStreamClosed
	}
	s.pending = append(s.pending, elem)
	s.pendMu.Unlock()

	s.rq.Run(s.flushPending)
	return nil
}

func (s *inC2S) Disconnect(streamErr *streamerror.Error) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.disconnect(ctx, streamErr)
	})
	return errCh
}

func (s *inC2S) Done() <-chan struct{} {
	return s.doneCh
}

func (s *inC2S) start() {
	s.readLoop()
}

func (s *inC2S) readLoop() {
	s.restartSession()

	// schedule authenticate timeout
	authTm := time.AfterFunc(s.cfg.authenticateTimeout, s.connTimeout)
	defer authTm.Stop()

	for {
		elem, sErr := s.session.Receive()

		// process result and update state accordingly
		s.handleSessionResult(elem, sErr)

		switch s.getState() {
		case inAuthenticated, inBound:
			authTm.Stop()
		case inDisconnected, inTerminated:
			return
		}
	}
}

func (s *inC2S) handleSessionResult(elem stravaganza.Element, sErr error) {
	handledCh := make(chan struct{})
	s.rq.Run(func() {
		defer close(handledCh)

		ctx, cancel := s.requestContext()
		defer cancel()

		switch {
		case sErr == nil && elem != nil:
			s.touch()
			if err := s.handleElement(ctx, elem); err != nil {
				level.Warn(s.logger).Log("msg", "failed to process incoming C2S session element", "err", err)
				return
			}

		case sErr != nil:
			s.handleSessionError(ctx, sErr)
		}
	})
	<-handledCh
}

func (s *inC2S) connTimeout() {
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		_ = s.disconnect(ctx, streamerror.E(streamerror.ConnectionTimeout))
	})
}

func (s *inC2S) handleElement(ctx context.Context, elem stravaganza.Element) error {
	var err error

	t0 := time.Now()
	switch s.getState() {
	case inConnecting:
		err = s.handleConnecting(ctx, elem)
	case inConnected:
		err = s.handleConnected(ctx, elem)
	case inAuthenticating:
		err = s.handleAuthenticating(ctx, elem)
	case inAuthenticated:
		err = s.handleAuthenticated(ctx, elem)
	case inBound:
		err = s.handleBound(ctx, elem)
	}
	reportIncomingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
		time.Since(t0).Seconds(),
	)
	return err
}

func (s *inC2S) handleConnecting(ctx context.Context, elem stravaganza.Element) error {
	// assign stream domain if not set yet
	if len(s.Domain()) == 0 {
		j, err := jid.NewWithString(elem.Attribute(stravaganza.To), true)
		if err != nil || len(j.Domain()) == 0 {
			return s.disconnect(ctx, streamerror.E(streamerror.HostUnknown))
		}
		s.setJID(j)
	}
	// open stream session
	s.session.SetFromJID(s.JID())

	fb := stravaganza.NewBuilder("stream:features").
		WithAttribute(stravaganza.StreamNamespace, streamNamespace).
		WithAttribute(stravaganza.Version, "1.0")

	if !s.flags.isAuthenticated() {
		fb.WithChildren(s.unauthenticatedFeatures()...)
		s.setState(inConnected)
	} else {
		authFeatures, err := s.authenticatedFeatures(ctx)
		if err != nil {
			return err
		}
		fb.WithChildren(authFeatures...)
		s.setState(inAuthenticated)
	}
	if err := s.session.OpenStream(ctx); err != nil {
		return err
	}
	return s.session.Send(ctx, fb.Build())
}

func (s *inC2S) handleConnected(ctx context.Context, elem stravaganza.Element) error {
	switch elem.Name() {
	case "starttls":
		return s.proceedStartTLS(ctx, elem)

	case "auth":
		if s.mustSecureFirst() {
			return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
		}
		return s.startAuthentication(ctx, elem)

	case "iq":
		if elem.ChildNamespace("query", iqAuthNamespace) != nil {
			// do not allow non-SASL authentication
			return s.sendElement(ctx, stanzaerror.E(stanzaerror.ServiceUnavailable, elem).Element())
		}
		fallthrough

	case "message", "presence":
		return s.disconnect(ctx, streamerror.E(streamerror.NotAuthorized))

	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) handleAuthenticating(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	if elem.Name() == "abort" { // initiating entity aborted the handshake
		return s.abortAuthentication(ctx)
	}
	return s.continueAuthentication(ctx, elem)
}

func (s *inC2S) handleAuthenticated(ctx context.Context, elem stravaganza.Element) error {
	iq, ok := elem.(*stravaganza.IQ)
	if !ok {
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
	return s.bindResource(ctx, iq)
}

func (s *inC2S) handleBound(ctx context.Context, elem stravaganza.Element) error {
	switch stanza := elem.(type) {
	case *stravaganza.IQ:
		return s.processIQ(ctx, stanza)
	case *stravaganza.Presence:
		return s.processPresence(ctx, stanza)
	case *stravaganza.Message:
		return s.routeStanza(ctx, stanza)
	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) processIQ(ctx context.Context, iq *stravaganza.IQ) error {
	if iq.IsSet() && iq.ChildNamespace("session", sessionNamespace) != nil {
		if !s.flags.isSessionStarted() {
			s.flags.setSessionStarted()
			return s.sendElement(ctx, iq.ResultBuilder().Build())
		}
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.NotAllowed, iq).Element())
	}
	if s.mods.IsModuleIQ(iq) {
		return s.mods.ProcessIQ(ctx, iq)
	}
	return s.routeStanza(ctx, iq)
}

func (s *inC2S) processPresence(ctx context.Context, presence *stravaganza.Presence) error {
	toJID := presence.ToJID()
	if toJID.IsFullWithUser() || !s.JID().MatchesWithOptions(toJID, jid.MatchesBare) {
		return s.routeStanza(ctx, presence) // directed presence
	}
	if !presence.IsAvailable() && !presence.IsUnavailable() {
		return nil
	}
	if err := s.updatePresence(ctx, presence); err != nil {
		return err
	}
	_, err := s.runHook(ctx, hook.C2SStreamPresenceReceived, &hook.C2SStreamInfo{
		ID:       s.ID(),
		JID:      s.JID(),
		Presence: presence,
	})
	return err
}

func (s *inC2S) updatePresence(ctx context.Context, presence *stravaganza.Presence) error {
	becomesAvailable := presence.IsAvailable() && presence.Priority() >= 0 &&
		!(stream.IsAvailable(s) && stream.Priority(s) >= 0)

	if !becomesAvailable || s.offline == nil {
		s.setPresence(presence)
		return nil
	}
	// pending offline messages are delivered before the stream becomes visible as available
	return s.offline.Drain(ctx, s.JID(),
		func(ctx context.Context, msg *stravaganza.Message) error {
			return s.sendElement(ctx, msg)
		},
		func() { s.setPresence(presence) },
	)
}

func (s *inC2S) routeStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	_, err := s.router.Route(ctx, stanza)
	if err == nil {
		return nil
	}
	return s.handleRoutingError(ctx, stanza, err)
}

func (s *inC2S) handleRoutingError(ctx context.Context, stanza stravaganza.Stanza, err error) error {
	errReply := s.routingErrorReply(stanza, err)
	if errReply == nil {
		return nil
	}
	return s.sendElement(ctx, errReply)
}

// routingErrorReply returns the error stanza that reports err to stanza sender.
// A nil stanza is returned when the failure must not be reported.
func (s *inC2S) routingErrorReply(stanza stravaganza.Stanza, err error) stravaganza.Stanza {
	if stanza.Attribute(stravaganza.Type) == stravaganza.ErrorType {
		return nil
	}
	if iq, ok := stanza.(*stravaganza.IQ); ok && iq.IsResult() {
		return nil
	}
	_, isPresence := stanza.(*stravaganza.Presence)

	var appElem stravaganza.Element
	var reason stanzaerror.Reason
	switch {
	case errors.Is(err, router.ErrAccessDenied):
		reason = stanzaerror.Forbidden
	case errors.Is(err, router.ErrQueueFull):
		reason = stanzaerror.ServiceUnavailable
		appElem = xmpputil.ApplicationCondition("queue-full")
	case errors.Is(err, router.ErrNoRoute):
		if isPresence {
			return nil
		}
		reason = stanzaerror.ServiceUnavailable
	case errors.Is(err, router.ErrRemoteServerNotFound):
		reason = stanzaerror.RemoteServerNotFound
	case errors.Is(err, router.ErrRemoteServerTimeout):
		reason = stanzaerror.RemoteServerTimeout
	default:
		level.Warn(s.logger).Log("msg", "failed to route stanza", "err", err)
		reason = stanzaerror.InternalServerError
	}
	if appElem != nil {
		return xmpputil.MakeErrorStanzaWithApplicationElement(stanza, appElem, reason)
	}
	return xmpputil.MakeErrorStanza(stanza, reason)
}

func (s *inC2S) handleSessionError(ctx context.Context, err error) {
	var streamErr *streamerror.Error
	var stanzaErr *stanzaerror.Error

	switch {
	case errors.Is(err, xmppparser.ErrStreamClosedByPeer):
		_ = s.session.Close(ctx)
		_ = s.close(ctx)

	case errors.As(err, &streamErr):
		if streamErr.Err != nil {
			level.Info(s.logger).Log("msg", "stream error", "reason", streamErr.Reason, "err", streamErr.Err)
		}
		_ = s.disconnect(ctx, streamErr)

	case errors.As(err, &stanzaErr):
		_ = s.sendElement(ctx, stanzaErr.Element())

	default:
		_ = s.close(ctx)
	}
}

func (s *inC2S) mustSecureFirst() bool {
	return s.cfg.startTLSRequired && s.tr.Type() == transport.Socket && !s.flags.isSecured()
}

func (s *inC2S) unauthenticatedFeatures() []stravaganza.Element {
	var features []stravaganza.Element

	// attach start-tls feature
	isSocketTr := s.tr.Type() == transport.Socket
	if isSocketTr && !s.flags.isSecured() {
		tb := stravaganza.NewBuilder("starttls").
			WithAttribute(stravaganza.Namespace, tlsNamespace)
		if s.cfg.startTLSRequired {
			tb.WithChild(stravaganza.NewBuilder("required").Build())
		}
		features = append(features, tb.Build())
	}
	// attach SASL mechanisms
	if !s.mustSecureFirst() && len(s.authSt.authenticators) > 0 {
		sb := stravaganza.NewBuilder("mechanisms")
		sb.WithAttribute(stravaganza.Namespace, saslNamespace)
		for _, authenticator := range s.authSt.authenticators {
			sb.WithChild(
				stravaganza.NewBuilder("mechanism").
					WithText(authenticator.Mechanism()).
					Build(),
			)
		}
		features = append(features, sb.Build())
	}
	return features
}

func (s *inC2S) authenticatedFeatures(ctx context.Context) ([]stravaganza.Element, error) {
	features := []stravaganza.Element{
		stravaganza.NewBuilder("bind").
			WithAttribute(stravaganza.Namespace, bindNamespace).
			WithChild(stravaganza.NewBuilder("required").Build()).
			Build(),

		// [rfc6121] offer session feature for backward compatibility
		stravaganza.NewBuilder("session").
			WithAttribute(stravaganza.Namespace, sessionNamespace).
			WithChild(stravaganza.NewBuilder("optional").Build()).
			Build(),
	}
	// include module stream features
	modFeatures, err := s.mods.StreamFeatures(ctx, s.Domain())
	if err != nil {
		return nil, err
	}
	return append(features, modFeatures...), nil
}

func (s *inC2S) proceedStartTLS(ctx context.Context, elem stravaganza.Element) error {
	if s.flags.isSecured() || s.tr.Type() != transport.Socket {
		return s.disconnect(ctx, streamerror.E(streamerror.NotAuthorized))
	}
	ns := elem.Attribute(stravaganza.Namespace)
	if len(ns) > 0 && ns != tlsNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	s.flags.setSecured()

	if err := s.sendElement(ctx,
		stravaganza.NewBuilder("proceed").
			WithAttribute(stravaganza.Namespace, tlsNamespace).
			Build(),
	); err != nil {
		return err
	}
	s.tr.StartTLS(s.cfg.tlsConfig, false)

	level.Info(s.logger).Log("msg", "secured C2S stream")

	s.restartSession()
	return nil
}

func (s *inC2S) startAuthentication(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	mechanism := elem.Attribute("mechanism")
	for _, authenticator := range s.authSt.authenticators {
		if authenticator.Mechanism() != mechanism {
			continue
		}
		s.authSt.active = authenticator
		s.setState(inAuthenticating)
		return s.continueAuthentication(ctx, elem)
	}
	// ...mechanism not found...
	return s.sendElement(ctx, auth.NewSASLError(auth.InvalidMechanism, nil).Element())
}

func (s *inC2S) continueAuthentication(ctx context.Context, elem stravaganza.Element) error {
	respElem, saslErr := s.authSt.active.ProcessElement(ctx, elem)
	if saslErr != nil {
		return s.failAuthentication(ctx, saslErr)
	}
	if !s.authSt.active.Authenticated() {
		return s.sendElement(ctx, respElem)
	}
	username := s.authSt.active.Username()

	j, err := jid.New(username, s.Domain(), "", true)
	if err != nil {
		return s.failAuthentication(ctx, auth.NewSASLError(auth.MalformedRequest, err))
	}
	if !s.access.IsAllowed(s.cfg.access, j) {
		return s.failAuthentication(ctx, auth.NewSASLError(auth.NotAuthorized, &router.AccessDeniedError{
			Rule: s.cfg.access,
			JID:  j,
		}))
	}
	if err := s.sendElement(ctx, respElem); err != nil {
		return err
	}
	return s.finishAuthentication(j)
}

func (s *inC2S) finishAuthentication(j *jid.JID) error {
	s.setJID(j)
	s.flags.setAuthenticated()

	// update connection shaper
	s.tr.SetShaper(s.shapers.Shaper(s.cfg.shaperClass, j))

	level.Info(s.logger).Log("msg", "authenticated C2S stream", "username", j.Node())

	s.authSt.reset()
	s.restartSession()
	return nil
}

func (s *inC2S) failAuthentication(ctx context.Context, saslErr *auth.SASLError) error {
	if saslErr.Err != nil {
		level.Warn(s.logger).Log("msg", "authentication error", "err", saslErr.Err)
	}
	s.authSt.reset()
	s.setState(inConnected)

	s.authSt.failedTimes++
	if s.authSt.failedTimes >= maxAuthFailed {
		return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
	}
	return s.sendElement(ctx, saslErr.Element())
}

func (s *inC2S) abortAuthentication(ctx context.Context) error {
	s.authSt.abortTimes++
	if s.authSt.abortTimes > maxAuthAborted {
		return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
	}
	s.authSt.reset()
	s.setState(inConnected)
	return s.sendElement(ctx, auth.NewSASLError(auth.Aborted, nil).Element())
}

func (s *inC2S) bindResource(ctx context.Context, iq *stravaganza.IQ) error {
	bind := iq.ChildNamespace("bind", bindNamespace)
	if !iq.IsSet() || bind == nil {
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.NotAllowed, iq).Element())
	}
	res := uuid.New().String() // server generated
	if resElem := bind.Child("resource"); resElem != nil && len(resElem.Text()) > 0 {
		res = resElem.Text()
	}
	userJID, err := jid.New(s.Username(), s.Domain(), res, false)
	if err != nil {
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.BadRequest, iq).Element())
	}
	s.setJID(userJID)

	var limitErr *SessionLimitError
	err = s.register(ctx)
	switch {
	case err == nil:
		break

	case errors.As(err, &limitErr):
		level.Info(s.logger).Log("msg", "session limit reached", "jid", limitErr.JID.ToBareJID().String(), "limit", limitErr.Limit)

		se := streamerror.E(streamerror.PolicyViolation)
		se.Err = err
		se.ApplicationElement = xmpputil.ApplicationCondition("reached-max-session-count")
		return s.disconnect(ctx, se)

	case errors.Is(err, ErrResourceConflict):
		s.setJID(userJID.ToBareJID())
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.Conflict, iq).Element())

	default:
		return err
	}
	s.session.SetFromJID(s.JID())
	s.setState(inBound)
	s.flags.setBound()

	_, err = s.runHook(ctx, hook.C2SStreamBound, &hook.C2SStreamInfo{
		ID:  s.ID(),
		JID: s.JID(),
	})
	if err != nil {
		return err
	}
	// notify successful binding
	resIQ := xmpputil.MakeResultIQ(iq,
		stravaganza.NewBuilder("bind").
			WithAttribute(stravaganza.Namespace, bindNamespace).
			WithChild(
				stravaganza.NewBuilder("jid").
					WithText(s.JID().String()).
					Build(),
			).
			Build(),
	)
	return s.sendElement(ctx, resIQ)
}

func (s *inC2S) register(ctx context.Context) error {
	for i := 0; i < maxRegisterAttempts; i++ {
		err := s.reg.Register(s, s.cfg.maxSessions)

		var conflictErr *ResourceConflictError
		if !errors.As(err, &conflictErr) {
			return err
		}
		switch s.cfg.resConflict {
		case disallow:
			return err

		case override:
			// replace by a server generated resourcepart
			j, _ := jid.New(s.Username(), s.Domain(), uuid.New().String(), true)
			s.setJID(j)

		default:
			// last session wins
			existing := conflictErr.Existing
			level.Info(s.logger).Log("msg", "disconnecting conflicting C2S stream", "conflict_id", existing.ID())

			select {
			case <-existing.Disconnect(streamerror.E(streamerror.Conflict)):
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case <-existing.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return ErrResourceConflict
}

func (s *inC2S) flushPending() {
	if s.sendDisabled {
		return // rerouted on termination
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	for _, elem := range s.takePending(false) {
		if err := s.sendElement(ctx, elem); err != nil {
			level.Warn(s.logger).Log("msg", "failed to send element", "err", err)
		}
	}
}

func (s *inC2S) takePending(closing bool) []stravaganza.Element {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()

	elems := s.pending
	s.pending = nil
	if closing {
		s.closing = true
	}
	return elems
}

// unregister detaches the stream and reroutes every element it accepted but never sent.
// The account offline queue stays locked meanwhile, so rerouted messages are stored ahead
// of anything sent to the account once the stream is no longer resolvable.
func (s *inC2S) unregister(ctx context.Context) {
	detach := func(ctx context.Context) {
		elems := s.takePending(true)
		if s.flags.isBound() {
			s.reg.Unregister(s)
		}
		for _, elem := range elems {
			s.reroute(ctx, elem)
		}
	}
	if !s.flags.isBound() || s.offline == nil {
		detach(ctx)
		return
	}
	if err := s.offline.WithQueueLock(ctx, s.JID(), detach); err != nil {
		level.Warn(s.logger).Log("msg", "failed to lock offline queue", "err", err)
		detach(ctx)
	}
}

func (s *inC2S) reroute(ctx context.Context, elem stravaganza.Element) {
	var errReply stravaganza.Stanza

	switch stanza := elem.(type) {
	case *stravaganza.Message:
		_, err := s.router.Route(ctx, stanza)
		if err == nil {
			return
		}
		errReply = s.routingErrorReply(stanza, err)

	case *stravaganza.IQ:
		errReply = s.routingErrorReply(stanza, router.ErrNoRoute)

	default:
		return
	}
	if errReply == nil {
		return
	}
	if _, err := s.router.Route(ctx, errReply); err != nil {
		level.Debug(s.logger).Log("msg", "failed to bounce undelivered stanza", "err", err)
	}
}

func (s *inC2S) disconnect(ctx context.Context, streamErr *streamerror.Error) error {
	if s.isClosed() {
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

	if s.getState() == inBound && streamErr != nil && streamErr.Reason == streamerror.ConnectionTimeout {
		s.discTm = time.AfterFunc(disconnectTimeout, func() {
			s.rq.Run(func() {
				fnCtx, cancel := s.requestContext()
				defer cancel()
				_ = s.close(fnCtx)
			})
		})
		s.sendDisabled = true // avoid sending anymore stanzas while closing
		return nil
	}
	return s.close(ctx)
}

func (s *inC2S) close(ctx context.Context) error {
	if s.getState() == inTerminated {
		return nil
	}
	s.setState(inDisconnected)

	if s.discTm != nil {
		s.discTm.Stop()
	}
	return s.terminate(ctx)
}

func (s *inC2S) terminate(ctx context.Context) error {
	s.unregister(ctx)

	if s.flags.isBound() {
		_, err := s.runHook(ctx, hook.C2SStreamUnregistered, &hook.C2SStreamInfo{
			ID:       s.ID(),
			JID:      s.JID(),
			Presence: s.Presence(),
		})
		if err != nil {
			level.Warn(s.logger).Log("msg", "failed to run unregistered hook", "err", err)
		}
	}
	// close underlying transport
	_ = s.tr.Close()

	close(s.doneCh) // signal termination

	s.setState(inTerminated)

	level.Info(s.logger).Log("msg", "terminated C2S stream", "jid", s.jidString())
	return nil
}

func (s *inC2S) restartSession() {
	_ = s.session.Reset(s.tr)
	s.setState(inConnecting)
}

func (s *inC2S) sendElement(ctx context.Context, elem stravaganza.Element) error {
	if s.sendDisabled {
		return nil
	}
	if err := s.session.Send(ctx, elem); err != nil {
		return err
	}
	reportOutgoingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
	)
	return nil
}

func (s *inC2S) isClosed() bool {
	st := s.getState()
	return st == inDisconnected || st == inTerminated
}

func (s *inC2S) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAct = time.Now()
}

func (s *inC2S) jidString() string {
	if j := s.JID(); j != nil {
		return j.String()
	}
	return ""
}

func (s *inC2S) setJID(jd *jid.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jd = jd
}

func (s *inC2S) setPresence(pr *stravaganza.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pr = pr
}

func (s *inC2S) setState(state state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *inC2S) getState() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *inC2S) runHook(ctx context.Context, hookName string, inf *hook.C2SStreamInfo) (halt bool, err error) {
	return s.hk.Run(ctx, hookName, &hook.ExecutionContext{
		Info:   inf,
		Sender: s,
	})
}

func (s *inC2S) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.reqTimeout)
}

var currentID uint64

func nextStreamID() string {
	return "c2s:" + strconv.FormatUint(atomic.AddUint64(&currentID, 1), 10)
}
