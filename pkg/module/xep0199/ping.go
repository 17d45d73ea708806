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

package xep0199

import (
	"context"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/router"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const pingNamespace = "urn:xmpp:ping"

const (
	// ModuleName represents ping module name.
	ModuleName = "ping"

	// XEPNumber represents ping XEP number.
	XEPNumber = "0199"
)

const (
	modRequestTimeout = time.Second * 5

	killAction = "kill"
)

// Config contains ping module configuration options.
type Config struct {
	// AckTimeout tells how long should we wait until considering a client to be disconnected.
	AckTimeout time.Duration `fig:"ack_timeout" default:"32s"`

	// Interval tells how often pings should be sent to clients.
	Interval time.Duration `fig:"interval" default:"1m"`

	// SendPings tells whether or not server pings should be sent.
	SendPings bool `fig:"send_pings"`

	// TimeoutAction specifies the action to be taken when a client is considered as disconnected.
	TimeoutAction string `fig:"timeout_action" default:"none"`
}

// Ping represents ping (XEP-0199) module type.
type Ping struct {
	cfg      Config
	router   globalRouter
	sessions sessions
	hk       *hook.Hooks
	logger   kitlog.Logger

	boundHookID hook.HandlerID
	unregHookID hook.HandlerID

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New returns a new initialized ping instance.
func New(cfg Config, router *router.Router, sessions router.Sessions, hk *hook.Hooks, logger kitlog.Logger) *Ping {
	return &Ping{
		cfg:      cfg,
		router:   router,
		sessions: sessions,
		hk:       hk,
		logger:   kitlog.With(logger, "module", ModuleName, "xep", XEPNumber),
		timers:   make(map[string]*time.Timer),
	}
}

// Name returns ping module name.
func (p *Ping) Name() string { return ModuleName }

// StreamFeature returns ping module stream feature.
func (p *Ping) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns ping server disco features.
func (p *Ping) ServerFeatures(_ context.Context) ([]string, error) {
	return []string{pingNamespace}, nil
}

// AccountFeatures returns ping account disco features.
func (p *Ping) AccountFeatures(_ context.Context) ([]string, error) {
	return nil, nil
}

// Start starts ping module.
func (p *Ping) Start(_ context.Context) error {
	if p.cfg.SendPings {
		p.boundHookID = p.hk.AddHook(hook.C2SStreamBound, p.onBound, hook.DefaultPriority)
		p.unregHookID = p.hk.AddHook(hook.C2SStreamUnregistered, p.onUnregister, hook.DefaultPriority)
	}
	level.Info(p.logger).Log("msg", "started ping module", "send_pings", p.cfg.SendPings)
	return nil
}

// Stop stops ping module.
func (p *Ping) Stop(_ context.Context) error {
	if p.cfg.SendPings {
		p.hk.RemoveHook(hook.C2SStreamBound, p.boundHookID)
		p.hk.RemoveHook(hook.C2SStreamUnregistered, p.unregHookID)
	}
	p.mu.Lock()
	for k, tm := range p.timers {
		tm.Stop()
		delete(p.timers, k)
	}
	p.mu.Unlock()

	level.Info(p.logger).Log("msg", "stopped ping module")
	return nil
}

// MatchesNamespace tells whether namespace matches ping module.
func (p *Ping) MatchesNamespace(namespace string, _ bool) bool {
	return namespace == pingNamespace
}

// ProcessIQ process a ping iq.
func (p *Ping) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	switch {
	case isPingIQ(iq):
		_, _ = p.router.Route(ctx, xmpputil.MakeResultIQ(iq, nil))
	default:
		_, _ = p.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	}
	return nil
}

func (p *Ping) onBound(_ context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.C2SStreamInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	p.schedulePing(inf.JID)
	return nil
}

func (p *Ping) onUnregister(_ context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.C2SStreamInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	p.cancelTimer(inf.JID)
	return nil
}

func (p *Ping) schedulePing(jd *jid.JID) {
	p.setTimer(jd, p.cfg.Interval, func() { p.sendPing(jd) })
}

func (p *Ping) sendPing(jd *jid.JID) {
	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.Type, stravaganza.GetType).
		WithAttribute(stravaganza.From, jd.Domain()).
		WithAttribute(stravaganza.To, jd.String()).
		WithChild(
			stravaganza.NewBuilder("ping").
				WithAttribute(stravaganza.Namespace, pingNamespace).
				Build(),
		).
		BuildIQ()

	ctx, cancel := context.WithTimeout(context.Background(), modRequestTimeout)
	defer cancel()

	sentAt := time.Now()
	if _, err := p.router.Route(ctx, iq); err != nil {
		level.Debug(p.logger).Log("msg", "failed to send ping", "jid", jd.String(), "err", err)
		p.cancelTimer(jd)
		return
	}
	// any element received after the ping acknowledges it
	p.setTimer(jd, p.cfg.AckTimeout, func() { p.checkAck(jd, sentAt) })

	level.Debug(p.logger).Log("msg", "sent ping", "jid", jd.String())
}

func (p *Ping) checkAck(jd *jid.JID, sentAt time.Time) {
	stms := p.sessions.Resolve(jd)
	if len(stms) == 0 {
		p.cancelTimer(jd)
		return
	}
	stm := stms[0]
	if stm.LastActivity().After(sentAt) {
		p.schedulePing(jd)
		return
	}
	level.Info(p.logger).Log("msg", "stream timeout", "jid", jd.String(), "action", p.cfg.TimeoutAction)

	if p.cfg.TimeoutAction == killAction {
		p.cancelTimer(jd)
		_ = stm.Disconnect(streamerror.E(streamerror.ConnectionTimeout))
		return
	}
	p.schedulePing(jd)
}

func (p *Ping) setTimer(jd *jid.JID, d time.Duration, fn func()) {
	jk := jd.String()
	p.mu.Lock()
	if tm := p.timers[jk]; tm != nil {
		tm.Stop()
	}
	p.timers[jk] = time.AfterFunc(d, fn)
	p.mu.Unlock()
}

func (p *Ping) cancelTimer(jd *jid.JID) {
	jk := jd.String()
	p.mu.Lock()
	if tm := p.timers[jk]; tm != nil {
		tm.Stop()
	}
	delete(p.timers, jk)
	p.mu.Unlock()
}

func isPingIQ(iq *stravaganza.IQ) bool {
	return iq.IsGet() && iq.ChildNamespace("ping", pingNamespace) != nil
}
