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

package router

import (
	"context"
	"errors"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/router/stream"
)

const maxRouteAttempts = 3

// Outcome represents the result of routing a stanza.
type Outcome int8

const (
	// Delivered means the stanza was handed to a session, a service handler or a federation link.
	Delivered Outcome = iota

	// QueuedOffline means the message was stored into the recipient offline queue.
	QueuedOffline

	// Rejected means an access rule denied the delivery.
	Rejected

	// Failed means no destination accepted the stanza.
	Failed
)

// String returns Outcome string representation.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case QueuedOffline:
		return "queued_offline"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Handler represents a service addressed through its own virtual domain.
type Handler interface {
	// Host returns the virtual domain owned by the handler.
	Host() string

	// ProcessStanza processes a stanza addressed to the handler domain.
	ProcessStanza(ctx context.Context, stanza stravaganza.Stanza) error
}

// Sessions resolves local C2S streams.
type Sessions interface {
	// Resolve returns the streams matching j. A full JID yields at most one stream, a bare JID
	// yields every account stream ordered by presence priority and most recent activity.
	Resolve(j *jid.JID) []stream.C2S
}

// OfflineQueue stores messages addressed to unavailable local accounts.
type OfflineQueue interface {
	// Enqueue stores msg. ErrQueueFull and ErrAccountAvailable are reported through the returned error.
	Enqueue(ctx context.Context, msg *stravaganza.Message) error
}

// FederationLink delivers stanzas to remote domains.
type FederationLink interface {
	// Send hands stanza over to the remote domain outbound stream.
	Send(ctx context.Context, stanza stravaganza.Stanza) error
}

// AccessConfig names the rule lists consulted before delivering a stanza.
// An empty rule list name disables the check.
type AccessConfig struct {
	Local  string `fig:"local" default:"all"`
	Remote string `fig:"remote" default:"all"`
}

// Config contains router configuration.
type Config struct {
	Access AccessConfig `fig:"access"`
}

// Router dispatches stanzas to service handlers, local sessions, offline queues and federation links.
type Router struct {
	cfg      Config
	hosts    hosts
	access   accessEvaluator
	sessions Sessions
	logger   kitlog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	offline  OfflineQueue
	fed      FederationLink
}

// New returns a new initialized Router instance.
func New(cfg Config, hosts *host.Hosts, access *acl.Evaluator, sessions Sessions, logger kitlog.Logger) *Router {
	return &Router{
		cfg:      cfg,
		hosts:    hosts,
		access:   access,
		sessions: sessions,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler registers a service handler for its virtual domain.
func (r *Router) RegisterHandler(h Handler) {
	r.mu.Lock()
	r.handlers[h.Host()] = h
	r.mu.Unlock()

	level.Info(r.logger).Log("msg", "registered service handler", "host", h.Host())
}

// UnregisterHandler removes a previously registered service handler.
func (r *Router) UnregisterHandler(h Handler) {
	r.mu.Lock()
	delete(r.handlers, h.Host())
	r.mu.Unlock()

	level.Info(r.logger).Log("msg", "unregistered service handler", "host", h.Host())
}

// IsHandlerHost tells whether domain is owned by a registered service handler.
func (r *Router) IsHandlerHost(domain string) bool {
	return r.handler(domain) != nil
}

// SetOfflineQueue sets the queue used for messages addressed to unavailable accounts.
func (r *Router) SetOfflineQueue(q OfflineQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = q
}

// SetFederationLink sets the outbound channel used for remote domains.
func (r *Router) SetFederationLink(fl FederationLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fed = fl
}

// Route routes a stanza applying server rules for handling XML stanzas.
// (https://xmpp.org/rfcs/rfc6120.html#rules)
func (r *Router) Route(ctx context.Context, stanza stravaganza.Stanza) (Outcome, error) {
	outcome, err := r.route(ctx, stanza)
	reportRoutedStanza(stanza.Name(), outcome)

	if err != nil {
		level.Debug(r.logger).Log("msg", "failed to route stanza",
			"from", stanza.FromJID().String(),
			"to", stanza.ToJID().String(),
			"outcome", outcome.String(),
			"err", err,
		)
	}
	return outcome, err
}

func (r *Router) route(ctx context.Context, stanza stravaganza.Stanza) (Outcome, error) {
	toJID := stanza.ToJID()
	isLocal := r.hosts.IsLocalHost(toJID.Domain())

	h := r.handler(toJID.Domain())
	if err := r.checkAccess(stanza, isLocal || h != nil); err != nil {
		return Rejected, err
	}
	switch {
	case h != nil:
		if err := h.ProcessStanza(ctx, stanza); err != nil {
			return Failed, err
		}
		return Delivered, nil

	case isLocal:
		return r.routeLocal(ctx, stanza)

	default:
		return r.routeRemote(ctx, stanza)
	}
}

func (r *Router) routeLocal(ctx context.Context, stanza stravaganza.Stanza) (Outcome, error) {
	toJID := stanza.ToJID()
	if len(toJID.Node()) == 0 {
		return Failed, ErrNoRoute
	}
	if toJID.IsFull() {
		err := r.deliverToFullJID(ctx, stanza)
		switch {
		case err == nil:
			return Delivered, nil
		case !errors.Is(err, ErrNoRoute):
			return Failed, err
		}
		// a message addressed to an unknown resource is treated as if it were addressed to the bare JID
		msg, ok := stanza.(*stravaganza.Message)
		if !ok {
			return Failed, ErrNoRoute
		}
		return r.routeMessage(ctx, msg)
	}
	switch stz := stanza.(type) {
	case *stravaganza.Message:
		return r.routeMessage(ctx, stz)
	case *stravaganza.Presence:
		return r.broadcastPresence(ctx, stz)
	default:
		return r.deliverToHead(ctx, stanza)
	}
}

func (r *Router) deliverToFullJID(ctx context.Context, stanza stravaganza.Stanza) error {
	stms := r.sessions.Resolve(stanza.ToJID())
	if len(stms) == 0 {
		return ErrNoRoute
	}
	err := stms[0].SendElement(ctx, stanza)
	if errors.Is(err, stream.ErrStreamClosed) {
		return ErrNoRoute
	}
	return err
}

func (r *Router) routeMessage(ctx context.Context, msg *stravaganza.Message) (Outcome, error) {
	bareJID := msg.ToJID().ToBareJID()

	for i := 0; i < maxRouteAttempts; i++ {
		delivered, err := r.deliverToAvailable(ctx, msg, bareJID)
		if err != nil {
			return Failed, err
		}
		if delivered {
			return Delivered, nil
		}
		q := r.offlineQueue()
		if q == nil {
			return Failed, ErrNoRoute
		}
		err = q.Enqueue(ctx, msg)
		switch {
		case err == nil:
			return QueuedOffline, nil
		case errors.Is(err, ErrAccountAvailable):
			continue // a session became available meanwhile
		default:
			return Failed, err
		}
	}
	return Failed, ErrNoRoute
}

func (r *Router) deliverToAvailable(ctx context.Context, msg *stravaganza.Message, bareJID *jid.JID) (bool, error) {
	for _, stm := range r.sessions.Resolve(bareJID) {
		if !stream.IsAvailable(stm) || stream.Priority(stm) < 0 {
			continue
		}
		err := stm.SendElement(ctx, msg)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, stream.ErrStreamClosed):
			continue // closed between resolve and deliver
		default:
			return false, err
		}
	}
	return false, nil
}

func (r *Router) broadcastPresence(ctx context.Context, presence *stravaganza.Presence) (Outcome, error) {
	var delivered bool
	for _, stm := range r.sessions.Resolve(presence.ToJID()) {
		err := stm.SendElement(ctx, presence)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, stream.ErrStreamClosed):
			continue
		default:
			return Failed, err
		}
	}
	if !delivered {
		return Failed, ErrNoRoute
	}
	return Delivered, nil
}

func (r *Router) deliverToHead(ctx context.Context, stanza stravaganza.Stanza) (Outcome, error) {
	for _, stm := range r.sessions.Resolve(stanza.ToJID()) {
		err := stm.SendElement(ctx, stanza)
		switch {
		case err == nil:
			return Delivered, nil
		case errors.Is(err, stream.ErrStreamClosed):
			continue
		default:
			return Failed, err
		}
	}
	return Failed, ErrNoRoute
}

func (r *Router) routeRemote(ctx context.Context, stanza stravaganza.Stanza) (Outcome, error) {
	fl := r.federationLink()
	if fl == nil {
		return Failed, ErrRemoteServerNotFound
	}
	if err := fl.Send(ctx, stanza); err != nil {
		return Failed, err
	}
	return Delivered, nil
}

func (r *Router) checkAccess(stanza stravaganza.Stanza, localDelivery bool) error {
	fromJID := stanza.FromJID()
	if r.isInternalSender(fromJID) {
		return nil
	}
	rule := r.cfg.Access.Remote
	if localDelivery {
		rule = r.cfg.Access.Local
	}
	if len(rule) == 0 || r.access.IsAllowed(rule, fromJID) {
		return nil
	}
	return &AccessDeniedError{Rule: rule, JID: fromJID}
}

func (r *Router) isInternalSender(fromJID *jid.JID) bool {
	if fromJID == nil {
		return true
	}
	domain := fromJID.Domain()
	if r.handler(domain) != nil {
		return true
	}
	return len(fromJID.Node()) == 0 && r.hosts.IsLocalHost(domain)
}

func (r *Router) handler(domain string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[domain]
}

func (r *Router) offlineQueue() OfflineQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offline
}

func (r *Router) federationLink() FederationLink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fed
}
