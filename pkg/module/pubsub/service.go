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

package pubsub

import (
	"context"
	"sort"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

// ModuleName represents pubsub module name.
const ModuleName = "pubsub"

// Service represents a PubSub service handler. Node state is loaded from the repository on start,
// every node is serialized by its own lock and written back after each change.
type Service struct {
	cfg     Config
	router  globalRouter
	access  accessEvaluator
	rep     repository.PubSub
	logger  kitlog.Logger
	nowFunc func() time.Time

	mu    sync.RWMutex
	nodes map[string]*node
}

// New returns a new initialized PubSub service.
func New(
	cfg Config,
	router *router.Router,
	access *acl.Evaluator,
	rep repository.PubSub,
	logger kitlog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		router:  router,
		access:  access,
		rep:     rep,
		logger:  kitlog.With(logger, "module", ModuleName),
		nowFunc: time.Now,
		nodes:   make(map[string]*node),
	}
}

// Name returns pubsub module name.
func (s *Service) Name() string { return ModuleName }

// Host returns the service virtual domain.
func (s *Service) Host() string { return s.cfg.Host }

// StreamFeature returns pubsub module stream feature.
func (s *Service) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns pubsub server disco features.
func (s *Service) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

// AccountFeatures returns pubsub account disco features.
func (s *Service) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

// Start loads persisted nodes and starts pubsub module.
func (s *Service) Start(ctx context.Context) error {
	nodes, err := s.rep.FetchNodes(ctx, s.cfg.Host)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, m := range nodes {
		n, err := nodeFromModel(m)
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping persisted node", "node", m.ID, "err", err)
			continue
		}
		s.nodes[n.id] = n
		reportNodeCreated()
	}
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "started pubsub module", "host", s.cfg.Host, "nodes", len(nodes))
	return nil
}

// Stop stops pubsub module.
func (s *Service) Stop(_ context.Context) error {
	level.Info(s.logger).Log("msg", "stopped pubsub module", "host", s.cfg.Host)
	return nil
}

// ProcessStanza processes a stanza addressed to the service domain.
func (s *Service) ProcessStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	iq, ok := stanza.(*stravaganza.IQ)
	if !ok {
		return nil
	}
	return s.handleError(ctx, iq, s.processIQ(ctx, iq))
}

// NodeIDs returns the identifiers of every existing node in lexicographical order.
func (s *Service) NodeIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (s *Service) handleError(ctx context.Context, iq *stravaganza.IQ, err error) error {
	if err == nil {
		return nil
	}
	errStanza, isClientErr := errorStanza(iq, err)
	_, _ = s.router.Route(ctx, errStanza)
	if isClientErr {
		level.Debug(s.logger).Log("msg", "pubsub request refused", "from", iq.FromJID().String(), "err", err)
		return nil
	}
	return err
}

func (s *Service) node(nodeID string) *node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[nodeID]
}

// lockNode returns nodeID node locked. The caller must release it.
func (s *Service) lockNode(nodeID string) (*node, error) {
	if len(nodeID) == 0 {
		return nil, ErrNodeIDRequired
	}
	n := s.node(nodeID)
	if n == nil {
		return nil, ErrNodeNotFound
	}
	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// notifySubscribers sends notification to every node subscriber. n.mu must be held.
func (s *Service) notifySubscribers(ctx context.Context, n *node, notification stravaganza.Element, typ string) {
	for _, sub := range n.subs {
		s.route(ctx, eventMessage(s.cfg.Host, sub.jid, notification))
	}
	reportNotifications(typ, len(n.subs))
}

// persist stores n current state. n.mu must be held.
func (s *Service) persist(ctx context.Context, n *node) {
	m, err := n.toModel(s.cfg.Host)
	if err == nil {
		err = s.rep.UpsertNode(ctx, m)
	}
	if err != nil {
		level.Warn(s.logger).Log("msg", "failed to persist pubsub node", "node", n.id, "err", err)
	}
}

func (s *Service) route(ctx context.Context, stanza stravaganza.Stanza) {
	if _, err := s.router.Route(ctx, stanza); err != nil {
		level.Debug(s.logger).Log("msg", "failed to route pubsub stanza", "to", stanza.ToJID().String(), "err", err)
	}
}
