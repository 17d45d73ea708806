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

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// CreateNode creates a new node owned by creator. An instant node with a random identifier is
// created when nodeID is empty, and the service defaults apply when opts is nil.
func (s *Service) CreateNode(ctx context.Context, creator *jid.JID, nodeID string, opts *NodeOptions) (string, error) {
	if !s.access.IsAllowed(s.cfg.AccessCreate, creator) {
		return "", ErrNotAllowed
	}
	if len(nodeID) == 0 {
		nodeID = uuid.New().String()
	}
	nodeOpts := s.cfg.defaultNodeOptions()
	if opts != nil {
		nodeOpts = *opts
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[nodeID]; ok {
		return "", ErrNodeExists
	}
	n := newNode(nodeID, nodeOpts, creator.ToBareJID().String())
	m, err := n.toModel(s.cfg.Host)
	if err != nil {
		return "", err
	}
	if err := s.rep.UpsertNode(ctx, m); err != nil {
		return "", err
	}
	s.nodes[nodeID] = n
	reportNodeCreated()
	return nodeID, nil
}

// DeleteNode deletes nodeID node. Only node owners are allowed to delete a node.
func (s *Service) DeleteNode(ctx context.Context, actor *jid.JID, nodeID string) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return ErrForbidden
	}
	n.deleted = true

	s.mu.Lock()
	delete(s.nodes, nodeID)
	s.mu.Unlock()

	if err := s.rep.DeleteNode(ctx, s.cfg.Host, nodeID); err != nil {
		level.Warn(s.logger).Log("msg", "failed to delete persisted pubsub node", "node", nodeID, "err", err)
	}
	reportNodeDeleted()

	if n.opts.NotifyDelete {
		notification := stravaganza.NewBuilder("delete").
			WithAttribute("node", nodeID).
			Build()
		s.notifySubscribers(ctx, n, notification, "delete")
	}
	return nil
}

// Purge removes every item published to nodeID node. Only node owners are allowed to purge a node.
func (s *Service) Purge(ctx context.Context, actor *jid.JID, nodeID string) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return ErrForbidden
	}
	n.items = nil
	s.persist(ctx, n)

	if n.opts.NotifyRetract {
		notification := stravaganza.NewBuilder("purge").
			WithAttribute("node", nodeID).
			Build()
		s.notifySubscribers(ctx, n, notification, "purge")
	}
	return nil
}
