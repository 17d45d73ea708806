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

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// AffiliationItem represents a single node affiliation.
type AffiliationItem struct {
	JID         string
	Affiliation Affiliation
}

// NodeConfig returns nodeID node configuration. Only node owners are allowed to retrieve it.
func (s *Service) NodeConfig(_ context.Context, actor *jid.JID, nodeID string) (NodeOptions, error) {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return NodeOptions{}, err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return NodeOptions{}, ErrForbidden
	}
	return n.opts, nil
}

// Configure replaces nodeID node configuration. Stored items above the new limit are discarded.
func (s *Service) Configure(ctx context.Context, actor *jid.JID, nodeID string, opts NodeOptions) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return ErrForbidden
	}
	if opts.MaxItems <= 0 {
		return ErrBadRequest
	}
	n.opts = opts
	n.items = n.lastItems(opts.MaxItems)
	s.persist(ctx, n)
	return nil
}

// SetAffiliation sets target affiliation on nodeID node. Only node owners are allowed to modify
// affiliations and the last node owner cannot be demoted. Outcast entities lose their subscriptions.
func (s *Service) SetAffiliation(ctx context.Context, actor *jid.JID, nodeID string, target *jid.JID, aff Affiliation) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return ErrForbidden
	}
	targetBare := target.ToBareJID().String()
	if n.affiliation(targetBare) == AffiliationOwner && aff != AffiliationOwner && n.ownerCount() == 1 {
		return ErrNotAllowed
	}
	n.setAffiliation(targetBare, aff)
	if aff == AffiliationOutcast {
		n.removeSubscriptionsOf(targetBare)
	}
	s.persist(ctx, n)
	return nil
}

// Affiliations returns nodeID node affiliations sorted by JID. Only node owners are allowed to
// retrieve them.
func (s *Service) Affiliations(_ context.Context, actor *jid.JID, nodeID string) ([]AffiliationItem, error) {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return nil, err
	}
	defer n.mu.Unlock()

	if n.affiliation(actor.ToBareJID().String()) != AffiliationOwner {
		return nil, ErrForbidden
	}
	ret := make([]AffiliationItem, 0, len(n.affiliations))
	for j, aff := range n.affiliations {
		ret = append(ret, AffiliationItem{JID: j, Affiliation: aff})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].JID < ret[j].JID })
	return ret, nil
}
