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

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Subscribe subscribes subJID to nodeID node returning the subscription identifier.
// Subscribing an already subscribed JID returns its current subscription identifier.
func (s *Service) Subscribe(ctx context.Context, from, subJID *jid.JID, nodeID string) (string, error) {
	if from.ToBareJID().String() != subJID.ToBareJID().String() {
		return "", ErrInvalidJID
	}
	n, err := s.lockNode(nodeID)
	if err != nil {
		return "", err
	}
	defer n.mu.Unlock()

	if err := n.checkAccess(subJID.ToBareJID().String()); err != nil {
		return "", err
	}
	if sub, ok := n.subscription(subJID.String()); ok {
		return sub.subID, nil
	}
	sub := subscription{jid: subJID.String(), subID: uuid.New().String()}
	n.subs = append(n.subs, sub)
	s.persist(ctx, n)

	// deliver last published item
	if items := n.lastItems(1); len(items) > 0 && n.opts.DeliverPayloads {
		msg := eventMessage(s.cfg.Host, sub.jid, itemsElement(n.id, items, true), delayElement(items[0].Published))
		s.route(ctx, msg)
	}
	return sub.subID, nil
}

// Unsubscribe removes subJID subscription to nodeID node. Node owners are allowed to unsubscribe
// any entity.
func (s *Service) Unsubscribe(ctx context.Context, from, subJID *jid.JID, nodeID string) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	fromBare := from.ToBareJID().String()
	if fromBare != subJID.ToBareJID().String() && n.affiliation(fromBare) != AffiliationOwner {
		return ErrInvalidJID
	}
	if !n.removeSubscription(subJID.String()) {
		return ErrNotSubscribed
	}
	s.persist(ctx, n)
	return nil
}

// Subscribers returns nodeID node subscribed JIDs in subscription order.
func (s *Service) Subscribers(nodeID string) ([]string, error) {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return nil, err
	}
	defer n.mu.Unlock()

	ret := make([]string, 0, len(n.subs))
	for _, sub := range n.subs {
		ret = append(ret, sub.jid)
	}
	return ret, nil
}
