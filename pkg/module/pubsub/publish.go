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
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Publish publishes payload to nodeID node and notifies every node subscriber. A random item
// identifier is assigned when itemID is empty. Publishing an existing item identifier replaces it.
func (s *Service) Publish(ctx context.Context, publisher *jid.JID, nodeID, itemID string, payload stravaganza.Element) (string, error) {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return "", err
	}
	defer n.mu.Unlock()

	pubBare := publisher.ToBareJID().String()
	if !n.canPublish(pubBare) {
		return "", ErrForbidden
	}
	if len(itemID) == 0 {
		itemID = uuid.New().String()
	}
	it := Item{
		ID:        itemID,
		Publisher: pubBare,
		Payload:   payload,
		Published: s.nowFunc(),
	}
	n.publishItem(it)
	s.persist(ctx, n)
	reportItemPublished()

	s.notifySubscribers(ctx, n, itemsElement(nodeID, []Item{it}, n.opts.DeliverPayloads), "publish")
	return itemID, nil
}

// Retract removes itemID item from nodeID node. Only node owners and the item publisher are
// allowed to retract an item.
func (s *Service) Retract(ctx context.Context, actor *jid.JID, nodeID, itemID string, notify bool) error {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return err
	}
	defer n.mu.Unlock()

	if len(itemID) == 0 {
		return ErrBadRequest
	}
	var it *Item
	for i := range n.items {
		if n.items[i].ID == itemID {
			it = &n.items[i]
			break
		}
	}
	if it == nil {
		return ErrItemNotFound
	}
	actBare := actor.ToBareJID().String()
	if it.Publisher != actBare && n.affiliation(actBare) != AffiliationOwner {
		return ErrForbidden
	}
	n.removeItem(itemID)
	s.persist(ctx, n)

	if notify && n.opts.NotifyRetract {
		s.notifySubscribers(ctx, n, retractElement(nodeID, itemID), "retract")
	}
	return nil
}

// Items returns up to max most recent nodeID items in publication order. Every item is returned
// when max is not positive.
func (s *Service) Items(_ context.Context, requester *jid.JID, nodeID string, max int) ([]Item, error) {
	n, err := s.lockNode(nodeID)
	if err != nil {
		return nil, err
	}
	defer n.mu.Unlock()

	if err := n.checkAccess(requester.ToBareJID().String()); err != nil {
		return nil, err
	}
	return n.lastItems(max), nil
}
