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
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

// Affiliation represents a node scoped permission grant.
type Affiliation uint8

const (
	// AffiliationNone is assigned to entities with no standing on the node.
	AffiliationNone Affiliation = iota

	// AffiliationOutcast is assigned to banned entities.
	AffiliationOutcast

	// AffiliationMember is assigned to whitelisted entities.
	AffiliationMember

	// AffiliationPublisher is assigned to entities allowed to publish.
	AffiliationPublisher

	// AffiliationOwner is assigned to node owners.
	AffiliationOwner
)

// String returns the XEP-0060 affiliation name.
func (a Affiliation) String() string {
	switch a {
	case AffiliationOutcast:
		return "outcast"
	case AffiliationMember:
		return "member"
	case AffiliationPublisher:
		return "publisher"
	case AffiliationOwner:
		return "owner"
	}
	return "none"
}

// ParseAffiliation returns the affiliation named s. The second return value is false if s is unknown.
func ParseAffiliation(s string) (Affiliation, bool) {
	for _, a := range []Affiliation{AffiliationNone, AffiliationOutcast, AffiliationMember, AffiliationPublisher, AffiliationOwner} {
		if a.String() == s {
			return a, true
		}
	}
	return AffiliationNone, false
}

// Item represents a published node item.
type Item struct {
	ID        string
	Publisher string
	Payload   stravaganza.Element
	Published time.Time
}

type subscription struct {
	jid   string
	subID string
}

// node holds a node live state. Every field is guarded by mu.
type node struct {
	mu sync.Mutex

	id           string
	opts         NodeOptions
	affiliations map[string]Affiliation
	subs         []subscription
	items        []Item
	deleted      bool
}

func newNode(id string, opts NodeOptions, ownerJID string) *node {
	return &node{
		id:   id,
		opts: opts,
		affiliations: map[string]Affiliation{
			ownerJID: AffiliationOwner,
		},
	}
}

func (n *node) affiliation(bareJID string) Affiliation {
	return n.affiliations[bareJID]
}

func (n *node) setAffiliation(bareJID string, aff Affiliation) {
	if aff == AffiliationNone {
		delete(n.affiliations, bareJID)
		return
	}
	n.affiliations[bareJID] = aff
}

func (n *node) ownerCount() int {
	var c int
	for _, aff := range n.affiliations {
		if aff == AffiliationOwner {
			c++
		}
	}
	return c
}

func (n *node) subscription(j string) (subscription, bool) {
	for _, sub := range n.subs {
		if sub.jid == j {
			return sub, true
		}
	}
	return subscription{}, false
}

func (n *node) removeSubscription(j string) bool {
	for i, sub := range n.subs {
		if sub.jid == j {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return true
		}
	}
	return false
}

// removeSubscriptionsOf drops every subscription whose bare JID is bareJID.
func (n *node) removeSubscriptionsOf(bareJID string) {
	subs := n.subs[:0]
	for _, sub := range n.subs {
		if bareOf(sub.jid) != bareJID {
			subs = append(subs, sub)
		}
	}
	n.subs = subs
}

func (n *node) isSubscribed(bareJID string) bool {
	for _, sub := range n.subs {
		if bareOf(sub.jid) == bareJID {
			return true
		}
	}
	return false
}

// publishItem stores it replacing any item with the same identifier and evicting the oldest ones
// above the node limit.
func (n *node) publishItem(it Item) {
	n.removeItem(it.ID)
	n.items = append(n.items, it)
	if max := n.opts.MaxItems; max > 0 && len(n.items) > max {
		n.items = append(n.items[:0], n.items[len(n.items)-max:]...)
	}
}

func (n *node) removeItem(id string) bool {
	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *node) lastItems(max int) []Item {
	items := n.items
	if max > 0 && max < len(items) {
		items = items[len(items)-max:]
	}
	return append([]Item(nil), items...)
}

// checkAccess tells whether bareJID is allowed to subscribe to or retrieve items from the node.
func (n *node) checkAccess(bareJID string) error {
	aff := n.affiliation(bareJID)
	switch {
	case aff == AffiliationOutcast:
		return ErrForbidden
	case n.opts.AccessModel == AccessModelWhitelist && aff < AffiliationMember:
		return ErrClosedNode
	}
	return nil
}

// canPublish tells whether bareJID is allowed to publish under the node publish model.
func (n *node) canPublish(bareJID string) bool {
	aff := n.affiliation(bareJID)
	switch {
	case aff == AffiliationOutcast:
		return false
	case aff >= AffiliationPublisher:
		return true
	}
	switch n.opts.PublishModel {
	case PublishModelOpen:
		return true
	case PublishModelSubscribers:
		return n.isSubscribed(bareJID)
	}
	return false
}

// toModel returns the node persisted representation. n.mu must be held.
func (n *node) toModel(host string) (*pubsubmodel.Node, error) {
	m := &pubsubmodel.Node{
		Host: host,
		ID:   n.id,
		Options: pubsubmodel.Options{
			Title:           n.opts.Title,
			PublishModel:    n.opts.PublishModel,
			AccessModel:     n.opts.AccessModel,
			MaxItems:        n.opts.MaxItems,
			DeliverPayloads: n.opts.DeliverPayloads,
			NotifyDelete:    n.opts.NotifyDelete,
			NotifyRetract:   n.opts.NotifyRetract,
		},
	}
	if len(n.affiliations) > 0 {
		m.Affiliations = make(map[string]string, len(n.affiliations))
		for j, aff := range n.affiliations {
			m.Affiliations[j] = aff.String()
		}
	}
	for _, sub := range n.subs {
		m.Subscriptions = append(m.Subscriptions, pubsubmodel.Subscription{JID: sub.jid, SubID: sub.subID})
	}
	for _, it := range n.items {
		mi := pubsubmodel.Item{
			ID:        it.ID,
			Publisher: it.Publisher,
			Published: it.Published.UnixNano(),
		}
		if it.Payload != nil {
			b, err := repository.EncodeElement(it.Payload)
			if err != nil {
				return nil, err
			}
			mi.Payload = b
		}
		m.Items = append(m.Items, mi)
	}
	return m, nil
}

func nodeFromModel(m *pubsubmodel.Node) (*node, error) {
	n := &node{
		id: m.ID,
		opts: NodeOptions{
			Title:           m.Options.Title,
			PublishModel:    m.Options.PublishModel,
			AccessModel:     m.Options.AccessModel,
			MaxItems:        m.Options.MaxItems,
			DeliverPayloads: m.Options.DeliverPayloads,
			NotifyDelete:    m.Options.NotifyDelete,
			NotifyRetract:   m.Options.NotifyRetract,
		},
		affiliations: make(map[string]Affiliation, len(m.Affiliations)),
	}
	for j, name := range m.Affiliations {
		if aff, ok := ParseAffiliation(name); ok && aff != AffiliationNone {
			n.affiliations[j] = aff
		}
	}
	for _, sub := range m.Subscriptions {
		n.subs = append(n.subs, subscription{jid: sub.JID, subID: sub.SubID})
	}
	for _, mi := range m.Items {
		it := Item{
			ID:        mi.ID,
			Publisher: mi.Publisher,
			Published: time.Unix(0, mi.Published).UTC(),
		}
		if len(mi.Payload) > 0 {
			payload, err := repository.DecodeElement(mi.Payload)
			if err != nil {
				return nil, err
			}
			it.Payload = payload
		}
		n.items = append(n.items, it)
	}
	return n, nil
}
