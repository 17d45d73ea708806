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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
)

const (
	pubSubNamespace           = "http://jabber.org/protocol/pubsub"
	pubSubErrorsNamespace     = pubSubNamespace + "#errors"
	pubSubNodeConfigNamespace = pubSubNamespace + "#node_config"

	discoInfoNamespace  = "http://jabber.org/protocol/disco#info"
	discoItemsNamespace = "http://jabber.org/protocol/disco#items"
)

func pubSubNS(suffix string) string {
	return pubSubNamespace + "#" + suffix
}

func pubSubOwnerNS() string { return pubSubNS("owner") }

func pubSubEventNS() string { return pubSubNS("event") }

// bareOf returns the bare representation of a full or bare JID string.
func bareOf(j string) string {
	if i := strings.IndexByte(j, '/'); i >= 0 {
		return j[:i]
	}
	return j
}

func eventMessage(from, to string, notification stravaganza.Element, extra ...stravaganza.Element) *stravaganza.Message {
	msg, _ := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, to).
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.Type, stravaganza.HeadlineType).
		WithChild(
			stravaganza.NewBuilder("event").
				WithAttribute(stravaganza.Namespace, pubSubEventNS()).
				WithChild(notification).
				Build(),
		).
		WithChildren(extra...).
		BuildMessage()
	return msg
}

func itemElement(it Item, withPayload bool) stravaganza.Element {
	b := stravaganza.NewBuilder("item").
		WithAttribute("id", it.ID).
		WithAttribute("publisher", it.Publisher)
	if withPayload && it.Payload != nil {
		b.WithChild(it.Payload)
	}
	return b.Build()
}

func itemsElement(nodeID string, items []Item, withPayload bool) stravaganza.Element {
	b := stravaganza.NewBuilder("items").WithAttribute("node", nodeID)
	for _, it := range items {
		b.WithChild(itemElement(it, withPayload))
	}
	return b.Build()
}

func retractElement(nodeID, itemID string) stravaganza.Element {
	return stravaganza.NewBuilder("items").
		WithAttribute("node", nodeID).
		WithChild(stravaganza.NewBuilder("retract").WithAttribute("id", itemID).Build()).
		Build()
}

func subscriptionElement(nodeID, j, subID, state string) stravaganza.Element {
	b := stravaganza.NewBuilder("subscription").
		WithAttribute("node", nodeID).
		WithAttribute("jid", j).
		WithAttribute("subscription", state)
	if len(subID) > 0 {
		b.WithAttribute("subid", subID)
	}
	return b.Build()
}

func pubSubElement(namespace string, children ...stravaganza.Element) stravaganza.Element {
	return stravaganza.NewBuilder("pubsub").
		WithAttribute(stravaganza.Namespace, namespace).
		WithChildren(children...).
		Build()
}

func delayElement(stamp time.Time) stravaganza.Element {
	return stravaganza.NewBuilder("delay").
		WithAttribute(stravaganza.Namespace, "urn:xmpp:delay").
		WithAttribute("stamp", stamp.UTC().Format("2006-01-02T15:04:05Z")).
		Build()
}
