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
	"errors"

	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

var (
	// ErrNodeIDRequired is returned when a request does not name a node.
	ErrNodeIDRequired = errors.New("pubsub: node id required")

	// ErrNodeNotFound is returned when the addressed node does not exist.
	ErrNodeNotFound = errors.New("pubsub: node does not exist")

	// ErrNodeExists is returned when creating an already existing node.
	ErrNodeExists = errors.New("pubsub: node already exists")

	// ErrNotAllowed is returned when node creation is denied by access rules.
	ErrNotAllowed = errors.New("pubsub: not allowed")

	// ErrForbidden is returned when the requester lacks the privileges required by the operation.
	ErrForbidden = errors.New("pubsub: insufficient privileges")

	// ErrClosedNode is returned when a non whitelisted entity accesses a whitelist node.
	ErrClosedNode = errors.New("pubsub: closed node")

	// ErrInvalidJID is returned when a subscription JID does not match the requester.
	ErrInvalidJID = errors.New("pubsub: invalid jid")

	// ErrNotSubscribed is returned when unsubscribing a non subscribed entity.
	ErrNotSubscribed = errors.New("pubsub: not subscribed")

	// ErrItemNotFound is returned when retracting an unknown item.
	ErrItemNotFound = errors.New("pubsub: item not found")

	// ErrBadRequest is returned when a request payload is malformed.
	ErrBadRequest = errors.New("pubsub: bad request")

	// ErrFeatureNotImplemented is returned for unsupported requests.
	ErrFeatureNotImplemented = errors.New("pubsub: feature not implemented")
)

// errorStanza returns the error stanza reported to the requester of stanza. The second return value is
// false when err was not caused by the requester.
func errorStanza(stanza stravaganza.Stanza, err error) (stravaganza.Stanza, bool) {
	switch {
	case errors.Is(err, ErrNodeIDRequired):
		return pubSubErrorStanza(stanza, stanzaerror.BadRequest, "nodeid-required"), true
	case errors.Is(err, ErrNodeNotFound), errors.Is(err, ErrItemNotFound):
		return xmpputil.MakeErrorStanza(stanza, stanzaerror.ItemNotFound), true
	case errors.Is(err, ErrNodeExists):
		return xmpputil.MakeErrorStanza(stanza, stanzaerror.Conflict), true
	case errors.Is(err, ErrNotAllowed), errors.Is(err, ErrForbidden):
		return xmpputil.MakeErrorStanza(stanza, stanzaerror.Forbidden), true
	case errors.Is(err, ErrClosedNode):
		return pubSubErrorStanza(stanza, stanzaerror.NotAllowed, "closed-node"), true
	case errors.Is(err, ErrInvalidJID):
		return pubSubErrorStanza(stanza, stanzaerror.BadRequest, "invalid-jid"), true
	case errors.Is(err, ErrNotSubscribed):
		return pubSubErrorStanza(stanza, stanzaerror.BadRequest, "not-subscribed"), true
	case errors.Is(err, ErrBadRequest):
		return xmpputil.MakeErrorStanza(stanza, stanzaerror.BadRequest), true
	case errors.Is(err, ErrFeatureNotImplemented):
		return xmpputil.MakeErrorStanza(stanza, stanzaerror.FeatureNotImplemented), true
	}
	return xmpputil.MakeErrorStanza(stanza, stanzaerror.InternalServerError), false
}

func pubSubErrorStanza(stanza stravaganza.Stanza, reason stanzaerror.Reason, condition string) stravaganza.Stanza {
	appElem := stravaganza.NewBuilder(condition).
		WithAttribute(stravaganza.Namespace, pubSubErrorsNamespace).
		Build()
	return xmpputil.MakeErrorStanzaWithApplicationElement(stanza, appElem, reason)
}
