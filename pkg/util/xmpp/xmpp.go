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

package xmpputil

import (
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	delayNamespace      = "urn:xmpp:delay"
	xmppErrorsNamespace = "urn:xmpp:errors"
)

// MakeResultIQ creates a new result stanza derived from iq.
func MakeResultIQ(iq *stravaganza.IQ, queryChild stravaganza.Element) *stravaganza.IQ {
	b := iq.ResultBuilder()
	if queryChild != nil {
		b.WithChild(queryChild)
	}
	resIQ, _ := b.BuildIQ()
	return resIQ
}

// MakePresence creates presence of type typ using fromJID and toJID addresses.
func MakePresence(fromJID, toJID *jid.JID, typ string, children []stravaganza.Element) *stravaganza.Presence {
	b := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithChildren(children...)
	if len(typ) > 0 {
		b.WithAttribute(stravaganza.Type, typ)
	}
	pr, _ := b.BuildPresence()
	return pr
}

// MakeErrorStanza creates an error stanza using errReason as reason.
func MakeErrorStanza(stanza stravaganza.Stanza, errReason stanzaerror.Reason) stravaganza.Stanza {
	errStanza, _ := stanzaerror.E(errReason, stanza).Stanza(false)
	return errStanza
}

// MakeErrorStanzaWithApplicationElement creates an error stanza using errReason as reason
// and attaching an application specific condition element.
func MakeErrorStanzaWithApplicationElement(stanza stravaganza.Stanza, applicationElement stravaganza.Element, errReason stanzaerror.Reason) stravaganza.Stanza {
	se := stanzaerror.E(errReason, stanza)
	se.ApplicationElement = applicationElement

	errStanza, _ := se.Stanza(false)
	return errStanza
}

// ApplicationCondition returns an application specific error condition element
// qualified by the urn:xmpp:errors namespace.
func ApplicationCondition(name string) stravaganza.Element {
	return stravaganza.NewBuilder(name).
		WithAttribute(stravaganza.Namespace, xmppErrorsNamespace).
		Build()
}

// MakeDelayMessage creates a new message adding XEP-0203 delayed delivery information.
func MakeDelayMessage(stanza stravaganza.Stanza, stamp time.Time, from, text string) *stravaganza.Message {
	db := stravaganza.NewBuilder("delay").
		WithAttribute(stravaganza.Namespace, delayNamespace).
		WithAttribute(stravaganza.From, from).
		WithAttribute("stamp", stamp.UTC().Format(time.RFC3339))
	if len(text) > 0 {
		db.WithText(text)
	}
	dMsg, _ := stravaganza.NewBuilderFromElement(stanza).
		WithChild(db.Build()).
		BuildMessage()
	return dMsg
}

// RedirectStanza returns a copy of stanza addressed from fromJID to toJID.
func RedirectStanza(stanza stravaganza.Stanza, fromJID, toJID *jid.JID) (stravaganza.Stanza, error) {
	b := stravaganza.NewBuilderFromElement(stanza).
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String())

	switch stanza.(type) {
	case *stravaganza.IQ:
		return b.BuildIQ()
	case *stravaganza.Presence:
		return b.BuildPresence()
	default:
		return b.BuildMessage()
	}
}
