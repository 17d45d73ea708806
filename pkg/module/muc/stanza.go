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

package muc

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const (
	mucNamespace        = "http://jabber.org/protocol/muc"
	mucUserNamespace    = "http://jabber.org/protocol/muc#user"
	mucAdminNamespace   = "http://jabber.org/protocol/muc#admin"
	mucOwnerNamespace   = "http://jabber.org/protocol/muc#owner"
	discoInfoNamespace  = "http://jabber.org/protocol/disco#info"
	discoItemsNamespace = "http://jabber.org/protocol/disco#items"
	roomConfigFormType  = "http://jabber.org/protocol/muc#roomconfig"
)

// XEP-0045 status codes
const (
	statusSelfPresence       = "110"
	statusRoomCreated        = "201"
	statusBanned             = "301"
	statusAffiliationChanged = "321"
	statusMembersOnly        = "322"
)

func (s *Service) occupantPresence(
	r *room,
	occ *Occupant,
	toJID *jid.JID,
	typ string,
	includeJID bool,
	statuses []string,
	extra ...stravaganza.Element,
) *stravaganza.Presence {
	item := stravaganza.NewBuilder("item").
		WithAttribute("affiliation", occ.Affiliation.String()).
		WithAttribute("role", occ.Role.String())
	if includeJID {
		item.WithAttribute("jid", occ.JID.String())
	}
	x := stravaganza.NewBuilder("x").
		WithAttribute(stravaganza.Namespace, mucUserNamespace).
		WithChild(item.Build())
	for _, code := range statuses {
		x.WithChild(stravaganza.NewBuilder("status").WithAttribute("code", code).Build())
	}
	x.WithChildren(extra...)

	var children []stravaganza.Element
	if typ != stravaganza.UnavailableType {
		children = append(children, occ.status...)
	}
	children = append(children, x.Build())
	return xmpputil.MakePresence(r.occupantAddress(occ.Nick), toJID, typ, children)
}

func subjectMessage(r *room, toJID *jid.JID) *stravaganza.Message {
	msg, _ := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.From, r.jid.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithAttribute(stravaganza.Type, stravaganza.GroupChatType).
		WithChild(stravaganza.NewBuilder("subject").WithText(r.model.Config.Subject).Build()).
		BuildMessage()
	return msg
}

// presenceStatus returns presence children to be reflected into occupant presences.
func presenceStatus(presence *stravaganza.Presence) []stravaganza.Element {
	var ret []stravaganza.Element
	for _, ch := range presence.AllChildren() {
		if ch.Name() == "x" && ch.Attribute(stravaganza.Namespace) == mucNamespace {
			continue
		}
		ret = append(ret, ch)
	}
	return ret
}

func joinPassword(presence *stravaganza.Presence) string {
	x := presence.ChildNamespace("x", mucNamespace)
	if x == nil {
		return ""
	}
	if pw := x.Child("password"); pw != nil {
		return pw.Text()
	}
	return ""
}

// historyMaxStanzas returns the number of history messages requested on join. A negative value means no limit.
func historyMaxStanzas(presence *stravaganza.Presence) int {
	x := presence.ChildNamespace("x", mucNamespace)
	if x == nil {
		return -1
	}
	h := x.Child("history")
	if h == nil {
		return -1
	}
	n, err := strconv.Atoi(h.Attribute("maxstanzas"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
