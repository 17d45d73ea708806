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
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

// SendGroupChat broadcasts a group chat message to every room occupant, sender included.
// A message carrying a subject and no body changes the room subject.
func (s *Service) SendGroupChat(ctx context.Context, msg *stravaganza.Message) error {
	r := s.room(msg.ToJID())
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRoomNotFound
	}
	occ := r.occupantByJID(msg.FromJID())
	if occ == nil {
		return ErrNotOccupant
	}
	if occ.Role < RoleParticipant {
		return ErrForbidden
	}
	if subject := msg.Child("subject"); subject != nil && msg.Child("body") == nil {
		if occ.Role != RoleModerator {
			return ErrForbidden
		}
		r.model.Config.Subject = subject.Text()
		s.persist(ctx, r)
	} else {
		r.appendHistory(historyEntry{nick: occ.Nick, msg: msg, stamp: s.nowFunc()}, s.cfg.HistorySize)
	}
	fromJID := r.occupantAddress(occ.Nick)
	for _, o := range r.occupants {
		gcMsg, err := xmpputil.RedirectStanza(msg, fromJID, o.JID)
		if err != nil {
			return err
		}
		s.route(ctx, gcMsg)
	}
	reportGroupChatMessage()
	return nil
}

// SendPrivate delivers a message from an occupant to another occupant addressed by nickname.
func (s *Service) SendPrivate(ctx context.Context, msg *stravaganza.Message) error {
	r := s.room(msg.ToJID())
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.occupantByJID(msg.FromJID())
	if occ == nil {
		return ErrNotOccupant
	}
	target := r.byNick[msg.ToJID().Resource()]
	if target == nil {
		return ErrOccupantNotFound
	}
	pm, err := stravaganza.NewBuilderFromElement(msg).
		WithAttribute(stravaganza.From, r.occupantAddress(occ.Nick).String()).
		WithAttribute(stravaganza.To, target.JID.String()).
		WithChild(stravaganza.NewBuilder("x").WithAttribute(stravaganza.Namespace, mucUserNamespace).Build()).
		BuildMessage()
	if err != nil {
		return err
	}
	s.route(ctx, pm)
	return nil
}
