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

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

// Join adds the presence sender to the addressed room using the destination resource as nickname.
// The room is created on first join when access_create rule list allows it.
func (s *Service) Join(ctx context.Context, presence *stravaganza.Presence) error {
	err := s.join(ctx, presence)
	reportJoinRequest(err)
	return err
}

func (s *Service) join(ctx context.Context, presence *stravaganza.Presence) error {
	occJID := presence.FromJID()
	roomJID := presence.ToJID().ToBareJID()
	nick := presence.ToJID().Resource()
	if len(nick) == 0 || len(roomJID.Node()) == 0 {
		return ErrInvalidNickname
	}
	for {
		r, created, err := s.getOrCreateRoom(ctx, roomJID, occJID)
		if err != nil {
			return err
		}
		r.mu.Lock()
		if r.destroyed {
			// removed while waiting for the room lock
			r.mu.Unlock()
			continue
		}
		err = s.joinRoom(ctx, r, presence, nick, created)
		if err != nil && r.isEmpty() && !r.model.Config.Persistent {
			s.removeRoom(ctx, r)
		}
		r.mu.Unlock()
		return err
	}
}

// joinRoom r.mu must be held.
func (s *Service) joinRoom(ctx context.Context, r *room, presence *stravaganza.Presence, nick string, created bool) error {
	occJID := presence.FromJID()
	aff := r.model.Affiliation(occJID.ToBareJID().String())

	if occ := r.occupantByJID(occJID); occ != nil {
		if occ.Nick != nick {
			return ErrNicknameChange
		}
		occ.status = presenceStatus(presence)
		s.broadcastPresence(ctx, r, occ, nil)
		return nil
	}
	if aff == mucmodel.AffiliationOutcast {
		return ErrBanned
	}
	if _, ok := r.byNick[nick]; ok {
		return ErrNicknameConflict
	}
	if r.model.Config.MembersOnly && aff < mucmodel.AffiliationMember {
		return ErrRegistrationRequired
	}
	serviceAdmin := s.isServiceAdmin(occJID)
	privileged := aff.IsPrivileged() || serviceAdmin

	if pw := r.model.Config.Password; len(pw) > 0 && !privileged && joinPassword(presence) != pw {
		return ErrPasswordRequired
	}
	n := len(r.occupants)
	if n >= s.maxUsers(r) && !(privileged && n < s.cfg.MaxUsersAdminThreshold) {
		return ErrRoomFull
	}
	role := roleForAffiliation(aff, r.model.Config.Moderated)
	if serviceAdmin {
		role = RoleModerator
	}
	occ := &Occupant{
		Nick:        nick,
		JID:         occJID,
		Role:        role,
		Affiliation: aff,
		status:      presenceStatus(presence),
	}
	// current occupants snapshot goes first
	for _, o := range r.occupants {
		s.route(ctx, s.occupantPresence(r, o, occJID, "", role == RoleModerator, nil))
	}
	r.addOccupant(occ)
	reportOccupantDelta(1)

	var selfStatuses []string
	if created {
		selfStatuses = append(selfStatuses, statusRoomCreated)
	}
	s.broadcastPresence(ctx, r, occ, selfStatuses)

	for _, e := range r.lastHistory(historyMaxStanzas(presence)) {
		hMsg, err := xmpputil.RedirectStanza(e.msg, r.occupantAddress(e.nick), occJID)
		if err != nil {
			continue
		}
		s.route(ctx, xmpputil.MakeDelayMessage(hMsg, e.stamp, r.jid.String(), ""))
	}
	s.route(ctx, subjectMessage(r, occJID))

	level.Debug(s.logger).Log("msg", "occupant joined", "room", r.jid.String(), "nick", nick, "jid", occJID.String())
	return nil
}

// Leave removes the presence sender from the addressed room.
func (s *Service) Leave(ctx context.Context, presence *stravaganza.Presence) error {
	r := s.room(presence.ToJID())
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	occ := r.occupantByJID(presence.FromJID())
	if occ == nil {
		return ErrNotOccupant
	}
	s.evictOccupant(ctx, r, occ, true, nil)

	level.Debug(s.logger).Log("msg", "occupant left", "room", r.jid.String(), "nick", occ.Nick)
	return nil
}

// OccupantGone removes every occupant bound to a terminated session.
func (s *Service) OccupantGone(ctx context.Context, occJID *jid.JID) {
	for _, r := range s.allRooms() {
		r.mu.Lock()
		if !r.destroyed {
			if occ := r.occupantByJID(occJID); occ != nil {
				s.evictOccupant(ctx, r, occ, false, nil)
			}
		}
		r.mu.Unlock()
	}
}

// broadcastPresence sends occ available presence to every occupant, itself included. r.mu must be held.
func (s *Service) broadcastPresence(ctx context.Context, r *room, occ *Occupant, selfStatuses []string) {
	for _, o := range r.occupants {
		if o == occ {
			continue
		}
		s.route(ctx, s.occupantPresence(r, occ, o.JID, "", o.Role == RoleModerator, nil))
	}
	s.route(ctx, s.occupantPresence(r, occ, occ.JID, "", true, append([]string{statusSelfPresence}, selfStatuses...)))
}

// evictOccupant removes occ broadcasting its departure. r.mu must be held.
func (s *Service) evictOccupant(ctx context.Context, r *room, occ *Occupant, notifySelf bool, statuses []string, extra ...stravaganza.Element) {
	r.removeOccupant(occ)
	reportOccupantDelta(-1)

	occ.Role = RoleNone
	for _, o := range r.occupants {
		s.route(ctx, s.occupantPresence(r, occ, o.JID, stravaganza.UnavailableType, o.Role == RoleModerator, statuses, extra...))
	}
	if notifySelf {
		selfStatuses := append([]string{statusSelfPresence}, statuses...)
		s.route(ctx, s.occupantPresence(r, occ, occ.JID, stravaganza.UnavailableType, true, selfStatuses, extra...))
	}
	if r.isEmpty() && !r.model.Config.Persistent {
		s.removeRoom(ctx, r)
	}
}
