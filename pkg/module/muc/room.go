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
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
)

// Role represents a session scoped occupant rank.
type Role uint8

const (
	// RoleNone is assigned to entities that are not present in the room.
	RoleNone Role = iota

	// RoleVisitor is assigned to occupants without voice in moderated rooms.
	RoleVisitor

	// RoleParticipant is assigned to occupants with voice.
	RoleParticipant

	// RoleModerator is assigned to privileged occupants.
	RoleModerator
)

// String returns the XEP-0045 role name.
func (r Role) String() string {
	switch r {
	case RoleVisitor:
		return "visitor"
	case RoleParticipant:
		return "participant"
	case RoleModerator:
		return "moderator"
	}
	return "none"
}

// Occupant describes a room occupant.
type Occupant struct {
	Nick        string
	JID         *jid.JID
	Role        Role
	Affiliation mucmodel.Affiliation

	status []stravaganza.Element
}

type historyEntry struct {
	nick  string
	msg   *stravaganza.Message
	stamp time.Time
}

// room holds a room live state. Every field is guarded by mu.
type room struct {
	mu sync.Mutex

	jid       *jid.JID
	model     *mucmodel.Room
	occupants []*Occupant
	byNick    map[string]*Occupant
	history   []historyEntry
	destroyed bool
}

func newRoom(roomJID *jid.JID, model *mucmodel.Room) *room {
	return &room{
		jid:    roomJID,
		model:  model,
		byNick: make(map[string]*Occupant),
	}
}

func (r *room) occupantByJID(j *jid.JID) *Occupant {
	for _, occ := range r.occupants {
		if occ.JID.String() == j.String() {
			return occ
		}
	}
	return nil
}

func (r *room) addOccupant(occ *Occupant) {
	r.occupants = append(r.occupants, occ)
	r.byNick[occ.Nick] = occ
}

func (r *room) removeOccupant(occ *Occupant) {
	for i, o := range r.occupants {
		if o == occ {
			r.occupants = append(r.occupants[:i], r.occupants[i+1:]...)
			break
		}
	}
	delete(r.byNick, occ.Nick)
}

func (r *room) isEmpty() bool {
	return len(r.occupants) == 0
}

func (r *room) occupantAddress(nick string) *jid.JID {
	j, _ := jid.New(r.jid.Node(), r.jid.Domain(), nick, true)
	return j
}

func (r *room) appendHistory(e historyEntry, size int) {
	if size <= 0 {
		return
	}
	r.history = append(r.history, e)
	if n := len(r.history); n > size {
		r.history = append(r.history[:0], r.history[n-size:]...)
	}
}

func (r *room) lastHistory(max int) []historyEntry {
	if max < 0 || max >= len(r.history) {
		return r.history
	}
	return r.history[len(r.history)-max:]
}

func (r *room) snapshot() []Occupant {
	ret := make([]Occupant, 0, len(r.occupants))
	for _, occ := range r.occupants {
		ret = append(ret, *occ)
	}
	return ret
}

// snapshotRefs returns a copy of the occupant list safe to iterate while evicting.
func (r *room) snapshotRefs() []*Occupant {
	return append([]*Occupant(nil), r.occupants...)
}

func (r *room) ownerCount() int {
	var n int
	for _, aff := range r.model.Affiliations {
		if aff == mucmodel.AffiliationOwner {
			n++
		}
	}
	return n
}

func roleForAffiliation(aff mucmodel.Affiliation, moderated bool) Role {
	switch aff {
	case mucmodel.AffiliationOwner, mucmodel.AffiliationAdmin:
		return RoleModerator
	case mucmodel.AffiliationMember:
		return RoleParticipant
	case mucmodel.AffiliationOutcast:
		return RoleNone
	}
	if moderated {
		return RoleVisitor
	}
	return RoleParticipant
}
