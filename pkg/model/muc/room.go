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

package mucmodel

import (
	"github.com/fxamacker/cbor/v2"
)

// Affiliation represents a long-lived room permission grant.
type Affiliation uint8

const (
	// AffiliationNone is assigned to entities with no standing in the room.
	AffiliationNone Affiliation = iota

	// AffiliationOutcast is assigned to banned entities.
	AffiliationOutcast

	// AffiliationMember is assigned to room members.
	AffiliationMember

	// AffiliationAdmin is assigned to room administrators.
	AffiliationAdmin

	// AffiliationOwner is assigned to room owners.
	AffiliationOwner
)

// String returns the XEP-0045 affiliation name.
func (a Affiliation) String() string {
	switch a {
	case AffiliationOutcast:
		return "outcast"
	case AffiliationMember:
		return "member"
	case AffiliationAdmin:
		return "admin"
	case AffiliationOwner:
		return "owner"
	}
	return "none"
}

// ParseAffiliation returns the affiliation named s. The second return value is false if s is unknown.
func ParseAffiliation(s string) (Affiliation, bool) {
	switch s {
	case "none":
		return AffiliationNone, true
	case "outcast":
		return AffiliationOutcast, true
	case "member":
		return AffiliationMember, true
	case "admin":
		return AffiliationAdmin, true
	case "owner":
		return AffiliationOwner, true
	}
	return AffiliationNone, false
}

// IsPrivileged tells whether the affiliation grants administrative rights.
func (a Affiliation) IsPrivileged() bool {
	return a == AffiliationAdmin || a == AffiliationOwner
}

// Config contains room configuration values.
type Config struct {
	Name        string `cbor:"1,keyasint,omitempty"`
	Description string `cbor:"2,keyasint,omitempty"`
	Subject     string `cbor:"3,keyasint,omitempty"`
	Persistent  bool   `cbor:"4,keyasint,omitempty"`
	Public      bool   `cbor:"5,keyasint,omitempty"`
	MembersOnly bool   `cbor:"6,keyasint,omitempty"`
	Moderated   bool   `cbor:"7,keyasint,omitempty"`
	Password    string `cbor:"8,keyasint,omitempty"`

	// MaxUsers overrides service max_users when greater than zero.
	MaxUsers int `cbor:"9,keyasint,omitempty"`
}

// Room represents the persisted state of a multi-user chat room.
type Room struct {
	// JID is the room bare address.
	JID string `cbor:"1,keyasint"`

	Config Config `cbor:"2,keyasint"`

	// Affiliations maps a bare JID to its room affiliation.
	Affiliations map[string]Affiliation `cbor:"3,keyasint,omitempty"`
}

// MarshalBinary satisfies encoding.BinaryMarshaler interface.
func (r *Room) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(r)
}

// UnmarshalBinary satisfies encoding.BinaryUnmarshaler interface.
func (r *Room) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, r)
}

// Affiliation returns the affiliation of bareJID.
func (r *Room) Affiliation(bareJID string) Affiliation {
	return r.Affiliations[bareJID]
}

// SetAffiliation updates the affiliation of bareJID. AffiliationNone removes the entry.
func (r *Room) SetAffiliation(bareJID string, aff Affiliation) {
	if aff == AffiliationNone {
		delete(r.Affiliations, bareJID)
		return
	}
	if r.Affiliations == nil {
		r.Affiliations = make(map[string]Affiliation)
	}
	r.Affiliations[bareJID] = aff
}

// Clone returns a deep copy of r.
func (r *Room) Clone() *Room {
	cp := &Room{JID: r.JID, Config: r.Config}
	if len(r.Affiliations) > 0 {
		cp.Affiliations = make(map[string]Affiliation, len(r.Affiliations))
		for k, v := range r.Affiliations {
			cp.Affiliations[k] = v
		}
	}
	return cp
}
