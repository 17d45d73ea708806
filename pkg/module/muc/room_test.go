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
	"testing"

	"github.com/jackal-xmpp/stravaganza/v2"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/stretchr/testify/require"
)

func TestRoom_HistoryEviction(t *testing.T) {
	// given
	r := newRoom(testJID(testRoom), &mucmodel.Room{JID: testRoom})

	// when
	for i := 0; i < 5; i++ {
		msg, _ := stravaganza.NewMessageBuilder().
			WithAttribute(stravaganza.From, "ortuman@jackal.im/balcony").
			WithAttribute(stravaganza.To, testRoom).
			WithChild(stravaganza.NewBuilder("body").WithText(strconv.Itoa(i)).Build()).
			BuildMessage()
		r.appendHistory(historyEntry{nick: "ortuman", msg: msg}, 3)
	}

	// then
	require.Len(t, r.history, 3)
	require.Equal(t, "2", r.history[0].msg.Child("body").Text())
	require.Equal(t, "4", r.history[2].msg.Child("body").Text())

	require.Len(t, r.lastHistory(-1), 3)
	require.Len(t, r.lastHistory(0), 0)
	require.Len(t, r.lastHistory(2), 2)
	require.Equal(t, "3", r.lastHistory(2)[0].msg.Child("body").Text())
}

func TestRoom_HistoryDisabled(t *testing.T) {
	r := newRoom(testJID(testRoom), &mucmodel.Room{JID: testRoom})
	r.appendHistory(historyEntry{nick: "ortuman"}, 0)
	require.Len(t, r.history, 0)
}

func TestRoleForAffiliation(t *testing.T) {
	require.Equal(t, RoleModerator, roleForAffiliation(mucmodel.AffiliationOwner, true))
	require.Equal(t, RoleModerator, roleForAffiliation(mucmodel.AffiliationAdmin, false))
	require.Equal(t, RoleParticipant, roleForAffiliation(mucmodel.AffiliationMember, true))
	require.Equal(t, RoleVisitor, roleForAffiliation(mucmodel.AffiliationNone, true))
	require.Equal(t, RoleParticipant, roleForAffiliation(mucmodel.AffiliationNone, false))
	require.Equal(t, RoleNone, roleForAffiliation(mucmodel.AffiliationOutcast, false))
}

func TestRoom_OccupantAddress(t *testing.T) {
	r := newRoom(testJID(testRoom), &mucmodel.Room{JID: testRoom})
	require.Equal(t, testRoom+"/romeo", r.occupantAddress("romeo").String())
}
