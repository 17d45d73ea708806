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

package pgsqlrepository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/stretchr/testify/require"
)

func TestPgSQLRoom_UpsertRoom(t *testing.T) {
	// given
	room := &mucmodel.Room{
		JID:    "lobby@conference.jackal.im",
		Config: mucmodel.Config{Persistent: true},
	}
	b, _ := room.MarshalBinary()

	s, mock := newRoomMock()
	mock.ExpectExec(`INSERT INTO rooms \(jid,host,data\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(jid\) DO UPDATE SET data = \$3, updated_at = NOW\(\)`).
		WithArgs("lobby@conference.jackal.im", "conference.jackal.im", b).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// when
	err := s.UpsertRoom(context.Background(), room)

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
}

func TestPgSQLRoom_FetchRoom(t *testing.T) {
	// given
	room := &mucmodel.Room{JID: "lobby@conference.jackal.im"}
	room.SetAffiliation("ortuman@jackal.im", mucmodel.AffiliationOwner)
	b, _ := room.MarshalBinary()

	s, mock := newRoomMock()
	mock.ExpectQuery(`SELECT data FROM rooms WHERE jid = \$1`).
		WithArgs("lobby@conference.jackal.im").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(b))
	mock.ExpectQuery(`SELECT data FROM rooms WHERE jid = \$1`).
		WithArgs("garden@conference.jackal.im").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	// when
	fetched, err := s.FetchRoom(context.Background(), "lobby@conference.jackal.im")
	notFound, err2 := s.FetchRoom(context.Background(), "garden@conference.jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
	require.Nil(t, err2)
	require.Equal(t, room, fetched)
	require.Nil(t, notFound)
}

func TestPgSQLRoom_FetchRooms(t *testing.T) {
	// given
	b0, _ := (&mucmodel.Room{JID: "garden@conference.jackal.im"}).MarshalBinary()
	b1, _ := (&mucmodel.Room{JID: "lobby@conference.jackal.im"}).MarshalBinary()

	s, mock := newRoomMock()
	mock.ExpectQuery(`SELECT data FROM rooms WHERE host = \$1 ORDER BY jid`).
		WithArgs("conference.jackal.im").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(b0).AddRow(b1))

	// when
	rooms, err := s.FetchRooms(context.Background(), "conference.jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "garden@conference.jackal.im", rooms[0].JID)
}

func TestPgSQLRoom_DeleteRoom(t *testing.T) {
	// given
	s, mock := newRoomMock()
	mock.ExpectExec(`DELETE FROM rooms WHERE jid = \$1`).
		WithArgs("lobby@conference.jackal.im").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// when
	err := s.DeleteRoom(context.Background(), "lobby@conference.jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
}
