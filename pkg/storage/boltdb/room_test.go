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

package boltdb

import (
	"context"
	"testing"

	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestBoltDB_UpsertAndFetchRoom(t *testing.T) {
	t.Parallel()

	db := setupDB(t)
	t.Cleanup(func() { cleanUp(db) })

	err := db.Update(func(tx *bolt.Tx) error {
		rep := boltDBRoomRep{tx: tx}

		room := &mucmodel.Room{
			JID:    "lobby@conference.jackal.im",
			Config: mucmodel.Config{Name: "Lobby", Persistent: true},
		}
		room.SetAffiliation("ortuman@jackal.im", mucmodel.AffiliationOwner)

		require.NoError(t, rep.UpsertRoom(context.Background(), room))

		fetched, err := rep.FetchRoom(context.Background(), "lobby@conference.jackal.im")
		require.NoError(t, err)
		require.Equal(t, room, fetched)

		notFound, err := rep.FetchRoom(context.Background(), "garden@conference.jackal.im")
		require.NoError(t, err)
		require.Nil(t, notFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_FetchAndDeleteRooms(t *testing.T) {
	t.Parallel()

	db := setupDB(t)
	t.Cleanup(func() { cleanUp(db) })

	err := db.Update(func(tx *bolt.Tx) error {
		rep := boltDBRoomRep{tx: tx}

		require.NoError(t, rep.UpsertRoom(context.Background(), &mucmodel.Room{JID: "lobby@conference.jackal.im"}))
		require.NoError(t, rep.UpsertRoom(context.Background(), &mucmodel.Room{JID: "garden@conference.jackal.im"}))
		require.NoError(t, rep.UpsertRoom(context.Background(), &mucmodel.Room{JID: "balcony@conference.capulet.lit"}))

		rooms, err := rep.FetchRooms(context.Background(), "conference.jackal.im")
		require.NoError(t, err)
		require.Len(t, rooms, 2)

		require.NoError(t, rep.DeleteRoom(context.Background(), "lobby@conference.jackal.im"))

		rooms, err = rep.FetchRooms(context.Background(), "conference.jackal.im")
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		require.Equal(t, "garden@conference.jackal.im", rooms[0].JID)
		return nil
	})
	require.NoError(t, err)
}
