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
	"fmt"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestBoltDB_InsertAndFetchOfflineMessages(t *testing.T) {
	t.Parallel()

	db := setupDB(t)
	t.Cleanup(func() { cleanUp(db) })

	err := db.Update(func(tx *bolt.Tx) error {
		rep := boltDBOfflineRep{tx: tx}

		// more than 9 entries so that lexicographic key order is exercised
		for i := 0; i < 12; i++ {
			err := rep.InsertOfflineMessage(context.Background(), testMessageStanza(fmt.Sprintf("message %d", i)), "ortuman@jackal.im")
			require.NoError(t, err)
		}
		messages, err := rep.FetchOfflineMessages(context.Background(), "ortuman@jackal.im")
		require.NoError(t, err)

		require.Len(t, messages, 12)
		for i, msg := range messages {
			require.Equal(t, fmt.Sprintf("message %d", i), msg.Child("body").Text())
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_CountOfflineMessages(t *testing.T) {
	t.Parallel()

	db := setupDB(t)
	t.Cleanup(func() { cleanUp(db) })

	err := db.Update(func(tx *bolt.Tx) error {
		rep := boltDBOfflineRep{tx: tx}

		err := rep.InsertOfflineMessage(context.Background(), testMessageStanza("message 0"), "ortuman@jackal.im")
		require.NoError(t, err)

		err = rep.InsertOfflineMessage(context.Background(), testMessageStanza("message 1"), "ortuman@jackal.im")
		require.NoError(t, err)

		cnt, err := rep.CountOfflineMessages(context.Background(), "ortuman@jackal.im")
		require.NoError(t, err)
		require.Equal(t, 2, cnt)

		cnt, err = rep.CountOfflineMessages(context.Background(), "noelia@jackal.im")
		require.NoError(t, err)
		require.Equal(t, 0, cnt)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_DeleteOfflineMessages(t *testing.T) {
	t.Parallel()

	db := setupDB(t)
	t.Cleanup(func() { cleanUp(db) })

	err := db.Update(func(tx *bolt.Tx) error {
		rep := boltDBOfflineRep{tx: tx}

		require.NoError(t, rep.InsertOfflineMessage(context.Background(), testMessageStanza("message 0"), "ortuman@jackal.im"))
		require.NoError(t, rep.DeleteOfflineMessages(context.Background(), "ortuman@jackal.im"))

		// deleting an empty queue is not an error
		require.NoError(t, rep.DeleteOfflineMessages(context.Background(), "ortuman@jackal.im"))

		cnt, err := rep.CountOfflineMessages(context.Background(), "ortuman@jackal.im")
		require.NoError(t, err)
		require.Equal(t, 0, cnt)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_Repository(t *testing.T) {
	// given
	rep := New(Config{Path: fmt.Sprintf("%s/kestrel.db", t.TempDir())}, kitlog.NewNopLogger())
	require.NoError(t, rep.Start(context.Background()))
	defer func() { _ = rep.Stop(context.Background()) }()

	// when
	err := rep.InsertOfflineMessage(context.Background(), testMessageStanza("hi"), "ortuman@jackal.im")
	require.NoError(t, err)

	ms, err := rep.FetchOfflineMessages(context.Background(), "ortuman@jackal.im")

	// then
	require.NoError(t, err)
	require.Len(t, ms, 1)
	require.Equal(t, "hi", ms[0].Child("body").Text())
}
