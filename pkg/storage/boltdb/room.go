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

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	bolt "go.etcd.io/bbolt"
)

type boltDBRoomRep struct {
	tx *bolt.Tx
}

func newRoomRep(tx *bolt.Tx) *boltDBRoomRep {
	return &boltDBRoomRep{tx: tx}
}

func (r *boltDBRoomRep) UpsertRoom(_ context.Context, room *mucmodel.Room) error {
	bucket, err := roomsBucketFor(room.JID)
	if err != nil {
		return err
	}
	op := upsertKeyOp{
		tx:     r.tx,
		bucket: bucket,
		key:    room.JID,
		obj:    room,
	}
	return op.do()
}

func (r *boltDBRoomRep) FetchRoom(_ context.Context, roomJID string) (*mucmodel.Room, error) {
	bucket, err := roomsBucketFor(roomJID)
	if err != nil {
		return nil, err
	}
	op := fetchKeyOp{
		tx:     r.tx,
		bucket: bucket,
		key:    roomJID,
		obj:    &mucmodel.Room{},
	}
	obj, err := op.do()
	if err != nil || obj == nil {
		return nil, err
	}
	return obj.(*mucmodel.Room), nil
}

func (r *boltDBRoomRep) FetchRooms(_ context.Context, host string) ([]*mucmodel.Room, error) {
	var rooms []*mucmodel.Room

	op := iterKeysOp{
		tx:     r.tx,
		bucket: roomsBucket(host),
		iterFn: func(_, b []byte) error {
			var room mucmodel.Room
			if err := room.UnmarshalBinary(b); err != nil {
				return err
			}
			rooms = append(rooms, &room)
			return nil
		},
	}
	if err := op.do(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *boltDBRoomRep) DeleteRoom(_ context.Context, roomJID string) error {
	bucket, err := roomsBucketFor(roomJID)
	if err != nil {
		return err
	}
	op := delKeyOp{
		tx:     r.tx,
		bucket: bucket,
		key:    roomJID,
	}
	return op.do()
}

func roomsBucketFor(roomJID string) (string, error) {
	j, err := jid.NewWithString(roomJID, true)
	if err != nil {
		return "", err
	}
	return roomsBucket(j.Domain()), nil
}

func roomsBucket(host string) string {
	return fmt.Sprintf("rooms:%s", host)
}

// UpsertRoom satisfies repository.Room interface.
func (r *Repository) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRoomRep(tx).UpsertRoom(ctx, room)
	})
}

// FetchRoom satisfies repository.Room interface.
func (r *Repository) FetchRoom(ctx context.Context, roomJID string) (room *mucmodel.Room, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		room, err = newRoomRep(tx).FetchRoom(ctx, roomJID)
		return err
	})
	return
}

// FetchRooms satisfies repository.Room interface.
func (r *Repository) FetchRooms(ctx context.Context, host string) (rooms []*mucmodel.Room, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		rooms, err = newRoomRep(tx).FetchRooms(ctx, host)
		return err
	})
	return
}

// DeleteRoom satisfies repository.Room interface.
func (r *Repository) DeleteRoom(ctx context.Context, roomJID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRoomRep(tx).DeleteRoom(ctx, roomJID)
	})
}
