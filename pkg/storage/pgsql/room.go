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
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
)

const roomsTableName = "rooms"

type pgSQLRoomRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *pgSQLRoomRep) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	j, err := jid.NewWithString(room.JID, true)
	if err != nil {
		return err
	}
	b, err := room.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = psql.Insert(roomsTableName).
		Columns("jid", "host", "data").
		Values(room.JID, j.Domain(), b).
		Suffix("ON CONFLICT (jid) DO UPDATE SET data = $3, updated_at = NOW()").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *pgSQLRoomRep) FetchRoom(ctx context.Context, roomJID string) (*mucmodel.Room, error) {
	var b []byte

	err := psql.Select("data").
		From(roomsTableName).
		Where(sq.Eq{"jid": roomJID}).
		RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&b)

	switch {
	case err == nil:
		var room mucmodel.Room
		if err := room.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return &room, nil

	case errors.Is(err, sql.ErrNoRows):
		return nil, nil

	default:
		return nil, err
	}
}

func (r *pgSQLRoomRep) FetchRooms(ctx context.Context, host string) ([]*mucmodel.Room, error) {
	rows, err := psql.Select("data").
		From(roomsTableName).
		Where(sq.Eq{"host": host}).
		OrderBy("jid").
		RunWith(r.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	var rooms []*mucmodel.Room
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		var room mucmodel.Room
		if err := room.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

func (r *pgSQLRoomRep) DeleteRoom(ctx context.Context, roomJID string) error {
	_, err := psql.Delete(roomsTableName).
		Where(sq.Eq{"jid": roomJID}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}
