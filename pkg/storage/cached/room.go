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

package cachedrepository

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/ortuman/kestrel/pkg/model"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

const roomKey = "rm"

type cachedRoomRep struct {
	c      Cache
	rep    repository.Room
	logger kitlog.Logger
}

func (c *cachedRoomRep) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	op := updateOp{
		c:              c.c,
		namespace:      roomNS(room.JID),
		invalidateKeys: []string{roomKey},
		updateFn: func(ctx context.Context) error {
			return c.rep.UpsertRoom(ctx, room)
		},
	}
	return op.do(ctx)
}

func (c *cachedRoomRep) FetchRoom(ctx context.Context, roomJID string) (*mucmodel.Room, error) {
	op := fetchOp{
		c:         c.c,
		namespace: roomNS(roomJID),
		key:       roomKey,
		codec:     &mucmodel.Room{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			return c.rep.FetchRoom(ctx, roomJID)
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*mucmodel.Room), nil
	}
	return nil, nil
}

func (c *cachedRoomRep) FetchRooms(ctx context.Context, host string) ([]*mucmodel.Room, error) {
	return c.rep.FetchRooms(ctx, host)
}

func (c *cachedRoomRep) DeleteRoom(ctx context.Context, roomJID string) error {
	op := updateOp{
		c:         c.c,
		namespace: roomNS(roomJID),
		updateFn: func(ctx context.Context) error {
			return c.rep.DeleteRoom(ctx, roomJID)
		},
	}
	return op.do(ctx)
}

func roomNS(roomJID string) string {
	return "room:" + roomJID
}
