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

package measuredrepository

import (
	"context"
	"time"

	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

type measuredRoomRep struct {
	rep repository.Room
}

func (m *measuredRoomRep) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	t0 := time.Now()
	err := m.rep.UpsertRoom(ctx, room)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil)
	return err
}

func (m *measuredRoomRep) FetchRoom(ctx context.Context, roomJID string) (*mucmodel.Room, error) {
	t0 := time.Now()
	room, err := m.rep.FetchRoom(ctx, roomJID)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil)
	return room, err
}

func (m *measuredRoomRep) FetchRooms(ctx context.Context, host string) ([]*mucmodel.Room, error) {
	t0 := time.Now()
	rooms, err := m.rep.FetchRooms(ctx, host)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil)
	return rooms, err
}

func (m *measuredRoomRep) DeleteRoom(ctx context.Context, roomJID string) error {
	t0 := time.Now()
	err := m.rep.DeleteRoom(ctx, roomJID)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil)
	return err
}
