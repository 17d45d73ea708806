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
	"context"
	"sync"

	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
)

// roomRepositoryMock is a mock implementation of roomRepository.
type roomRepositoryMock struct {
	UpsertRoomFunc func(ctx context.Context, room *mucmodel.Room) error
	FetchRoomFunc  func(ctx context.Context, roomJID string) (*mucmodel.Room, error)
	FetchRoomsFunc func(ctx context.Context, host string) ([]*mucmodel.Room, error)
	DeleteRoomFunc func(ctx context.Context, roomJID string) error

	mu    sync.Mutex
	calls struct {
		UpsertRoom []*mucmodel.Room
		DeleteRoom []string
	}
}

func (m *roomRepositoryMock) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	m.mu.Lock()
	m.calls.UpsertRoom = append(m.calls.UpsertRoom, room)
	m.mu.Unlock()
	if m.UpsertRoomFunc == nil {
		return nil
	}
	return m.UpsertRoomFunc(ctx, room)
}

func (m *roomRepositoryMock) FetchRoom(ctx context.Context, roomJID string) (*mucmodel.Room, error) {
	if m.FetchRoomFunc == nil {
		return nil, nil
	}
	return m.FetchRoomFunc(ctx, roomJID)
}

func (m *roomRepositoryMock) FetchRooms(ctx context.Context, host string) ([]*mucmodel.Room, error) {
	if m.FetchRoomsFunc == nil {
		return nil, nil
	}
	return m.FetchRoomsFunc(ctx, host)
}

func (m *roomRepositoryMock) DeleteRoom(ctx context.Context, roomJID string) error {
	m.mu.Lock()
	m.calls.DeleteRoom = append(m.calls.DeleteRoom, roomJID)
	m.mu.Unlock()
	if m.DeleteRoomFunc == nil {
		return nil
	}
	return m.DeleteRoomFunc(ctx, roomJID)
}

// UpsertRoomCalls returns the rooms passed to UpsertRoom.
func (m *roomRepositoryMock) UpsertRoomCalls() []*mucmodel.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mucmodel.Room(nil), m.calls.UpsertRoom...)
}

// DeleteRoomCalls returns the room JIDs passed to DeleteRoom.
func (m *roomRepositoryMock) DeleteRoomCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls.DeleteRoom...)
}
