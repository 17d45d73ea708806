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

package repository

import (
	"context"

	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
)

// Room defines storage operations for persistent multi-user chat rooms.
type Room interface {
	// UpsertRoom inserts a room entity into storage, or updates it if was previously inserted.
	UpsertRoom(ctx context.Context, room *mucmodel.Room) error

	// FetchRoom retrieves a room entity from storage. Nil is returned if not found.
	FetchRoom(ctx context.Context, roomJID string) (*mucmodel.Room, error)

	// FetchRooms retrieves all rooms hosted by a MUC service domain.
	FetchRooms(ctx context.Context, host string) ([]*mucmodel.Room, error)

	// DeleteRoom deletes a room entity from storage.
	DeleteRoom(ctx context.Context, roomJID string) error
}
