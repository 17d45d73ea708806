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

package memoryrepository

import (
	"context"
	"sort"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
)

// Type is memory repository type identifier.
const Type = "memory"

// Repository represents an in-memory repository implementation.
// Stored entities are lost once the process exits.
type Repository struct {
	logger kitlog.Logger

	mu      sync.RWMutex
	offline map[string][]*stravaganza.Message
	rooms   map[string]*mucmodel.Room
	nodes   map[string]map[string]*pubsubmodel.Node
}

// New creates and returns an initialized in-memory Repository instance.
func New(logger kitlog.Logger) *Repository {
	return &Repository{
		logger:  logger,
		offline: make(map[string][]*stravaganza.Message),
		rooms:   make(map[string]*mucmodel.Room),
		nodes:   make(map[string]map[string]*pubsubmodel.Node),
	}
}

// InsertOfflineMessage satisfies repository.Offline interface.
func (r *Repository) InsertOfflineMessage(_ context.Context, message *stravaganza.Message, bareJID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline[bareJID] = append(r.offline[bareJID], message)
	return nil
}

// CountOfflineMessages satisfies repository.Offline interface.
func (r *Repository) CountOfflineMessages(_ context.Context, bareJID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.offline[bareJID]), nil
}

// FetchOfflineMessages satisfies repository.Offline interface.
func (r *Repository) FetchOfflineMessages(_ context.Context, bareJID string) ([]*stravaganza.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*stravaganza.Message(nil), r.offline[bareJID]...), nil
}

// DeleteOfflineMessages satisfies repository.Offline interface.
func (r *Repository) DeleteOfflineMessages(_ context.Context, bareJID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.offline, bareJID)
	return nil
}

// UpsertRoom satisfies repository.Room interface.
func (r *Repository) UpsertRoom(_ context.Context, room *mucmodel.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.JID] = room.Clone()
	return nil
}

// FetchRoom satisfies repository.Room interface.
func (r *Repository) FetchRoom(_ context.Context, roomJID string) (*mucmodel.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomJID]
	if !ok {
		return nil, nil
	}
	return room.Clone(), nil
}

// FetchRooms satisfies repository.Room interface.
func (r *Repository) FetchRooms(_ context.Context, host string) ([]*mucmodel.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rooms []*mucmodel.Room
	for roomJID, room := range r.rooms {
		j, err := jid.NewWithString(roomJID, true)
		if err != nil || j.Domain() != host {
			continue
		}
		rooms = append(rooms, room.Clone())
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].JID < rooms[j].JID })
	return rooms, nil
}

// DeleteRoom satisfies repository.Room interface.
func (r *Repository) DeleteRoom(_ context.Context, roomJID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomJID)
	return nil
}

// UpsertNode satisfies repository.PubSub interface.
func (r *Repository) UpsertNode(_ context.Context, node *pubsubmodel.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hostNodes := r.nodes[node.Host]
	if hostNodes == nil {
		hostNodes = make(map[string]*pubsubmodel.Node)
		r.nodes[node.Host] = hostNodes
	}
	hostNodes[node.ID] = node.Clone()
	return nil
}

// FetchNode satisfies repository.PubSub interface.
func (r *Repository) FetchNode(_ context.Context, host, nodeID string) (*pubsubmodel.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[host][nodeID]
	if !ok {
		return nil, nil
	}
	return node.Clone(), nil
}

// FetchNodes satisfies repository.PubSub interface.
func (r *Repository) FetchNodes(_ context.Context, host string) ([]*pubsubmodel.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var nodes []*pubsubmodel.Node
	for _, node := range r.nodes[host] {
		nodes = append(nodes, node.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// DeleteNode satisfies repository.PubSub interface.
func (r *Repository) DeleteNode(_ context.Context, host, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes[host], nodeID)
	return nil
}

// Start satisfies repository.Repository interface.
func (r *Repository) Start(_ context.Context) error {
	level.Info(r.logger).Log("msg", "started memory repository")
	return nil
}

// Stop satisfies repository.Repository interface.
func (r *Repository) Stop(_ context.Context) error {
	level.Info(r.logger).Log("msg", "stopped memory repository")
	return nil
}
