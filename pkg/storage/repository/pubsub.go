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

	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
)

// PubSub defines storage operations for publish-subscribe nodes.
type PubSub interface {
	// UpsertNode inserts a node entity into storage, or updates it if was previously inserted.
	UpsertNode(ctx context.Context, node *pubsubmodel.Node) error

	// FetchNode retrieves a node entity from storage. Nil is returned if not found.
	FetchNode(ctx context.Context, host, nodeID string) (*pubsubmodel.Node, error)

	// FetchNodes retrieves all nodes hosted by a pubsub service domain.
	FetchNodes(ctx context.Context, host string) ([]*pubsubmodel.Node, error)

	// DeleteNode deletes a node entity from storage.
	DeleteNode(ctx context.Context, host, nodeID string) error
}
