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

	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
	bolt "go.etcd.io/bbolt"
)

type boltDBPubSubRep struct {
	tx *bolt.Tx
}

func newPubSubRep(tx *bolt.Tx) *boltDBPubSubRep {
	return &boltDBPubSubRep{tx: tx}
}

func (r *boltDBPubSubRep) UpsertNode(_ context.Context, node *pubsubmodel.Node) error {
	op := upsertKeyOp{
		tx:     r.tx,
		bucket: nodesBucket(node.Host),
		key:    node.ID,
		obj:    node,
	}
	return op.do()
}

func (r *boltDBPubSubRep) FetchNode(_ context.Context, host, nodeID string) (*pubsubmodel.Node, error) {
	op := fetchKeyOp{
		tx:     r.tx,
		bucket: nodesBucket(host),
		key:    nodeID,
		obj:    &pubsubmodel.Node{},
	}
	obj, err := op.do()
	if err != nil || obj == nil {
		return nil, err
	}
	return obj.(*pubsubmodel.Node), nil
}

func (r *boltDBPubSubRep) FetchNodes(_ context.Context, host string) ([]*pubsubmodel.Node, error) {
	var nodes []*pubsubmodel.Node

	op := iterKeysOp{
		tx:     r.tx,
		bucket: nodesBucket(host),
		iterFn: func(_, b []byte) error {
			var node pubsubmodel.Node
			if err := node.UnmarshalBinary(b); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		},
	}
	if err := op.do(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *boltDBPubSubRep) DeleteNode(_ context.Context, host, nodeID string) error {
	op := delKeyOp{
		tx:     r.tx,
		bucket: nodesBucket(host),
		key:    nodeID,
	}
	return op.do()
}

func nodesBucket(host string) string {
	return fmt.Sprintf("pubsub:%s", host)
}

// UpsertNode satisfies repository.PubSub interface.
func (r *Repository) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newPubSubRep(tx).UpsertNode(ctx, node)
	})
}

// FetchNode satisfies repository.PubSub interface.
func (r *Repository) FetchNode(ctx context.Context, host, nodeID string) (node *pubsubmodel.Node, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		node, err = newPubSubRep(tx).FetchNode(ctx, host, nodeID)
		return err
	})
	return
}

// FetchNodes satisfies repository.PubSub interface.
func (r *Repository) FetchNodes(ctx context.Context, host string) (nodes []*pubsubmodel.Node, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		nodes, err = newPubSubRep(tx).FetchNodes(ctx, host)
		return err
	})
	return
}

// DeleteNode satisfies repository.PubSub interface.
func (r *Repository) DeleteNode(ctx context.Context, host, nodeID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newPubSubRep(tx).DeleteNode(ctx, host, nodeID)
	})
}
