// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package mysqlrepository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
)

const pubSubNodesTableName = "pubsub_nodes"

type mySQLPubSubRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *mySQLPubSubRep) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	b, err := node.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = mysqlB.Insert(pubSubNodesTableName).
		Columns("host", "node_id", "data").
		Values(node.Host, node.ID, b).
		Suffix("ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = NOW()").
		RunWith(r.conn).ExecContext(ctx)
	return err
}

func (r *mySQLPubSubRep) FetchNode(ctx context.Context, host, nodeID string) (*pubsubmodel.Node, error) {
	var b []byte

	err := mysqlB.Select("data").
		From(pubSubNodesTableName).
		Where(sq.And{sq.Eq{"host": host}, sq.Eq{"node_id": nodeID}}).
		RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&b)

	switch {
	case err == nil:
		var node pubsubmodel.Node
		if err := node.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return &node, nil

	case errors.Is(err, sql.ErrNoRows):
		return nil, nil

	default:
		return nil, err
	}
}

func (r *mySQLPubSubRep) FetchNodes(ctx context.Context, host string) ([]*pubsubmodel.Node, error) {
	rows, err := mysqlB.Select("data").
		From(pubSubNodesTableName).
		Where(sq.Eq{"host": host}).
		OrderBy("node_id").
		RunWith(r.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	var nodes []*pubsubmodel.Node
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		var node pubsubmodel.Node
		if err := node.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}

func (r *mySQLPubSubRep) DeleteNode(ctx context.Context, host, nodeID string) error {
	_, err := mysqlB.Delete(pubSubNodesTableName).
		Where(sq.And{sq.Eq{"host": host}, sq.Eq{"node_id": nodeID}}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}
