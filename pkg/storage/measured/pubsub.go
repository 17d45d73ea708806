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

	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

type measuredPubSubRep struct {
	rep repository.PubSub
}

func (m *measuredPubSubRep) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	t0 := time.Now()
	err := m.rep.UpsertNode(ctx, node)
	reportOpMetric(upsertOp, time.Since(t0).Seconds(), err == nil)
	return err
}

func (m *measuredPubSubRep) FetchNode(ctx context.Context, host, nodeID string) (*pubsubmodel.Node, error) {
	t0 := time.Now()
	node, err := m.rep.FetchNode(ctx, host, nodeID)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil)
	return node, err
}

func (m *measuredPubSubRep) FetchNodes(ctx context.Context, host string) ([]*pubsubmodel.Node, error) {
	t0 := time.Now()
	nodes, err := m.rep.FetchNodes(ctx, host)
	reportOpMetric(fetchOp, time.Since(t0).Seconds(), err == nil)
	return nodes, err
}

func (m *measuredPubSubRep) DeleteNode(ctx context.Context, host, nodeID string) error {
	t0 := time.Now()
	err := m.rep.DeleteNode(ctx, host, nodeID)
	reportOpMetric(deleteOp, time.Since(t0).Seconds(), err == nil)
	return err
}
