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

package pubsub

import (
	"context"
	"sync"

	pubsubmodel "github.com/ortuman/kestrel/pkg/model/pubsub"
)

// nodeRepositoryMock is a mock implementation of nodeRepository.
type nodeRepositoryMock struct {
	UpsertNodeFunc func(ctx context.Context, node *pubsubmodel.Node) error
	FetchNodeFunc  func(ctx context.Context, host, nodeID string) (*pubsubmodel.Node, error)
	FetchNodesFunc func(ctx context.Context, host string) ([]*pubsubmodel.Node, error)
	DeleteNodeFunc func(ctx context.Context, host, nodeID string) error

	mu    sync.Mutex
	calls struct {
		UpsertNode []*pubsubmodel.Node
		DeleteNode []string
	}
}

func (m *nodeRepositoryMock) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	m.mu.Lock()
	m.calls.UpsertNode = append(m.calls.UpsertNode, node)
	m.mu.Unlock()
	if m.UpsertNodeFunc == nil {
		return nil
	}
	return m.UpsertNodeFunc(ctx, node)
}

func (m *nodeRepositoryMock) FetchNode(ctx context.Context, host, nodeID string) (*pubsubmodel.Node, error) {
	if m.FetchNodeFunc == nil {
		return nil, nil
	}
	return m.FetchNodeFunc(ctx, host, nodeID)
}

func (m *nodeRepositoryMock) FetchNodes(ctx context.Context, host string) ([]*pubsubmodel.Node, error) {
	if m.FetchNodesFunc == nil {
		return nil, nil
	}
	return m.FetchNodesFunc(ctx, host)
}

func (m *nodeRepositoryMock) DeleteNode(ctx context.Context, host, nodeID string) error {
	m.mu.Lock()
	m.calls.DeleteNode = append(m.calls.DeleteNode, host+"/"+nodeID)
	m.mu.Unlock()
	if m.DeleteNodeFunc == nil {
		return nil
	}
	return m.DeleteNodeFunc(ctx, host, nodeID)
}

// UpsertNodeCalls returns the nodes passed to UpsertNode.
func (m *nodeRepositoryMock) UpsertNodeCalls() []*pubsubmodel.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pubsubmodel.Node(nil), m.calls.UpsertNode...)
}

// DeleteNodeCalls returns the host/node pairs passed to DeleteNode.
func (m *nodeRepositoryMock) DeleteNodeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls.DeleteNode...)
}
