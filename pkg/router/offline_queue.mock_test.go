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

package router

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// OfflineQueueMock is a mock implementation of OfflineQueue.
type OfflineQueueMock struct {
	EnqueueFunc func(ctx context.Context, msg *stravaganza.Message) error

	calls struct {
		Enqueue []*stravaganza.Message
	}
}

func (m *OfflineQueueMock) Enqueue(ctx context.Context, msg *stravaganza.Message) error {
	m.calls.Enqueue = append(m.calls.Enqueue, msg)
	return m.EnqueueFunc(ctx, msg)
}

// EnqueueCalls returns the messages passed to Enqueue.
func (m *OfflineQueueMock) EnqueueCalls() []*stravaganza.Message { return m.calls.Enqueue }
