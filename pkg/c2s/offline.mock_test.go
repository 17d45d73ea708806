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

package c2s

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// offlineMock is a mock implementation of offlineQueue.
type offlineMock struct {
	DrainFunc func(
		ctx context.Context,
		j *jid.JID,
		deliver func(ctx context.Context, msg *stravaganza.Message) error,
		commit func(),
	) error
	WithQueueLockFunc func(ctx context.Context, j *jid.JID, fn func(ctx context.Context)) error
}

func (m *offlineMock) Drain(
	ctx context.Context,
	j *jid.JID,
	deliver func(ctx context.Context, msg *stravaganza.Message) error,
	commit func(),
) error {
	return m.DrainFunc(ctx, j, deliver, commit)
}

func (m *offlineMock) WithQueueLock(ctx context.Context, j *jid.JID, fn func(ctx context.Context)) error {
	if m.WithQueueLockFunc == nil {
		fn(ctx)
		return nil
	}
	return m.WithQueueLockFunc(ctx, j, fn)
}
