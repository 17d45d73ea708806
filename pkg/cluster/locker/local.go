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

package locker

import (
	"context"
	"sync"
)

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process Locker keeping one mutex per lock identifier.
// Mutexes are released from memory once no goroutine holds or waits for them.
type Local struct {
	mu   sync.Mutex
	keys map[string]*keyedMutex
}

// NewLocal returns a new initialized Local locker.
func NewLocal() *Local {
	return &Local{keys: make(map[string]*keyedMutex)}
}

// AcquireLock acquires lockID lock.
func (l *Local) AcquireLock(ctx context.Context, lockID string) (Lock, error) {
	l.mu.Lock()
	km := l.keys[lockID]
	if km == nil {
		km = &keyedMutex{ch: make(chan struct{}, 1)}
		l.keys[lockID] = km
	}
	km.refs++
	l.mu.Unlock()

	select {
	case km.ch <- struct{}{}:
		return &localLock{l: l, id: lockID, km: km}, nil
	case <-ctx.Done():
		l.unref(lockID, km)
		return nil, ctx.Err()
	}
}

// Start satisfies Locker interface.
func (l *Local) Start(_ context.Context) error { return nil }

// Stop satisfies Locker interface.
func (l *Local) Stop(_ context.Context) error { return nil }

func (l *Local) unref(lockID string, km *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	km.refs--
	if km.refs == 0 {
		delete(l.keys, lockID)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

type localLock struct {
	l        *Local
	id       string
	km       *keyedMutex
	released sync.Once
}

func (ll *localLock) Release(_ context.Context) error {
	ll.released.Do(func() {
		<-ll.km.ch
		ll.l.unref(ll.id, ll.km)
	})
	return nil
}
