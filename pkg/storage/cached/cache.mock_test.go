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

package cachedrepository

import (
	"context"
	"sync"
)

// cacheMock is a mock implementation of Cache.
type cacheMock struct {
	TypeFunc   func() string
	GetFunc    func(ctx context.Context, ns, key string) ([]byte, error)
	PutFunc    func(ctx context.Context, ns, key string, val []byte) error
	DelFunc    func(ctx context.Context, ns string, keys ...string) error
	DelNSFunc  func(ctx context.Context, ns string) error
	HasKeyFunc func(ctx context.Context, ns, key string) (bool, error)
	StartFunc  func(ctx context.Context) error
	StopFunc   func(ctx context.Context) error

	mu       sync.Mutex
	PutCalls []string
}

func (m *cacheMock) Type() string {
	if m.TypeFunc == nil {
		return "mock"
	}
	return m.TypeFunc()
}

func (m *cacheMock) Get(ctx context.Context, ns, key string) ([]byte, error) {
	if m.GetFunc == nil {
		panic("cacheMock.GetFunc: method is nil but Cache.Get was just called")
	}
	return m.GetFunc(ctx, ns, key)
}

func (m *cacheMock) Put(ctx context.Context, ns, key string, val []byte) error {
	m.mu.Lock()
	m.PutCalls = append(m.PutCalls, ns+"/"+key)
	m.mu.Unlock()
	if m.PutFunc == nil {
		return nil
	}
	return m.PutFunc(ctx, ns, key, val)
}

func (m *cacheMock) Del(ctx context.Context, ns string, keys ...string) error {
	if m.DelFunc == nil {
		panic("cacheMock.DelFunc: method is nil but Cache.Del was just called")
	}
	return m.DelFunc(ctx, ns, keys...)
}

func (m *cacheMock) DelNS(ctx context.Context, ns string) error {
	if m.DelNSFunc == nil {
		panic("cacheMock.DelNSFunc: method is nil but Cache.DelNS was just called")
	}
	return m.DelNSFunc(ctx, ns)
}

func (m *cacheMock) HasKey(ctx context.Context, ns, key string) (bool, error) {
	if m.HasKeyFunc == nil {
		panic("cacheMock.HasKeyFunc: method is nil but Cache.HasKey was just called")
	}
	return m.HasKeyFunc(ctx, ns, key)
}

func (m *cacheMock) Start(ctx context.Context) error {
	if m.StartFunc == nil {
		return nil
	}
	return m.StartFunc(ctx)
}

func (m *cacheMock) Stop(ctx context.Context) error {
	if m.StopFunc == nil {
		return nil
	}
	return m.StopFunc(ctx)
}
