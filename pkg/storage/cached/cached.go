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
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	rediscache "github.com/ortuman/kestrel/pkg/storage/cached/redis"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

// Config contains cached repository configuration.
type Config struct {
	Type  string            `fig:"type"`
	Redis rediscache.Config `fig:"redis"`
}

// Cache defines cache store interface.
type Cache interface {
	// Type identifies underlying cache store type.
	Type() string

	// Get retrieves k value from the cache store.
	// If not present nil will be returned.
	Get(ctx context.Context, ns, key string) ([]byte, error)

	// Put stores a value into the cache store.
	Put(ctx context.Context, ns, key string, val []byte) error

	// Del removes keys values from the cache store.
	Del(ctx context.Context, ns string, keys ...string) error

	// DelNS removes all keys contained under a given namespace from the cache store.
	DelNS(ctx context.Context, ns string) error

	// HasKey tells whether k is present in the cache store.
	HasKey(ctx context.Context, ns, key string) (bool, error)

	// Start starts Cache component.
	Start(ctx context.Context) error

	// Stop stops Cache component.
	Stop(ctx context.Context) error
}

// CachedRepository is cached Repository implementation.
// Rooms are read through the cache while offline queues and pubsub nodes always hit the
// underlying repository.
type CachedRepository struct {
	repository.Offline
	repository.Room
	repository.PubSub

	rep repository.Repository

	cache  Cache
	logger kitlog.Logger
}

// New returns a new initialized CachedRepository instance.
func New(cfg Config, rep repository.Repository, logger kitlog.Logger) (repository.Repository, error) {
	if cfg.Type != rediscache.Type {
		return nil, fmt.Errorf("cachedrepository: unrecognized repository cache type: %s", cfg.Type)
	}
	return newCachedRepository(rediscache.New(cfg.Redis, logger), rep, logger), nil
}

func newCachedRepository(c Cache, rep repository.Repository, logger kitlog.Logger) *CachedRepository {
	return &CachedRepository{
		Offline: rep,
		Room:    &cachedRoomRep{c: c, rep: rep, logger: logger},
		PubSub:  rep,
		rep:     rep,
		cache:   c,
		logger:  logger,
	}
}

// Start starts cached repository component.
func (c *CachedRepository) Start(ctx context.Context) error {
	if err := c.cache.Start(ctx); err != nil {
		return err
	}
	level.Info(c.logger).Log("msg", "started cached repository", "type", c.cache.Type())
	return c.rep.Start(ctx)
}

// Stop stops cached repository component.
func (c *CachedRepository) Stop(ctx context.Context) error {
	if err := c.cache.Stop(ctx); err != nil {
		return err
	}
	level.Info(c.logger).Log("msg", "stopped cached repository", "type", c.cache.Type())
	return c.rep.Stop(ctx)
}
