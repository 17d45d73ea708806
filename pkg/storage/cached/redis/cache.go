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

package rediscache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cespare/xxhash/v2"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
)

// Type is redis type identifier.
const Type = "redis"

// Config contains Redis cache configuration.
type Config struct {
	SRV          string        `fig:"srv"`
	Addresses    []string      `fig:"addresses"`
	Username     string        `fig:"username"`
	Password     string        `fig:"password"`
	DB           int           `fig:"db"`
	DialTimeout  time.Duration `fig:"dial_timeout" default:"3s"`
	ReadTimeout  time.Duration `fig:"read_timeout" default:"5s"`
	WriteTimeout time.Duration `fig:"write_timeout" default:"5s"`
	TTL          time.Duration `fig:"ttl" default:"24h"`
}

// Cache is Redis cache implementation.
type Cache struct {
	cfg     Config
	clients []redis.Cmdable
	closers []func() error
	logger  kitlog.Logger

	lookupSRV func(service, proto, name string) (string, []*net.SRV, error)
}

// New creates and returns an initialized Redis Cache instance.
func New(cfg Config, logger kitlog.Logger) *Cache {
	return &Cache{
		cfg:       cfg,
		logger:    logger,
		lookupSRV: net.LookupSRV,
	}
}

// Type satisfies Cache interface.
func (c *Cache) Type() string { return Type }

// Get satisfies Cache interface.
func (c *Cache) Get(ctx context.Context, ns, key string) ([]byte, error) {
	val, err := c.pickClient(ns).HGet(ctx, ns, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}

// Put satisfies Cache interface.
func (c *Cache) Put(ctx context.Context, ns, key string, val []byte) error {
	cl := c.pickClient(ns)
	if err := cl.HSet(ctx, ns, key, val).Err(); err != nil {
		return err
	}
	return cl.Expire(ctx, ns, c.cfg.TTL).Err()
}

// Del satisfies Cache interface.
func (c *Cache) Del(ctx context.Context, ns string, keys ...string) error {
	return c.pickClient(ns).HDel(ctx, ns, keys...).Err()
}

// DelNS removes all keys contained under a given namespace from the cache store.
func (c *Cache) DelNS(ctx context.Context, ns string) error {
	return c.pickClient(ns).Del(ctx, ns).Err()
}

// HasKey satisfies Cache interface.
func (c *Cache) HasKey(ctx context.Context, ns, key string) (bool, error) {
	res := c.pickClient(ns).HExists(ctx, ns, key)
	if err := res.Err(); err != nil {
		return false, err
	}
	return res.Val(), nil
}

// Start satisfies Cache interface.
func (c *Cache) Start(ctx context.Context) error {
	addrs, err := c.addresses()
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			Username:     c.cfg.Username,
			Password:     c.cfg.Password,
			DB:           c.cfg.DB,
			DialTimeout:  c.cfg.DialTimeout,
			ReadTimeout:  c.cfg.ReadTimeout,
			WriteTimeout: c.cfg.WriteTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return err
		}
		c.clients = append(c.clients, client)
		c.closers = append(c.closers, client.Close)
	}
	level.Info(c.logger).Log("msg", "connected to redis", "addresses", len(addrs))
	return nil
}

// Stop satisfies Cache interface.
func (c *Cache) Stop(_ context.Context) error {
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) addresses() ([]string, error) {
	if len(c.cfg.Addresses) > 0 {
		return c.cfg.Addresses, nil
	}
	if len(c.cfg.SRV) == 0 {
		return nil, errors.New("rediscache: no addresses configured")
	}
	_, records, err := c.lookupSRV("", "", c.cfg.SRV)
	if err != nil {
		return nil, fmt.Errorf("rediscache: failed to resolve %s: %w", c.cfg.SRV, err)
	}
	addrs := make([]string, 0, len(records))
	for _, rec := range records {
		addrs = append(addrs, net.JoinHostPort(rec.Target, fmt.Sprintf("%d", rec.Port)))
	}
	return addrs, nil
}

func (c *Cache) pickClient(ns string) redis.Cmdable {
	if len(c.clients) == 1 {
		return c.clients[0]
	}
	idx := jumpHash(xxhash.Sum64String(ns), len(c.clients))
	return c.clients[idx]
}

// jumpHash implements Lamping and Veach's jump consistent hash.
func jumpHash(key uint64, buckets int) int {
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(b)
}
