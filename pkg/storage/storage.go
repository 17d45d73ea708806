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

package storage

import (
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/ortuman/kestrel/pkg/storage/boltdb"
	cachedrepository "github.com/ortuman/kestrel/pkg/storage/cached"
	measuredrepository "github.com/ortuman/kestrel/pkg/storage/measured"
	memoryrepository "github.com/ortuman/kestrel/pkg/storage/memory"
	mysqlrepository "github.com/ortuman/kestrel/pkg/storage/mysql"
	pgsqlrepository "github.com/ortuman/kestrel/pkg/storage/pgsql"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

// Config contains storage configuration.
type Config struct {
	Type   string                  `fig:"type" default:"memory"`
	BoltDB boltdb.Config           `fig:"boltdb"`
	PgSQL  pgsqlrepository.Config  `fig:"pgsql"`
	MySQL  mysqlrepository.Config  `fig:"mysql"`
	Cache  cachedrepository.Config `fig:"cache"`
}

// New returns the repository selected by cfg.
// When a cache type is configured the repository is read through it.
func New(cfg Config, logger kitlog.Logger) (repository.Repository, error) {
	var rep repository.Repository

	switch cfg.Type {
	case memoryrepository.Type:
		rep = memoryrepository.New(logger)
	case boltdb.Type:
		rep = boltdb.New(cfg.BoltDB, logger)
	case pgsqlrepository.Type:
		rep = pgsqlrepository.New(cfg.PgSQL, logger)
	case mysqlrepository.Type:
		rep = mysqlrepository.New(cfg.MySQL, logger)
	default:
		return nil, fmt.Errorf("storage: unrecognized repository type: %s", cfg.Type)
	}
	if len(cfg.Cache.Type) > 0 {
		var err error
		rep, err = cachedrepository.New(cfg.Cache, rep, logger)
		if err != nil {
			return nil, err
		}
	}
	return measuredrepository.New(rep), nil
}
