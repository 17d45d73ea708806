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

package mysqlrepository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sql-driver/mysql"
	"github.com/ortuman/kestrel/pkg/storage/repository"
)

// Type is MySQL repository type identifier.
const Type = "mysql"

var mysqlB = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type conn interface {
	sq.StdSqlCtx
}

// Config contains MySQL configuration value.
type Config struct {
	Host            string        `fig:"host" default:"localhost:3306"`
	User            string        `fig:"user"`
	Password        string        `fig:"password"`
	Database        string        `fig:"database"`
	MaxOpenConns    int           `fig:"max_open_conns"`
	MaxIdleConns    int           `fig:"max_idle_conns"`
	ConnMaxLifetime time.Duration `fig:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `fig:"conn_max_idle_time"`
}

// Repository represents a MySQL repository implementation.
type Repository struct {
	repository.Offline
	repository.Room
	repository.PubSub

	cfg    Config
	logger kitlog.Logger

	db *sql.DB
}

// New creates and returns an initialized MySQL Repository instance.
func New(cfg Config, logger kitlog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		logger: logger,
	}
}

// Start implements Start interface method.
func (r *Repository) Start(ctx context.Context) error {
	dsnCfg := mysql.NewConfig()
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = r.cfg.Host
	dsnCfg.User = r.cfg.User
	dsnCfg.Passwd = r.cfg.Password
	dsnCfg.DBName = r.cfg.Database
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("mysqlrepository: failed to start MySQL connection: %w", err)
	}
	r.db = db

	db.SetMaxIdleConns(r.cfg.MaxIdleConns)
	db.SetMaxOpenConns(r.cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(r.cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(r.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysqlrepository: unable to verify MySQL connection: %w", err)
	}
	level.Info(r.logger).Log("msg", "dialed MySQL connection", "host", r.cfg.Host)

	r.Offline = &mySQLOfflineRep{conn: db, logger: r.logger}
	r.Room = &mySQLRoomRep{conn: db, logger: r.logger}
	r.PubSub = &mySQLPubSubRep{conn: db, logger: r.logger}
	return nil
}

// Stop closes MySQL database and prevents new queries from starting.
func (r *Repository) Stop(_ context.Context) error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("mysqlrepository: failed to close MySQL connection: %w", err)
	}
	level.Info(r.logger).Log("msg", "closed MySQL connection", "host", r.cfg.Host)
	return nil
}

func closeRows(rows *sql.Rows, logger kitlog.Logger) {
	if err := rows.Close(); err != nil {
		level.Warn(logger).Log("msg", "failed to close SQL rows", "err", err)
	}
}
