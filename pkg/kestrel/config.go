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

package kestrel

import (
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/auth"
	"github.com/ortuman/kestrel/pkg/c2s"
	"github.com/ortuman/kestrel/pkg/cluster/etcd"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/log"
	"github.com/ortuman/kestrel/pkg/module/muc"
	"github.com/ortuman/kestrel/pkg/module/offline"
	"github.com/ortuman/kestrel/pkg/module/pubsub"
	"github.com/ortuman/kestrel/pkg/module/roster"
	"github.com/ortuman/kestrel/pkg/module/xep0092"
	"github.com/ortuman/kestrel/pkg/module/xep0199"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/s2s"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/storage"
	"github.com/pkg/errors"
)

// EnvConfigFile names the environment variable overriding the configuration file path.
const EnvConfigFile = "KESTREL_CONFIG_FILE"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	Port int `fig:"port" default:"6060"`

	// WebSocketPath is the path where WebSocket C2S listeners are mounted.
	WebSocketPath string `fig:"websocket_path" default:"/xmpp-websocket"`
}

// LockerConfig contains account locker configuration.
type LockerConfig struct {
	// Type defines locker type. Valid values are `local` and `etcd`.
	Type string      `fig:"type" default:"local"`
	Etcd etcd.Config `fig:"etcd"`
}

// ModulesConfig contains modules configuration.
type ModulesConfig struct {
	// Enabled defines total set of enabled modules
	Enabled []string `fig:"enabled"`

	// Offline offline storage
	Offline offline.Config `fig:"offline"`

	// MUC multi-user chat service
	MUC muc.Config `fig:"muc"`

	// PubSub publish-subscribe service
	PubSub pubsub.Config `fig:"pubsub"`

	// Roster shared roster groups
	Roster roster.Config `fig:"roster"`

	// XEP-0092: Software Version
	Version xep0092.Config `fig:"version"`

	// XEP-0199: XMPP Ping
	Ping xep0199.Config `fig:"ping"`
}

// Config contains kestrel configuration.
type Config struct {
	Logger log.Config `fig:"logger"`
	HTTP   HTTPConfig `fig:"http"`

	Hosts   []host.Config     `fig:"hosts"`
	Auth    auth.StaticConfig `fig:"auth"`
	ACL     acl.Config        `fig:"acl"`
	Shapers shaper.Config     `fig:"shapers"`
	Router  router.Config     `fig:"router"`
	Storage storage.Config    `fig:"storage"`
	Locker  LockerConfig      `fig:"locker"`

	C2S     c2s.Config    `fig:"c2s"`
	S2S     s2s.Config    `fig:"s2s"`
	Modules ModulesConfig `fig:"modules"`
}

// LoadConfig reads configFile into a new Config value.
// The EnvConfigFile environment variable, when set, takes precedence over configFile.
func LoadConfig(configFile string) (*Config, error) {
	if envCfgFile := os.Getenv(EnvConfigFile); len(envCfgFile) > 0 {
		configFile = envCfgFile
	}
	var cfg Config
	file := filepath.Base(configFile)
	dir := filepath.Dir(configFile)

	if err := fig.Load(&cfg, fig.File(file), fig.Dirs(dir)); err != nil {
		return nil, errors.Wrapf(err, "kestrel: failed to load config file %s", configFile)
	}
	return &cfg, nil
}
