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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
logger:
  level: warn
http:
  port: 6061
hosts:
  - domain: localhost
acl:
  groups:
    admins: ["ortuman@jackal.im"]
  rules:
    c2s: [{match: all, action: allow}]
    s2s: [{match: "server:capulet.lit", action: allow}]
shapers:
  profiles:
    - {name: normal, rate: 3000, burst_size: 20000}
    - {name: none, unlimited: true}
  rules:
    c2s_shaper: [{match: "group:admins", profile: none}, {match: all, profile: normal}]
    s2s_shaper: [{match: all, profile: none}]
c2s:
  listeners:
    - port: 5222
      max_sessions: 5
    - transport: websocket
s2s:
  listeners:
    - port: 5269
  out:
    dial_timeout: 2s
modules:
  enabled: [offline, muc, ping]
  offline:
    queue_size: 500
  muc:
    host: conference.jackal.im
`

func TestConfig_Load(t *testing.T) {
	// given
	cfgFile := writeTestConfig(t, testConfigYAML)

	// when
	cfg, err := LoadConfig(cfgFile)

	// then
	require.Nil(t, err)
	require.Equal(t, "warn", cfg.Logger.Level)
	require.Equal(t, "logfmt", cfg.Logger.Format)
	require.Equal(t, 6061, cfg.HTTP.Port)
	require.Equal(t, "/xmpp-websocket", cfg.HTTP.WebSocketPath)
	require.Equal(t, "memory", cfg.Storage.Type)
	require.Equal(t, "local", cfg.Locker.Type)

	require.Len(t, cfg.C2S.Listeners, 2)
	require.Equal(t, 5, cfg.C2S.Listeners[0].MaxSessions)
	require.Equal(t, "websocket", cfg.C2S.Listeners[1].Transport)

	require.Equal(t, 2*time.Second, cfg.S2S.Out.DialTimeout)
	require.Equal(t, 500, cfg.Modules.Offline.QueueSize)
	require.Equal(t, "conference.jackal.im", cfg.Modules.MUC.Host)
	require.Equal(t, []string{"offline", "muc", "ping"}, cfg.Modules.Enabled)
}

func TestConfig_EnvOverride(t *testing.T) {
	// given
	cfgFile := writeTestConfig(t, "http:\n  port: 7070\n")
	t.Setenv(EnvConfigFile, cfgFile)

	// when
	cfg, err := LoadConfig("unknown/config.yaml")

	// then
	require.Nil(t, err)
	require.Equal(t, 7070, cfg.HTTP.Port)
}

func TestConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(cfgFile, []byte(content), 0o600))
	return cfgFile
}
