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
	"context"
	"errors"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/ortuman/kestrel/pkg/module/muc"
	"github.com/ortuman/kestrel/pkg/module/offline"
	"github.com/stretchr/testify/require"
)

func TestKestrel_CheckConfig(t *testing.T) {
	// given
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	require.Nil(t, err)

	k := New(cfg, kitlog.NewNopLogger())

	// when
	err = k.init()

	// then
	require.Nil(t, err)
	require.NotNil(t, k.offline)
	require.NotNil(t, k.wsHnd)
	require.True(t, k.wsHnd.IsWebSocket())
	require.Equal(t, "localhost", k.hosts.DefaultHostName())

	require.Len(t, k.starters, len(k.stoppers))
	require.Equal(t, k.starters[0], k.stoppers[len(k.stoppers)-1]) // repository starts first and stops last
}

func TestKestrel_DefaultModules(t *testing.T) {
	// given
	cfg, err := LoadConfig(writeTestConfig(t, "hosts: [{domain: localhost}]\n"))
	require.Nil(t, err)

	// when
	err = CheckConfig(cfg)

	// then
	require.Nil(t, err)
	require.Contains(t, defaultModules, offline.ModuleName)
	require.Contains(t, defaultModules, muc.ModuleName)
	for _, mName := range defaultModules {
		require.Contains(t, modFns, mName)
	}
}

func TestKestrel_InvalidConfig(t *testing.T) {
	var tests = []struct {
		name string
		yaml string
	}{
		{name: "UnknownModule", yaml: "modules:\n  enabled: [offline, mam]\n"},
		{name: "UnknownLocker", yaml: "locker:\n  type: zookeeper\n"},
		{name: "UnknownStorage", yaml: "storage:\n  type: cassandra\n"},
		{name: "BadACLRule", yaml: "acl:\n  rules:\n    c2s: [{match: everyone}]\n"},
		{name: "UnknownShaperProfile", yaml: "shapers:\n  rules:\n    c2s_shaper: [{match: all, profile: turbo}]\n"},
		{name: "BadPasswordHash", yaml: "auth:\n  users:\n    ortuman: plaintext\n"},
		{name: "TwoWebSocketListeners", yaml: "c2s:\n  listeners:\n    - transport: websocket\n    - transport: websocket\n      port: 5280\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			cfg, err := LoadConfig(writeTestConfig(t, "hosts: [{domain: localhost}]\n"+tt.yaml))
			require.Nil(t, err)

			// when
			err = CheckConfig(cfg)

			// then
			require.NotNil(t, err)
		})
	}
}

func TestKestrel_ShutdownOrder(t *testing.T) {
	// given
	var stopped []string
	k := New(&Config{}, kitlog.NewNopLogger())
	for _, name := range []string{"repository", "modules", "listener"} {
		k.registerStartStopper(&startStopperMock{name: name, stopped: &stopped})
	}

	// when
	err := k.shutdown()

	// then
	require.Nil(t, err)
	require.Equal(t, []string{"listener", "modules", "repository"}, stopped)
}

func TestKestrel_BootstrapError(t *testing.T) {
	// given
	var stopped []string
	k := New(&Config{}, kitlog.NewNopLogger())
	k.registerStartStopper(&startStopperMock{name: "repository", stopped: &stopped, startErr: errors.New("connection refused")})
	k.registerStartStopper(&startStopperMock{name: "listener", stopped: &stopped})

	// when
	err := k.bootstrap()

	// then
	require.EqualError(t, err, "connection refused")
	require.False(t, k.starters[1].(*startStopperMock).started)
}

type startStopperMock struct {
	name     string
	startErr error
	started  bool
	stopped  *[]string
}

func (m *startStopperMock) Start(_ context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *startStopperMock) Stop(_ context.Context) error {
	*m.stopped = append(*m.stopped, m.name)
	return nil
}
