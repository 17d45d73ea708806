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

package s2s

import (
	"time"
)

// Config contains S2S subsystem configuration.
type Config struct {
	Listeners ListenersConfig `fig:"listeners"`
	Out       OutConfig       `fig:"out"`
}

// ListenersConfig defines a set of S2S listener configurations.
type ListenersConfig []ListenerConfig

// ListenerConfig defines S2S listener configuration.
type ListenerConfig struct {
	// BindAddr defines listener incoming connections address.
	BindAddr string `fig:"bind_addr"`

	// Port defines listener incoming connections port.
	Port int `fig:"port" default:"5269"`

	// DirectTLS, if true, tls.Listen will be used as network listener.
	DirectTLS bool `fig:"direct_tls"`

	// Access names the access rule list evaluated against the remote domain.
	Access string `fig:"access" default:"s2s"`

	// Shaper names the shaper rule list used to choose the connection shaper profile.
	Shaper string `fig:"shaper" default:"s2s_shaper"`

	// AcceptRate limits the number of accepted connections per second. Zero disables the limit.
	AcceptRate float64 `fig:"accept_rate"`

	// AcceptBurst is the maximum number of connections accepted at once when AcceptRate is set.
	AcceptBurst int `fig:"accept_burst" default:"10"`

	// ConnectTimeout defines connection timeout.
	ConnectTimeout time.Duration `fig:"conn_timeout" default:"3s"`

	// KeepAliveTimeout defines stream read timeout.
	KeepAliveTimeout time.Duration `fig:"keep_alive_timeout" default:"10m"`

	// RequestTimeout defines S2S stream request timeout.
	RequestTimeout time.Duration `fig:"req_timeout" default:"15s"`

	// MaxStanzaSize is the maximum size a listener incoming stanza may have.
	MaxStanzaSize int `fig:"max_stanza_size" default:"131072"`
}

// OutConfig defines S2S out configuration.
type OutConfig struct {
	// DialTimeout defines S2S out dialer timeout.
	DialTimeout time.Duration `fig:"dial_timeout" default:"5s"`

	// KeepAliveTimeout defines stream read timeout.
	KeepAliveTimeout time.Duration `fig:"keep_alive_timeout" default:"10m"`

	// RequestTimeout defines S2S stream request timeout.
	RequestTimeout time.Duration `fig:"req_timeout" default:"15s"`

	// MaxStanzaSize is the maximum size a listener incoming stanza may have.
	MaxStanzaSize int `fig:"max_stanza_size" default:"131072"`

	// Shaper names the shaper rule list applied to outgoing connections.
	Shaper string `fig:"shaper" default:"s2s_shaper"`

	// MaxFailures is the number of consecutive delivery failures that opens a remote domain circuit.
	MaxFailures uint32 `fig:"max_failures" default:"5"`

	// OpenTimeout is the period an open circuit rejects deliveries before probing the remote domain again.
	OpenTimeout time.Duration `fig:"open_timeout" default:"1m"`
}
