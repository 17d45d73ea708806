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

package c2s

import "time"

// Config contains C2S subsystem configuration.
type Config struct {
	Listeners ListenersConfig `fig:"listeners"`
}

// ListenersConfig defines a set of C2S listener configurations.
type ListenersConfig []ListenerConfig

// ListenerConfig contains a C2S listener configuration.
type ListenerConfig struct {
	// BindAddr defines listener incoming connections address.
	BindAddr string `fig:"bind_addr"`

	// Port defines listener incoming connections port.
	Port int `fig:"port" default:"5222"`

	// Transport specifies the type of transport used for incoming connections.
	// Valid values are `socket` and `websocket`. WebSocket listeners are served by the HTTP server.
	Transport string `fig:"transport" default:"socket"`

	// DirectTLS, if true, tls.Listen will be used as network listener.
	DirectTLS bool `fig:"direct_tls"`

	// StartTLSRequired tells whether socket streams must be secured before authenticating.
	StartTLSRequired bool `fig:"starttls_required" default:"true"`

	// Shaper names the shaper rule list used to choose the connection shaper profile.
	Shaper string `fig:"shaper" default:"c2s_shaper"`

	// Access names the access rule list checked on login.
	Access string `fig:"access" default:"c2s"`

	// MaxSessions defines the maximum number of concurrent sessions per account.
	MaxSessions int `fig:"max_sessions" default:"10"`

	// ResourceConflict defines the which rule should be applied in a resource conflict is detected.
	// Valid values are `override`, `disallow` and `terminate_old`.
	ResourceConflict string `fig:"resource_conflict" default:"terminate_old"`

	// MaxStanzaSize is the maximum size a listener incoming stanza may have.
	MaxStanzaSize int `fig:"max_stanza_size" default:"65536"`

	// AcceptRate limits the number of accepted connections per second. Zero disables the limit.
	AcceptRate float64 `fig:"accept_rate"`

	// AcceptBurst is the maximum number of connections accepted at once when AcceptRate is set.
	AcceptBurst int `fig:"accept_burst" default:"10"`

	// AuthenticateTimeout defines authentication timeout.
	AuthenticateTimeout time.Duration `fig:"auth_timeout" default:"10s"`

	// KeepAliveTimeout defines the maximum amount of time that an inactive connection
	// would be considered alive.
	KeepAliveTimeout time.Duration `fig:"keep_alive_timeout" default:"3m"`

	// RequestTimeout defines C2S stream request timeout.
	RequestTimeout time.Duration `fig:"req_timeout" default:"15s"`
}
