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

package host

import (
	"crypto/tls"
	"sort"
	"strings"
	"sync"

	tlsutil "github.com/ortuman/kestrel/pkg/util/tls"
)

const defaultDomain = "localhost"

// Config contains host configuration parameters.
type Config struct {
	Domain string `fig:"domain"`
	TLS    struct {
		CertFile       string `fig:"cert_file"`
		PrivateKeyFile string `fig:"privkey_file"`
	} `fig:"tls"`
}

// Hosts type represents the set of domains served locally.
type Hosts struct {
	mu          sync.RWMutex
	defaultHost string
	certs       map[string]tls.Certificate
}

// NewHosts creates and initializes a Hosts instance.
// The first configured domain becomes the default host.
func NewHosts(cfgs []Config) (*Hosts, error) {
	hs := &Hosts{certs: make(map[string]tls.Certificate)}
	if len(cfgs) == 0 {
		cfgs = []Config{{Domain: defaultDomain}}
	}
	for _, cfg := range cfgs {
		cer, err := tlsutil.LoadCertificate(cfg.TLS.PrivateKeyFile, cfg.TLS.CertFile, cfg.Domain)
		if err != nil {
			return nil, err
		}
		hs.RegisterHost(cfg.Domain, cer)
	}
	return hs, nil
}

// RegisterHost registers a local domain along with its certificate.
// The first registered domain becomes the default one.
func (hs *Hosts) RegisterHost(domain string, cer tls.Certificate) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if len(hs.defaultHost) == 0 {
		hs.defaultHost = domain
	}
	hs.certs[domain] = cer
}

// DefaultHostName returns default host name value.
func (hs *Hosts) DefaultHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.defaultHost
}

// IsLocalHost tells whether domain is served locally.
func (hs *Hosts) IsLocalHost(domain string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.certs[domain]
	return ok
}

// HostNames returns the sorted list of local domains.
func (hs *Hosts) HostNames() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	ret := make([]string, 0, len(hs.certs))
	for d := range hs.certs {
		ret = append(ret, d)
	}
	sort.Strings(ret)
	return ret
}

// TLSConfig returns a server TLS configuration selecting the certificate by SNI.
// The default host certificate is used when the client sends no matching server name.
func (hs *Hosts) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			hs.mu.RLock()
			defer hs.mu.RUnlock()
			if cer, ok := hs.certs[strings.ToLower(hello.ServerName)]; ok {
				return &cer, nil
			}
			cer := hs.certs[hs.defaultHost]
			return &cer, nil
		},
	}
}

// ClientTLSConfig returns a TLS configuration used to dial serverName presenting the default host certificate.
func (hs *Hosts) ClientTLSConfig(serverName string) *tls.Config {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		ServerName:   serverName,
		Certificates: []tls.Certificate{hs.certs[hs.defaultHost]},
	}
}
