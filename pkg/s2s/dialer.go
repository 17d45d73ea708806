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
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	netutil "github.com/ortuman/kestrel/pkg/util/net"
)

const (
	s2sService    = "xmpp-server"
	s2sTLSService = "xmpps-server"

	defaultS2SPort = "5269"

	outKeepAlive = time.Second * 15
)

var errNoSRVTarget = errors.New("s2s: failed to dial SRV")

//go:generate moq -out dialer.mock_test.go . dialer
type dialer interface {
	DialContext(ctx context.Context, remoteDomain string) (conn net.Conn, usesTLS bool, err error)
}

type srvResolveFunc func(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// outDialer resolves remote domains through RFC 6120 SRV records.
// Direct TLS records (XEP-0368) are preferred over plain ones, and the remote domain itself is dialed
// on the default port as a last resort.
type outDialer struct {
	srvResolve srvResolveFunc
	dialCtx    dialFunc
	dialTLSCtx dialFunc
}

func newDialer(timeout time.Duration, tlsCfg *tls.Config) *outDialer {
	d := net.Dialer{
		Timeout:   timeout,
		KeepAlive: outKeepAlive,
	}
	dTLS := tls.Dialer{
		NetDialer: &d,
		Config:    tlsCfg,
	}
	return &outDialer{
		srvResolve: netutil.NewSRVResolver(timeout).LookupSRV,
		dialCtx:    d.DialContext,
		dialTLSCtx: dTLS.DialContext,
	}
}

func (d *outDialer) DialContext(ctx context.Context, remoteDomain string) (conn net.Conn, usesTLS bool, err error) {
	conn, err = d.dialSRV(ctx, remoteDomain, s2sTLSService, d.dialTLSCtx)
	if err == nil {
		return conn, true, nil
	}
	conn, err = d.dialSRV(ctx, remoteDomain, s2sService, d.dialCtx)
	if err == nil {
		return conn, false, nil
	}
	conn, err = d.dialCtx(ctx, "tcp", net.JoinHostPort(remoteDomain, defaultS2SPort))
	return conn, false, err
}

func (d *outDialer) dialSRV(ctx context.Context, remoteDomain, service string, dialFn dialFunc) (net.Conn, error) {
	_, addrs, err := d.srvResolve(ctx, service, "tcp", remoteDomain)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if addr.Target == "." {
			return nil, errNoSRVTarget // service explicitly not available
		}
		host := strings.TrimSuffix(addr.Target, ".")
		port := strconv.Itoa(int(addr.Port))

		conn, err := dialFn(ctx, "tcp", net.JoinHostPort(host, port))
		if err == nil {
			return conn, nil
		}
	}
	return nil, errNoSRVTarget
}
