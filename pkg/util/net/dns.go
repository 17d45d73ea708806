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

package net

import (
	"context"
	"net"
	"time"
)

type lookupSRVFunc func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)

// SRVResolver defines a SRV dns resolver performing queries over TCP.
type SRVResolver struct {
	lookUpFn lookupSRVFunc
}

// NewSRVResolver creates and returns an initialized SRVResolver instance.
// Every resolution is bounded by timeout.
func NewSRVResolver(timeout time.Duration) *SRVResolver {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "tcp", address) // force SRV resolution over TCP
		},
	}
	return &SRVResolver{lookUpFn: r.LookupSRV}
}

// LookupSRV returns the records for the _service._proto.name SRV query sorted by priority
// and randomized by weight. A single "." target is returned as is.
func (r *SRVResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	cname, addrs, err := r.lookUpFn(ctx, service, proto, name)
	if err != nil {
		return "", nil, err
	}
	return cname, addrs, nil
}
