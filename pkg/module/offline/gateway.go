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

package offline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/sony/gobreaker"
)

// GatewayConfig contains offline HTTP gateway configuration.
type GatewayConfig struct {
	URL     string        `fig:"url"`
	Auth    string        `fig:"auth"`
	Timeout time.Duration `fig:"timeout" default:"5s"`
}

type gateway interface {
	Route(ctx context.Context, msg *stravaganza.Message) error
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpGateway struct {
	url       string
	authToken string
	cb        *gobreaker.CircuitBreaker
	client    httpClient
}

func newHTTPGateway(cfg GatewayConfig) *httpGateway {
	return &httpGateway{
		url:       cfg.URL,
		authToken: cfg.Auth,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "offline_gateway",
		}),
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *httpGateway) Route(ctx context.Context, msg *stravaganza.Message) error {
	buf := bytes.NewBuffer(nil)
	if err := msg.ToXML(buf, true); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	if len(g.authToken) > 0 {
		req.Header.Set("Authorization", g.authToken)
	}
	_, err = g.cb.Execute(func() (interface{}, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("offline: gateway response status code: %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
