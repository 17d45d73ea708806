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
	"errors"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/sony/gobreaker"
)

const defaultMaxFailures = 5

// OutProvider is the federation link towards remote domains.
// It keeps one outgoing stream per remote domain, dialed on demand, and guards every domain with its own
// circuit breaker so that unreachable servers are not dialed on each delivery attempt.
type OutProvider struct {
	cfg     OutConfig
	hosts   *host.Hosts
	shapers shaperRules
	hk      *hook.Hooks
	logger  kitlog.Logger

	mu         sync.RWMutex
	outStreams map[string]s2sOut
	breakers   map[string]*gobreaker.CircuitBreaker
	doneCh     chan chan struct{}

	newOutFn func(target string) s2sOut
}

// NewOutProvider creates and initializes a new OutProvider instance.
func NewOutProvider(
	cfg OutConfig,
	hosts *host.Hosts,
	shapers *shaper.Rules,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *OutProvider {
	op := &OutProvider{
		cfg:        cfg,
		hosts:      hosts,
		shapers:    shapers,
		hk:         hk,
		logger:     kitlog.With(logger, "component", "s2s_out"),
		outStreams: make(map[string]s2sOut),
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
		doneCh:     make(chan chan struct{}),
	}
	op.newOutFn = op.newOutS2S
	return op
}

// Send hands stanza over to the outgoing stream associated to its destination domain.
func (p *OutProvider) Send(ctx context.Context, stanza stravaganza.Stanza) error {
	target := stanza.ToJID().Domain()

	_, err := p.breaker(target).Execute(func() (interface{}, error) {
		stm, err := p.getOut(ctx, target)
		if err != nil {
			return nil, err
		}
		select {
		case err := <-stm.SendElement(stanza):
			return nil, err
		case <-ctx.Done():
			return nil, router.ErrRemoteServerTimeout
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", router.ErrRemoteServerNotFound, err)
	}
	return err
}

// Start starts S2S out provider.
func (p *OutProvider) Start(_ context.Context) error {
	go p.reportMetrics()
	level.Info(p.logger).Log("msg", "started S2S out provider")
	return nil
}

// Stop disconnects all outgoing streams.
func (p *OutProvider) Stop(ctx context.Context) error {
	// stop metrics reporting
	ch := make(chan struct{})
	p.doneCh <- ch
	<-ch

	p.mu.RLock()
	stms := make([]s2sOut, 0, len(p.outStreams))
	for _, stm := range p.outStreams {
		stms = append(stms, stm)
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range stms {
		wg.Add(1)
		go func(stm s2sOut) {
			defer wg.Done()
			select {
			case <-stm.Disconnect(streamerror.E(streamerror.SystemShutdown)):
			case <-ctx.Done():
			}
		}(s)
	}
	wg.Wait()

	level.Info(p.logger).Log("msg", "stopped S2S out provider", "total_connections", len(stms))
	return nil
}

func (p *OutProvider) getOut(ctx context.Context, target string) (s2sOut, error) {
	p.mu.RLock()
	outStm := p.outStreams[target]
	p.mu.RUnlock()

	if outStm != nil {
		return outStm, nil
	}
	p.mu.Lock()
	outStm = p.outStreams[target] // 2nd check
	if outStm != nil {
		p.mu.Unlock()
		return outStm, nil
	}
	outStm = p.newOutFn(target)
	p.outStreams[target] = outStm
	p.mu.Unlock()

	if err := outStm.dial(ctx); err != nil {
		p.remove(target, outStm)
		level.Warn(p.logger).Log("msg", "failed to dial outgoing S2S stream", "target", target, "err", err)
		return nil, err
	}
	go func() {
		if err := outStm.start(); err != nil {
			p.remove(target, outStm)
			level.Warn(p.logger).Log("msg", "failed to start outgoing S2S stream", "target", target, "err", err)
		}
	}()
	return outStm, nil
}

func (p *OutProvider) breaker(target string) *gobreaker.CircuitBreaker {
	p.mu.RLock()
	cb := p.breakers[target]
	p.mu.RUnlock()
	if cb != nil {
		return cb
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb := p.breakers[target]; cb != nil {
		return cb
	}
	maxFailures := p.cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    target,
		Timeout: p.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level.Info(p.logger).Log("msg", "remote domain circuit state changed", "target", name, "from", from.String(), "to", to.String())
			reportCircuitStateChange(to.String())
		},
	})
	p.breakers[target] = cb
	return cb
}

func (p *OutProvider) remove(target string, stm s2sOut) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outStreams[target] == stm {
		delete(p.outStreams, target)
	}
}

func (p *OutProvider) newOutS2S(target string) s2sOut {
	return newOutS2S(
		outConfig{
			dialTimeout:      p.cfg.DialTimeout,
			keepAliveTimeout: p.cfg.KeepAliveTimeout,
			reqTimeout:       p.cfg.RequestTimeout,
			maxStanzaSize:    p.cfg.MaxStanzaSize,
			shaperClass:      p.cfg.Shaper,
		},
		p.hosts.DefaultHostName(),
		target,
		p.hosts.ClientTLSConfig(target),
		p.hosts,
		p.shapers,
		p.hk,
		p.logger,
		func(stm *outS2S) { p.remove(stm.target, stm) },
	)
}

func (p *OutProvider) reportMetrics() {
	tc := time.NewTicker(reportTotalConnectionsInterval)
	defer tc.Stop()

	for {
		select {
		case <-tc.C:
			p.mu.RLock()
			totalConns := len(p.outStreams)
			p.mu.RUnlock()
			reportTotalOutgoingConnections(totalConns)

		case ch := <-p.doneCh:
			close(ch)
			return
		}
	}
}
