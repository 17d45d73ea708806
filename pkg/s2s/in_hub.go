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
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"golang.org/x/sync/errgroup"
)

// InHub keeps track of the incoming S2S streams accepted by every listener.
type InHub struct {
	mu      sync.RWMutex
	streams map[string]s2sIn
	doneCh  chan chan struct{}
	logger  kitlog.Logger
}

// NewInHub creates and initializes a new InHub instance.
func NewInHub(logger kitlog.Logger) *InHub {
	return &InHub{
		streams: make(map[string]s2sIn),
		doneCh:  make(chan chan struct{}),
		logger:  logger,
	}
}

// Count returns the number of registered incoming streams.
func (h *InHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// Start starts InHub instance.
func (h *InHub) Start(_ context.Context) error {
	go h.reportMetrics()
	level.Info(h.logger).Log("msg", "started S2S in hub")
	return nil
}

// Stop disconnects every registered stream and waits until all of them are done or ctx expires.
func (h *InHub) Stop(ctx context.Context) error {
	// stop metrics reporting
	ch := make(chan struct{})
	h.doneCh <- ch
	<-ch

	h.mu.RLock()
	streams := make([]s2sIn, 0, len(h.streams))
	for _, stm := range h.streams {
		streams = append(streams, stm)
	}
	h.mu.RUnlock()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range streams {
		stm := s
		eg.Go(func() error {
			_ = stm.Disconnect(streamerror.E(streamerror.SystemShutdown))
			select {
			case <-stm.Done():
				return nil
			case <-egCtx.Done():
				return egCtx.Err()
			}
		})
	}
	err := eg.Wait()

	level.Info(h.logger).Log("msg", "stopped S2S in hub", "total_connections", len(streams))
	return err
}

func (h *InHub) register(stm s2sIn) {
	h.mu.Lock()
	h.streams[stm.ID()] = stm
	h.mu.Unlock()
}

func (h *InHub) unregister(stm s2sIn) {
	h.mu.Lock()
	delete(h.streams, stm.ID())
	h.mu.Unlock()
}

func (h *InHub) reportMetrics() {
	tc := time.NewTicker(reportTotalConnectionsInterval)
	defer tc.Stop()

	for {
		select {
		case <-tc.C:
			reportTotalIncomingConnections(h.Count())

		case ch := <-h.doneCh:
			close(ch)
			return
		}
	}
}
