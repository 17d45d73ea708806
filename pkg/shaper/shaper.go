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

package shaper

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Shaper is a token bucket limiting the amount of traffic a connection can generate.
// Tokens are refilled continuously at Rate units per second up to BurstSize.
type Shaper struct {
	name string

	mu    sync.Mutex
	lim   *rate.Limiter
	nowFn func() time.Time
}

// New returns a new Shaper for the given profile. The bucket starts full.
func New(p Profile) *Shaper {
	return newShaper(p, time.Now)
}

func newShaper(p Profile, nowFn func() time.Time) *Shaper {
	lim := rate.NewLimiter(rate.Inf, 0)
	if !p.Unlimited && p.Rate > 0 && p.BurstSize > 0 {
		lim = rate.NewLimiter(rate.Limit(p.Rate), p.BurstSize)
	}
	return &Shaper{
		name:  p.Name,
		lim:   lim,
		nowFn: nowFn,
	}
}

// Name returns the name of the profile the shaper was created from.
func (s *Shaper) Name() string { return s.name }

// Unlimited tells whether the shaper bypasses any accounting.
func (s *Shaper) Unlimited() bool { return s.lim.Limit() == rate.Inf }

// Consume debits n tokens and returns how long the caller must wait before proceeding.
// A zero delay means the traffic can proceed right away.
// Costs above the burst size are reserved in burst sized chunks, so they are never rejected.
func (s *Shaper) Consume(n int) time.Duration {
	if s.Unlimited() || n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	avail := s.lim.TokensAt(now)

	burst := s.lim.Burst()
	for rem := n; rem > 0; rem -= burst {
		s.lim.ReserveN(now, min(rem, burst))
	}
	if avail >= float64(n) {
		return 0
	}
	deficit := float64(n) - avail
	return time.Duration(math.Ceil(deficit / float64(s.lim.Limit()) * float64(time.Second)))
}

// Wait blocks until n tokens are available or ctx is done.
func (s *Shaper) Wait(ctx context.Context, n int) error {
	d := s.Consume(n)
	if d == 0 {
		return ctx.Err()
	}
	tm := time.NewTimer(d)
	defer tm.Stop()

	select {
	case <-tm.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tokens returns the amount of tokens currently available.
// Outstanding reservations are reported as an empty bucket.
func (s *Shaper) Tokens() float64 {
	if s.Unlimited() {
		return math.Inf(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return math.Max(0, s.lim.TokensAt(s.nowFn()))
}
