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

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/router/stream"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrResourceConflict is returned by Register when the full JID is already bound to another stream.
	ErrResourceConflict = errors.New("c2s: resource conflict")

	// ErrSessionLimitExceeded is returned by Register when the account reached its maximum number of sessions.
	ErrSessionLimitExceeded = errors.New("c2s: session limit exceeded")
)

// ResourceConflictError carries the stream currently bound to the conflicting full JID.
type ResourceConflictError struct {
	Existing stream.C2S
}

// Error satisfies error interface.
func (e *ResourceConflictError) Error() string {
	return fmt.Sprintf("c2s: resource conflict with stream %s", e.Existing.ID())
}

// Unwrap returns ErrResourceConflict.
func (e *ResourceConflictError) Unwrap() error { return ErrResourceConflict }

// SessionLimitError carries the account and the limit that refused a registration.
type SessionLimitError struct {
	JID   *jid.JID
	Limit int
}

// Error satisfies error interface.
func (e *SessionLimitError) Error() string {
	return fmt.Sprintf("c2s: %s reached the maximum of %d sessions", e.JID.ToBareJID().String(), e.Limit)
}

// Unwrap returns ErrSessionLimitExceeded.
func (e *SessionLimitError) Unwrap() error { return ErrSessionLimitExceeded }

// Registry keeps track of every bound local C2S stream.
type Registry struct {
	logger kitlog.Logger

	mu    sync.RWMutex
	stms  map[string]map[string]stream.C2S // bare jid -> resource -> stream
	count int
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger kitlog.Logger) *Registry {
	return &Registry{
		logger: logger,
		stms:   make(map[string]map[string]stream.C2S),
	}
}

// Register binds stm to its full JID.
// A *ResourceConflictError is returned when another stream owns the same full JID, and a *SessionLimitError
// when the account already has maxSessions streams. A non-positive maxSessions disables the limit.
func (r *Registry) Register(stm stream.C2S, maxSessions int) error {
	jd := stm.JID()
	bareJID := jd.ToBareJID().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	rs := r.stms[bareJID]
	if existing, ok := rs[jd.Resource()]; ok {
		return &ResourceConflictError{Existing: existing}
	}
	if maxSessions > 0 && len(rs) >= maxSessions {
		return &SessionLimitError{JID: jd, Limit: maxSessions}
	}
	if rs == nil {
		rs = make(map[string]stream.C2S)
		r.stms[bareJID] = rs
	}
	rs[jd.Resource()] = stm
	r.count++

	reportRegisteredStreams(r.count)
	level.Info(r.logger).Log("msg", "registered C2S stream", "id", stm.ID(), "jid", jd.String())
	return nil
}

// Unregister removes stm from the registry. Nothing is done if its full JID is bound to a different stream.
func (r *Registry) Unregister(stm stream.C2S) {
	jd := stm.JID()
	if jd == nil {
		return
	}
	bareJID := jd.ToBareJID().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	rs := r.stms[bareJID]
	if rs[jd.Resource()] != stm {
		return
	}
	delete(rs, jd.Resource())
	if len(rs) == 0 {
		delete(r.stms, bareJID)
	}
	r.count--

	reportRegisteredStreams(r.count)
	level.Info(r.logger).Log("msg", "unregistered C2S stream", "id", stm.ID(), "jid", jd.String())
}

// Resolve returns the streams matching j.
// A full JID yields the exact stream if any. A bare JID yields every account stream ordered
// by descending presence priority, then by most recent activity.
func (r *Registry) Resolve(j *jid.JID) []stream.C2S {
	r.mu.RLock()
	rs := r.stms[j.ToBareJID().String()]
	if j.IsFull() {
		stm, ok := rs[j.Resource()]
		r.mu.RUnlock()
		if !ok {
			return nil
		}
		return []stream.C2S{stm}
	}
	stms := make([]stream.C2S, 0, len(rs))
	for _, stm := range rs {
		stms = append(stms, stm)
	}
	r.mu.RUnlock()

	sort.SliceStable(stms, func(i, j int) bool {
		pi, pj := stream.Priority(stms[i]), stream.Priority(stms[j])
		if pi != pj {
			return pi > pj
		}
		return stms[i].LastActivity().After(stms[j].LastActivity())
	})
	return stms
}

// AvailableStreams returns the account streams that announced an available presence with non-negative priority.
func (r *Registry) AvailableStreams(j *jid.JID) []stream.C2S {
	var res []stream.C2S
	for _, stm := range r.Resolve(j.ToBareJID()) {
		if stream.IsAvailable(stm) && stream.Priority(stm) >= 0 {
			res = append(res, stm)
		}
	}
	return res
}

// Stream returns the stream bound to full JID j, or nil if none.
func (r *Registry) Stream(j *jid.JID) stream.C2S {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stms[j.ToBareJID().String()][j.Resource()]
}

// Streams returns all registered streams.
func (r *Registry) Streams() []stream.C2S {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stms := make([]stream.C2S, 0, r.count)
	for _, rs := range r.stms {
		for _, stm := range rs {
			stms = append(stms, stm)
		}
	}
	return stms
}

// Count returns the number of registered streams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Stop disconnects every registered stream with a system-shutdown stream error and waits for their termination.
func (r *Registry) Stop(ctx context.Context) error {
	stms := r.Streams()

	errGrp, ctx := errgroup.WithContext(ctx)
	for _, stm := range stms {
		s := stm
		errGrp.Go(func() error {
			select {
			case <-s.Disconnect(streamerror.E(streamerror.SystemShutdown)):
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case <-s.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	if err := errGrp.Wait(); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "stopped C2S registry", "total_streams", len(stms))
	return nil
}
