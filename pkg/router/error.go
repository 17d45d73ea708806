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

package router

import (
	"errors"
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

var (
	// ErrAccessDenied is returned by Route when the sender is not allowed to deliver to the destination.
	ErrAccessDenied = errors.New("router: access denied")

	// ErrNoRoute is returned by Route when no session, handler or queue accepted the stanza.
	ErrNoRoute = errors.New("router: no route")

	// ErrQueueFull is returned when the destination offline queue reached its capacity.
	ErrQueueFull = errors.New("router: offline queue full")

	// ErrAccountAvailable is returned by an offline queue when the destination account
	// became available before the message could be stored.
	ErrAccountAvailable = errors.New("router: account available")

	// ErrRemoteServerNotFound is returned when a remote domain could not be reached.
	ErrRemoteServerNotFound = errors.New("router: remote server not found")

	// ErrRemoteServerTimeout is returned when the remote domain did not answer in time.
	ErrRemoteServerTimeout = errors.New("router: remote server timeout")
)

// AccessDeniedError carries the rule list and identity that denied a routing attempt.
type AccessDeniedError struct {
	Rule string
	JID  *jid.JID
}

// Error satisfies error interface.
func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("router: %s denied by rule %s", e.JID.String(), e.Rule)
}

// Unwrap returns ErrAccessDenied.
func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// QueueFullError carries the offline queue owner and the configured capacity.
type QueueFullError struct {
	JID   *jid.JID
	Limit int
}

// Error satisfies error interface.
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("router: offline queue of %s reached %d messages", e.JID.String(), e.Limit)
}

// Unwrap returns ErrQueueFull.
func (e *QueueFullError) Unwrap() error { return ErrQueueFull }
