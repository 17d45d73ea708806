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

package stream

import (
	"context"
	"errors"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// ErrStreamClosed is returned by SendElement when the stream is no longer able to deliver elements.
var ErrStreamClosed = errors.New("stream: closed")

// C2S represents a bound client-to-server XMPP stream.
type C2S interface {
	// ID returns C2S stream identifier.
	ID() string

	// JID returns stream associated full jid.
	JID() *jid.JID

	// Username returns stream associated username.
	Username() string

	// Resource returns stream associated resource.
	Resource() string

	// Presence returns stream associated presence stanza or nil if none is set.
	Presence() *stravaganza.Presence

	// LastActivity returns the last time an element was received over the stream.
	LastActivity() time.Time

	// SendElement enqueues elem to be written to the underlying stream transport.
	// ErrStreamClosed is returned in case the stream has already been disconnected.
	SendElement(ctx context.Context, elem stravaganza.Element) error

	// Disconnect performs disconnection over the stream.
	Disconnect(streamErr *streamerror.Error) <-chan error

	// Done returns a channel that's closed when stream transport and all associated resources have been released.
	Done() <-chan struct{}
}

// IsAvailable tells whether stm announced an available presence.
func IsAvailable(stm C2S) bool {
	pr := stm.Presence()
	return pr != nil && pr.IsAvailable()
}

// Priority returns stm presence priority. Streams with no presence report 0.
func Priority(stm C2S) int8 {
	if pr := stm.Presence(); pr != nil {
		return pr.Priority()
	}
	return 0
}
