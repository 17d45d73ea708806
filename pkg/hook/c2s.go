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

package hook

import (
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	// C2SStreamBound event is posted once a C2S stream has been authenticated, bound and registered.
	C2SStreamBound = "c2s.stream.bound"

	// C2SStreamPresenceReceived event is posted when a presence stanza with no recipient is received
	// over a C2S stream.
	C2SStreamPresenceReceived = "c2s.stream.presence_received"

	// C2SStreamUnregistered event is posted after a bound C2S stream has been removed from the registry.
	C2SStreamUnregistered = "c2s.stream.unregistered"
)

// C2SStreamInfo contains all info associated to a C2S stream event.
type C2SStreamInfo struct {
	// ID is the event stream identifier.
	ID string

	// JID represents the event associated full JID.
	JID *jid.JID

	// Presence is the stream presence at the time the event was posted.
	Presence *stravaganza.Presence
}
