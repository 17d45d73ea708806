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

import "github.com/jackal-xmpp/stravaganza/v2"

const (
	// S2SInStreamRegistered event is posted when an incoming S2S connection is registered.
	S2SInStreamRegistered = "s2s.in.stream.registered"

	// S2SInStreamUnregistered event is posted when an incoming S2S connection is unregistered.
	S2SInStreamUnregistered = "s2s.in.stream.unregistered"

	// S2SInStreamElementReceived event is posted when a stanza is received over an authenticated incoming S2S stream.
	// A handler halting the execution prevents the stanza from being routed.
	S2SInStreamElementReceived = "s2s.in.stream.element_received"

	// S2SOutStreamConnected event is posted when an outgoing S2S connection is established.
	S2SOutStreamConnected = "s2s.out.stream.connected"

	// S2SOutStreamDisconnected event is posted when an outgoing S2S connection is closed.
	S2SOutStreamDisconnected = "s2s.out.stream.disconnected"
)

// S2SStreamInfo contains all info associated to a S2S stream event.
type S2SStreamInfo struct {
	// ID is the event stream identifier.
	ID string

	// Sender is the initiating entity domain.
	Sender string

	// Target is the receiving entity domain.
	Target string

	// Element is the event associated XMPP element.
	Element stravaganza.Element
}
