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

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/auth"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/router/stream"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
)

//go:generate moq -out c2s_stream.mock_test.go . c2sStream
type c2sStream interface {
	stream.C2S
}

//go:generate moq -out transport.mock_test.go . c2sTransport:transportMock
type c2sTransport interface {
	transport.Transport
}

//go:generate moq -out authenticator.mock_test.go . c2sAuthenticator:authenticatorMock
type c2sAuthenticator interface {
	auth.Authenticator
}

//go:generate moq -out session.mock_test.go . session
type session interface {
	StreamID() string
	SetFromJID(jd *jid.JID)

	OpenStream(ctx context.Context) error
	Close(ctx context.Context) error

	Send(ctx context.Context, elem stravaganza.Element) error
	Receive() (stravaganza.Element, error)

	Reset(tr transport.Transport) error
}

//go:generate moq -out router.mock_test.go . globalRouter:routerMock
type globalRouter interface {
	Route(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error)
}

//go:generate moq -out registry.mock_test.go . sessionRegistry:registryMock
type sessionRegistry interface {
	Register(stm stream.C2S, maxSessions int) error
	Unregister(stm stream.C2S)
}

//go:generate moq -out modules.mock_test.go . modules
type modules interface {
	StreamFeatures(ctx context.Context, domain string) ([]stravaganza.Element, error)

	IsModuleIQ(iq *stravaganza.IQ) bool
	ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error
}

//go:generate moq -out offline.mock_test.go . offlineQueue:offlineMock
type offlineQueue interface {
	Drain(
		ctx context.Context,
		j *jid.JID,
		deliver func(ctx context.Context, msg *stravaganza.Message) error,
		commit func(),
	) error

	WithQueueLock(ctx context.Context, j *jid.JID, fn func(ctx context.Context)) error
}

//go:generate moq -out access.mock_test.go . accessEvaluator
type accessEvaluator interface {
	IsAllowed(list string, id *jid.JID) bool
}

//go:generate moq -out access.mock_test.go . shaperRules
type shaperRules interface {
	Shaper(class string, id *jid.JID) *shaper.Shaper
}
