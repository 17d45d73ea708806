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
	"net"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/transport"
)

//go:generate moq -out router.mock_test.go . globalRouter:routerMock
type globalRouter interface {
	Route(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error)
	IsHandlerHost(domain string) bool
}

//go:generate moq -out transport.mock_test.go . s2sTransport:transportMock
type s2sTransport interface {
	transport.Transport
}

//go:generate moq -out netconn.mock_test.go . netConn
type netConn interface {
	net.Conn
}

//go:generate moq -out hosts.mock_test.go . hosts
type hosts interface {
	DefaultHostName() string
	IsLocalHost(domain string) bool
}

//go:generate moq -out access.mock_test.go . accessEvaluator
type accessEvaluator interface {
	IsAllowed(list string, id *jid.JID) bool
}

//go:generate moq -out access.mock_test.go . shaperRules
type shaperRules interface {
	Shaper(class string, id *jid.JID) *shaper.Shaper
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

//go:generate moq -out s2sin.mock_test.go . s2sIn
type s2sIn interface {
	ID() string
	Disconnect(streamErr *streamerror.Error) <-chan error
	Done() <-chan struct{}
}

//go:generate moq -out s2sout.mock_test.go . s2sOut
type s2sOut interface {
	ID() string
	SendElement(elem stravaganza.Element) <-chan error
	Disconnect(streamErr *streamerror.Error) <-chan error

	dial(ctx context.Context) error
	start() error
}
