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
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/router/stream"
)

//go:generate moq -out hosts.mock_test.go . hosts
type hosts interface {
	IsLocalHost(domain string) bool
}

//go:generate moq -out access.mock_test.go . accessEvaluator
type accessEvaluator interface {
	IsAllowed(list string, id *jid.JID) bool
}

//go:generate moq -out c2s_stream.mock_test.go . c2sStream:c2sStreamMock
type c2sStream interface {
	stream.C2S
}

//go:generate moq -out sessions.mock_test.go . Sessions
//go:generate moq -out handler.mock_test.go . Handler
//go:generate moq -out offline_queue.mock_test.go . OfflineQueue
//go:generate moq -out federation_link.mock_test.go . FederationLink
