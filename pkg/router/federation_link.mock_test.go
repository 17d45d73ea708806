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
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// FederationLinkMock is a mock implementation of FederationLink.
type FederationLinkMock struct {
	SendFunc func(ctx context.Context, stanza stravaganza.Stanza) error
}

func (m *FederationLinkMock) Send(ctx context.Context, stanza stravaganza.Stanza) error {
	return m.SendFunc(ctx, stanza)
}
