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

package disco

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/module"
	"github.com/ortuman/kestrel/pkg/router"
)

//go:generate moq -out router.mock_test.go . globalRouter:routerMock
type globalRouter interface {
	Route(ctx context.Context, stanza stravaganza.Stanza) (router.Outcome, error)
}

//go:generate moq -out modules.mock_test.go . modules
type modules interface {
	AllModules() []module.Module
	ServiceHandlers() []module.ServiceHandler
}

//go:generate moq -out servicehandler.mock_test.go -pkg disco .. ServiceHandler:serviceHandlerMock
