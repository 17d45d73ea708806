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
	"github.com/ortuman/kestrel/pkg/module"
)

// modulesMock is a mock implementation of modules.
type modulesMock struct {
	AllModulesFunc      func() []module.Module
	ServiceHandlersFunc func() []module.ServiceHandler
}

func (m *modulesMock) AllModules() []module.Module { return m.AllModulesFunc() }

func (m *modulesMock) ServiceHandlers() []module.ServiceHandler { return m.ServiceHandlersFunc() }
