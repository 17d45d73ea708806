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

package kestrel

import (
	"github.com/ortuman/kestrel/pkg/module"
	"github.com/ortuman/kestrel/pkg/module/disco"
	"github.com/ortuman/kestrel/pkg/module/muc"
	"github.com/ortuman/kestrel/pkg/module/offline"
	"github.com/ortuman/kestrel/pkg/module/pubsub"
	"github.com/ortuman/kestrel/pkg/module/roster"
	"github.com/ortuman/kestrel/pkg/module/xep0092"
	"github.com/ortuman/kestrel/pkg/module/xep0199"
)

var defaultModules = []string{
	offline.ModuleName,
	muc.ModuleName,
	pubsub.ModuleName,
	roster.ModuleName,
	disco.ModuleName,
	xep0092.ModuleName,
	xep0199.ModuleName,
}

var modFns = map[string]func(k *Kestrel, cfg *ModulesConfig) module.Module{
	// Offline
	// (https://xmpp.org/extensions/xep-0160.html)
	offline.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		k.offline = offline.New(cfg.Offline, k.hosts, k.reg, k.rep, k.locker, k.hk, k.logger)
		return k.offline
	},
	// XEP-0045: Multi-User Chat
	// (https://xmpp.org/extensions/xep-0045.html)
	muc.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		return muc.New(cfg.MUC, k.router, k.access, k.rep, k.hk, k.logger)
	},
	// XEP-0060: Publish-Subscribe
	// (https://xmpp.org/extensions/xep-0060.html)
	pubsub.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		return pubsub.New(cfg.PubSub, k.router, k.access, k.rep, k.logger)
	},
	// Shared roster groups
	// (https://xmpp.org/rfcs/rfc6121.html#roster)
	roster.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		return roster.New(cfg.Roster, k.router, k.reg, k.hk, k.logger)
	},
	// XEP-0030: Service Discovery
	// (https://xmpp.org/extensions/xep-0030.html)
	disco.ModuleName: func(k *Kestrel, _ *ModulesConfig) module.Module {
		return disco.New(k.router, k.hk, k.logger)
	},
	// XEP-0092: Software Version
	// (https://xmpp.org/extensions/xep-0092.html)
	xep0092.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		return xep0092.New(cfg.Version, k.router, k.logger)
	},
	// XEP-0199: XMPP Ping
	// (https://xmpp.org/extensions/xep-0199.html)
	xep0199.ModuleName: func(k *Kestrel, cfg *ModulesConfig) module.Module {
		return xep0199.New(cfg.Ping, k.router, k.reg, k.hk, k.logger)
	},
}
