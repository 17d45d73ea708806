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
	"sort"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/hook"
	discomodel "github.com/ortuman/kestrel/pkg/model/disco"
	"github.com/ortuman/kestrel/pkg/module"
	"github.com/ortuman/kestrel/pkg/router"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const (
	discoInfoNamespace  = "http://jabber.org/protocol/disco#info"
	discoItemsNamespace = "http://jabber.org/protocol/disco#items"
)

const (
	// ModuleName represents disco module name.
	ModuleName = "disco"

	serverName = "kestrel"
)

// Disco represents a service discovery module type. Server and account entities are described by
// the features advertised by every started module, and service handler domains are listed as
// server items.
type Disco struct {
	router globalRouter
	hk     *hook.Hooks
	logger kitlog.Logger

	hookID hook.HandlerID

	mu       sync.RWMutex
	srvFeats []discomodel.Feature
	accFeats []discomodel.Feature
	items    []discomodel.Item
}

// New returns a new initialized disco module instance.
func New(router *router.Router, hk *hook.Hooks, logger kitlog.Logger) *Disco {
	return &Disco{
		router: router,
		hk:     hk,
		logger: kitlog.With(logger, "module", ModuleName),
	}
}

// Name returns disco module name.
func (m *Disco) Name() string { return ModuleName }

// StreamFeature returns disco stream feature.
func (m *Disco) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns server disco features.
func (m *Disco) ServerFeatures(_ context.Context) ([]string, error) {
	return []string{discoInfoNamespace, discoItemsNamespace}, nil
}

// AccountFeatures returns account disco features.
func (m *Disco) AccountFeatures(_ context.Context) ([]string, error) {
	return []string{discoInfoNamespace, discoItemsNamespace}, nil
}

// MatchesNamespace tells whether namespace matches disco module.
func (m *Disco) MatchesNamespace(namespace string, _ bool) bool {
	return namespace == discoInfoNamespace || namespace == discoItemsNamespace
}

// ProcessIQ process a disco iq.
func (m *Disco) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	switch {
	case iq.IsGet():
		return m.getDiscoInfo(ctx, iq)
	case iq.IsSet():
		_, _ = m.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.Forbidden))
	}
	return nil
}

// Start starts disco module.
func (m *Disco) Start(_ context.Context) error {
	m.hookID = m.hk.AddHook(hook.ModulesStarted, m.onModulesStarted, hook.DefaultPriority)

	level.Info(m.logger).Log("msg", "started disco module")
	return nil
}

// Stop stops disco module.
func (m *Disco) Stop(_ context.Context) error {
	m.hk.RemoveHook(hook.ModulesStarted, m.hookID)

	level.Info(m.logger).Log("msg", "stopped disco module")
	return nil
}

// Items returns server disco items.
func (m *Disco) Items() []discomodel.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items
}

// ServerFeatureList returns the features advertised by the server entity.
func (m *Disco) ServerFeatureList() []discomodel.Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.srvFeats
}

func (m *Disco) onModulesStarted(ctx context.Context, execCtx *hook.ExecutionContext) error {
	mods, ok := execCtx.Sender.(modules)
	if !ok {
		return nil
	}
	srvFeats, accFeats, err := collectFeatures(ctx, mods.AllModules())
	if err != nil {
		return err
	}
	var items []discomodel.Item
	for _, hnd := range mods.ServiceHandlers() {
		items = append(items, discomodel.Item{JID: hnd.Host(), Name: hnd.Name()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].JID < items[j].JID })

	m.mu.Lock()
	m.srvFeats = srvFeats
	m.accFeats = accFeats
	m.items = items
	m.mu.Unlock()

	level.Debug(m.logger).Log("msg", "disco providers updated", "server_features", len(srvFeats), "items", len(items))
	return nil
}

func (m *Disco) getDiscoInfo(ctx context.Context, iq *stravaganza.IQ) error {
	q := iq.Child("query")
	if q == nil {
		_, _ = m.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	fromJID := iq.FromJID()
	toJID := iq.ToJID()

	if !toJID.IsServer() && fromJID.ToBareJID().String() != toJID.ToBareJID().String() {
		_, _ = m.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.SubscriptionRequired))
		return nil
	}
	if len(q.Attribute("node")) > 0 {
		_, _ = m.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
		return nil
	}
	switch q.Attribute(stravaganza.Namespace) {
	case discoInfoNamespace:
		m.sendDiscoInfo(ctx, toJID, iq)
	case discoItemsNamespace:
		m.sendDiscoItems(ctx, toJID, iq)
	default:
		_, _ = m.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	}
	return nil
}

func (m *Disco) sendDiscoInfo(ctx context.Context, toJID *jid.JID, iq *stravaganza.IQ) {
	var identity discomodel.Identity
	var features []discomodel.Feature

	m.mu.RLock()
	if toJID.IsServer() {
		identity = discomodel.Identity{Category: "server", Type: "im", Name: serverName}
		features = m.srvFeats
	} else {
		identity = discomodel.Identity{Category: "account", Type: "registered"}
		features = m.accFeats
	}
	m.mu.RUnlock()

	sb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, discoInfoNamespace).
		WithChild(identity.Element())
	for _, feature := range features {
		sb.WithChild(stravaganza.NewBuilder("feature").WithAttribute("var", feature).Build())
	}
	_, _ = m.router.Route(ctx, xmpputil.MakeResultIQ(iq, sb.Build()))
}

func (m *Disco) sendDiscoItems(ctx context.Context, toJID *jid.JID, iq *stravaganza.IQ) {
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, discoItemsNamespace)
	if toJID.IsServer() {
		for _, item := range m.Items() {
			qb.WithChild(item.Element())
		}
	}
	_, _ = m.router.Route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
}

func collectFeatures(ctx context.Context, mods []module.Module) (srvFeats, accFeats []discomodel.Feature, err error) {
	srvSet := make(map[string]struct{})
	accSet := make(map[string]struct{})
	for _, mod := range mods {
		sf, err := mod.ServerFeatures(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range sf {
			srvSet[f] = struct{}{}
		}
		af, err := mod.AccountFeatures(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range af {
			accSet[f] = struct{}{}
		}
	}
	return sortedKeys(srvSet), sortedKeys(accSet), nil
}

func sortedKeys(set map[string]struct{}) []string {
	ret := make([]string, 0, len(set))
	for k := range set {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
