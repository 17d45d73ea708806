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

package roster

import (
	"context"
	"sort"
	"strings"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/router/stream"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const (
	rosterNamespace = "jabber:iq:roster"
)

const (
	// ModuleName represents roster module name.
	ModuleName = "roster"
)

// GroupConfig contains a shared roster group configuration.
type GroupConfig struct {
	Name    string   `fig:"name"`
	Members []string `fig:"members"`
}

// Config contains shared roster module configuration.
type Config struct {
	Groups []GroupConfig `fig:"groups"`
}

// Item represents a shared roster item.
type Item struct {
	JID    string
	Groups []string
}

// Roster represents a shared roster module type. Roster contents are derived from the configured
// groups: every group member sees the rest of the members of its groups as contacts with a mutual
// subscription.
type Roster struct {
	router   globalRouter
	sessions sessions
	hk       *hook.Hooks
	logger   kitlog.Logger

	memberGroups map[string][]string
	groupMembers map[string][]string

	mu        sync.Mutex
	announced map[string]struct{}

	presenceHookID hook.HandlerID
	unregHookID    hook.HandlerID
}

// New returns a new initialized Roster instance.
func New(
	cfg Config,
	router *router.Router,
	sessions router.Sessions,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *Roster {
	r := &Roster{
		router:       router,
		sessions:     sessions,
		hk:           hk,
		logger:       kitlog.With(logger, "module", ModuleName),
		memberGroups: make(map[string][]string),
		groupMembers: make(map[string][]string),
		announced:    make(map[string]struct{}),
	}
	for _, grp := range cfg.Groups {
		for _, m := range grp.Members {
			m = strings.TrimSpace(m)
			r.memberGroups[m] = append(r.memberGroups[m], grp.Name)
			r.groupMembers[grp.Name] = append(r.groupMembers[grp.Name], m)
		}
	}
	return r
}

// Name returns roster module name.
func (r *Roster) Name() string { return ModuleName }

// StreamFeature returns roster stream feature.
func (r *Roster) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns roster server disco features.
func (r *Roster) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

// AccountFeatures returns roster account disco features.
func (r *Roster) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

// MatchesNamespace tells whether namespace matches roster module.
func (r *Roster) MatchesNamespace(namespace string, serverTarget bool) bool {
	if serverTarget {
		return false
	}
	return namespace == rosterNamespace
}

// ProcessIQ process a roster iq.
func (r *Roster) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	switch {
	case iq.IsGet():
		return r.sendRoster(ctx, iq)
	case iq.IsSet():
		// shared roster contents can only be modified through configuration
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.NotAllowed))
	}
	return nil
}

// Start starts roster module.
func (r *Roster) Start(_ context.Context) error {
	r.presenceHookID = r.hk.AddHook(hook.C2SStreamPresenceReceived, r.onPresenceRecv, hook.DefaultPriority)
	r.unregHookID = r.hk.AddHook(hook.C2SStreamUnregistered, r.onStreamUnregistered, hook.DefaultPriority)

	level.Info(r.logger).Log("msg", "started roster module", "groups", len(r.groupMembers))
	return nil
}

// Stop stops roster module.
func (r *Roster) Stop(_ context.Context) error {
	r.hk.RemoveHook(hook.C2SStreamPresenceReceived, r.presenceHookID)
	r.hk.RemoveHook(hook.C2SStreamUnregistered, r.unregHookID)

	level.Info(r.logger).Log("msg", "stopped roster module")
	return nil
}

// Items returns the shared roster items of bareJID sorted by contact JID.
func (r *Roster) Items(bareJID string) []Item {
	contacts := make(map[string][]string)
	for _, grp := range r.memberGroups[bareJID] {
		for _, m := range r.groupMembers[grp] {
			if m == bareJID {
				continue
			}
			contacts[m] = append(contacts[m], grp)
		}
	}
	items := make([]Item, 0, len(contacts))
	for j, groups := range contacts {
		items = append(items, Item{JID: j, Groups: groups})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].JID < items[j].JID })
	return items
}

func (r *Roster) sendRoster(ctx context.Context, iq *stravaganza.IQ) error {
	q := iq.ChildNamespace("query", rosterNamespace)
	if q == nil || q.ChildrenCount() > 0 {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	usrJID := iq.FromJID()

	sb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, rosterNamespace)
	items := r.Items(usrJID.ToBareJID().String())
	for _, item := range items {
		sb.WithChild(encodeRosterItem(item))
	}
	_, _ = r.router.Route(ctx, xmpputil.MakeResultIQ(iq, sb.Build()))

	level.Debug(r.logger).Log("msg", "fetched shared roster", "jid", usrJID.String(), "items", len(items))
	return nil
}

func (r *Roster) onPresenceRecv(ctx context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.C2SStreamInfo)
	if !ok || inf.JID == nil || inf.Presence == nil {
		return nil
	}
	items := r.Items(inf.JID.ToBareJID().String())
	if len(items) == 0 {
		return nil
	}
	pr := inf.Presence
	r.broadcast(ctx, inf.JID, items, pr.Attribute(stravaganza.Type), pr.AllChildren())

	if !pr.IsAvailable() {
		r.setAnnounced(inf.JID, false)
		return nil
	}
	if r.setAnnounced(inf.JID, true) {
		r.sendContactPresences(ctx, inf.JID, items)
	}
	return nil
}

func (r *Roster) onStreamUnregistered(ctx context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.C2SStreamInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	wasAnnounced := r.setAnnounced(inf.JID, false)
	if !wasAnnounced && (inf.Presence == nil || !inf.Presence.IsAvailable()) {
		return nil
	}
	r.broadcast(ctx, inf.JID, r.Items(inf.JID.ToBareJID().String()), stravaganza.UnavailableType, nil)
	return nil
}

// broadcast sends a presence of type typ from fromJID to every contact.
func (r *Roster) broadcast(ctx context.Context, fromJID *jid.JID, items []Item, typ string, children []stravaganza.Element) {
	for _, item := range items {
		contactJID, err := jid.NewWithString(item.JID, true)
		if err != nil {
			continue
		}
		p := xmpputil.MakePresence(fromJID, contactJID, typ, children)
		if _, err := r.router.Route(ctx, p); err != nil {
			level.Debug(r.logger).Log("msg", "failed to route roster presence", "to", item.JID, "err", err)
		}
	}
}

// sendContactPresences sends the current presence of every available contact session to toJID.
func (r *Roster) sendContactPresences(ctx context.Context, toJID *jid.JID, items []Item) {
	for _, item := range items {
		contactJID, err := jid.NewWithString(item.JID, true)
		if err != nil {
			continue
		}
		for _, stm := range r.sessions.Resolve(contactJID) {
			if !stream.IsAvailable(stm) {
				continue
			}
			p := xmpputil.MakePresence(stm.JID(), toJID, stravaganza.AvailableType, stm.Presence().AllChildren())
			_, _ = r.router.Route(ctx, p)
		}
	}
}

// setAnnounced updates the announced state of j returning true if it changed.
func (r *Roster) setAnnounced(j *jid.JID, announced bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := j.String()
	_, ok := r.announced[k]
	if ok == announced {
		return false
	}
	if announced {
		r.announced[k] = struct{}{}
	} else {
		delete(r.announced, k)
	}
	return true
}

func encodeRosterItem(item Item) stravaganza.Element {
	b := stravaganza.NewBuilder("item").
		WithAttribute("jid", item.JID).
		WithAttribute("subscription", "both")
	if j, err := jid.NewWithString(item.JID, true); err == nil && len(j.Node()) > 0 {
		b.WithAttribute("name", j.Node())
	}
	for _, grp := range item.Groups {
		b.WithChild(stravaganza.NewBuilder("group").WithText(grp).Build())
	}
	return b.Build()
}
