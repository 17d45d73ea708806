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

package muc

import (
	"context"
	"sort"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/ortuman/kestrel/pkg/module/xep0004"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const serviceName = "Chatrooms"

func (s *Service) processIQ(ctx context.Context, iq *stravaganza.IQ) error {
	if iq.IsResult() || iq.IsError() {
		return nil
	}
	if iq.ToJID().IsFull() {
		return ErrFeatureNotImplemented
	}
	switch {
	case iq.IsGet() && iq.ChildNamespace("query", discoInfoNamespace) != nil:
		return s.processDiscoInfo(ctx, iq)

	case iq.IsGet() && iq.ChildNamespace("query", discoItemsNamespace) != nil:
		return s.processDiscoItems(ctx, iq)

	case iq.ChildNamespace("query", mucAdminNamespace) != nil:
		return s.processAdminIQ(ctx, iq, iq.ChildNamespace("query", mucAdminNamespace))

	case iq.ChildNamespace("query", mucOwnerNamespace) != nil:
		return s.processOwnerIQ(ctx, iq, iq.ChildNamespace("query", mucOwnerNamespace))
	}
	return ErrFeatureNotImplemented
}

func (s *Service) processDiscoInfo(ctx context.Context, iq *stravaganza.IQ) error {
	toJID := iq.ToJID()

	var name string
	var features []string
	if len(toJID.Node()) == 0 {
		name = serviceName
		features = []string{discoInfoNamespace, discoItemsNamespace, mucNamespace}
	} else {
		r := s.room(toJID)
		if r == nil {
			return ErrRoomNotFound
		}
		r.mu.Lock()
		cfg := r.model.Config
		r.mu.Unlock()

		name = cfg.Name
		if len(name) == 0 {
			name = toJID.Node()
		}
		features = append([]string{discoInfoNamespace, mucNamespace}, roomFeatures(cfg)...)
	}
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, discoInfoNamespace).
		WithChild(
			stravaganza.NewBuilder("identity").
				WithAttribute("category", "conference").
				WithAttribute("type", "text").
				WithAttribute("name", name).
				Build(),
		)
	for _, f := range features {
		qb.WithChild(stravaganza.NewBuilder("feature").WithAttribute("var", f).Build())
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
	return nil
}

func (s *Service) processDiscoItems(ctx context.Context, iq *stravaganza.IQ) error {
	qb := stravaganza.NewBuilder("query").WithAttribute(stravaganza.Namespace, discoItemsNamespace)

	toJID := iq.ToJID()
	if len(toJID.Node()) == 0 {
		for _, item := range s.publicRooms() {
			qb.WithChild(item)
		}
	} else if s.room(toJID) == nil {
		return ErrRoomNotFound
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
	return nil
}

func (s *Service) publicRooms() []stravaganza.Element {
	type roomItem struct{ jid, name string }

	var items []roomItem
	for _, r := range s.allRooms() {
		r.mu.Lock()
		if !r.destroyed && r.model.Config.Public {
			items = append(items, roomItem{jid: r.jid.String(), name: r.model.Config.Name})
		}
		r.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].jid < items[j].jid })

	ret := make([]stravaganza.Element, 0, len(items))
	for _, it := range items {
		b := stravaganza.NewBuilder("item").WithAttribute("jid", it.jid)
		if len(it.name) > 0 {
			b.WithAttribute("name", it.name)
		}
		ret = append(ret, b.Build())
	}
	return ret
}

func (s *Service) processAdminIQ(ctx context.Context, iq *stravaganza.IQ, query stravaganza.Element) error {
	roomJID := iq.ToJID()
	switch {
	case iq.IsSet():
		items := query.Children("item")
		if len(items) == 0 {
			return ErrBadRequest
		}
		for _, item := range items {
			aff, ok := mucmodel.ParseAffiliation(item.Attribute("affiliation"))
			if !ok {
				return ErrBadRequest
			}
			targetJID, err := jid.NewWithString(item.Attribute("jid"), false)
			if err != nil {
				return ErrBadRequest
			}
			if err := s.SetAffiliation(ctx, roomJID, iq.FromJID(), targetJID, aff); err != nil {
				return err
			}
		}
		s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
		return nil

	case iq.IsGet():
		item := query.Child("item")
		if item == nil {
			return ErrBadRequest
		}
		aff, ok := mucmodel.ParseAffiliation(item.Attribute("affiliation"))
		if !ok {
			return ErrBadRequest
		}
		jids, err := s.Affiliations(roomJID, iq.FromJID(), aff)
		if err != nil {
			return err
		}
		sort.Strings(jids)

		qb := stravaganza.NewBuilder("query").WithAttribute(stravaganza.Namespace, mucAdminNamespace)
		for _, j := range jids {
			qb.WithChild(
				stravaganza.NewBuilder("item").
					WithAttribute("affiliation", aff.String()).
					WithAttribute("jid", j).
					Build(),
			)
		}
		s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
		return nil
	}
	return ErrBadRequest
}

func (s *Service) processOwnerIQ(ctx context.Context, iq *stravaganza.IQ, query stravaganza.Element) error {
	roomJID := iq.ToJID()
	switch {
	case iq.IsGet():
		cfg, err := s.roomConfig(roomJID, iq.FromJID())
		if err != nil {
			return err
		}
		qb := stravaganza.NewBuilder("query").
			WithAttribute(stravaganza.Namespace, mucOwnerNamespace).
			WithChild(configForm(cfg).Element())
		s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
		return nil

	case iq.IsSet():
		if d := query.Child("destroy"); d != nil {
			var reason string
			if r := d.Child("reason"); r != nil {
				reason = r.Text()
			}
			if err := s.Destroy(ctx, roomJID, iq.FromJID(), reason); err != nil {
				return err
			}
			s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
			return nil
		}
		x := query.ChildNamespace("x", xep0004.FormNamespace)
		if x == nil {
			return ErrBadRequest
		}
		form, err := xep0004.NewFormFromElement(x)
		if err != nil {
			return ErrBadRequest
		}
		if err := s.Configure(ctx, roomJID, iq.FromJID(), form); err != nil {
			return err
		}
		s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
		return nil
	}
	return ErrBadRequest
}

func (s *Service) roomConfig(roomJID, actorJID *jid.JID) (mucmodel.Config, error) {
	r := s.room(roomJID)
	if r == nil {
		return mucmodel.Config{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model.Affiliation(actorJID.ToBareJID().String()) != mucmodel.AffiliationOwner && !s.isServiceAdmin(actorJID) {
		return mucmodel.Config{}, ErrForbidden
	}
	return r.model.Config, nil
}

func roomFeatures(cfg mucmodel.Config) []string {
	pick := func(cond bool, yes, no string) string {
		if cond {
			return yes
		}
		return no
	}
	return []string{
		pick(cfg.Persistent, "muc_persistent", "muc_temporary"),
		pick(cfg.Public, "muc_public", "muc_hidden"),
		pick(cfg.MembersOnly, "muc_membersonly", "muc_open"),
		pick(cfg.Moderated, "muc_moderated", "muc_unmoderated"),
		pick(len(cfg.Password) > 0, "muc_passwordprotected", "muc_unsecured"),
	}
}
