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
	"strconv"

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/ortuman/kestrel/pkg/module/xep0004"
)

const (
	configRoomName          = "muc#roomconfig_roomname"
	configRoomDesc          = "muc#roomconfig_roomdesc"
	configPersistent        = "muc#roomconfig_persistentroom"
	configPublic            = "muc#roomconfig_publicroom"
	configMembersOnly       = "muc#roomconfig_membersonly"
	configModerated         = "muc#roomconfig_moderatedroom"
	configPasswordProtected = "muc#roomconfig_passwordprotectedroom"
	configRoomSecret        = "muc#roomconfig_roomsecret"
	configMaxUsers          = "muc#roomconfig_maxusers"
)

// SetAffiliation changes targetJID affiliation on behalf of actorJID.
// Owners and service admins may grant or revoke any affiliation, admins are limited to non privileged ones.
func (s *Service) SetAffiliation(ctx context.Context, roomJID, actorJID, targetJID *jid.JID, aff mucmodel.Affiliation) error {
	r := s.room(roomJID)
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRoomNotFound
	}
	actorAff := r.model.Affiliation(actorJID.ToBareJID().String())
	serviceAdmin := s.isServiceAdmin(actorJID)
	if !actorAff.IsPrivileged() && !serviceAdmin {
		return ErrForbidden
	}
	target := targetJID.ToBareJID().String()
	current := r.model.Affiliation(target)
	if (aff.IsPrivileged() || current.IsPrivileged()) && actorAff != mucmodel.AffiliationOwner && !serviceAdmin {
		return ErrForbidden
	}
	if current == mucmodel.AffiliationOwner && aff != mucmodel.AffiliationOwner && r.ownerCount() == 1 {
		return ErrNotAllowed
	}
	r.model.SetAffiliation(target, aff)
	s.persist(ctx, r)

	for _, occ := range r.snapshotRefs() {
		if occ.JID.ToBareJID().String() != target {
			continue
		}
		occ.Affiliation = aff
		switch {
		case aff == mucmodel.AffiliationOutcast:
			s.evictOccupant(ctx, r, occ, true, []string{statusBanned})

		case r.model.Config.MembersOnly && aff < mucmodel.AffiliationMember:
			s.evictOccupant(ctx, r, occ, true, []string{statusAffiliationChanged})

		default:
			occ.Role = s.occupantRole(r, occ)
			s.broadcastPresence(ctx, r, occ, nil)
		}
	}
	level.Info(s.logger).Log("msg", "affiliation changed", "room", r.jid.String(), "jid", target, "affiliation", aff.String())
	return nil
}

// Destroy evicts every occupant and removes roomJID. Only owners and service admins may destroy a room.
func (s *Service) Destroy(ctx context.Context, roomJID, actorJID *jid.JID, reason string) error {
	r := s.room(roomJID)
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRoomNotFound
	}
	if r.model.Affiliation(actorJID.ToBareJID().String()) != mucmodel.AffiliationOwner && !s.isServiceAdmin(actorJID) {
		return ErrForbidden
	}
	db := stravaganza.NewBuilder("destroy").WithAttribute("jid", r.jid.String())
	if len(reason) > 0 {
		db.WithChild(stravaganza.NewBuilder("reason").WithText(reason).Build())
	}
	destroyElem := db.Build()

	occs := r.snapshotRefs()
	for _, occ := range occs {
		r.removeOccupant(occ)
		occ.Affiliation = mucmodel.AffiliationNone
		occ.Role = RoleNone
		s.route(ctx, s.occupantPresence(r, occ, occ.JID, stravaganza.UnavailableType, true, []string{statusSelfPresence}, destroyElem))
	}
	reportOccupantDelta(-len(occs))

	s.removeRoom(ctx, r)
	return nil
}

// Configure applies a submitted room configuration form on behalf of actorJID.
func (s *Service) Configure(ctx context.Context, roomJID, actorJID *jid.JID, form *xep0004.DataForm) error {
	r := s.room(roomJID)
	if r == nil {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrRoomNotFound
	}
	if r.model.Affiliation(actorJID.ToBareJID().String()) != mucmodel.AffiliationOwner && !s.isServiceAdmin(actorJID) {
		return ErrForbidden
	}
	switch form.Type {
	case xep0004.Cancel:
		return nil
	case xep0004.Submit:
		break
	default:
		return ErrBadRequest
	}
	cfg, err := applyConfigForm(r.model.Config, form.Fields)
	if err != nil {
		return err
	}
	prev := r.model.Config
	r.model.Config = cfg

	switch {
	case cfg.Persistent:
		s.persist(ctx, r)
	case prev.Persistent:
		if err := s.rep.DeleteRoom(ctx, r.jid.String()); err != nil {
			level.Warn(s.logger).Log("msg", "failed to delete persisted room", "room", r.jid.String(), "err", err)
		}
	}
	for _, occ := range r.snapshotRefs() {
		if cfg.MembersOnly && !prev.MembersOnly && occ.Affiliation < mucmodel.AffiliationMember {
			s.evictOccupant(ctx, r, occ, true, []string{statusMembersOnly})
			continue
		}
		if role := s.occupantRole(r, occ); role != occ.Role {
			occ.Role = role
			s.broadcastPresence(ctx, r, occ, nil)
		}
	}
	if r.isEmpty() && !cfg.Persistent {
		s.removeRoom(ctx, r)
	}
	level.Info(s.logger).Log("msg", "room configured", "room", r.jid.String())
	return nil
}

// Affiliations returns the bare JIDs holding aff within roomJID. Only privileged entities may list affiliations.
func (s *Service) Affiliations(roomJID, actorJID *jid.JID, aff mucmodel.Affiliation) ([]string, error) {
	r := s.room(roomJID)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.model.Affiliation(actorJID.ToBareJID().String()).IsPrivileged() && !s.isServiceAdmin(actorJID) {
		return nil, ErrForbidden
	}
	var ret []string
	for j, a := range r.model.Affiliations {
		if a == aff {
			ret = append(ret, j)
		}
	}
	return ret, nil
}

func (s *Service) occupantRole(r *room, occ *Occupant) Role {
	if s.isServiceAdmin(occ.JID) {
		return RoleModerator
	}
	return roleForAffiliation(occ.Affiliation, r.model.Config.Moderated)
}

func configForm(cfg mucmodel.Config) *xep0004.DataForm {
	boolValue := func(b bool) []string { return []string{strconv.FormatBool(b)} }
	maxUsers := ""
	if cfg.MaxUsers > 0 {
		maxUsers = strconv.Itoa(cfg.MaxUsers)
	}
	return &xep0004.DataForm{
		Type:  xep0004.Form,
		Title: "Room configuration",
		Fields: xep0004.Fields{
			{Var: xep0004.FormType, Type: xep0004.Hidden, Values: []string{roomConfigFormType}},
			{Var: configRoomName, Type: xep0004.TextSingle, Label: "Room name", Values: []string{cfg.Name}},
			{Var: configRoomDesc, Type: xep0004.TextSingle, Label: "Room description", Values: []string{cfg.Description}},
			{Var: configPersistent, Type: xep0004.Boolean, Label: "Make room persistent", Values: boolValue(cfg.Persistent)},
			{Var: configPublic, Type: xep0004.Boolean, Label: "Make room publicly searchable", Values: boolValue(cfg.Public)},
			{Var: configMembersOnly, Type: xep0004.Boolean, Label: "Make room members-only", Values: boolValue(cfg.MembersOnly)},
			{Var: configModerated, Type: xep0004.Boolean, Label: "Make room moderated", Values: boolValue(cfg.Moderated)},
			{Var: configPasswordProtected, Type: xep0004.Boolean, Label: "Password required to enter", Values: boolValue(len(cfg.Password) > 0)},
			{Var: configRoomSecret, Type: xep0004.TextPrivate, Label: "Password", Values: []string{cfg.Password}},
			{Var: configMaxUsers, Type: xep0004.TextSingle, Label: "Maximum number of occupants", Values: []string{maxUsers}},
		},
	}
}

func applyConfigForm(cfg mucmodel.Config, fs xep0004.Fields) (mucmodel.Config, error) {
	if v := fs.ValueForField(xep0004.FormType); len(v) > 0 && v != roomConfigFormType {
		return cfg, ErrBadRequest
	}
	if _, ok := fs.Field(configRoomName); ok {
		cfg.Name = fs.ValueForField(configRoomName)
	}
	if _, ok := fs.Field(configRoomDesc); ok {
		cfg.Description = fs.ValueForField(configRoomDesc)
	}
	if v, ok := fs.BoolForField(configPersistent); ok {
		cfg.Persistent = v
	}
	if v, ok := fs.BoolForField(configPublic); ok {
		cfg.Public = v
	}
	if v, ok := fs.BoolForField(configMembersOnly); ok {
		cfg.MembersOnly = v
	}
	if v, ok := fs.BoolForField(configModerated); ok {
		cfg.Moderated = v
	}
	if _, ok := fs.Field(configRoomSecret); ok {
		cfg.Password = fs.ValueForField(configRoomSecret)
	}
	if v, ok := fs.BoolForField(configPasswordProtected); ok && !v {
		cfg.Password = ""
	}
	if _, ok := fs.Field(configMaxUsers); ok {
		v := fs.ValueForField(configMaxUsers)
		if len(v) == 0 {
			cfg.MaxUsers = 0
		} else {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return cfg, ErrBadRequest
			}
			cfg.MaxUsers = n
		}
	}
	return cfg, nil
}
