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
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/hook"
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

// ModuleName represents muc module name.
const ModuleName = "muc"

// Service represents a multi-user chat service owning its own virtual domain.
type Service struct {
	cfg    Config
	router globalRouter
	access accessEvaluator
	rep    repository.Room
	hk     *hook.Hooks
	logger kitlog.Logger

	hookID  hook.HandlerID
	nowFunc func() time.Time

	mu    sync.RWMutex
	rooms map[string]*room
}

// New returns a new initialized MUC service.
func New(
	cfg Config,
	router *router.Router,
	access *acl.Evaluator,
	rep repository.Room,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		router:  router,
		access:  access,
		rep:     rep,
		hk:      hk,
		logger:  kitlog.With(logger, "module", ModuleName),
		nowFunc: time.Now,
		rooms:   make(map[string]*room),
	}
}

// Name returns muc module name.
func (s *Service) Name() string { return ModuleName }

// Host returns the service virtual domain.
func (s *Service) Host() string { return s.cfg.Host }

// StreamFeature returns muc module stream feature.
func (s *Service) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns muc server disco features.
func (s *Service) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

// AccountFeatures returns muc account disco features.
func (s *Service) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

// Start loads persistent rooms and starts tracking occupant sessions.
func (s *Service) Start(ctx context.Context) error {
	rms, err := s.rep.FetchRooms(ctx, s.cfg.Host)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, rm := range rms {
		roomJID, err := jid.NewWithString(rm.JID, false)
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping persisted room", "jid", rm.JID, "err", err)
			continue
		}
		s.rooms[roomJID.String()] = newRoom(roomJID, rm)
		reportRoomCreated()
	}
	s.mu.Unlock()

	s.hookID = s.hk.AddHook(hook.C2SStreamUnregistered, s.onStreamUnregistered, hook.DefaultPriority)

	level.Info(s.logger).Log("msg", "started muc module", "host", s.cfg.Host, "rooms", len(rms))
	return nil
}

// Stop stops muc module.
func (s *Service) Stop(_ context.Context) error {
	s.hk.RemoveHook(hook.C2SStreamUnregistered, s.hookID)

	level.Info(s.logger).Log("msg", "stopped muc module", "host", s.cfg.Host)
	return nil
}

// ProcessStanza processes a stanza addressed to the service domain.
func (s *Service) ProcessStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	var err error
	switch stz := stanza.(type) {
	case *stravaganza.Presence:
		err = s.processPresence(ctx, stz)
	case *stravaganza.Message:
		err = s.processMessage(ctx, stz)
	case *stravaganza.IQ:
		err = s.processIQ(ctx, stz)
	}
	return s.handleError(ctx, stanza, err)
}

// Occupants returns a snapshot of roomJID occupants in join order.
func (s *Service) Occupants(roomJID *jid.JID) []Occupant {
	r := s.room(roomJID)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// RoomExists tells whether roomJID is an existing room.
func (s *Service) RoomExists(roomJID *jid.JID) bool {
	return s.room(roomJID) != nil
}

func (s *Service) processPresence(ctx context.Context, presence *stravaganza.Presence) error {
	switch {
	case presence.IsAvailable():
		return s.Join(ctx, presence)
	case presence.IsUnavailable():
		err := s.Leave(ctx, presence)
		if err == ErrNotOccupant || err == ErrRoomNotFound {
			return nil
		}
		return err
	}
	// subscription management is not supported on room addresses
	return nil
}

func (s *Service) processMessage(ctx context.Context, msg *stravaganza.Message) error {
	toJID := msg.ToJID()
	switch {
	case msg.Type() == stravaganza.ErrorType:
		return nil
	case msg.Type() == stravaganza.GroupChatType && toJID.IsBare():
		return s.SendGroupChat(ctx, msg)
	case msg.Type() != stravaganza.GroupChatType && toJID.IsFull():
		return s.SendPrivate(ctx, msg)
	}
	return ErrBadRequest
}

func (s *Service) handleError(ctx context.Context, stanza stravaganza.Stanza, err error) error {
	if err == nil {
		return nil
	}
	if stanza.Attribute(stravaganza.Type) == stravaganza.ErrorType {
		return nil
	}
	reason, isClientErr := stanzaErrorReason(err)
	_, _ = s.router.Route(ctx, xmpputil.MakeErrorStanza(stanza, reason))
	if isClientErr {
		level.Debug(s.logger).Log("msg", "muc request refused", "from", stanza.FromJID().String(), "err", err)
		return nil
	}
	return err
}

func (s *Service) onStreamUnregistered(ctx context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.C2SStreamInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	s.OccupantGone(ctx, inf.JID)
	return nil
}

func (s *Service) room(roomJID *jid.JID) *room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomJID.ToBareJID().String()]
}

func (s *Service) allRooms() []*room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*room, 0, len(s.rooms))
	for _, r := range s.rooms {
		ret = append(ret, r)
	}
	return ret
}

// getOrCreateRoom returns the room addressed by roomJID creating it if needed.
func (s *Service) getOrCreateRoom(ctx context.Context, roomJID, creatorJID *jid.JID) (*room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.rooms[roomJID.String()]; r != nil {
		return r, false, nil
	}
	if !s.access.IsAllowed(s.cfg.AccessCreate, creatorJID) {
		return nil, false, ErrNotAllowed
	}
	model := &mucmodel.Room{
		JID:    roomJID.String(),
		Config: s.cfg.roomConfig(),
	}
	model.SetAffiliation(creatorJID.ToBareJID().String(), mucmodel.AffiliationOwner)

	if model.Config.Persistent {
		if err := s.rep.UpsertRoom(ctx, model); err != nil {
			return nil, false, err
		}
	}
	r := newRoom(roomJID, model)
	s.rooms[roomJID.String()] = r
	reportRoomCreated()

	level.Info(s.logger).Log("msg", "room created", "room", roomJID.String(), "owner", creatorJID.ToBareJID().String())
	return r, true, nil
}

// removeRoom marks r as destroyed and removes it from the room table. r.mu must be held.
func (s *Service) removeRoom(ctx context.Context, r *room) {
	if r.destroyed {
		return
	}
	r.destroyed = true

	s.mu.Lock()
	delete(s.rooms, r.jid.String())
	s.mu.Unlock()

	if r.model.Config.Persistent {
		if err := s.rep.DeleteRoom(ctx, r.jid.String()); err != nil {
			level.Warn(s.logger).Log("msg", "failed to delete persisted room", "room", r.jid.String(), "err", err)
		}
	}
	reportRoomDestroyed()

	level.Info(s.logger).Log("msg", "room destroyed", "room", r.jid.String())
}

// persist stores r model when the room is persistent. r.mu must be held.
func (s *Service) persist(ctx context.Context, r *room) {
	if !r.model.Config.Persistent {
		return
	}
	if err := s.rep.UpsertRoom(ctx, r.model.Clone()); err != nil {
		level.Warn(s.logger).Log("msg", "failed to persist room", "room", r.jid.String(), "err", err)
	}
}

func (s *Service) isServiceAdmin(j *jid.JID) bool {
	return s.access.IsAllowed(s.cfg.AccessAdmin, j)
}

func (s *Service) maxUsers(r *room) int {
	if n := r.model.Config.MaxUsers; n > 0 {
		return n
	}
	return s.cfg.MaxUsers
}

func (s *Service) route(ctx context.Context, stanza stravaganza.Stanza) {
	if _, err := s.router.Route(ctx, stanza); err != nil {
		level.Debug(s.logger).Log("msg", "failed to route muc stanza", "to", stanza.ToJID().String(), "err", err)
	}
}
