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

package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/cluster/locker"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/router/stream"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const (
	offlineFeature = "msgoffline"

	hintsNamespace = "urn:xmpp:hints"

	delayText = "Offline Storage"

	defaultGatewayTimeout = time.Second * 5
)

// ModuleName represents offline module name.
const ModuleName = "offline"

// Config contains offline module configuration value.
type Config struct {
	// QueueSize defines maximum offline queue size.
	QueueSize int `fig:"queue_size" default:"1000"`

	// Gateway defines the optional HTTP endpoint notified for every stored message.
	Gateway GatewayConfig `fig:"gateway"`
}

// Offline represents offline module type.
type Offline struct {
	cfg      Config
	hosts    hosts
	sessions sessions
	rep      repository.Offline
	locker   locker.Locker
	gw       gateway
	hk       *hook.Hooks
	logger   kitlog.Logger

	wg      sync.WaitGroup
	nowFunc func() time.Time
}

// New creates and initializes a new Offline instance.
func New(
	cfg Config,
	hosts *host.Hosts,
	sessions router.Sessions,
	rep repository.Offline,
	locker locker.Locker,
	hk *hook.Hooks,
	logger kitlog.Logger,
) *Offline {
	m := &Offline{
		cfg:      cfg,
		hosts:    hosts,
		sessions: sessions,
		rep:      rep,
		locker:   locker,
		hk:       hk,
		logger:   kitlog.With(logger, "module", ModuleName),
		nowFunc:  time.Now,
	}
	if len(cfg.Gateway.URL) > 0 {
		m.gw = newHTTPGateway(cfg.Gateway)
	}
	return m
}

// Name returns offline module name.
func (m *Offline) Name() string { return ModuleName }

// StreamFeature returns offline module stream feature.
func (m *Offline) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return nil, nil
}

// ServerFeatures returns offline module server disco features.
func (m *Offline) ServerFeatures(_ context.Context) ([]string, error) {
	return []string{offlineFeature}, nil
}

// AccountFeatures returns offline module account disco features.
func (m *Offline) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

// Start starts offline module.
func (m *Offline) Start(_ context.Context) error {
	level.Info(m.logger).Log("msg", "started offline module", "queue_size", m.cfg.QueueSize)
	return nil
}

// Stop stops offline module waiting for in-flight gateway notifications.
func (m *Offline) Stop(_ context.Context) error {
	m.wg.Wait()
	level.Info(m.logger).Log("msg", "stopped offline module")
	return nil
}

// Enqueue stores msg into its recipient offline queue.
// router.ErrAccountAvailable is returned when the recipient became available before the message could be
// stored, and a *router.QueueFullError when the queue already holds QueueSize messages.
func (m *Offline) Enqueue(ctx context.Context, msg *stravaganza.Message) error {
	if !isMessageArchivable(msg) {
		return router.ErrNoRoute
	}
	toJID := msg.ToJID().ToBareJID()
	if !m.hosts.IsLocalHost(toJID.Domain()) {
		return router.ErrNoRoute
	}
	if lockID := queueLockID(toJID); !holdsQueueLock(ctx, lockID) {
		lock, err := m.locker.AcquireLock(ctx, lockID)
		if err != nil {
			return err
		}
		defer m.releaseLock(ctx, lock)
	}
	if m.isAvailable(toJID) {
		return router.ErrAccountAvailable
	}
	qSize, err := m.rep.CountOfflineMessages(ctx, toJID.String())
	if err != nil {
		return err
	}
	if qSize >= m.cfg.QueueSize {
		return &router.QueueFullError{JID: toJID, Limit: m.cfg.QueueSize}
	}
	dMsg := xmpputil.MakeDelayMessage(msg, m.nowFunc(), toJID.Domain(), delayText)

	if err := m.rep.InsertOfflineMessage(ctx, dMsg, toJID.String()); err != nil {
		return err
	}
	_, err = m.hk.Run(ctx, hook.OfflineMessageArchived, &hook.ExecutionContext{
		Info: &hook.OfflineInfo{
			JID:     toJID.String(),
			Message: dMsg,
		},
		Sender: m,
	})
	if err != nil {
		return err
	}
	m.notifyGateway(dMsg)

	level.Debug(m.logger).Log("msg", "archived offline message",
		"id", msg.Attribute(stravaganza.ID), "jid", toJID.String(), "queue_size", qSize+1,
	)
	return nil
}

// WithQueueLock invokes fn while holding j offline queue lock.
// Messages enqueued using the context handed to fn reuse the held lock, hence they are stored
// ahead of any message other senders try to enqueue meanwhile.
func (m *Offline) WithQueueLock(ctx context.Context, j *jid.JID, fn func(ctx context.Context)) error {
	lockID := queueLockID(j.ToBareJID())

	lock, err := m.locker.AcquireLock(ctx, lockID)
	if err != nil {
		return err
	}
	defer m.releaseLock(ctx, lock)

	fn(context.WithValue(ctx, heldQueueLockKey{}, lockID))
	return nil
}

// Drain delivers j pending messages in FIFO order and removes them from the queue.
// commit is invoked while the queue is still locked, so that no message can be enqueued
// between the last delivery and the account becoming available.
func (m *Offline) Drain(
	ctx context.Context,
	j *jid.JID,
	deliver func(ctx context.Context, msg *stravaganza.Message) error,
	commit func(),
) error {
	bareJID := j.ToBareJID()

	lock, err := m.locker.AcquireLock(ctx, queueLockID(bareJID))
	if err != nil {
		return err
	}
	defer m.releaseLock(ctx, lock)

	ms, err := m.rep.FetchOfflineMessages(ctx, bareJID.String())
	if err != nil {
		return err
	}
	if len(ms) > 0 {
		if err := m.rep.DeleteOfflineMessages(ctx, bareJID.String()); err != nil {
			return err
		}
	}
	for i, msg := range ms {
		if err := deliver(ctx, msg); err != nil {
			m.requeue(ctx, bareJID, ms[i:])
			return err
		}
	}
	commit()

	if len(ms) > 0 {
		level.Info(m.logger).Log("msg", "delivered offline messages", "queue_size", len(ms), "jid", bareJID.String())
	}
	return nil
}

// requeue stores back undelivered messages preserving their order.
func (m *Offline) requeue(ctx context.Context, bareJID *jid.JID, ms []*stravaganza.Message) {
	for _, msg := range ms {
		if err := m.rep.InsertOfflineMessage(ctx, msg, bareJID.String()); err != nil {
			level.Error(m.logger).Log("msg", "failed to requeue offline message", "jid", bareJID.String(), "err", err)
			return
		}
	}
}

func (m *Offline) isAvailable(bareJID *jid.JID) bool {
	for _, stm := range m.sessions.Resolve(bareJID) {
		if stream.IsAvailable(stm) && stream.Priority(stm) >= 0 {
			return true
		}
	}
	return false
}

func (m *Offline) notifyGateway(msg *stravaganza.Message) {
	if m.gw == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		timeout := m.cfg.Gateway.Timeout
		if timeout <= 0 {
			timeout = defaultGatewayTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := m.gw.Route(ctx, msg); err != nil {
			level.Warn(m.logger).Log("msg", "failed to notify offline gateway", "err", err)
		}
	}()
}

func (m *Offline) releaseLock(ctx context.Context, lock locker.Lock) {
	if err := lock.Release(ctx); err != nil {
		level.Warn(m.logger).Log("msg", "failed to release offline queue lock", "err", err)
	}
}

func isMessageArchivable(msg *stravaganza.Message) bool {
	if msg.ChildNamespace("no-store", hintsNamespace) != nil {
		return false
	}
	if msg.ChildNamespace("store", hintsNamespace) != nil {
		return true
	}
	return msg.IsNormal() || (msg.IsChat() && msg.IsMessageWithBody())
}

type heldQueueLockKey struct{}

func holdsQueueLock(ctx context.Context, lockID string) bool {
	held, _ := ctx.Value(heldQueueLockKey{}).(string)
	return held == lockID
}

func queueLockID(bareJID *jid.JID) string {
	return fmt.Sprintf("offline:queue:%s", bareJID.String())
}
