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

package session

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/host"
	xmppparser "github.com/ortuman/kestrel/pkg/parser"
	"github.com/ortuman/kestrel/pkg/transport"
)

const envLogStanzas = "KESTREL_LOG_STANZAS"

var logStanzas = os.Getenv(envLogStanzas) == "on"

const (
	jabberClientNamespace = "jabber:client"
	jabberServerNamespace = "jabber:server"
	streamNamespace       = "http://etherx.jabber.org/streams"
	framingNamespace      = "urn:ietf:params:xml:ns:xmpp-framing"
	xmppErrorsNamespace   = "urn:xmpp:errors"
)

var (
	errAlreadyOpened = errors.New("session: already opened")
	errAlreadyClosed = errors.New("session: already closed")
)

// Type represents session type.
type Type uint8

const (
	// C2SSession represents a C2S session type.
	C2SSession Type = iota

	// S2SSession represents a S2S session type
	S2SSession
)

// Config structure is used to establish XMPP session configuration.
type Config struct {
	// MaxStanzaSize defines the maximum stanza size that can be read from the session transport.
	MaxStanzaSize int

	// IsOut defines whether or not this is an initiating entity session.
	IsOut bool
}

// Session represents an XMPP session between two peers.
// It frames outgoing elements and validates incoming ones, but does not keep any routing state.
type Session struct {
	id     string
	typ    Type
	cfg    Config
	hosts  hosts
	tr     transport.Transport
	pr     xmppParser
	logger kitlog.Logger

	streamID string
	jd       jid.JID
	opened   bool
	started  bool
}

// New creates a new session instance.
func New(typ Type, identifier string, tr transport.Transport, hosts *host.Hosts, cfg Config, logger kitlog.Logger) *Session {
	ss := &Session{
		typ:    typ,
		id:     identifier,
		cfg:    cfg,
		hosts:  hosts,
		tr:     tr,
		pr:     newParser(tr, cfg.MaxStanzaSize),
		logger: logger,
	}
	if !ss.cfg.IsOut {
		ss.streamID = uuid.New().String()
	}
	return ss
}

// StreamID returns session stream identifier.
func (ss *Session) StreamID() string {
	return ss.streamID
}

// SetFromJID updates current session from JID.
func (ss *Session) SetFromJID(jd *jid.JID) {
	ss.jd = *jd
}

// OpenStream initializes the session sending the stream header.
func (ss *Session) OpenStream(ctx context.Context) error {
	if ss.opened {
		return errAlreadyOpened
	}
	var b *stravaganza.Builder
	var includeClosing bool

	buf := &strings.Builder{}
	switch ss.tr.Type() {
	case transport.WebSocket:
		b = stravaganza.NewBuilder("open").
			WithAttribute(stravaganza.Namespace, framingNamespace).
			WithAttribute(stravaganza.Version, "1.0")
		includeClosing = true

	default:
		b = stravaganza.NewBuilder("stream:stream").
			WithAttribute(stravaganza.Namespace, ss.namespace()).
			WithAttribute(stravaganza.Version, "1.0").
			WithAttribute(stravaganza.StreamNamespace, streamNamespace)
		buf.WriteString(`<?xml version='1.0'?>`)
	}
	switch {
	case ss.cfg.IsOut:
		b.WithAttribute(stravaganza.From, ss.hosts.DefaultHostName())
		b.WithAttribute(stravaganza.To, ss.jd.Domain())
	case ss.typ == S2SSession:
		// receiving server session: jd holds the remote domain
		b.WithAttribute(stravaganza.From, ss.hosts.DefaultHostName())
		b.WithAttribute(stravaganza.To, ss.jd.Domain())
		b.WithAttribute(stravaganza.ID, ss.streamID)
	default:
		b.WithAttribute(stravaganza.From, ss.jd.Domain())
		b.WithAttribute(stravaganza.ID, ss.streamID)
	}
	if err := b.Build().ToXML(buf, includeClosing); err != nil {
		return err
	}
	if err := ss.sendString(ctx, buf.String()); err != nil {
		return err
	}
	ss.opened = true
	return nil
}

// Close closes session sending the stream trailer.
func (ss *Session) Close(ctx context.Context) error {
	if !ss.opened {
		return errAlreadyClosed
	}
	var outStr string
	switch ss.tr.Type() {
	case transport.WebSocket:
		outStr = `<close xmlns='` + framingNamespace + `'/>`
	default:
		outStr = "</stream:stream>"
	}
	if err := ss.sendString(ctx, outStr); err != nil {
		return err
	}
	ss.opened = false
	ss.started = false
	return nil
}

// Send writes an XML element to the underlying session transport.
func (ss *Session) Send(ctx context.Context, elem stravaganza.Element) error {
	if logStanzas {
		level.Debug(ss.logger).Log("msg", fmt.Sprintf("SND(%s): %v", ss.id, elem))
	}
	ss.setWriteDeadline(ctx)
	if err := elem.ToXML(ss.tr, true); err != nil {
		return err
	}
	return ss.tr.Flush()
}

// Receive returns next incoming session element.
// Stanzas are returned with validated 'from' and 'to' addresses.
func (ss *Session) Receive() (stravaganza.Element, error) {
	elem, err := ss.pr.Parse()
	if err != nil {
		return nil, mapErrorToSessionError(err)
	}
	if logStanzas {
		level.Debug(ss.logger).Log("msg", fmt.Sprintf("RCV(%s): %v", ss.id, elem))
	}
	if elem.Name() == "stream:error" {
		return nil, nil // ignore incoming stream errors
	}
	if !ss.started {
		if err := ss.validateStreamElement(elem); err != nil {
			return nil, err
		}
		if ss.cfg.IsOut {
			ss.streamID = elem.Attribute(stravaganza.ID)
		}
		ss.started = true
		return elem, nil
	}
	if !stravaganza.IsStanza(elem) {
		return elem, nil
	}
	return ss.buildStanza(elem)
}

// Reset resets session internal state. Used after securing or re-authenticating the stream.
func (ss *Session) Reset(tr transport.Transport) error {
	if !ss.cfg.IsOut {
		ss.streamID = uuid.New().String()
	}
	ss.tr = tr
	ss.pr = newParser(tr, ss.cfg.MaxStanzaSize)
	ss.opened = false
	ss.started = false
	return nil
}

func (ss *Session) sendString(ctx context.Context, str string) error {
	if logStanzas {
		level.Debug(ss.logger).Log("msg", fmt.Sprintf("SND(%s): %v", ss.id, str))
	}
	ss.setWriteDeadline(ctx)
	if _, err := ss.tr.WriteString(str); err != nil {
		return err
	}
	return ss.tr.Flush()
}

func (ss *Session) validateStreamElement(elem stravaganza.Element) error {
	switch ss.tr.Type() {
	case transport.WebSocket:
		if elem.Name() != "open" {
			return streamerror.E(streamerror.UnsupportedStanzaType)
		}
		if elem.Attribute(stravaganza.Namespace) != framingNamespace {
			return streamerror.E(streamerror.InvalidNamespace)
		}
	default:
		if elem.Name() != "stream:stream" {
			return streamerror.E(streamerror.UnsupportedStanzaType)
		}
		ns := elem.Attribute(stravaganza.Namespace)
		streamNs := elem.Attribute(stravaganza.StreamNamespace)
		if ns != ss.namespace() || streamNs != streamNamespace {
			return streamerror.E(streamerror.InvalidNamespace)
		}
	}
	to := elem.Attribute(stravaganza.To)
	if !ss.cfg.IsOut && len(to) > 0 && !ss.hosts.IsLocalHost(to) {
		return streamerror.E(streamerror.HostUnknown)
	}
	if elem.Attribute(stravaganza.Version) != "1.0" {
		return streamerror.E(streamerror.UnsupportedVersion)
	}
	return nil
}

func (ss *Session) buildStanza(elem stravaganza.Element) (stravaganza.Stanza, error) {
	if err := ss.validateNamespace(elem); err != nil {
		return nil, err
	}
	fromJID, toJID, err := ss.extractAddresses(elem)
	if err != nil {
		return nil, err
	}
	sb := stravaganza.NewBuilderFromElement(elem).
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithoutAttribute(stravaganza.Namespace)

	var stanza stravaganza.Stanza
	switch elem.Name() {
	case "iq":
		stanza, err = sb.BuildIQ()
	case "presence":
		stanza, err = sb.BuildPresence()
	case "message":
		stanza, err = sb.BuildMessage()
	default:
		return nil, streamerror.E(streamerror.UnsupportedStanzaType)
	}
	if err != nil {
		return nil, stanzaerror.E(stanzaerror.BadRequest, elem)
	}
	return stanza, nil
}

func (ss *Session) validateNamespace(elem stravaganza.Element) error {
	ns := elem.Attribute(stravaganza.Namespace)
	if len(ns) == 0 || ns == ss.namespace() {
		return nil
	}
	return streamerror.E(streamerror.InvalidNamespace)
}

func (ss *Session) setWriteDeadline(ctx context.Context) {
	d, ok := ctx.Deadline()
	if !ok {
		return
	}
	_ = ss.tr.SetWriteDeadline(d)
}

func (ss *Session) namespace() string {
	if ss.typ == S2SSession {
		return jabberServerNamespace
	}
	return jabberClientNamespace
}

func (ss *Session) extractAddresses(elem stravaganza.Element) (fromJID *jid.JID, toJID *jid.JID, err error) {
	from := elem.Attribute(stravaganza.From)
	switch ss.typ {
	case C2SSession:
		// 'from' is validated only once the full user JID is known
		if ss.jd.IsFullWithUser() && len(from) > 0 && !ss.isValidFrom(from) {
			return nil, nil, streamerror.E(streamerror.InvalidFrom)
		}
		fromJID = &ss.jd

	default:
		j, err := jid.NewWithString(from, false)
		if err != nil || j.Domain() != ss.jd.Domain() {
			return nil, nil, streamerror.E(streamerror.InvalidFrom)
		}
		fromJID = j
	}
	to := elem.Attribute(stravaganza.To)
	if len(to) > 0 {
		toJID, err = jid.NewWithString(to, false)
		if err != nil {
			return nil, nil, stanzaerror.E(stanzaerror.JIDMalformed, elem)
		}
		return fromJID, toJID, nil
	}
	switch ss.typ {
	case C2SSession:
		toJID = ss.jd.ToBareJID() // account's bare JID as default 'to'
	default:
		toJID, _ = jid.NewWithString(ss.hosts.DefaultHostName(), true)
	}
	return fromJID, toJID, nil
}

func (ss *Session) isValidFrom(from string) bool {
	j, err := jid.NewWithString(from, false)
	if err != nil {
		return false
	}
	if j.Node() != ss.jd.Node() || j.Domain() != ss.jd.Domain() {
		return false
	}
	return len(j.Resource()) == 0 || j.Resource() == ss.jd.Resource()
}

func newParser(tr transport.Transport, maxStanzaSize int) *xmppparser.Parser {
	pm := xmppparser.SocketStream
	if tr.Type() == transport.WebSocket {
		pm = xmppparser.WebSocketStream
	}
	return xmppparser.New(tr, pm, maxStanzaSize)
}

func mapErrorToSessionError(err error) error {
	if errors.Is(err, xmppparser.ErrTooLargeStanza) {
		se := streamerror.E(streamerror.PolicyViolation)
		se.Err = err
		se.ApplicationElement = stravaganza.NewBuilder("stanza-too-big").
			WithAttribute(stravaganza.Namespace, xmppErrorsNamespace).
			Build()
		return se
	}
	var synErr *xml.SyntaxError
	if errors.As(err, &synErr) {
		se := streamerror.E(streamerror.InvalidXML)
		se.Err = err
		return se
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		se := streamerror.E(streamerror.ConnectionTimeout)
		se.Err = err
		return se
	}
	return err
}
