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

package xmppparser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/jackal-xmpp/stravaganza/v2"
)

const (
	streamName = "stream"

	framingNamespace = "urn:ietf:params:xml:ns:xmpp-framing"
	framingClose     = "close"

	// maximum amount of bytes the decoder may buffer beyond the current token.
	readAhead = 4096
)

// ParsingMode defines the way in which stream level elements are interpreted.
type ParsingMode int

const (
	// DefaultMode treats incoming elements as provided from raw byte reader.
	DefaultMode = ParsingMode(iota)

	// SocketStream treats incoming elements as provided from a socket transport,
	// where the stream root element is opened once and never closed until the end of the session.
	SocketStream

	// WebSocketStream treats incoming elements as provided from a WebSocket transport
	// using RFC 7395 framing, where every frame carries one complete element.
	WebSocketStream
)

// ErrTooLargeStanza will be returned by Parse when the size of the incoming stanza is too large.
var ErrTooLargeStanza = errors.New("parser: too large stanza")

// ErrStreamClosedByPeer will be returned by Parse when stream closed element is parsed.
var ErrStreamClosedByPeer = errors.New("parser: stream closed by peer")

// Parser reads XML stream level elements from an io.Reader.
// Unlike a plain decoder, elements split across several reads are reassembled.
type Parser struct {
	mode          ParsingMode
	maxStanzaSize int64
	cr            *countingReader
	dec           *xml.Decoder

	stack     []*stravaganza.Builder
	texts     []string
	rootStart int64
}

// New creates a new Parser instance reading from r.
func New(r io.Reader, mode ParsingMode, maxStanzaSize int) *Parser {
	p := &Parser{
		mode:          mode,
		maxStanzaSize: int64(maxStanzaSize),
	}
	p.cr = &countingReader{r: r, limit: int64(maxStanzaSize) + readAhead}
	p.dec = xml.NewDecoder(p.cr)
	return p
}

// Parse returns next available stream level element.
// It blocks until a complete element is read or an error occurs.
func (p *Parser) Parse() (stravaganza.Element, error) {
	for {
		off := p.dec.InputOffset()
		t, err := p.dec.RawToken()
		if err != nil {
			if errors.Is(err, ErrTooLargeStanza) {
				return nil, ErrTooLargeStanza
			}
			return nil, err
		}
		if p.inElement() && p.dec.InputOffset()-p.rootStart > p.maxStanzaSize {
			return nil, ErrTooLargeStanza
		}
		switch t1 := t.(type) {
		case xml.CharData:
			if p.inElement() {
				p.texts[len(p.texts)-1] += string(t1)
			}

		case xml.StartElement:
			if !p.inElement() {
				p.rootStart = off
				if p.dec.InputOffset()-off > p.maxStanzaSize {
					return nil, ErrTooLargeStanza
				}
			}
			p.startElement(t1)
			if p.mode == SocketStream && isStreamElement(t1.Name) {
				return p.closeElement(xmlName(t1.Name))
			}

		case xml.EndElement:
			if !p.inElement() && p.mode == SocketStream && isStreamElement(t1.Name) {
				return nil, ErrStreamClosedByPeer
			}
			elem, err := p.closeElement(xmlName(t1.Name))
			if err != nil {
				return nil, err
			}
			if elem == nil {
				continue
			}
			if p.mode == WebSocketStream && elem.Name() == framingClose && elem.Attribute(stravaganza.Namespace) == framingNamespace {
				return nil, ErrStreamClosedByPeer
			}
			return elem, nil
		}
		p.updateMark()
	}
}

func (p *Parser) inElement() bool {
	return len(p.stack) > 0
}

func (p *Parser) updateMark() {
	if p.inElement() {
		p.cr.mark = p.rootStart
	} else {
		p.cr.mark = p.dec.InputOffset()
	}
}

func (p *Parser) startElement(t xml.StartElement) {
	attrs := make([]stravaganza.Attribute, 0, len(t.Attr))
	for _, a := range t.Attr {
		attrs = append(attrs, stravaganza.Attribute{Label: xmlName(a.Name), Value: a.Value})
	}
	p.stack = append(p.stack, stravaganza.NewBuilder(xmlName(t.Name)).WithAttributes(attrs...))
	p.texts = append(p.texts, "")
}

// closeElement pops the innermost open element. The element is returned only when it was a
// stream level one, otherwise it's appended to its parent and nil is returned.
func (p *Parser) closeElement(name string) (stravaganza.Element, error) {
	if !p.inElement() {
		return nil, errUnexpectedEnd(name)
	}
	i := len(p.stack) - 1
	b := p.stack[i]
	if len(p.texts[i]) > 0 {
		b.WithText(p.texts[i])
	}
	elem := b.Build()
	if elem.Name() != name {
		return nil, errUnexpectedEnd(name)
	}
	p.stack = p.stack[:i]
	p.texts = p.texts[:i]

	if i > 0 {
		p.stack[i-1].WithChild(elem)
		return nil, nil
	}
	p.updateMark()
	return elem, nil
}

func isStreamElement(n xml.Name) bool {
	return n.Space == streamName && n.Local == streamName
}

func xmlName(n xml.Name) string {
	if len(n.Space) > 0 {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

func errUnexpectedEnd(name string) error {
	return fmt.Errorf("xmppparser: unexpected end element </%s>", name)
}

// countingReader fails once the decoder buffers more than limit bytes past mark,
// so that a single oversized token cannot be fully loaded into memory.
type countingReader struct {
	r     io.Reader
	n     int64
	mark  int64
	limit int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	if cr.n-cr.mark > cr.limit {
		return 0, ErrTooLargeStanza
	}
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
