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

package repository

import (
	"bytes"

	"github.com/jackal-xmpp/stravaganza/v2"
	xmppparser "github.com/ortuman/kestrel/pkg/parser"
)

// EncodeMessage returns the XML representation of msg used for persistence.
func EncodeMessage(msg *stravaganza.Message) ([]byte, error) {
	return EncodeElement(msg)
}

// DecodeMessage parses a message previously encoded with EncodeMessage.
func DecodeMessage(b []byte) (*stravaganza.Message, error) {
	elem, err := DecodeElement(b)
	if err != nil {
		return nil, err
	}
	return stravaganza.NewBuilderFromElement(elem).BuildMessage()
}

// EncodeElement returns the XML representation of elem used for persistence.
func EncodeElement(elem stravaganza.Element) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := elem.ToXML(buf, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeElement parses an element previously encoded with EncodeElement.
func DecodeElement(b []byte) (stravaganza.Element, error) {
	return xmppparser.New(bytes.NewReader(b), xmppparser.DefaultMode, len(b)).Parse()
}
