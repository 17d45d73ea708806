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

package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// PlainMechanism is the SASL PLAIN mechanism name.
const PlainMechanism = "PLAIN"

var errAuthzIDMismatch = errors.New("auth: authorization identity mismatch")

// Plain represents SASL PLAIN authentication mechanism (RFC 4616).
type Plain struct {
	backend       Backend
	domain        string
	username      string
	authenticated bool
}

// NewPlain returns a new PLAIN authenticator validating credentials against backend.
func NewPlain(backend Backend, domain string) *Plain {
	return &Plain{backend: backend, domain: domain}
}

// Mechanism returns authenticator mechanism name.
func (p *Plain) Mechanism() string {
	return PlainMechanism
}

// Username returns authenticated username in case authentication process has been completed.
func (p *Plain) Username() string {
	if p.authenticated {
		return p.username
	}
	return ""
}

// Authenticated returns whether or not user has been authenticated.
func (p *Plain) Authenticated() bool {
	return p.authenticated
}

// ProcessElement process an incoming authenticator element.
func (p *Plain) ProcessElement(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *SASLError) {
	if p.authenticated {
		return nil, nil
	}
	if len(elem.Text()) == 0 {
		return nil, NewSASLError(MalformedRequest, nil)
	}
	b, err := base64.StdEncoding.DecodeString(elem.Text())
	if err != nil {
		return nil, NewSASLError(IncorrectEncoding, err)
	}
	s := bytes.Split(b, []byte{0})
	if len(s) != 3 || len(s[1]) == 0 {
		return nil, NewSASLError(MalformedRequest, nil)
	}
	authzID, username, password := string(s[0]), string(s[1]), string(s[2])
	if len(authzID) > 0 && authzID != username && authzID != username+"@"+p.domain {
		return nil, NewSASLError(NotAuthorized, errAuthzIDMismatch)
	}
	ok, err := p.backend.Authenticate(ctx, username, password)
	if err != nil {
		return nil, NewSASLError(TemporaryAuthFailure, err)
	}
	if !ok {
		return nil, NewSASLError(NotAuthorized, nil)
	}
	p.username = username
	p.authenticated = true

	return stravaganza.NewBuilder("success").
		WithAttribute(stravaganza.Namespace, saslNamespace).
		Build(), nil
}

// Reset resets authenticator internal state.
func (p *Plain) Reset() {
	p.username = ""
	p.authenticated = false
}
