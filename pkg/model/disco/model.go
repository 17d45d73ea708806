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

package discomodel

import "github.com/jackal-xmpp/stravaganza/v2"

// Feature represents a disco info feature entity.
type Feature = string

// Identity represents a disco info identity entity.
type Identity struct {
	Category string
	Name     string
	Type     string
}

// Element returns identity XML representation.
func (i Identity) Element() stravaganza.Element {
	b := stravaganza.NewBuilder("identity").WithAttribute("category", i.Category)
	if len(i.Type) > 0 {
		b.WithAttribute("type", i.Type)
	}
	if len(i.Name) > 0 {
		b.WithAttribute("name", i.Name)
	}
	return b.Build()
}

// Item represents a disco items entity.
type Item struct {
	JID  string
	Name string
	Node string
}

// Element returns item XML representation.
func (i Item) Element() stravaganza.Element {
	b := stravaganza.NewBuilder("item").WithAttribute("jid", i.JID)
	if len(i.Name) > 0 {
		b.WithAttribute("name", i.Name)
	}
	if len(i.Node) > 0 {
		b.WithAttribute("node", i.Node)
	}
	return b.Build()
}
