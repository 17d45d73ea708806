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

package pubsubmodel

import (
	"github.com/fxamacker/cbor/v2"
)

// Options contains node configuration values.
type Options struct {
	Title           string `cbor:"1,keyasint,omitempty"`
	PublishModel    string `cbor:"2,keyasint,omitempty"`
	AccessModel     string `cbor:"3,keyasint,omitempty"`
	MaxItems        int    `cbor:"4,keyasint,omitempty"`
	DeliverPayloads bool   `cbor:"5,keyasint,omitempty"`
	NotifyDelete    bool   `cbor:"6,keyasint,omitempty"`
	NotifyRetract   bool   `cbor:"7,keyasint,omitempty"`
}

// Subscription represents a node subscription.
type Subscription struct {
	JID   string `cbor:"1,keyasint"`
	SubID string `cbor:"2,keyasint"`
}

// Item represents a published node item.
type Item struct {
	ID        string `cbor:"1,keyasint"`
	Publisher string `cbor:"2,keyasint,omitempty"`

	// Payload is the XML representation of the item payload element.
	Payload []byte `cbor:"3,keyasint,omitempty"`

	// Published is the publication time in nanoseconds since Unix epoch.
	Published int64 `cbor:"4,keyasint,omitempty"`
}

// Node represents the persisted state of a pubsub node.
type Node struct {
	Host    string  `cbor:"1,keyasint"`
	ID      string  `cbor:"2,keyasint"`
	Options Options `cbor:"3,keyasint"`

	// Affiliations maps a bare JID to its affiliation name.
	Affiliations map[string]string `cbor:"4,keyasint,omitempty"`

	// Subscriptions and Items keep their subscription and publication order.
	Subscriptions []Subscription `cbor:"5,keyasint,omitempty"`
	Items         []Item         `cbor:"6,keyasint,omitempty"`
}

// MarshalBinary satisfies encoding.BinaryMarshaler interface.
func (n *Node) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(n)
}

// UnmarshalBinary satisfies encoding.BinaryUnmarshaler interface.
func (n *Node) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, n)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	cp := &Node{Host: n.Host, ID: n.ID, Options: n.Options}
	if len(n.Affiliations) > 0 {
		cp.Affiliations = make(map[string]string, len(n.Affiliations))
		for k, v := range n.Affiliations {
			cp.Affiliations[k] = v
		}
	}
	if len(n.Subscriptions) > 0 {
		cp.Subscriptions = append([]Subscription(nil), n.Subscriptions...)
	}
	if len(n.Items) > 0 {
		cp.Items = make([]Item, len(n.Items))
		for i, it := range n.Items {
			it.Payload = append([]byte(nil), it.Payload...)
			cp.Items[i] = it
		}
	}
	return cp
}
