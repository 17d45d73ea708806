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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNode_Codec(t *testing.T) {
	// given
	n := &Node{
		Host: "pubsub.jackal.im",
		ID:   "princely_musings",
		Options: Options{
			Title:           "Princely Musings",
			PublishModel:    "publishers",
			AccessModel:     "open",
			MaxItems:        10,
			DeliverPayloads: true,
		},
		Affiliations: map[string]string{"hamlet@denmark.lit": "owner"},
		Subscriptions: []Subscription{
			{JID: "francisco@denmark.lit/barracks", SubID: "ba49252aaa4f5d320c24d3766f0bdcade78c78d3"},
		},
		Items: []Item{
			{ID: "ae890ac52d0df67ed7cfdf51b644e901", Publisher: "hamlet@denmark.lit", Payload: []byte("<entry/>"), Published: 1704067200000000000},
		},
	}

	// when
	b, err := n.MarshalBinary()
	require.Nil(t, err)

	var n2 Node
	err = n2.UnmarshalBinary(b)

	// then
	require.Nil(t, err)
	require.Equal(t, n, &n2)
}

func TestNode_CloneIsIndependent(t *testing.T) {
	// given
	n := &Node{
		Host:         "pubsub.jackal.im",
		ID:           "princely_musings",
		Affiliations: map[string]string{"hamlet@denmark.lit": "owner"},
		Items:        []Item{{ID: "1", Payload: []byte("<entry/>")}},
	}

	// when
	cp := n.Clone()
	cp.Affiliations["bernardo@denmark.lit"] = "member"
	cp.Items[0].Payload[1] = 'x'
	cp.Options.MaxItems = 5

	// then
	require.Len(t, n.Affiliations, 1)
	require.Equal(t, []byte("<entry/>"), n.Items[0].Payload)
	require.Zero(t, n.Options.MaxItems)
}
