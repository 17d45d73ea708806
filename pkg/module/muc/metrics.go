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
	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeRooms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "muc",
			Name:      "rooms",
			Help:      "The number of active rooms.",
		},
		[]string{"instance"},
	)
	occupants = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "muc",
			Name:      "occupants",
			Help:      "The number of room occupants.",
		},
		[]string{"instance"},
	)
	joinRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "muc",
			Name:      "join_requests_total",
			Help:      "The total number of room join requests by result.",
		},
		[]string{"instance", "result"},
	)
	groupChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "muc",
			Name:      "groupchat_messages_total",
			Help:      "The total number of broadcast group chat messages.",
		},
		[]string{"instance"},
	)
)

func init() {
	prometheus.MustRegister(activeRooms)
	prometheus.MustRegister(occupants)
	prometheus.MustRegister(joinRequests)
	prometheus.MustRegister(groupChatMessages)
}

func reportRoomCreated() {
	activeRooms.WithLabelValues(instance.ID()).Inc()
}

func reportRoomDestroyed() {
	activeRooms.WithLabelValues(instance.ID()).Dec()
}

func reportOccupantDelta(n int) {
	occupants.WithLabelValues(instance.ID()).Add(float64(n))
}

func reportJoinRequest(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	joinRequests.WithLabelValues(instance.ID(), result).Inc()
}

func reportGroupChatMessage() {
	groupChatMessages.WithLabelValues(instance.ID()).Inc()
}
