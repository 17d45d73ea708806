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

package pubsub

import (
	"github.com/ortuman/kestrel/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "pubsub",
			Name:      "nodes",
			Help:      "The number of existing pubsub nodes.",
		},
		[]string{"instance"},
	)
	publishedItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "pubsub",
			Name:      "published_items_total",
			Help:      "The total number of published items.",
		},
		[]string{"instance"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "pubsub",
			Name:      "notifications_total",
			Help:      "The total number of event notifications sent by type.",
		},
		[]string{"instance", "type"},
	)
)

func init() {
	prometheus.MustRegister(activeNodes)
	prometheus.MustRegister(publishedItems)
	prometheus.MustRegister(notifications)
}

func reportNodeCreated() {
	activeNodes.WithLabelValues(instance.ID()).Inc()
}

func reportNodeDeleted() {
	activeNodes.WithLabelValues(instance.ID()).Dec()
}

func reportItemPublished() {
	publishedItems.WithLabelValues(instance.ID()).Inc()
}

func reportNotifications(typ string, n int) {
	notifications.WithLabelValues(instance.ID(), typ).Add(float64(n))
}
